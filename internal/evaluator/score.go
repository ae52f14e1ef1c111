package evaluator

import "math"

// ApplyScoreCorrection validates and clamps a parsed evaluation object. It
// mutates obj in place: obj["scores"] criteria are clamped to [0, 5], and
// obj["overall_score"] is recomputed and clamped to [0, 100] only when
// doing so is actually called for. A partial or malformed scores payload
// is left untouched rather than guessed at.
func ApplyScoreCorrection(obj map[string]interface{}) {
	scoresRaw, ok := obj["scores"].(map[string]interface{})
	if !ok {
		return
	}

	values := make([]float64, len(knownCriteria))
	for i, key := range knownCriteria {
		v, ok := scoresRaw[key]
		if !ok {
			return // missing criterion: partial payload, skip correction
		}
		f, ok := finiteNonBoolNumber(v)
		if !ok {
			return // non-finite, non-numeric, or boolean: skip correction
		}
		values[i] = f
	}

	for i, key := range knownCriteria {
		clamped := clamp(values[i], 0, 5)
		values[i] = clamped
		scoresRaw[key] = clamped
	}

	computed := math.Round(9*values[0] + 7*values[1] + 4*values[2])
	computed = clamp(computed, 0, 100)

	stored, storedIsNumber := finiteNonBoolNumber(obj["overall_score"])
	storedOutOfRange := storedIsNumber && (stored < 0 || stored > 100)
	storedDiffers := storedIsNumber && stored != computed

	if storedIsNumber && (storedOutOfRange || storedDiffers) {
		obj["overall_score"] = computed
	}
	// A boolean or non-finite overall_score is left exactly as the model
	// produced it — only a numeric-but-wrong value is ever corrected.
}

// finiteNonBoolNumber reports whether v is a finite JSON number. Go's
// encoding/json never decodes a JSON boolean into float64, so this
// already excludes booleans without a type-switch special case; it also
// rejects the non-finite values strictParseObject would have already
// rejected at decode time, for defense when ApplyScoreCorrection is
// called on a hand-built object in tests.
func finiteNonBoolNumber(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
