package evaluator

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// knownCriteria are the three scoring dimensions, in the order the
// overall-score formula weights them (9, 7, 4).
var knownCriteria = [3]string{"functional_correctness", "completeness_coverage", "equivalence_to_ground_truth"}

var validVerdicts = map[string]bool{"pass": true, "partial": true, "fail": true}

// ExtractVerdict robustly extracts an evaluation verdict from raw judge
// output: it scans text for every brace-balanced object, strict-parses each one
// (rejecting NaN/Infinity/overflow-to-inf literals), and picks the
// candidate that best matches the evaluation schema. ok is false when a
// candidate parsed but none matched the schema (the caller falls back to
// the first parseable object in that case, already reflected in the
// returned obj). err is non-nil only when nothing in text parses as JSON
// at all.
func ExtractVerdict(text string) (obj map[string]interface{}, ok bool, err error) {
	var firstParseable map[string]interface{}
	var best map[string]interface{}
	bestScore := -1

	for _, candidate := range braceBalancedCandidates(text) {
		parsed, perr := strictParseObject(candidate)
		if perr != nil {
			continue
		}
		if firstParseable == nil {
			firstParseable = parsed
		}
		score, matches := schemaScore(parsed)
		if matches && score > bestScore {
			best = parsed
			bestScore = score
		}
	}

	if best != nil {
		return best, true, nil
	}
	if firstParseable != nil {
		return firstParseable, false, nil
	}
	return nil, false, fmt.Errorf("no JSON object found in judge response")
}

// strictParseObject decodes s as a single JSON object. Bareword NaN/
// Infinity tokens are already invalid JSON syntax and fail at decode time;
// a literal that overflows float64 (e.g. 1e309) is caught by the
// containsNonFinite walk below rather than trusted to error during decode,
// since encoding/json's interface{} number path does not always surface
// strconv.ParseFloat's range error.
func strictParseObject(s string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	if containsNonFinite(obj) {
		return nil, fmt.Errorf("object contains a non-finite number")
	}
	return obj, nil
}

// containsNonFinite reports whether any number nested in v decoded to
// +/-Inf, which only happens when the source literal overflowed float64.
func containsNonFinite(v interface{}) bool {
	switch val := v.(type) {
	case float64:
		return math.IsInf(val, 0) || math.IsNaN(val)
	case map[string]interface{}:
		for _, elem := range val {
			if containsNonFinite(elem) {
				return true
			}
		}
	case []interface{}:
		for _, elem := range val {
			if containsNonFinite(elem) {
				return true
			}
		}
	}
	return false
}

// schemaScore reports whether obj matches the evaluation schema and, if
// so, a score for ranking it against other matching candidates: one point
// per evaluation-critical key present, plus one for scores being a dict
// and one for overall_score being a finite number.
func schemaScore(obj map[string]interface{}) (score int, matches bool) {
	verdict, _ := obj["verdict"].(string)
	verdictOK := verdict != "" && validVerdicts[strings.ToLower(verdict)]

	overallRaw, hasOverall := obj["overall_score"]
	overall, overallNumeric := asFiniteFloat(overallRaw)

	scoresRaw, hasScores := obj["scores"]
	scoresMap, scoresIsDict := scoresRaw.(map[string]interface{})
	hasKnownCriterion := false
	if scoresIsDict {
		for _, k := range knownCriteria {
			if _, ok := scoresMap[k]; ok {
				hasKnownCriterion = true
				break
			}
		}
	}

	matches = verdictOK && hasOverall && overallNumeric && scoresIsDict && hasKnownCriterion
	if !matches {
		return 0, false
	}

	if verdictOK {
		score++
	}
	if hasOverall {
		score++
	}
	if hasScores {
		score++
	}
	if scoresIsDict {
		score++
	}
	if overallNumeric {
		score++
	}
	_ = overall
	return score, true
}

// asFiniteFloat reports whether v decodes to a finite, non-boolean
// numeric value. JSON booleans decode to Go bool, never float64, so this
// already excludes them without an explicit type-switch case.
func asFiniteFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// braceBalancedCandidates returns the substring of text for every
// '{'-delimited span whose braces balance, honoring string literals
// (including escaped quotes) so a brace inside a JSON string never throws
// off the count. An unterminated string at end of input simply yields no
// candidate for that starting position; candidates starting elsewhere are
// unaffected.
func braceBalancedCandidates(text string) []string {
	var out []string
	n := len(text)
	for i := 0; i < n; i++ {
		if text[i] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for j := i; j < n; j++ {
			c := text[j]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					out = append(out, text[i:j+1])
				}
			}
			if depth == 0 && j > i {
				break
			}
		}
	}
	return out
}
