package trajectory

// Phase is one named segment of a run, produced by the heuristic split in
// DetectPhases. It is explicitly non-authoritative: a supplementary view
// over the same steps the Aggregate already totals, not a source of new
// measurements.
type Phase struct {
	Name         string  `json:"name"`
	StartStep    int     `json:"start_step"`
	EndStep      int     `json:"end_step"`
	RuntimeShare float64 `json:"runtime_share"`
	TokenShare   float64 `json:"token_share"`
}

const (
	phaseBoot     = "Boot"
	phaseSteady   = "Steady"
	phaseCloseout = "Closeout"
	phaseFullRun  = "Full Run"
)

func fullRun(n int) []Phase {
	return []Phase{{Name: phaseFullRun, StartStep: 0, EndStep: n - 1, RuntimeShare: 1, TokenShare: 1}}
}

// DetectPhases implements an optional heuristic three-phase split:
// Boot is the prefix where cumulative runtime share exceeds
// 30% while cumulative token share stays under 15%; Closeout is the suffix
// where a step finishes with finish in {stop, end_turn} or has zero tool
// calls and an above-mean token count; Steady is everything between.
// Degenerate inputs (too few steps, or no timing/token data at all)
// collapse to a single "Full Run" phase. finishReasons and toolCallCounts
// are indexed the same as steps; a short or nil slice treats the missing
// entries as "" / 0.
func DetectPhases(steps []StepMetrics, finishReasons []string, toolCallCounts []int) []Phase {
	n := len(steps)
	if n < 3 {
		return fullRun(n)
	}

	tokensOf := func(s StepMetrics) float64 { return s.TokensPerSecond * s.DurationSeconds }

	var totalRuntime, totalTokens float64
	for _, s := range steps {
		totalRuntime += s.DurationSeconds
		totalTokens += tokensOf(s)
	}
	if totalRuntime <= 0 || totalTokens <= 0 {
		return fullRun(n)
	}

	bootEnd := -1
	var cumRuntime, cumTokens float64
	for i, s := range steps {
		cumRuntime += s.DurationSeconds
		cumTokens += tokensOf(s)
		if cumRuntime/totalRuntime > 0.30 && cumTokens/totalTokens < 0.15 {
			bootEnd = i
		} else {
			break
		}
	}

	meanTokens := totalTokens / float64(n)
	closeoutStart := n
	for i := n - 1; i >= 0; i-- {
		finish := ""
		if i < len(finishReasons) {
			finish = finishReasons[i]
		}
		calls := 0
		if i < len(toolCallCounts) {
			calls = toolCallCounts[i]
		}
		isCloseout := finish == "stop" || finish == "end_turn" || (calls == 0 && tokensOf(steps[i]) > meanTokens)
		if isCloseout {
			closeoutStart = i
		} else {
			break
		}
	}

	if bootEnd < 0 && closeoutStart >= n {
		return fullRun(n)
	}

	var phases []Phase
	steadyStart := 0
	if bootEnd >= 0 {
		phases = append(phases, phaseFor(phaseBoot, 0, bootEnd, steps, totalRuntime, totalTokens, tokensOf))
		steadyStart = bootEnd + 1
	}
	steadyEnd := n - 1
	if closeoutStart < n {
		steadyEnd = closeoutStart - 1
	}
	if steadyStart <= steadyEnd {
		phases = append(phases, phaseFor(phaseSteady, steadyStart, steadyEnd, steps, totalRuntime, totalTokens, tokensOf))
	}
	if closeoutStart < n {
		phases = append(phases, phaseFor(phaseCloseout, closeoutStart, n-1, steps, totalRuntime, totalTokens, tokensOf))
	}

	return phases
}

func phaseFor(name string, start, end int, steps []StepMetrics, totalRuntime, totalTokens float64, tokensOf func(StepMetrics) float64) Phase {
	var runtime, tokens float64
	for i := start; i <= end && i < len(steps); i++ {
		runtime += steps[i].DurationSeconds
		tokens += tokensOf(steps[i])
	}
	p := Phase{Name: name, StartStep: start, EndStep: end}
	if totalRuntime > 0 {
		p.RuntimeShare = runtime / totalRuntime
	}
	if totalTokens > 0 {
		p.TokenShare = tokens / totalTokens
	}
	return p
}
