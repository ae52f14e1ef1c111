package trajectory

// StepSignals re-walks the same step-start-delimited windows buildStepMetrics
// uses and extracts the two signals DetectPhases needs but Aggregate doesn't
// otherwise carry: each step's finish reason (from its step-finish part) and
// its tool-call count. Both slices are indexed the same as Aggregate.Steps.
func StepSignals(messages []Message) (finishReasons []string, toolCallCounts []int) {
	var reasons []string
	var counts []int
	haveStep := false
	addStep := func() {
		reasons = append(reasons, "")
		counts = append(counts, 0)
		haveStep = true
	}

	for _, msg := range messages {
		for _, part := range msg.Parts {
			switch part.Type {
			case PartStepStart:
				addStep()
			case PartToolCall:
				if haveStep {
					counts[len(counts)-1]++
				}
			case PartStepFinish:
				if haveStep && part.Finish != "" {
					reasons[len(reasons)-1] = part.Finish
				}
			}
		}
	}
	return reasons, counts
}
