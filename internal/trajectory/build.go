package trajectory

import "time"

// RawMessage is the shape Build expects for each conversation entry: the
// same {role, info, parts} object the agent server returns, already
// decoded from JSON. info may be nil or non-dict; NormalizeMessage and the
// token aggregation both tolerate that.
type RawMessage struct {
	Role  interface{}
	Info  map[string]interface{}
	Parts []interface{}
}

// Build assembles a complete Trajectory from one attempt's raw message
// list: normalization, aggregation, and the optional phase split, in one
// call so callers don't have to thread infoBlocks and step signals through
// by hand.
func Build(runID, sessionID, directory string, startedAt, finishedAt time.Time, raw []RawMessage, finalPatch, finalErr string, retrySummary []RetryNote) Trajectory {
	messages := make([]Message, 0, len(raw))
	infoBlocks := make([]map[string]interface{}, 0, len(raw))

	for _, rm := range raw {
		obj := map[string]interface{}{"info": rm.Info}
		if rm.Role != nil {
			obj["role"] = rm.Role
		}
		if rm.Parts != nil {
			obj["parts"] = rm.Parts
		}
		messages = append(messages, NormalizeMessage(obj))
		infoBlocks = append(infoBlocks, rm.Info)
	}

	agg := BuildAggregate(messages, infoBlocks)
	finishReasons, toolCallCounts := StepSignals(messages)

	return Trajectory{
		RunID:        runID,
		SessionID:    sessionID,
		Directory:    directory,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		Messages:     messages,
		Aggregate:    agg,
		Phases:       DetectPhases(agg.Steps, finishReasons, toolCallCounts),
		FinalPatch:   finalPatch,
		FinalError:   finalErr,
		RetrySummary: retrySummary,
	}
}
