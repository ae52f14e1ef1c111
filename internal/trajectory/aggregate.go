package trajectory

import (
	"math"
	"time"
)

// timeVal boxes a time.Time so a stepAccum field can distinguish "never
// observed" (nil) from the zero time.Time.
type timeVal struct{ t time.Time }

// Aggregate is the summary computed over a full message list.
type Aggregate struct {
	TotalTokens      int64          `json:"total_tokens"`
	CacheReadTokens  int64          `json:"cache_read_tokens"`
	CacheWriteTokens int64          `json:"cache_write_tokens"`
	ReasoningSteps   int            `json:"reasoning_steps"`
	ToolCallsByName  map[string]int `json:"tool_calls_by_name"`
	ToolCallsByState map[string]int `json:"tool_calls_by_state"`
	Steps            []StepMetrics  `json:"steps,omitempty"`
}

// StepMetrics holds the derived per-step numbers computed during aggregation.
type StepMetrics struct {
	Index           int     `json:"index"`
	DurationSeconds float64 `json:"duration_seconds"`
	ToolTimeShare   float64 `json:"tool_time_share"`
	TokensPerSecond float64 `json:"tokens_per_second"`
	CacheRatio      float64 `json:"cache_ratio"`
	IdleGapSeconds  float64 `json:"idle_gap_seconds"`
}

// tokenFieldNames are the known snake_case/camelCase spellings aggregated
// across messages' info blocks.
var tokenFieldNames = [][2]string{
	{"total_tokens", "totalTokens"},
	{"cache_read_tokens", "cacheReadTokens"},
	{"cache_write_tokens", "cacheWriteTokens"},
}

// BuildAggregate sums token counts, buckets tool calls, counts reasoning steps,
// and computes per-step derived metrics across messages. infoBlocks carries
// each message's raw info object (outside the normalized Message, since
// token counters live there, not on a Part) in the same order as messages.
func BuildAggregate(messages []Message, infoBlocks []map[string]interface{}) Aggregate {
	agg := Aggregate{
		ToolCallsByName:  map[string]int{},
		ToolCallsByState: map[string]int{},
	}

	for _, info := range infoBlocks {
		agg.TotalTokens += sumField(info, tokenFieldNames[0])
		agg.CacheReadTokens += sumField(info, tokenFieldNames[1])
		agg.CacheWriteTokens += sumField(info, tokenFieldNames[2])
	}

	for _, msg := range messages {
		for _, part := range msg.Parts {
			switch part.Type {
			case PartReasoning:
				agg.ReasoningSteps++
			case PartToolCall:
				if part.ToolName != "" {
					agg.ToolCallsByName[part.ToolName]++
				}
				if part.State != "" {
					agg.ToolCallsByState[part.State]++
				}
			}
		}
	}

	agg.Steps = buildStepMetrics(messages, infoBlocks)
	return agg
}

func sumField(info map[string]interface{}, names [2]string) int64 {
	if info == nil {
		return 0
	}
	if v, ok := info[names[0]]; ok {
		return toInt64(v)
	}
	if v, ok := info[names[1]]; ok {
		return toInt64(v)
	}
	return 0
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}

// buildStepMetrics derives tool_time_share, tokens_per_second, cache_ratio,
// and the idle gap before each step from the tool_call parts contained in
// the step (each step runs from one step-start marker to the next; step-finish
// parts do not close a step) and the surrounding
// token aggregates. A degenerate message list (no step markers at all)
// yields no per-step breakdown — BuildAggregate still has the totals.
func buildStepMetrics(messages []Message, infoBlocks []map[string]interface{}) []StepMetrics {
	type stepAccum struct {
		toolSeconds float64
		firstStart  *timeVal
		lastFinish  *timeVal
		tokens      int64
		cacheRead   int64
		cacheTotal  int64
	}

	touchStart := func(s *stepAccum, t time.Time) {
		if s.firstStart == nil || t.Before(s.firstStart.t) {
			s.firstStart = &timeVal{t}
		}
	}
	touchFinish := func(s *stepAccum, t time.Time) {
		if s.lastFinish == nil || t.After(s.lastFinish.t) {
			s.lastFinish = &timeVal{t}
		}
	}

	var steps []stepAccum
	var current *stepAccum

	for i, msg := range messages {
		for _, part := range msg.Parts {
			switch part.Type {
			case PartStepStart:
				steps = append(steps, stepAccum{})
				current = &steps[len(steps)-1]
			case PartToolCall:
				if current == nil {
					continue
				}
				if part.StartedAt != nil {
					touchStart(current, *part.StartedAt)
				}
				if part.FinishedAt != nil {
					touchFinish(current, *part.FinishedAt)
				}
				if part.StartedAt != nil && part.FinishedAt != nil {
					current.toolSeconds += part.FinishedAt.Sub(*part.StartedAt).Seconds()
				}
			}
		}
		if current != nil && i < len(infoBlocks) {
			current.tokens += sumField(infoBlocks[i], tokenFieldNames[0])
			current.cacheRead += sumField(infoBlocks[i], tokenFieldNames[1])
			current.cacheTotal += sumField(infoBlocks[i], tokenFieldNames[0])
		}
	}

	if len(steps) == 0 {
		return nil
	}

	out := make([]StepMetrics, len(steps))
	var prevFinish *timeVal
	for i, s := range steps {
		m := StepMetrics{Index: i}

		stepSeconds := 0.0
		if s.firstStart != nil && s.lastFinish != nil {
			stepSeconds = s.lastFinish.t.Sub(s.firstStart.t).Seconds()
		}
		m.DurationSeconds = stepSeconds
		if stepSeconds > 0 {
			m.ToolTimeShare = s.toolSeconds / stepSeconds
			m.TokensPerSecond = float64(s.tokens) / stepSeconds
		}
		if s.cacheTotal > 0 {
			m.CacheRatio = float64(s.cacheRead) / float64(s.cacheTotal)
		}
		if prevFinish != nil && s.firstStart != nil {
			m.IdleGapSeconds = s.firstStart.t.Sub(prevFinish.t).Seconds()
		}
		if s.lastFinish != nil {
			prevFinish = s.lastFinish
		}

		out[i] = m
	}
	return out
}
