// Package trajectory normalizes a raw agent conversation into a structured
// record for offline analysis: per-part tagged variants, per-message
// normalization, aggregated token and tool-call statistics (costs are not
// aggregated), derived per-step metrics, and an optional phase split.
package trajectory

import (
	"time"

	"github.com/google/uuid"
)

// Trajectory is the top-level record written alongside the generated
// patch. RunID disambiguates repeated runs over the same project/version
// pair without relying on filesystem mtimes.
type Trajectory struct {
	RunID        string      `json:"run_id"`
	SessionID    string      `json:"session_id"`
	Directory    string      `json:"directory"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
	Messages     []Message   `json:"messages"`
	Aggregate    Aggregate   `json:"aggregate"`
	Phases       []Phase     `json:"phases,omitempty"`
	FinalPatch   string      `json:"final_patch,omitempty"`
	FinalError   string      `json:"final_error,omitempty"`
	RetrySummary []RetryNote `json:"retry_summary,omitempty"`
}

// RetryNote is one line of the retry summary: what happened on a given
// attempt, independent of the full Attempt Record the orchestrator keeps.
type RetryNote struct {
	Attempt int    `json:"attempt"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Message is a normalized conversation entry.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// PartType tags the variant held in a Part.
type PartType string

const (
	PartText       PartType = "text"
	PartReasoning  PartType = "reasoning"
	PartToolCall   PartType = "tool_call"
	PartStepStart  PartType = "step_start"
	PartStepFinish PartType = "step_finish"
	PartSnapshot   PartType = "snapshot"
	PartPatch      PartType = "patch"
	PartUnknown    PartType = "unknown"
)

// Part is a normalized message part. Only the fields relevant to Type are
// populated; the rest stay at their zero value. Raw carries the original
// value whenever the specific type doesn't otherwise preserve it in full.
type Part struct {
	Type PartType `json:"type"`

	Text string `json:"text,omitempty"` // text, reasoning

	ToolName  string                 `json:"tool_name,omitempty"`
	ToolID    string                 `json:"tool_id,omitempty"`
	State     string                 `json:"state,omitempty"` // pending/running/completed/error
	Input     map[string]interface{} `json:"input,omitempty"`
	Output    interface{}            `json:"output,omitempty"`
	ToolError string                 `json:"tool_error,omitempty"`
	StartedAt *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`

	Name   string      `json:"name,omitempty"`   // step-start/step-finish/snapshot
	Data   interface{} `json:"data,omitempty"`
	Finish string      `json:"finish,omitempty"` // step-finish: stop/end_turn/etc.

	Raw interface{} `json:"raw,omitempty"`
}

// NewRunID stamps a fresh v4 UUID for a new Trajectory.
func NewRunID() string {
	return uuid.NewString()
}
