package domain

import "time"

// SourceState is a step of the per-source state machine.
type SourceState string

const (
	StateIdle        SourceState = "idle"
	StateFetching    SourceState = "fetching"
	StateExtracting  SourceState = "extracting"
	StateClassifying SourceState = "classifying"
	StateNormalizing SourceState = "normalizing"
	StateDone        SourceState = "done"
	StateFallback    SourceState = "fallback"
	StateAbandoned   SourceState = "abandoned"
)

// Terminal reports whether no further transition can happen.
func (s SourceState) Terminal() bool {
	return s == StateDone || s == StateFallback || s == StateAbandoned
}

// SourceOutcome summarizes what happened to one source during a run.
type SourceOutcome struct {
	AuthorityCode  string        `json:"authorityCode"`
	State          SourceState   `json:"state"`
	Pages          int           `json:"pages"`
	RowsScanned    int           `json:"rowsScanned"`
	RowsDropped    int           `json:"rowsDropped"`
	RowsInvalid    int           `json:"rowsInvalid"`
	Records        int           `json:"records"`
	FallbackReason string        `json:"fallbackReason,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// RunSummary describes one aggregation run.
type RunSummary struct {
	RunID           string          `json:"runId"`
	StartedAt       time.Time       `json:"startedAt"`
	FinishedAt      time.Time       `json:"finishedAt"`
	Cancelled       bool            `json:"cancelled"`
	Outcomes        []SourceOutcome `json:"outcomes"`
	TotalRecords    int             `json:"totalRecords"`
	FallbackRecords int             `json:"fallbackRecords"`
}
