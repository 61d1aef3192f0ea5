package model

import "time"

// RunStatus represents the current state of a research run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusDiscovering RunStatus = "discovering"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusResolving   RunStatus = "resolving"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Run represents a single research run for a subject.
type Run struct {
	ID        string          `json:"id"`
	Subject   Subject         `json:"subject"`
	Status    RunStatus       `json:"status"`
	Record    *ResearchRecord `json:"record,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
