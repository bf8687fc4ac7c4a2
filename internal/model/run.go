package model

import "time"

// RunStatus represents the current state of a deal run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single end-to-end calculation of one deal.
type Run struct {
	ID        string    `json:"id"`
	Deal      string    `json:"deal"`
	Status    RunStatus `json:"status"`
	Periods   int       `json:"periods"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
