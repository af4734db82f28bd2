package domain

import "time"

// Deployment statuses. The lifecycle is strictly monotonic:
// QUEUED -> BUILDING -> READY | FAILED, with no back-transitions.
const (
	StatusQueued   = "QUEUED"
	StatusBuilding = "BUILDING"
	StatusReady    = "READY"
	StatusFailed   = "FAILED"
)

// Deployment captures a single build attempt for a project.
type Deployment struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TerminalStatus reports whether a status admits no further transitions.
func TerminalStatus(status string) bool {
	return status == StatusReady || status == StatusFailed
}
