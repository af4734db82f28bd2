package domain

import "time"

// LogEvent is one line of build output. EventID is the deduplication key for
// at-least-once delivery; Seq is the executor-assigned emission sequence that
// defines ordering within a deployment regardless of store write timing.
type LogEvent struct {
	EventID      string    `json:"eventId"`
	DeploymentID string    `json:"deploymentId"`
	ProjectID    string    `json:"projectId"`
	Seq          int64     `json:"seq"`
	Log          string    `json:"log"`
	CreatedAt    time.Time `json:"timestamp"`
}
