// Package logstream is the ordered, durable log channel between build
// executors and the coordinator. Events flow through one redis stream;
// producers append fire-and-forget and a consumer group drains them into the
// log store before fanning out to live subscribers.
package logstream

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
)

const (
	fieldEventID      = "event_id"
	fieldDeploymentID = "deployment_id"
	fieldProjectID    = "project_id"
	fieldSeq          = "seq"
	fieldLog          = "log"
	fieldCreatedAt    = "created_at"
)

// entryValues flattens a log event into redis stream fields.
func entryValues(event domain.LogEvent) map[string]any {
	return map[string]any{
		fieldEventID:      event.EventID,
		fieldDeploymentID: event.DeploymentID,
		fieldProjectID:    event.ProjectID,
		fieldSeq:          strconv.FormatInt(event.Seq, 10),
		fieldLog:          event.Log,
		fieldCreatedAt:    event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// eventFromValues reconstructs a log event from redis stream fields.
func eventFromValues(values map[string]any) (domain.LogEvent, error) {
	event := domain.LogEvent{
		EventID:      stringField(values, fieldEventID),
		DeploymentID: stringField(values, fieldDeploymentID),
		ProjectID:    stringField(values, fieldProjectID),
		Log:          stringField(values, fieldLog),
	}
	if event.EventID == "" {
		return domain.LogEvent{}, fmt.Errorf("logstream: entry missing %s", fieldEventID)
	}
	if event.DeploymentID == "" {
		return domain.LogEvent{}, fmt.Errorf("logstream: entry missing %s", fieldDeploymentID)
	}
	seqRaw := stringField(values, fieldSeq)
	seq, err := strconv.ParseInt(seqRaw, 10, 64)
	if err != nil {
		return domain.LogEvent{}, fmt.Errorf("logstream: bad seq %q: %w", seqRaw, err)
	}
	event.Seq = seq
	if raw := stringField(values, fieldCreatedAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.LogEvent{}, fmt.Errorf("logstream: bad timestamp %q: %w", raw, err)
		}
		event.CreatedAt = parsed.UTC()
	}
	return event, nil
}

func stringField(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
