package logstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	redis "github.com/redis/go-redis/v9"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
)

type captureSink struct {
	persisted  []domain.LogEvent
	broadcast  []domain.LogEvent
	persistErr error
}

func (s *captureSink) Persist(ctx context.Context, event domain.LogEvent) error {
	if s.persistErr != nil {
		return s.persistErr
	}
	s.persisted = append(s.persisted, event)
	return nil
}

func (s *captureSink) Broadcast(event domain.LogEvent) {
	s.broadcast = append(s.broadcast, event)
}

func testConsumer(sink Sink) *Consumer {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	// XAck against a dead address fails; the consumer treats a lost ack as a
	// benign redelivery, so handle() still succeeds in these tests.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	return NewConsumer(client, "test-stream", "test-group", "c1", 16, 0, sink, log)
}

func TestHandlePersistsThenBroadcasts(t *testing.T) {
	sink := &captureSink{}
	c := testConsumer(sink)

	msg := redis.XMessage{ID: "1-0", Values: map[string]any{
		fieldEventID:      "evt-1",
		fieldDeploymentID: "dep-1",
		fieldProjectID:    "proj-1",
		fieldSeq:          "7",
		fieldLog:          "build started",
	}}
	if err := c.handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.persisted) != 1 || len(sink.broadcast) != 1 {
		t.Fatalf("persisted=%d broadcast=%d, want 1/1", len(sink.persisted), len(sink.broadcast))
	}
	if sink.persisted[0].Seq != 7 || sink.persisted[0].EventID != "evt-1" {
		t.Fatalf("unexpected persisted event: %+v", sink.persisted[0])
	}
}

func TestHandleDoesNotBroadcastWhenPersistFails(t *testing.T) {
	sink := &captureSink{persistErr: errors.New("store down")}
	c := testConsumer(sink)

	msg := redis.XMessage{ID: "1-0", Values: map[string]any{
		fieldEventID:      "evt-1",
		fieldDeploymentID: "dep-1",
		fieldSeq:          "1",
	}}
	err := c.handle(context.Background(), msg)
	if !errors.Is(err, errPersist) {
		t.Fatalf("expected errPersist, got %v", err)
	}
	if len(sink.broadcast) != 0 {
		t.Fatal("event was broadcast despite persist failure")
	}
}

func TestHandleDropsMalformedEntries(t *testing.T) {
	sink := &captureSink{}
	c := testConsumer(sink)

	msg := redis.XMessage{ID: "1-0", Values: map[string]any{fieldLog: "orphan line"}}
	if err := c.handle(context.Background(), msg); err != nil {
		t.Fatalf("malformed entry should be dropped, got %v", err)
	}
	if len(sink.persisted) != 0 || len(sink.broadcast) != 0 {
		t.Fatal("malformed entry reached the sink")
	}
}
