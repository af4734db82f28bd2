package logstream

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
)

// Sink receives consumed events. Persist must be idempotent on event id;
// Broadcast is best-effort and must not block consumption.
type Sink interface {
	Persist(ctx context.Context, event domain.LogEvent) error
	Broadcast(event domain.LogEvent)
}

// Consumer drains the stream through a consumer group. It is single-threaded
// so per-deployment emission order is preserved end to end; an event is
// acknowledged only after the durable sink accepted it, making delivery
// at-least-once with dedup downstream.
type Consumer struct {
	client *redis.Client
	stream string
	group  string
	name   string
	batch  int64
	block  time.Duration
	sink   Sink
	log    *slog.Logger
}

// NewConsumer constructs a consumer bound to a group and consumer name.
func NewConsumer(client *redis.Client, stream, group, name string, batch int, block time.Duration, sink Sink, logger *slog.Logger) *Consumer {
	if batch <= 0 {
		batch = 64
	}
	if block <= 0 {
		block = 5 * time.Second
	}
	return &Consumer{
		client: client,
		stream: stream,
		group:  group,
		name:   name,
		batch:  int64(batch),
		block:  block,
		sink:   sink,
		log:    logger,
	}
}

// Run consumes until the context is cancelled. Pending entries left over
// from a previous run are replayed before new ones.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	// "0" replays this consumer's unacknowledged entries; ">" reads new ones.
	cursor := "0"
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delivered, err := c.consumeBatch(ctx, cursor)
		switch {
		case err == nil:
			if cursor == "0" && delivered == 0 {
				cursor = ">"
			}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, errPersist):
			// Unacked entries are pending; retry them before taking new work.
			cursor = "0"
			c.sleep(ctx, time.Second)
		default:
			c.log.Error("log consumer read failed", "error", err)
			c.sleep(ctx, time.Second)
		}
	}
}

var errPersist = errors.New("logstream: persist failed")

func (c *Consumer) consumeBatch(ctx context.Context, cursor string) (int, error) {
	res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{c.stream, cursor},
		Count:    c.batch,
		Block:    c.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}

	delivered := 0
	for _, stream := range res {
		for _, msg := range stream.Messages {
			delivered++
			if err := c.handle(ctx, msg); err != nil {
				return delivered, err
			}
		}
	}
	return delivered, nil
}

// handle processes one entry: persist, then broadcast, then ack. A persist
// failure leaves the entry pending for redelivery; a broadcast failure does
// not block the ack.
func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) error {
	event, err := eventFromValues(msg.Values)
	if err != nil {
		// Malformed entries can never succeed; ack them away with a diagnostic.
		c.log.Warn("discarding malformed log entry", "entry_id", msg.ID, "error", err)
		return c.ack(ctx, msg.ID)
	}
	if err := c.sink.Persist(ctx, event); err != nil {
		c.log.Error("log persist failed, entry will be redelivered",
			"entry_id", msg.ID, "deployment_id", event.DeploymentID, "error", err)
		return errPersist
	}
	c.sink.Broadcast(event)
	return c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, entryID string) error {
	if err := c.client.XAck(ctx, c.stream, c.group, entryID).Err(); err != nil {
		// The entry was persisted; a lost ack only means a redelivery that
		// the dedup key absorbs.
		c.log.Warn("log ack failed", "entry_id", entryID, "error", err)
	}
	return nil
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
