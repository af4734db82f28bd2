package logstream

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
)

// streamMaxLen caps the stream so an abandoned consumer cannot grow redis
// without bound; trimming is approximate (XADD MAXLEN ~).
const streamMaxLen = 100_000

// Producer appends log events to the stream. Publishing is fire-and-forget
// from the build's point of view: failures are retried a bounded number of
// times and then surfaced to the caller, which must treat them as non-fatal.
type Producer struct {
	client   *redis.Client
	stream   string
	attempts uint64
	log      *slog.Logger
}

// NewProducer constructs a producer for the given stream.
func NewProducer(client *redis.Client, stream string, attempts int, logger *slog.Logger) *Producer {
	if attempts <= 0 {
		attempts = 3
	}
	return &Producer{client: client, stream: stream, attempts: uint64(attempts), log: logger}
}

// Publish appends one event, retrying transient failures with exponential
// backoff. The returned error is diagnostic only; builds proceed regardless.
func (p *Producer) Publish(ctx context.Context, event domain.LogEvent) error {
	backoff := retry.WithMaxRetries(p.attempts, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		addErr := p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: streamMaxLen,
			Approx: true,
			Values: entryValues(event),
		}).Err()
		if addErr != nil {
			return retry.RetryableError(addErr)
		}
		return nil
	})
	if err != nil {
		p.log.Warn("log publish dropped after retries",
			"deployment_id", event.DeploymentID, "seq", event.Seq, "error", err)
		return err
	}
	return nil
}

// Close releases the redis connection.
func (p *Producer) Close() error {
	return p.client.Close()
}
