package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// CallbackReporter posts the terminal deployment status back to the
// coordinator's internal endpoint, authenticated with the shared builder
// token.
type CallbackReporter struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewCallbackReporter builds a reporter against the coordinator base URL.
func NewCallbackReporter(baseURL, token string, timeout time.Duration) *CallbackReporter {
	return &CallbackReporter{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Report delivers the status with bounded retries. A build result must not
// be lost to a transient coordinator hiccup.
func (r *CallbackReporter) Report(ctx context.Context, deploymentID, status, detail string) error {
	body, err := json.Marshal(map[string]string{
		"status": status,
		"detail": detail,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/internal/deployments/%s/status", r.baseURL, deploymentID)

	backoff := retry.WithMaxRetries(4, retry.NewExponential(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Builder-Token", r.token)

		resp, err := r.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("status callback: coordinator returned %d", resp.StatusCode))
		default:
			return fmt.Errorf("status callback: coordinator returned %d", resp.StatusCode)
		}
	})
}
