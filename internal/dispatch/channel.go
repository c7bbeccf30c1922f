// Package dispatch renders and delivers admitted events to notification channels.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"pumpfun-alerts/internal/domain"
)

// Channel renders a channel-specific payload and delivers it over HTTP.
// Implementations are stateless between dispatches except for credentials.
type Channel interface {
	// Name identifies the channel in statistics and logs.
	Name() string
	// Render formats the event. It never fails for a valid CreationEvent;
	// missing optional fields render as explicit placeholders.
	Render(event *domain.CreationEvent, triggeredBy string) ([]byte, error)
	// Deliver issues one HTTP request and classifies the response.
	Deliver(ctx context.Context, payload []byte) (domain.Outcome, error)
}

// placeholder substitutes empty upstream fields in rendered output.
const placeholder = "n/a"

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// httpChannel holds the shared HTTP delivery mechanics.
type httpChannel struct {
	url    string
	client *http.Client
}

func newHTTPChannel(url string, client *http.Client) httpChannel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return httpChannel{url: url, client: client}
}

// post sends the payload and classifies the result: 2xx success, network
// error / timeout / 5xx / 429 transient, any other 4xx permanent.
func (c *httpChannel) post(ctx context.Context, payload []byte) (domain.Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return domain.OutcomePermanent, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.OutcomeTransient, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return domain.OutcomeSuccess, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.OutcomeTransient, fmt.Errorf("status %d: %s", resp.StatusCode, readBodyPrefix(resp.Body))
	default:
		return domain.OutcomePermanent, fmt.Errorf("status %d: %s", resp.StatusCode, readBodyPrefix(resp.Body))
	}
}

// readBodyPrefix returns up to 200 bytes of the response body for logging.
func readBodyPrefix(r io.Reader) string {
	buf, _ := io.ReadAll(io.LimitReader(r, 200))
	return string(buf)
}
