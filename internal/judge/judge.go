// Package judge implements read-only clients for the competitive
// programming services the analysis page reports on. Each client is a
// thin HTTP wrapper with a bounded timeout; all calls take a context.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Submission is one accepted-or-not submission record, normalized
// across services. Key identifies the problem for dedup purposes.
type Submission struct {
	At       time.Time
	Key      string
	Accepted bool
}

// RatingPoint is one entry of a contest rating history.
type RatingPoint struct {
	At     time.Time
	Rating int
}

const defaultTimeout = 15 * time.Second

func defaultClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// getJSON fetches url and decodes the body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
