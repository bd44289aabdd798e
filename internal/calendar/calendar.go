// Package calendar provides the HTTP client for the booking calendar's
// busy-interval feed and helpers for turning intervals into Danish free-slot
// suggestions.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/TekupDK/tekup-sub017/platform/logger"
)

// Interval is one busy block in the calendar.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Client fetches busy intervals from the calendar service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

func New(baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		log:        log,
	}
}

// BusyIntervals returns the busy blocks between from and to.
func (c *Client) BusyIntervals(ctx context.Context, from, to time.Time) ([]Interval, error) {
	params := url.Values{}
	params.Set("from", from.Format(time.RFC3339))
	params.Set("to", to.Format(time.RFC3339))

	reqURL := fmt.Sprintf("%s/api/busy?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("calendar request failed", "error", err, "url", reqURL)
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar responded with status %d", resp.StatusCode)
	}

	var intervals []Interval
	if err := json.NewDecoder(resp.Body).Decode(&intervals); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return intervals, nil
}
