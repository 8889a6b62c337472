package schedule

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cuepoint/internal/logger"
)

// Client fetches schedule documents from the ad server.
type Client struct {
	baseURL  string
	interval int
	http     *http.Client
}

// NewClient creates a schedule client for the given ad server endpoint.
// interval is the schedule interval advertised to the server, in seconds.
func NewClient(baseURL string, interval int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		interval: interval,
		http:     &http.Client{Timeout: timeout},
	}
}

// Fetch requests and parses the ad playlist for one load operation. A non-2xx
// response or an undecodable document is a hard failure; the caller aborts
// the load and does not retry.
func (c *Client) Fetch(ctx context.Context, contentDuration float64, userID string) (*Document, error) {
	requestURL, err := c.buildURL(contentDuration, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleFetch, err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: ad server returned status %d", ErrScheduleFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleFetch, err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return nil, err
	}

	logger.Log.Debug().
		Int("entries", len(doc.Breaks)).
		Str("url", c.baseURL).
		Msg("fetched ad schedule")

	return doc, nil
}

// buildURL assembles the schedule query. An empty user id is sent as "guest".
func (c *Client) buildURL(contentDuration float64, userID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	if userID == "" {
		userID = "guest"
	}
	q := u.Query()
	q.Set("duration", strconv.Itoa(int(contentDuration)))
	q.Set("interval", strconv.Itoa(c.interval))
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
