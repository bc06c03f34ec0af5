package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "gigfeed/internal/log"
	"gigfeed/internal/model"
)

const (
	// pageLimit is the fixed feed page size; a single page is fetched.
	pageLimit = 50

	// eventFields is the field projection requested from the feed.
	eventFields = "id,name,description,start_time,end_time,place,event_url,cover,attending_count,interested_count"
)

// APIError is the error payload the feed embeds in an otherwise-valid
// JSON response body.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feed API error: %s", e.Message)
}

// page is the raw feed page envelope.
type page struct {
	Data  []model.RawEvent `json:"data"`
	Error *APIError        `json:"error,omitempty"`
}

// Client fetches event pages from the upstream feed.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a feed Client rooted at baseURL
// (e.g. "https://graph.facebook.com/v18.0").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// UpcomingEvents fetches a single page of events for the given page ID,
// authenticating with the token as a query credential. A feed-reported
// error payload is returned as *APIError so callers can classify it.
func (c *Client) UpcomingEvents(ctx context.Context, pageID, token string) ([]model.RawEvent, error) {
	if pageID == "" {
		return nil, errors.New("feed page ID is empty")
	}

	q := url.Values{}
	q.Set("access_token", token)
	q.Set("fields", eventFields)
	q.Set("limit", fmt.Sprint(pageLimit))

	reqURL := fmt.Sprintf("%s/%s/events?%s", c.baseURL, url.PathEscape(pageID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	appLog.Info("feed fetch start", "page_id", pageID, "url", redactURL(reqURL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse feed response: %w", err)
	}

	// The feed reports errors in-band; that payload wins over the HTTP
	// status for classification.
	if p.Error != nil {
		appLog.Error("feed reported error payload", p.Error, "page_id", pageID, "status", resp.StatusCode)
		return nil, p.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}

	appLog.Info("feed fetch success", "page_id", pageID, "events", len(p.Data))

	return p.Data, nil
}

// redactURL hides the query string (which carries the access token) when
// logging feed URLs.
func redactURL(u string) string {
	const redactedSuffix = "?...(redacted)"

	parsed, err := url.Parse(u)
	if err != nil {
		return "feed://...(redacted)"
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String() + redactedSuffix
}
