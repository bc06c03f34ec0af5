package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appLog "gigfeed/internal/log"
	"gigfeed/internal/metrics"
)

// lookupTimeout bounds a single reverse-geocode lookup. The lookup is
// raced against this deadline; whichever settles first wins and the loser
// is discarded.
const lookupTimeout = 5 * time.Second

// lookupResponse is the reverse-geocode payload; results are ordered
// nearest-first.
type lookupResponse struct {
	Result []struct {
		Postcode string `json:"postcode"`
	} `json:"result"`
}

// Resolver turns coordinates into a best-effort postal code. Every failure
// path (timeout, transport error, malformed body, empty result) degrades
// to "unknown" — Resolve never returns an error, so enrichment can never
// block or abort the pipeline.
type Resolver struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewResolver creates a Resolver rooted at baseURL
// (e.g. "https://api.postcodes.io").
func NewResolver(baseURL string) *Resolver {
	return &Resolver{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		timeout: lookupTimeout,
	}
}

// Resolve returns the nearest postcode for the coordinates, or ok=false
// when no postcode could be determined in time.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) (string, bool) {
	type outcome struct {
		postcode string
		err      error
	}

	resultCh := make(chan outcome, 1)

	// The loser of the race is abandoned, not canceled; its response is
	// dropped into the buffered channel and garbage collected.
	go func() {
		pc, err := r.lookup(lat, lon)
		resultCh <- outcome{postcode: pc, err: err}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			appLog.Warn("postcode lookup failed", "lat", lat, "lon", lon, "reason", res.err)
			metrics.GeocodeLookups.WithLabelValues("error").Inc()
			return "", false
		}
		if res.postcode == "" {
			appLog.Debug("no postcode found for coordinates", "lat", lat, "lon", lon)
			metrics.GeocodeLookups.WithLabelValues("empty").Inc()
			return "", false
		}
		metrics.GeocodeLookups.WithLabelValues("hit").Inc()
		return res.postcode, true
	case <-timer.C:
		appLog.Warn("postcode lookup timed out", "lat", lat, "lon", lon, "timeout", r.timeout)
		metrics.GeocodeLookups.WithLabelValues("timeout").Inc()
		return "", false
	case <-ctx.Done():
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return "", false
	}
}

// lookup performs the actual HTTP call and extracts the first (nearest)
// result's postcode. An empty string with nil error means "no result".
func (r *Resolver) lookup(lat, lon float64) (string, error) {
	u := fmt.Sprintf("%s/postcodes?lon=%v&lat=%v", r.baseURL, lon, lat)

	resp, err := r.client.Get(u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", err
	}

	if len(lr.Result) == 0 {
		return "", nil
	}
	return lr.Result[0].Postcode, nil
}
