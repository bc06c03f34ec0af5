package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gigfeed/internal/config"
	"gigfeed/internal/feed"
	appLog "gigfeed/internal/log"
	"gigfeed/internal/metrics"
	"gigfeed/internal/model"
	"gigfeed/internal/timefmt"
)

// TokenSource supplies the feed access token (normally a secrets.TokenCache).
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// FeedClient fetches one page of raw events.
type FeedClient interface {
	UpcomingEvents(ctx context.Context, pageID, token string) ([]model.RawEvent, error)
}

// eventNormalizer is what the run loop needs from the normalizer; the
// indirection lets tests inject per-item failures.
type eventNormalizer interface {
	Normalize(ctx context.Context, ev model.RawEvent) (model.Gig, error)
	Degraded(ev model.RawEvent) model.Gig
}

// Pipeline drives one full feed run: fetch, filter, normalize each event
// sequentially with rate spacing, and sort the result. A run either fails
// as a whole (config/credential/upstream) or returns one record per
// filtered event — never a partial list.
type Pipeline struct {
	pageID         string
	tokenParameter string

	tokens     TokenSource
	feed       FeedClient
	normalizer eventNormalizer
	formatter  *timefmt.Formatter
	pacer      Pacer

	// now is a test seam for the future-event filter.
	now func() time.Time
}

// New assembles a Pipeline from configuration and collaborators.
func New(cfg *config.Config, tokens TokenSource, feedClient FeedClient, geocoder Geocoder) (*Pipeline, error) {
	formatter, err := timefmt.New(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		pageID:         cfg.PageID,
		tokenParameter: cfg.TokenParameter,
		tokens:         tokens,
		feed:           feedClient,
		normalizer:     NewNormalizer(formatter, geocoder, cfg.PostcodeLookupEnabled(), cfg.EventURLBase),
		formatter:      formatter,
		pacer:          NewIntervalPacer(enrichmentInterval),
		now:            time.Now,
	}, nil
}

// Run executes one pipeline pass and returns the sorted schedule.
func (p *Pipeline) Run(ctx context.Context) ([]model.Gig, error) {
	gigs, err := p.run(ctx)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PipelineRuns.WithLabelValues("ok").Inc()
	return gigs, nil
}

func (p *Pipeline) run(ctx context.Context) ([]model.Gig, error) {
	if p.pageID == "" || p.tokenParameter == "" {
		return nil, fmt.Errorf("%w: page ID and token parameter are required", ErrConfig)
	}

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredential, err)
	}

	events, err := p.feed.UpcomingEvents(ctx, p.pageID, token)
	if err != nil {
		metrics.FeedFetches.WithLabelValues("error").Inc()
		var apiErr *feed.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrUpstream, apiErr.Message)
		}
		return nil, err
	}
	metrics.FeedFetches.WithLabelValues("ok").Inc()

	upcoming := p.filter(events)
	appLog.Info("found upcoming events", "total", len(events), "upcoming", len(upcoming))

	gigs := make([]model.Gig, 0, len(upcoming))
	for i, ev := range upcoming {
		// Space enrichment calls. The pacer's first Wait is free, so the
		// first item starts immediately and each later one is held back.
		if err := p.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		appLog.Info("processing event", "index", i+1, "count", len(upcoming), "name", ev.Name)

		gig, err := p.normalizer.Normalize(ctx, ev)
		if err != nil {
			// One bad event never aborts the run; substitute the
			// degraded record and keep going.
			appLog.Error("event normalization failed, using degraded record", err, "event_id", ev.ID)
			metrics.EventsTotal.WithLabelValues("degraded").Inc()
			gigs = append(gigs, p.normalizer.Degraded(ev))
			continue
		}
		metrics.EventsTotal.WithLabelValues("normalized").Inc()
		gigs = append(gigs, gig)
	}

	sortByDate(gigs)
	return gigs, nil
}

// filter keeps events that start strictly in the future and carry a name.
// Events whose start timestamp does not parse are dropped here rather than
// failing later.
func (p *Pipeline) filter(events []model.RawEvent) []model.RawEvent {
	now := p.now()
	kept := make([]model.RawEvent, 0, len(events))
	for _, ev := range events {
		start, err := p.formatter.Parse(ev.StartTime)
		if err != nil || !start.After(now) || ev.Name == "" {
			metrics.EventsTotal.WithLabelValues("filtered").Inc()
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

// sortByDate orders gigs ascending by re-parsing the display date as a
// calendar date. Records whose date is the sentinel sort to the end,
// keeping their relative order.
func sortByDate(gigs []model.Gig) {
	const layout = "02-01-2006"

	key := func(g model.Gig) (time.Time, bool) {
		t, err := time.Parse(layout, g.Date)
		return t, err == nil
	}

	sort.SliceStable(gigs, func(i, j int) bool {
		ti, iOK := key(gigs[i])
		tj, jOK := key(gigs[j])
		if iOK != jOK {
			return iOK
		}
		if !iOK {
			return false
		}
		return ti.Before(tj)
	})
}
