package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigfeed/internal/feed"
	"gigfeed/internal/model"
	"gigfeed/internal/timefmt"
)

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	return f.token, f.err
}

type fakeFeed struct {
	events []model.RawEvent
	err    error

	gotPageID string
	gotToken  string
}

func (f *fakeFeed) UpcomingEvents(_ context.Context, pageID, token string) ([]model.RawEvent, error) {
	f.gotPageID = pageID
	f.gotToken = token
	return f.events, f.err
}

type fakeGeocoder struct {
	postcode string
	ok       bool
	calls    int
}

func (f *fakeGeocoder) Resolve(context.Context, float64, float64) (string, bool) {
	f.calls++
	return f.postcode, f.ok
}

// failingNormalizer fails normalization for one event ID and delegates the
// rest.
type failingNormalizer struct {
	inner  eventNormalizer
	failID string
}

func (f *failingNormalizer) Normalize(ctx context.Context, ev model.RawEvent) (model.Gig, error) {
	if ev.ID == f.failID {
		return model.Gig{}, errors.New("enrichment exploded")
	}
	return f.inner.Normalize(ctx, ev)
}

func (f *failingNormalizer) Degraded(ev model.RawEvent) model.Gig {
	return f.inner.Degraded(ev)
}

// countingPacer records how many waits the run performed.
type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return nil
}

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, feedClient FeedClient, geocoder Geocoder) *Pipeline {
	t.Helper()

	formatter, err := timefmt.New("Europe/London")
	require.NoError(t, err)

	return &Pipeline{
		pageID:         "page-123",
		tokenParameter: "/feed/token",
		tokens:         &fakeTokens{token: "tok"},
		feed:           feedClient,
		normalizer:     NewNormalizer(formatter, geocoder, true, "https://www.facebook.com"),
		formatter:      formatter,
		pacer:          NoOpPacer{},
		now:            func() time.Time { return testNow },
	}
}

func futureEvent(id, name, start string) model.RawEvent {
	return model.RawEvent{ID: id, Name: name, StartTime: start}
}

func TestRunRequiresConfiguration(t *testing.T) {
	p := newTestPipeline(t, &fakeFeed{}, &fakeGeocoder{})
	p.pageID = ""

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrConfig)

	p = newTestPipeline(t, &fakeFeed{}, &fakeGeocoder{})
	p.tokenParameter = ""

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRunCredentialFailureIsFatal(t *testing.T) {
	p := newTestPipeline(t, &fakeFeed{}, &fakeGeocoder{})
	p.tokens = &fakeTokens{err: errors.New("store unavailable")}

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrCredential)
}

func TestRunUpstreamErrorPayloadIsFatal(t *testing.T) {
	p := newTestPipeline(t, &fakeFeed{err: &feed.APIError{Message: "rate limited"}}, &fakeGeocoder{})

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRunTransportErrorIsNotUpstream(t *testing.T) {
	p := newTestPipeline(t, &fakeFeed{err: errors.New("connection refused")}, &fakeGeocoder{})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUpstream)
}

func TestRunFiltersPastNamelessAndUnparseable(t *testing.T) {
	fc := &fakeFeed{events: []model.RawEvent{
		futureEvent("past", "Past Gig", "2024-12-31T23:00:00+0000"),
		futureEvent("future", "Future Gig", "2025-01-02T20:00:00+0000"),
		futureEvent("nameless", "", "2025-01-03T20:00:00+0000"),
		futureEvent("broken", "Broken Start", "soon"),
	}}
	p := newTestPipeline(t, fc, &fakeGeocoder{})

	gigs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gigs, 1)
	assert.Equal(t, "future", gigs[0].ID)

	assert.Equal(t, "page-123", fc.gotPageID)
	assert.Equal(t, "tok", fc.gotToken)
}

func TestRunNormalizesFields(t *testing.T) {
	geocoder := &fakeGeocoder{postcode: "DE1 2ED", ok: true}
	fc := &fakeFeed{events: []model.RawEvent{
		{
			ID:        "42",
			Name:      "Summer Gig",
			StartTime: "2025-07-26T21:00:00+0100",
			Place: &model.Place{
				Name:     "THE FLOWERPOT DERBY",
				Location: &model.GeoPoint{Latitude: 52.92, Longitude: -1.47},
			},
			Cover:      &model.Cover{Source: "https://cdn.example.com/cover.jpg"},
			Attending:  7,
			Interested: 21,
		},
	}}
	p := newTestPipeline(t, fc, geocoder)

	gigs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gigs, 1)

	g := gigs[0]
	assert.Equal(t, "42", g.ID)
	assert.Equal(t, "26-07-2025", g.Date)
	assert.Equal(t, "9:00 PM", g.StartTime)
	assert.Equal(t, "THE FLOWERPOT", g.Venue)
	assert.Equal(t, "DERBY", g.Location)
	assert.Equal(t, "DE1 2ED", g.Postcode)
	assert.Equal(t, "https://www.facebook.com/events/42/", g.URL, "canonical URL falls back to constructed form")
	assert.Equal(t, "Summer Gig", g.Title)
	assert.Equal(t, "", g.Description)
	require.NotNil(t, g.CoverImage)
	assert.Equal(t, "https://cdn.example.com/cover.jpg", *g.CoverImage)
	assert.Equal(t, 7, g.AttendingCount)
	assert.Equal(t, 21, g.InterestedCount)
	assert.Equal(t, 1, geocoder.calls)
}

func TestRunSentinelsWhenEnrichmentUnavailable(t *testing.T) {
	geocoder := &fakeGeocoder{}
	fc := &fakeFeed{events: []model.RawEvent{
		{
			ID:        "1",
			Name:      "No Place Gig",
			StartTime: "2025-02-05T20:00:00+0000",
		},
		{
			ID:        "2",
			Name:      "No Coords Gig",
			StartTime: "2025-02-06T20:00:00+0000",
			Place:     &model.Place{Name: "Dubrek Studios"},
		},
	}}
	p := newTestPipeline(t, fc, geocoder)

	gigs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gigs, 2)

	assert.Equal(t, model.TBD, gigs[0].Venue)
	assert.Equal(t, model.TBD, gigs[0].Location)
	assert.Equal(t, model.TBD, gigs[0].Postcode)

	assert.Equal(t, "Dubrek Studios", gigs[1].Venue)
	assert.Equal(t, model.TBD, gigs[1].Location, "single-word place has unknown locality")
	assert.Equal(t, model.TBD, gigs[1].Postcode)

	assert.Zero(t, geocoder.calls, "no coordinates, no lookup")
}

func TestRunSkipsLookupWhenCoordinateMissing(t *testing.T) {
	geocoder := &fakeGeocoder{postcode: "DE1 2ED", ok: true}
	fc := &fakeFeed{events: []model.RawEvent{
		{
			ID:        "1",
			Name:      "Gig",
			StartTime: "2025-02-05T20:00:00+0000",
			Place: &model.Place{
				Name:     "The Venue - Derby",
				Location: &model.GeoPoint{Latitude: 52.92},
			},
		},
	}}
	p := newTestPipeline(t, fc, geocoder)

	gigs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gigs, 1)
	assert.Equal(t, model.TBD, gigs[0].Postcode)
	assert.Zero(t, geocoder.calls, "incomplete coordinates, no lookup")
}

func TestRunGeocodingDisabledByConfiguration(t *testing.T) {
	geocoder := &fakeGeocoder{postcode: "DE1 2ED", ok: true}
	fc := &fakeFeed{events: []model.RawEvent{
		{
			ID:        "1",
			Name:      "Gig",
			StartTime: "2025-02-05T20:00:00+0000",
			Place: &model.Place{
				Name:     "The Venue - Derby",
				Location: &model.GeoPoint{Latitude: 52.92, Longitude: -1.47},
			},
		},
	}}
	p := newTestPipeline(t, fc, geocoder)
	formatter, err := timefmt.New("Europe/London")
	require.NoError(t, err)
	p.normalizer = NewNormalizer(formatter, geocoder, false, "https://www.facebook.com")

	gigs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gigs, 1)
	assert.Equal(t, model.TBD, gigs[0].Postcode)
	assert.Zero(t, geocoder.calls)
}

func TestRunSubstitutesDegradedRecord(t *testing.T) {
	fc := &fakeFeed{events: []model.RawEvent{
		futureEvent("a", "Gig A", "2025-01-10T20:00:00+0000"),
		{
			ID:        "b",
			Name:      "Gig B",
			StartTime: "2025-01-11T20:00:00+0000",
			EventURL:  "https://example.com/b",
			Attending: 3,
		},
		futureEvent("c", "Gig C", "2025-01-12T20:00:00+0000"),
	}}
	p := newTestPipeline(t, fc, &fakeGeocoder{})
	p.normalizer = &failingNormalizer{inner: p.normalizer, failID: "b"}

	gigs, err := p.Run(context.Background())
	require.NoError(t, err, "one bad event never aborts the run")
	require.Len(t, gigs, 3, "degraded record is substituted, not dropped")

	// Degraded records sort after dated ones.
	assert.Equal(t, "a", gigs[0].ID)
	assert.Equal(t, "c", gigs[1].ID)

	degraded := gigs[2]
	assert.Equal(t, "b", degraded.ID)
	assert.Equal(t, model.TBD, degraded.Date)
	assert.Equal(t, model.TBD, degraded.StartTime)
	assert.Equal(t, model.TBD, degraded.Venue)
	assert.Equal(t, model.TBD, degraded.Location)
	assert.Equal(t, model.TBD, degraded.Postcode)
	assert.Equal(t, "https://example.com/b", degraded.URL)
	assert.Equal(t, "Gig B", degraded.Title)
	assert.Equal(t, 3, degraded.AttendingCount)
}

func TestRunSortsByCalendarDate(t *testing.T) {
	fc := &fakeFeed{events: []model.RawEvent{
		futureEvent("feb", "February Gig", "2025-02-05T20:00:00+0000"),
		futureEvent("jan", "January Gig", "2025-01-15T20:00:00+0000"),
	}}
	p := newTestPipeline(t, fc, &fakeGeocoder{})

	gigs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gigs, 2)

	assert.Equal(t, "15-01-2025", gigs[0].Date)
	assert.Equal(t, "05-02-2025", gigs[1].Date)
}

func TestRunPacesEveryItem(t *testing.T) {
	fc := &fakeFeed{events: []model.RawEvent{
		futureEvent("a", "Gig A", "2025-01-10T20:00:00+0000"),
		futureEvent("b", "Gig B", "2025-01-11T20:00:00+0000"),
		futureEvent("c", "Gig C", "2025-01-12T20:00:00+0000"),
	}}
	p := newTestPipeline(t, fc, &fakeGeocoder{})
	pacer := &countingPacer{}
	p.pacer = pacer

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// One Wait per item; the pacer's free first call means no pause
	// before the first item.
	assert.Equal(t, 3, pacer.waits)
}

func TestRunSpacesConsecutiveItems(t *testing.T) {
	fc := &fakeFeed{events: []model.RawEvent{
		futureEvent("a", "Gig A", "2025-01-10T20:00:00+0000"),
		futureEvent("b", "Gig B", "2025-01-11T20:00:00+0000"),
	}}
	p := newTestPipeline(t, fc, &fakeGeocoder{})
	p.pacer = NewIntervalPacer(enrichmentInterval)

	start := time.Now()
	gigs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gigs, 2)

	// The gap between the first and second item must be enforced.
	assert.GreaterOrEqual(t, time.Since(start), enrichmentInterval)
}

func TestRunEmptyFeed(t *testing.T) {
	p := newTestPipeline(t, &fakeFeed{}, &fakeGeocoder{})

	gigs, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gigs)
}
