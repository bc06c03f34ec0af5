package pipeline

import (
	"context"
	"fmt"

	appLog "gigfeed/internal/log"
	"gigfeed/internal/model"
	"gigfeed/internal/place"
	"gigfeed/internal/timefmt"
)

// Geocoder is the enrichment collaborator. It is best-effort by contract:
// it reports ok=false instead of failing.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lon float64) (postcode string, ok bool)
}

// Normalizer turns one RawEvent into one Gig. It does not catch errors:
// a malformed start timestamp propagates so the pipeline can attribute the
// failure to this specific event and substitute a degraded record.
type Normalizer struct {
	formatter     *timefmt.Formatter
	geocoder      Geocoder
	lookupEnabled bool
	eventURLBase  string
}

// NewNormalizer wires the formatter and geocoder. eventURLBase is the base
// for the canonical-URL fallback (`<base>/events/<id>/`) used when the
// feed omits an event URL.
func NewNormalizer(formatter *timefmt.Formatter, geocoder Geocoder, lookupEnabled bool, eventURLBase string) *Normalizer {
	return &Normalizer{
		formatter:     formatter,
		geocoder:      geocoder,
		lookupEnabled: lookupEnabled,
		eventURLBase:  eventURLBase,
	}
}

// Normalize builds the schedule record for one event. It may block during
// postcode enrichment; everything else is local computation.
func (n *Normalizer) Normalize(ctx context.Context, ev model.RawEvent) (model.Gig, error) {
	date, clock, err := n.formatter.Format(ev.StartTime)
	if err != nil {
		return model.Gig{}, err
	}

	venue, locality, postcode := model.TBD, model.TBD, model.TBD

	if ev.Place != nil && ev.Place.Name != "" {
		if v, l := place.Parse(ev.Place.Name); v != "" || l != "" {
			if v != "" {
				venue = v
			}
			if l != "" {
				locality = l
			}
		}

		// Look up only when both coordinates are present; a zero value
		// means the feed omitted the coordinate.
		if loc := ev.Place.Location; n.lookupEnabled && loc != nil && loc.Latitude != 0 && loc.Longitude != 0 {
			if pc, ok := n.geocoder.Resolve(ctx, loc.Latitude, loc.Longitude); ok {
				postcode = pc
			}
			appLog.Debug("postcode enrichment done", "event_id", ev.ID, "postcode", postcode)
		}
	}

	return model.Gig{
		ID:              ev.ID,
		Date:            date,
		StartTime:       clock,
		Venue:           venue,
		Location:        locality,
		Postcode:        postcode,
		URL:             n.eventURL(ev),
		Title:           ev.Name,
		Description:     ev.Description,
		CoverImage:      coverImage(ev),
		AttendingCount:  ev.Attending,
		InterestedCount: ev.Interested,
	}, nil
}

// Degraded builds the fallback record for an event whose normalization
// failed, using only fields known without enrichment. All display fields
// carry the sentinel so the record still satisfies the non-empty
// invariant.
func (n *Normalizer) Degraded(ev model.RawEvent) model.Gig {
	title := ev.Name
	if title == "" {
		title = "Unknown Event"
	}
	return model.Gig{
		ID:              ev.ID,
		Date:            model.TBD,
		StartTime:       model.TBD,
		Venue:           model.TBD,
		Location:        model.TBD,
		Postcode:        model.TBD,
		URL:             n.eventURL(ev),
		Title:           title,
		Description:     ev.Description,
		CoverImage:      coverImage(ev),
		AttendingCount:  ev.Attending,
		InterestedCount: ev.Interested,
	}
}

func (n *Normalizer) eventURL(ev model.RawEvent) string {
	if ev.EventURL != "" {
		return ev.EventURL
	}
	return fmt.Sprintf("%s/events/%s/", n.eventURLBase, ev.ID)
}

func coverImage(ev model.RawEvent) *string {
	if ev.Cover == nil || ev.Cover.Source == "" {
		return nil
	}
	src := ev.Cover.Source
	return &src
}
