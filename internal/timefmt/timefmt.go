// Package timefmt renders feed timestamps as display strings in a fixed
// civil timezone, independent of the host locale and of the UTC offset
// embedded in the input.
package timefmt

import (
	"fmt"
	"time"
)

// DefaultZone is the civil display zone used when none is configured.
const DefaultZone = "Europe/London"

// Feed timestamps carry a compact numeric offset ("2025-07-26T21:00:00+0100");
// RFC 3339 is accepted as a fallback.
const (
	feedLayout  = "2006-01-02T15:04:05-0700"
	dateLayout  = "02-01-2006"
	clockLayout = "3:04 PM"
)

// Formatter converts timestamps-with-offset into display date and time
// strings evaluated in a single IANA zone. The embedded offset is
// authoritative for the instant; the display zone is authoritative for the
// rendering, so conversion crosses timezones correctly (including DST
// boundaries where the feed offset differs from the zone's current offset).
type Formatter struct {
	loc *time.Location
}

// New builds a Formatter for the given IANA zone name.
func New(zone string) (*Formatter, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load display timezone %q: %w", zone, err)
	}
	return &Formatter{loc: loc}, nil
}

// Zone returns the formatter's display zone.
func (f *Formatter) Zone() *time.Location {
	return f.loc
}

// Parse interprets a feed timestamp as an absolute instant, honoring the
// embedded offset. Malformed input is the caller's error to handle.
func (f *Formatter) Parse(value string) (time.Time, error) {
	if t, err := time.Parse(feedLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

// Format renders a feed timestamp as a zero-padded DD-MM-YYYY date and a
// 12-hour H:MM AM/PM time, both in the display zone.
func (f *Formatter) Format(value string) (date, clock string, err error) {
	t, err := f.Parse(value)
	if err != nil {
		return "", "", err
	}
	local := t.In(f.loc)
	return local.Format(dateLayout), local.Format(clockLayout), nil
}
