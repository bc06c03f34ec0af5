package timefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	f, err := New("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     string
		wantDate  string
		wantClock string
	}{
		{
			name:      "offset matches UK summer time, no shift",
			input:     "2025-07-26T21:00:00+0100",
			wantDate:  "26-07-2025",
			wantClock: "9:00 PM",
		},
		{
			name:      "winter timestamp stays on GMT",
			input:     "2025-01-15T19:30:00+0000",
			wantDate:  "15-01-2025",
			wantClock: "7:30 PM",
		},
		{
			name:      "foreign offset converts across zones and dates",
			input:     "2025-01-15T20:30:00-0500",
			wantDate:  "16-01-2025",
			wantClock: "1:30 AM",
		},
		{
			name:      "UTC summer timestamp shifts into BST",
			input:     "2025-06-10T23:30:00+0000",
			wantDate:  "11-06-2025",
			wantClock: "12:30 AM",
		},
		{
			name:      "rfc3339 offset form is accepted",
			input:     "2025-07-26T21:00:00+01:00",
			wantDate:  "26-07-2025",
			wantClock: "9:00 PM",
		},
		{
			name:      "single-digit hour is not zero padded",
			input:     "2025-03-02T09:05:00+0000",
			wantDate:  "02-03-2025",
			wantClock: "9:05 AM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, clock, err := f.Format(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, date)
			assert.Equal(t, tt.wantClock, clock)
		})
	}
}

func TestFormatMalformedInput(t *testing.T) {
	f, err := New("Europe/London")
	require.NoError(t, err)

	for _, input := range []string{"", "not-a-timestamp", "2025-13-40T99:00:00+0100"} {
		_, _, err := f.Format(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestNew(t *testing.T) {
	t.Run("empty zone falls back to default", func(t *testing.T) {
		f, err := New("")
		require.NoError(t, err)
		assert.Equal(t, DefaultZone, f.Zone().String())
	})

	t.Run("unknown zone errors", func(t *testing.T) {
		_, err := New("Nowhere/Atlantis")
		assert.Error(t, err)
	})
}
