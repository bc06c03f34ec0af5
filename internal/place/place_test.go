package place

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantVenue    string
		wantLocality string
	}{
		{
			name:         "trailing city without separator",
			input:        "THE FLOWERPOT DERBY",
			wantVenue:    "THE FLOWERPOT",
			wantLocality: "DERBY",
		},
		{
			name:         "hyphen separator with spaces",
			input:        "The Standing Order - Derby",
			wantVenue:    "The Standing Order",
			wantLocality: "Derby",
		},
		{
			name:         "en-dash separator",
			input:        "Dubrek Studios – Derby",
			wantVenue:    "Dubrek Studios",
			wantLocality: "Derby",
		},
		{
			name:         "hyphen without surrounding spaces",
			input:        "Hallmark Hotel Midland Road-Derby",
			wantVenue:    "Hallmark Hotel Midland Road",
			wantLocality: "Derby",
		},
		{
			name:         "split happens at the first separator only",
			input:        "Rock City - Main Hall - Nottingham",
			wantVenue:    "Rock City",
			wantLocality: "Main Hall - Nottingham",
		},
		{
			name:         "single word is all venue",
			input:        "Derby",
			wantVenue:    "Derby",
			wantLocality: "",
		},
		{
			name:         "empty input",
			input:        "",
			wantVenue:    "",
			wantLocality: "",
		},
		{
			name:         "whitespace-only input",
			input:        "   ",
			wantVenue:    "",
			wantLocality: "",
		},
		{
			name:         "surrounding whitespace is trimmed",
			input:        "  The Venue - Nottingham  ",
			wantVenue:    "The Venue",
			wantLocality: "Nottingham",
		},
		{
			name:         "leading separator leaves venue unknown",
			input:        "- Derby",
			wantVenue:    "",
			wantLocality: "Derby",
		},
		{
			name:         "long venue donates trailing all-caps word",
			input:        "THE FLOWERPOT ALTERNATIVE VENUE DERBY",
			wantVenue:    "THE FLOWERPOT ALTERNATIVE",
			wantLocality: "VENUE",
		},
		{
			name:         "long venue keeps lower-case trailing word",
			input:        "the old courthouse music and arts centre derby",
			wantVenue:    "the old courthouse music and arts centre",
			wantLocality: "derby",
		},
		{
			name:         "mixed-case trailing word is not a city",
			input:        "The Venue At Something Longer McMillans - Derby",
			wantVenue:    "The Venue At Something Longer McMillans",
			wantLocality: "Derby",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			venue, locality := Parse(tt.input)
			assert.Equal(t, tt.wantVenue, venue, "venue")
			assert.Equal(t, tt.wantLocality, locality, "locality")
		})
	}
}

func TestLooksLikeCity(t *testing.T) {
	assert.True(t, looksLikeCity("DERBY"))
	assert.True(t, looksLikeCity("Derby"))
	assert.False(t, looksLikeCity("McMillans"))
	assert.False(t, looksLikeCity("derby"))
	assert.False(t, looksLikeCity(""))
}
