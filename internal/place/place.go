// Package place splits free-text venue labels into venue and locality.
//
// Feed place names usually embed the city, either with a separator
// ("The Standing Order - Derby") or without ("THE FLOWERPOT DERBY").
// The rules here are deliberately lossy; they are kept exactly as the
// production heuristics behave so borderline inputs stay stable, and are
// pinned by tests rather than "improved".
package place

import (
	"strings"
	"unicode/utf8"
)

// longVenueThreshold triggers the trailing-city reclassification pass.
const longVenueThreshold = 30

// Parse splits a free-text place label into venue and locality. An empty
// return value means unknown; callers substitute their own sentinel.
//
// Rules, in order:
//  1. A hyphen or en-dash splits the label at its first occurrence:
//     left is the venue, right is the locality.
//  2. Otherwise the last whitespace-separated word is the locality and
//     the rest is the venue; a single word is all venue.
//  3. A venue longer than 30 characters that still contains a space
//     donates its last word to the locality when that word is all-caps
//     or exactly title-case (trailing city with no separator).
func Parse(name string) (venue, locality string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ""
	}

	if i := strings.IndexAny(trimmed, "-–"); i >= 0 {
		_, size := utf8.DecodeRuneInString(trimmed[i:])
		venue = strings.TrimSpace(trimmed[:i])
		locality = strings.TrimSpace(trimmed[i+size:])
	} else {
		words := strings.Fields(trimmed)
		if len(words) >= 2 {
			venue = strings.Join(words[:len(words)-1], " ")
			locality = words[len(words)-1]
		} else {
			venue = trimmed
		}
	}

	// Long venues with no separator often still end in a city name,
	// e.g. a 35-character label ending in an all-caps town.
	if utf8.RuneCountInString(venue) > longVenueThreshold && strings.Contains(venue, " ") {
		words := strings.Split(venue, " ")
		last := words[len(words)-1]
		if looksLikeCity(last) {
			venue = strings.Join(words[:len(words)-1], " ")
			locality = last
		}
	}

	return venue, locality
}

// looksLikeCity reports whether a word is entirely upper-case or exactly
// title-case (first rune upper, remainder lower).
func looksLikeCity(word string) bool {
	if word == "" {
		return false
	}
	if word == strings.ToUpper(word) {
		return true
	}
	_, size := utf8.DecodeRuneInString(word)
	titled := strings.ToUpper(word[:size]) + strings.ToLower(word[size:])
	return word == titled
}
