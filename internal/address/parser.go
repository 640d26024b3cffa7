// Package address extracts a best-effort locality token from free-text
// postal addresses. It is a pure heuristic: malformed input yields an
// absent result, never an error.
package address

import (
	"strings"
	"unicode"
)

// countries is the fixed set of country names that never qualify as a
// locality. Matched case-insensitively against a whole segment.
var countries = map[string]struct{}{
	"italy":          {},
	"france":         {},
	"spain":          {},
	"portugal":       {},
	"germany":        {},
	"switzerland":    {},
	"austria":        {},
	"belgium":        {},
	"netherlands":    {},
	"denmark":        {},
	"sweden":         {},
	"norway":         {},
	"united kingdom": {},
	"uk":             {},
	"ireland":        {},
	"united states":  {},
	"usa":            {},
	"canada":         {},
	"brazil":         {},
	"japan":          {},
}

// Parse extracts a plausible locality from a free-text address string.
//
// The address is split on commas into ordered segments. The leading
// segment of a multi-segment address is the street line and never a
// locality candidate. Remaining segments are scanned in order, skipping
// segments with no letters (street numbers, bare postal codes), country
// names, and empties. The surviving segment is cleaned of an embedded
// leading postal code and a trailing 2-3 letter uppercase region code.
//
// Returns ("", false) when no segment survives filtering.
func Parse(s string) (string, bool) {
	segments := strings.Split(s, ",")

	start := 0
	if len(segments) > 1 {
		start = 1
	}

	for _, seg := range segments[start:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if !containsLetter(seg) {
			continue
		}
		if _, ok := countries[strings.ToLower(seg)]; ok {
			continue
		}
		if cleaned := cleanSegment(seg); cleaned != "" {
			return cleaned, true
		}
	}

	return "", false
}

// cleanSegment strips a leading run of digits (embedded postal code) and
// a trailing 2-3 letter uppercase region code ("41121 Modena MO" -> "Modena").
func cleanSegment(seg string) string {
	seg = strings.TrimLeftFunc(seg, func(r rune) bool {
		return unicode.IsDigit(r) || r == '-'
	})
	seg = strings.TrimSpace(seg)

	if fields := strings.Fields(seg); len(fields) > 1 {
		last := fields[len(fields)-1]
		if isRegionCode(last) {
			seg = strings.TrimSpace(strings.TrimSuffix(seg, last))
		}
	}

	return strings.TrimSpace(seg)
}

func isRegionCode(s string) bool {
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
