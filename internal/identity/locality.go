// Package identity derives the stable identity key of a restaurant
// record from its heterogeneous, partially-present metadata.
package identity

import (
	"strings"

	"github.com/wsmontes/concierge-sync/internal/address"
	"github.com/wsmontes/concierge-sync/internal/entity"
	"github.com/wsmontes/concierge-sync/internal/metax"
)

// UnknownLocality is the fallback when no metadata source yields a locality.
const UnknownLocality = "Unknown"

// localityStrategy tries to produce a locality from a record's metadata.
// Strategies are pure; a false return means "try the next one".
type localityStrategy func(rec *entity.Record) (string, bool)

// localityChain is the fixed priority order: curated Michelin guide data
// first, Google Places second, free-text collector address last.
var localityChain = []localityStrategy{
	michelinCity,
	googlePlacesLocality,
	collectorAddressLocality,
}

// ResolveLocality returns exactly one locality string for a record.
// Deterministic and total: every input resolves, falling back to
// UnknownLocality when no source yields a value.
func ResolveLocality(rec *entity.Record) string {
	for _, strategy := range localityChain {
		if loc, ok := strategy(rec); ok {
			return loc
		}
	}
	return UnknownLocality
}

// michelinCity reads the guide city from the first michelin entry.
// Highest trust: curated reference data, used verbatim (trimmed).
func michelinCity(rec *entity.Record) (string, bool) {
	entry := rec.FirstEntry(entity.TypeMichelin)
	if entry == nil || entry.Data == nil {
		return "", false
	}
	guide, ok := metax.GetMap(entry.Data, "guide")
	if !ok {
		return "", false
	}
	city, ok := metax.GetString(guide, "city")
	if !ok {
		return "", false
	}
	city = strings.TrimSpace(city)
	return city, city != ""
}

// googlePlacesLocality takes the substring after the final comma of the
// vicinity field (best-effort "last segment is the city"); if that
// yields nothing usable, it runs the address parser over the formatted
// address.
func googlePlacesLocality(rec *entity.Record) (string, bool) {
	entry := rec.FirstEntry(entity.TypeGooglePlaces)
	if entry == nil || entry.Data == nil {
		return "", false
	}
	location, ok := metax.GetMap(entry.Data, "location")
	if !ok {
		location = entry.Data
	}

	if vicinity, ok := metax.GetString(location, "vicinity"); ok {
		if city := lastSegment(vicinity); city != "" {
			return city, true
		}
	}

	if formatted, ok := metax.GetString(location, "formattedAddress"); ok {
		if city, ok2 := address.Parse(formatted); ok2 {
			return city, true
		}
	}

	return "", false
}

// collectorAddressLocality runs the address parser over the collector
// entry's free-text address.
func collectorAddressLocality(rec *entity.Record) (string, bool) {
	entry := rec.FirstEntry(entity.TypeCollector)
	if entry == nil || entry.Data == nil {
		return "", false
	}
	location, ok := metax.GetMap(entry.Data, "location")
	if !ok {
		return "", false
	}
	addr, ok := metax.GetString(location, "address")
	if !ok {
		return "", false
	}
	return address.Parse(addr)
}

// lastSegment returns the trimmed text after the final comma, or the
// whole trimmed string when there is no comma. A segment with no
// letters (e.g. a bare street number) is not usable.
func lastSegment(s string) string {
	if idx := strings.LastIndex(s, ","); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSpace(s)
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			return s
		}
	}
	return ""
}
