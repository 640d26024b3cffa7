package identity

import (
	"fmt"
	"strings"

	"github.com/wsmontes/concierge-sync/internal/entity"
)

// Key is the composite identity of a record: two records with an equal
// Key are the same logical entity. A record with the same name and
// locality but a different curator is a distinct entity representing
// another curator's independent contribution.
//
// Name matching is exact after whitespace trimming. Case and
// punctuation normalization are intentionally not performed; entries
// differing only in spelling are distinct.
type Key struct {
	Name      string
	Locality  string
	CuratorID int64
}

// String renders the key for logging and error messages.
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%d", k.Name, k.Locality, k.CuratorID)
}

// ResolveKey computes the identity key for a record. Pure: recomputing
// on an unchanged record yields the same key.
func ResolveKey(rec *entity.Record) Key {
	return Key{
		Name:      strings.TrimSpace(rec.Name),
		Locality:  ResolveLocality(rec),
		CuratorID: rec.CuratorID,
	}
}
