package identity

import (
	"testing"

	"github.com/wsmontes/concierge-sync/internal/entity"
)

func TestResolveKey(t *testing.T) {
	r := &entity.Record{
		Name:      "  Osteria Francescana ",
		CuratorID: 100,
		Metadata:  []entity.Entry{michelin("Modena")},
	}

	key := ResolveKey(r)
	want := Key{Name: "Osteria Francescana", Locality: "Modena", CuratorID: 100}
	if key != want {
		t.Fatalf("ResolveKey() = %v, want %v", key, want)
	}
}

func TestResolveKeyDeterminism(t *testing.T) {
	r := &entity.Record{
		Name:      "Joe's Pizza",
		CuratorID: 7,
		Metadata: []entity.Entry{
			googlePlaces(map[string]any{"vicinity": "7 Carmine St, New York"}),
		},
	}
	if ResolveKey(r) != ResolveKey(r) {
		t.Fatal("ResolveKey not deterministic on unchanged record")
	}
}

// Exact-name matching is intentional: spellings differing in case or
// punctuation are distinct identities.
func TestResolveKeyExactNameMatching(t *testing.T) {
	a := ResolveKey(&entity.Record{Name: "Joe's Pizza", CuratorID: 1})
	b := ResolveKey(&entity.Record{Name: "Joes Pizza", CuratorID: 1})
	c := ResolveKey(&entity.Record{Name: "joe's pizza", CuratorID: 1})
	if a == b || a == c {
		t.Fatal("near-duplicate spellings must produce distinct keys")
	}
}

func TestResolveKeyCuratorIndependence(t *testing.T) {
	base := []entity.Entry{michelin("Test City")}
	a := ResolveKey(&entity.Record{Name: "Test Restaurant Alpha", CuratorID: 100, Metadata: base})
	b := ResolveKey(&entity.Record{Name: "Test Restaurant Alpha", CuratorID: 200, Metadata: base})
	if a == b {
		t.Fatal("records from different curators must have distinct keys")
	}
	if a.Name != b.Name || a.Locality != b.Locality {
		t.Fatal("name and locality should match across curators")
	}
}
