// Package units classifies the venue's physical units as available or
// occupied from the catalog and the currently active rentals.
package units

import (
	"sort"
	"strings"

	"sewamonitor/internal/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Status is one unit of the occupancy view.
type Status struct {
	Name     string `json:"name"`
	Display  string `json:"display"`
	Occupied bool   `json:"occupied"`
}

// Reconcile merges the unit catalog with the units referenced by active
// rentals. Names are compared case-insensitively; units missing from the
// catalog are still listed when an active rental references them. The result
// is ordered with numeric-aware collation, so "Unit 2" sorts before "Unit 10".
func Reconcile(catalog []string, active []models.Rental) []Status {
	out := make([]Status, 0, len(catalog)+len(active))
	index := make(map[string]int, len(catalog)+len(active))

	add := func(name string) {
		key := models.UnitKey(name)
		if key == "" {
			return
		}
		if _, ok := index[key]; ok {
			return
		}
		index[key] = len(out)
		out = append(out, Status{Name: strings.TrimSpace(name)})
	}

	for _, name := range catalog {
		add(name)
	}
	occupied := make(map[string]struct{}, len(active))
	for _, r := range active {
		add(r.Unit)
		occupied[r.UnitKey()] = struct{}{}
	}

	for i := range out {
		_, out[i].Occupied = occupied[models.UnitKey(out[i].Name)]
		out[i].Display = strings.ToUpper(out[i].Name)
	}

	col := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// Counts returns the number of units and how many of them are occupied.
func Counts(statuses []Status) (total, occupied int) {
	for _, s := range statuses {
		if s.Occupied {
			occupied++
		}
	}
	return len(statuses), occupied
}
