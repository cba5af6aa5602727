package units

import (
	"testing"

	"sewamonitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, s.Name)
	}
	return out
}

func TestReconcileDefensiveInclusion(t *testing.T) {
	catalog := []string{"A1", "A2", "B1"}
	active := []models.Rental{{ID: "1", Unit: "c9"}}

	got := Reconcile(catalog, active)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"A1", "A2", "B1", "c9"}, names(got))

	last := got[3]
	assert.Equal(t, "C9", last.Display)
	assert.True(t, last.Occupied)
	for _, s := range got[:3] {
		assert.False(t, s.Occupied, s.Name)
	}
}

func TestReconcileCaseInsensitive(t *testing.T) {
	got := Reconcile([]string{"A1", "B1"}, []models.Rental{{ID: "1", Unit: "a1"}})
	require.Len(t, got, 2)
	assert.Equal(t, Status{Name: "A1", Display: "A1", Occupied: true}, got[0])
	assert.False(t, got[1].Occupied)
}

func TestReconcileNumericOrdering(t *testing.T) {
	catalog := []string{"Unit 10", "Unit 2", "Unit 1", "Meja 3"}
	got := Reconcile(catalog, nil)
	assert.Equal(t, []string{"Meja 3", "Unit 1", "Unit 2", "Unit 10"}, names(got))
}

func TestReconcileIdempotent(t *testing.T) {
	catalog := []string{"R10", "r2", "R1", "Private Office"}
	active := []models.Rental{{ID: "1", Unit: "R2"}, {ID: "2", Unit: "x5"}, {ID: "3", Unit: "X5"}}

	first := Reconcile(catalog, active)
	second := Reconcile(catalog, active)
	assert.Equal(t, first, second)

	total, occupied := Counts(first)
	assert.Equal(t, 5, total)
	assert.Equal(t, 2, occupied)
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	catalog := []string{"B", "A"}
	Reconcile(catalog, []models.Rental{{Unit: "C"}})
	assert.Equal(t, []string{"B", "A"}, catalog)
}

func TestReconcileSkipsBlankNames(t *testing.T) {
	got := Reconcile([]string{"", " ", "A1"}, []models.Rental{{ID: "1", Unit: ""}})
	assert.Equal(t, []string{"A1"}, names(got))
}
