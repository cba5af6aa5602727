package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sewamonitor/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 2, 14, 0, 0, 0, time.Local)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "sewa.db"), &logger)
	require.NoError(t, err)
	db.now = func() time.Time { return testNow }
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestNewDB_InMemory(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.UpsertUnit(context.Background(), "A1", 1))
	units, err := db.ListUnits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, units)
}

func TestUnits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertUnit(ctx, "Unit 10", 2))
	require.NoError(t, db.UpsertUnit(ctx, "Unit 2", 1))
	require.NoError(t, db.UpsertUnit(ctx, "unit 2", 3), "case-insensitive duplicate updates the existing row")
	assert.Error(t, db.UpsertUnit(ctx, "  ", 0))

	units, err := db.ListUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Unit 10", "Unit 2"}, units)

	require.NoError(t, db.DeleteUnit(ctx, "UNIT 10"))
	units, err = db.ListUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Unit 2"}, units)
}

func TestRentalsUpsertAndDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := models.Rental{
		ID:            "7",
		Client:        "Rina",
		Unit:          "A1",
		Start:         testNow.Add(-time.Hour),
		End:           testNow.Add(time.Hour),
		Price:         150000,
		BookingSource: "walk_in",
	}
	require.NoError(t, db.UpsertRental(ctx, r))

	r.End = testNow.Add(2 * time.Hour)
	r.Client = "Rina S."
	require.NoError(t, db.UpsertRental(ctx, r))

	rentals, err := db.ListRentals(ctx)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, "Rina S.", rentals[0].Client)
	assert.True(t, rentals[0].End.Equal(r.End))
	assert.Equal(t, models.SourceWalkIn, rentals[0].BookingSource)

	require.NoError(t, db.DeleteRental(ctx, "7"))
	rentals, err = db.ListRentals(ctx)
	require.NoError(t, err)
	assert.Empty(t, rentals)
}

func TestRentalsValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	assert.Error(t, db.UpsertRental(ctx, models.Rental{Unit: "A1", Start: testNow, End: testNow}))
	assert.Error(t, db.UpsertRental(ctx, models.Rental{ID: "1", Start: testNow, End: testNow}))
	assert.Error(t, db.UpsertRental(ctx, models.Rental{ID: "1", Unit: "A1"}))
}

func TestFetchGroupsByTime(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertUnit(ctx, "A1", 1))
	require.NoError(t, db.UpsertUnit(ctx, "A2", 2))

	for _, r := range []models.Rental{
		{ID: "active", Unit: "A1", Start: testNow.Add(-time.Hour), End: testNow.Add(10 * time.Minute)},
		{ID: "upcoming", Unit: "A2", Start: testNow.Add(time.Hour), End: testNow.Add(2 * time.Hour)},
		{ID: "finished", Unit: "A2", Start: testNow.Add(-3 * time.Hour), End: testNow.Add(-2 * time.Hour)},
	} {
		require.NoError(t, db.UpsertRental(ctx, r))
	}

	snap, err := db.Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"A1", "A2"}, snap.AvailableUnits)
	require.Len(t, snap.Active, 1)
	require.Len(t, snap.Upcoming, 1)
	require.Len(t, snap.Finished, 1)
	assert.Equal(t, "active", snap.Active[0].ID)
	assert.Equal(t, "upcoming", snap.Upcoming[0].ID)
	assert.Equal(t, "finished", snap.Finished[0].ID)
	assert.Equal(t, testNow, snap.FetchedAt)
}

func TestFetchOnClosedDatabase(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Close())

	_, err := db.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrTransientFetch)
}
