package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sewamonitor/internal/models"
	"sewamonitor/internal/rental"
)

func (db *DB) UpsertRental(ctx context.Context, r models.Rental) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("rental id is required")
	}
	if strings.TrimSpace(r.Unit) == "" {
		return errors.New("rental unit is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("rental start and end are required")
	}

	query := `
        INSERT INTO rentals (id, client, unit, start_at, end_at, price, booking_source, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            client = excluded.client,
            unit = excluded.unit,
            start_at = excluded.start_at,
            end_at = excluded.end_at,
            price = excluded.price,
            booking_source = excluded.booking_source,
            updated_at = excluded.updated_at
    `
	_, err := db.ExecContext(ctx, query,
		strings.TrimSpace(r.ID),
		strings.TrimSpace(r.Client),
		strings.TrimSpace(r.Unit),
		r.Start,
		r.End,
		r.Price,
		models.NormalizeSource(r.BookingSource),
		db.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rental %s: %w", r.ID, err)
	}
	return nil
}

func (db *DB) DeleteRental(ctx context.Context, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM rentals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete rental %s: %w", id, err)
	}
	return nil
}

// ListRentals returns every stored rental ordered by start time.
func (db *DB) ListRentals(ctx context.Context) ([]models.Rental, error) {
	query := `
        SELECT id, client, unit, start_at, end_at, price, booking_source
        FROM rentals ORDER BY start_at, id
    `
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	defer rows.Close()

	var rentals []models.Rental
	for rows.Next() {
		var r models.Rental
		if err := rows.Scan(&r.ID, &r.Client, &r.Unit, &r.Start, &r.End, &r.Price, &r.BookingSource); err != nil {
			return nil, err
		}
		r.Start = r.Start.Local()
		r.End = r.End.Local()
		rentals = append(rentals, r)
	}
	return rentals, rows.Err()
}

// Fetch builds a dashboard snapshot from the stored catalog and rentals,
// grouping rentals the way the backend does at the current time.
func (db *DB) Fetch(ctx context.Context) (*models.Snapshot, error) {
	units, err := db.ListUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransientFetch, err)
	}
	rentals, err := db.ListRentals(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransientFetch, err)
	}

	now := db.now()
	snap := &models.Snapshot{
		AvailableUnits: units,
		Active:         []models.Rental{},
		Upcoming:       []models.Rental{},
		Finished:       []models.Rental{},
		FetchedAt:      now,
	}
	for _, r := range rentals {
		switch rental.Evaluate(now, r.Start, r.End).State {
		case rental.Active:
			snap.Active = append(snap.Active, r)
		case rental.Upcoming:
			snap.Upcoming = append(snap.Upcoming, r)
		default:
			snap.Finished = append(snap.Finished, r)
		}
	}

	db.logger.Debug().
		Int("units", len(units)).
		Int("active", len(snap.Active)).
		Int("upcoming", len(snap.Upcoming)).
		Int("finished", len(snap.Finished)).
		Msg("snapshot built from database")
	return snap, nil
}
