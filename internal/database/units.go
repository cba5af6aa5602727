package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UpsertUnit adds a unit to the catalog or updates its sort order. Names are
// unique case-insensitively; the first spelling is kept.
func (db *DB) UpsertUnit(ctx context.Context, name string, sortOrder int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("unit name is required")
	}

	query := `INSERT INTO units (name, sort_order) VALUES (?, ?)
              ON CONFLICT(name) DO UPDATE SET sort_order = excluded.sort_order`
	if _, err := db.ExecContext(ctx, query, name, sortOrder); err != nil {
		return fmt.Errorf("failed to upsert unit: %w", err)
	}
	return nil
}

func (db *DB) DeleteUnit(ctx context.Context, name string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM units WHERE name = ?`, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	return nil
}

// ListUnits returns the catalog in sort order.
func (db *DB) ListUnits(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM units ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	units := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		units = append(units, name)
	}
	return units, rows.Err()
}
