package postgres

import (
	"context"
	"fmt"

	"parking-system/internal/parking"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS parking (
    parking_number INTEGER PRIMARY KEY,
    type TEXT NOT NULL CHECK (type IN ('CAR', 'BIKE')),
    available BOOLEAN NOT NULL DEFAULT TRUE
)`,
	`CREATE TABLE IF NOT EXISTS ticket (
    id UUID PRIMARY KEY,
    parking_number INTEGER NOT NULL REFERENCES parking (parking_number),
    vehicle_reg_number TEXT NOT NULL,
    price NUMERIC NOT NULL DEFAULT 0,
    in_time TIMESTAMPTZ NOT NULL,
    out_time TIMESTAMPTZ
)`,
	`ALTER TABLE ticket ALTER COLUMN price TYPE NUMERIC`,
	`CREATE INDEX IF NOT EXISTS ticket_vehicle_reg_number_idx ON ticket (vehicle_reg_number)`,
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db Querier) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SeedSpots inserts the layout, leaving spots that already exist untouched.
func SeedSpots(ctx context.Context, db Querier, spots []parking.Spot) error {
	for _, spot := range spots {
		if _, err := db.Exec(ctx,
			`INSERT INTO parking (parking_number, type, available) VALUES ($1, $2, $3)
			 ON CONFLICT (parking_number) DO NOTHING`,
			spot.ID, string(spot.Category), spot.Available,
		); err != nil {
			return fmt.Errorf("seed spot %d: %w", spot.ID, err)
		}
	}
	return nil
}
