// Package sqlite provides a SQLite-backed parking store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"parking-system/internal/parking"
)

// Store implements parking.SpotStore, parking.TicketStore and parking.CustomerHistory.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path (":memory:" for a private in-memory database)
// and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SeedSpots inserts the layout, leaving spots that already exist untouched.
func (s *Store) SeedSpots(ctx context.Context, spots []parking.Spot) error {
	for _, spot := range spots {
		if _, err := s.sqlDB.ExecContext(ctx,
			`INSERT OR IGNORE INTO parking (parking_number, type, available) VALUES (?, ?, ?)`,
			spot.ID, string(spot.Category), spot.Available,
		); err != nil {
			return fmt.Errorf("seed spot %d: %w", spot.ID, err)
		}
	}
	return nil
}

func (s *Store) NextAvailable(ctx context.Context, category parking.VehicleCategory) (int, error) {
	var id sql.NullInt64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT MIN(parking_number) FROM parking WHERE available = 1 AND type = ?`,
		string(category),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next available spot: %w", err)
	}
	if !id.Valid {
		return 0, fmt.Errorf("free %s spot: %w", category, parking.ErrNotFound)
	}
	return int(id.Int64), nil
}

func (s *Store) SetAvailability(ctx context.Context, spotID int, available bool) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE parking SET available = ? WHERE parking_number = ? AND available <> ?`,
		available, spotID, available,
	)
	if err != nil {
		return fmt.Errorf("update spot %d: %w", spotID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update spot %d: %w", spotID, err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking WHERE parking_number = ?`, spotID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("lookup spot %d: %w", spotID, err)
	}
	if exists == 0 {
		return fmt.Errorf("spot %d: %w", spotID, parking.ErrNotFound)
	}
	return fmt.Errorf("%w: spot %d available=%t", parking.ErrSpotConflict, spotID, !available)
}

func (s *Store) ListSpots(ctx context.Context) ([]parking.Spot, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT parking_number, type, available FROM parking ORDER BY parking_number`)
	if err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	defer rows.Close()

	var spots []parking.Spot
	for rows.Next() {
		var (
			spot     parking.Spot
			category string
		)
		if err := rows.Scan(&spot.ID, &category, &spot.Available); err != nil {
			return nil, fmt.Errorf("scan spot: %w", err)
		}
		spot.Category = parking.VehicleCategory(category)
		spots = append(spots, spot)
	}
	return spots, rows.Err()
}

func (s *Store) Create(ctx context.Context, ticket *parking.Ticket) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO ticket (id, parking_number, vehicle_reg_number, price, in_time, out_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ticket.ID,
		ticket.Spot.ID,
		ticket.VehicleRegistration,
		ticket.Price.String(),
		toMillis(ticket.InTime),
		nullMillis(ticket.OutTime),
	)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

const ticketColumns = `t.id, t.parking_number, p.type, p.available, t.vehicle_reg_number, t.price, t.in_time, t.out_time`

func (s *Store) FindOpenByRegistration(ctx context.Context, registration string) (*parking.Ticket, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+ticketColumns+`
		 FROM ticket t JOIN parking p ON p.parking_number = t.parking_number
		 WHERE t.vehicle_reg_number = ? AND t.out_time IS NULL
		 ORDER BY t.in_time DESC
		 LIMIT 1`,
		registration,
	)
	ticket, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open ticket for %s: %w", registration, parking.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find open ticket: %w", err)
	}
	return ticket, nil
}

// Update persists out-time and price. Only open tickets can be updated.
func (s *Store) Update(ctx context.Context, ticket *parking.Ticket) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE ticket SET price = ?, out_time = ? WHERE id = ? AND out_time IS NULL`,
		ticket.Price.String(), nullMillis(ticket.OutTime), ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ticket WHERE id = ?`, ticket.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("lookup ticket %s: %w", ticket.ID, err)
	}
	if exists == 0 {
		return fmt.Errorf("ticket %s: %w", ticket.ID, parking.ErrNotFound)
	}
	return fmt.Errorf("%w: ticket %s", parking.ErrTicketClosed, ticket.ID)
}

func (s *Store) ListByRegistration(ctx context.Context, registration string) ([]*parking.Ticket, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+ticketColumns+`
		 FROM ticket t JOIN parking p ON p.parking_number = t.parking_number
		 WHERE t.vehicle_reg_number = ?
		 ORDER BY t.in_time`,
		registration,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*parking.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (s *Store) PriorVisitCount(ctx context.Context, registration string) (int, error) {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ticket WHERE vehicle_reg_number = ?`, registration,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*parking.Ticket, error) {
	var (
		ticket   parking.Ticket
		category string
		price    string
		inTime   int64
		outTime  sql.NullInt64
	)
	if err := row.Scan(&ticket.ID, &ticket.Spot.ID, &category, &ticket.Spot.Available,
		&ticket.VehicleRegistration, &price, &inTime, &outTime); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	ticket.Spot.Category = parking.VehicleCategory(category)
	ticket.Price = p
	ticket.InTime = fromMillis(inTime)
	if outTime.Valid {
		out := fromMillis(outTime.Int64)
		ticket.OutTime = &out
	}
	return &ticket, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}
