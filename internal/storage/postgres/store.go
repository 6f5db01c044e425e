package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"parking-system/internal/parking"
)

// Store implements parking.SpotStore, parking.TicketStore and parking.CustomerHistory.
type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	return &Store{db: db}
}

func (s *Store) NextAvailable(ctx context.Context, category parking.VehicleCategory) (int, error) {
	var id *int
	err := s.db.QueryRow(ctx,
		`SELECT MIN(parking_number) FROM parking WHERE available AND type = $1`,
		string(category),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next available spot: %w", err)
	}
	if id == nil {
		return 0, fmt.Errorf("free %s spot: %w", category, parking.ErrNotFound)
	}
	return *id, nil
}

func (s *Store) SetAvailability(ctx context.Context, spotID int, available bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE parking SET available = $1 WHERE parking_number = $2 AND available <> $1`,
		available, spotID,
	)
	if err != nil {
		return fmt.Errorf("update spot %d: %w", spotID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM parking WHERE parking_number = $1)`, spotID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("lookup spot %d: %w", spotID, err)
	}
	if !exists {
		return fmt.Errorf("spot %d: %w", spotID, parking.ErrNotFound)
	}
	return fmt.Errorf("%w: spot %d available=%t", parking.ErrSpotConflict, spotID, !available)
}

func (s *Store) ListSpots(ctx context.Context) ([]parking.Spot, error) {
	rows, err := s.db.Query(ctx,
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
	_, err := s.db.Exec(ctx,
		`INSERT INTO ticket (id, parking_number, vehicle_reg_number, price, in_time, out_time)
		 VALUES ($1, $2, $3, $4::text::numeric, $5, $6)`,
		ticket.ID,
		ticket.Spot.ID,
		ticket.VehicleRegistration,
		ticket.Price.String(),
		ticket.InTime,
		ticket.OutTime,
	)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

const ticketColumns = `t.id::text, t.parking_number, p.type, p.available, t.vehicle_reg_number,
	t.price::text, t.in_time, t.out_time`

func (s *Store) FindOpenByRegistration(ctx context.Context, registration string) (*parking.Ticket, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+ticketColumns+`
		 FROM ticket t JOIN parking p ON p.parking_number = t.parking_number
		 WHERE t.vehicle_reg_number = $1 AND t.out_time IS NULL
		 ORDER BY t.in_time DESC
		 LIMIT 1`,
		registration,
	)
	ticket, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("open ticket for %s: %w", registration, parking.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find open ticket: %w", err)
	}
	return ticket, nil
}

// Update persists out-time and price. Only open tickets can be updated.
func (s *Store) Update(ctx context.Context, ticket *parking.Ticket) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE ticket SET price = $1::text::numeric, out_time = $2 WHERE id = $3 AND out_time IS NULL`,
		ticket.Price.String(), ticket.OutTime, ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ticket WHERE id = $1)`, ticket.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("lookup ticket %s: %w", ticket.ID, err)
	}
	if !exists {
		return fmt.Errorf("ticket %s: %w", ticket.ID, parking.ErrNotFound)
	}
	return fmt.Errorf("%w: ticket %s", parking.ErrTicketClosed, ticket.ID)
}

func (s *Store) ListByRegistration(ctx context.Context, registration string) ([]*parking.Ticket, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+ticketColumns+`
		 FROM ticket t JOIN parking p ON p.parking_number = t.parking_number
		 WHERE t.vehicle_reg_number = $1
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
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM ticket WHERE vehicle_reg_number = $1`, registration,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return count, nil
}

func scanTicket(row pgx.Row) (*parking.Ticket, error) {
	var (
		ticket   parking.Ticket
		category string
		price    string
		outTime  *time.Time
	)
	if err := row.Scan(&ticket.ID, &ticket.Spot.ID, &category, &ticket.Spot.Available,
		&ticket.VehicleRegistration, &price, &ticket.InTime, &outTime); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	ticket.Spot.Category = parking.VehicleCategory(category)
	ticket.Price = p
	ticket.InTime = ticket.InTime.UTC()
	if outTime != nil {
		out := outTime.UTC()
		ticket.OutTime = &out
	}
	return &ticket, nil
}
