package parking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parking-system/internal/logging"
)

// Customer History thresholds. The visit count includes the ticket being closed,
// so a discount needs at least one earlier ticket besides it.
const (
	returningCustomerThreshold = 0
	discountThreshold          = 1
)

type Clock func() time.Time

type SessionService struct {
	spots    SpotStore
	tickets  TicketStore
	history  CustomerHistory
	fares    *FarePolicy
	notifier Notifier
	now      Clock
}

type Option func(*SessionService)

func WithNotifier(n Notifier) Option {
	return func(s *SessionService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *SessionService) {
		if c != nil {
			s.now = c
		}
	}
}

func NewSessionService(spots SpotStore, tickets TicketStore, history CustomerHistory, fares *FarePolicy, opts ...Option) *SessionService {
	s := &SessionService{
		spots:    spots,
		tickets:  tickets,
		history:  history,
		fares:    fares,
		notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginSession claims the lowest free spot of the category and opens a ticket on it.
// A registration with an open ticket cannot enter again.
// Steps already committed are not undone when a later step fails.
func (s *SessionService) BeginSession(ctx context.Context, category VehicleCategory, registration string) (*EntryReceipt, error) {
	registration = strings.TrimSpace(registration)
	if registration == "" {
		return nil, &SessionError{Op: OpEntry, Err: ErrInvalidRegistration}
	}
	if !category.Valid() {
		return nil, &SessionError{Op: OpEntry, Err: fmt.Errorf("%w: %q", ErrUnknownCategory, string(category))}
	}

	open, err := s.tickets.FindOpenByRegistration(ctx, registration)
	switch {
	case err == nil:
		return nil, &SessionError{Op: OpEntry, Err: fmt.Errorf("%w: %s in spot %d", ErrVehicleAlreadyParked, registration, open.Spot.ID)}
	case !errors.Is(err, ErrNotFound):
		return nil, s.failEntry(ctx, "check open ticket", err)
	}

	spotID, err := s.spots.NextAvailable(ctx, category)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &SessionError{Op: OpEntry, Err: fmt.Errorf("%w for %s", ErrLotFull, category)}
		}
		return nil, s.failEntry(ctx, "find available spot", err)
	}

	if err := s.spots.SetAvailability(ctx, spotID, false); err != nil {
		return nil, s.failEntry(ctx, "claim spot", err)
	}

	returning := false
	if count, err := s.history.PriorVisitCount(ctx, registration); err != nil {
		logging.Warn(ctx, "customer history unavailable, treating as new customer",
			"registration", registration, "error", err)
	} else {
		returning = count > returningCustomerThreshold
	}

	ticket := NewTicket(Spot{ID: spotID, Category: category, Available: false}, registration, s.now())
	if err := s.tickets.Create(ctx, ticket); err != nil {
		logging.Error(ctx, "spot claimed without ticket", "spot_id", spotID, "registration", registration)
		return nil, s.failEntry(ctx, "create ticket", err)
	}

	receipt := EntryReceipt{
		TicketID:          ticket.ID,
		SpotID:            spotID,
		Category:          category,
		Registration:      registration,
		InTime:            ticket.InTime,
		ReturningCustomer: returning,
	}
	s.notifier.EntryRecorded(ctx, receipt)
	return &receipt, nil
}

// EndSession closes the open ticket for the registration, prices it and frees its spot.
func (s *SessionService) EndSession(ctx context.Context, registration string) (*ExitReceipt, error) {
	registration = strings.TrimSpace(registration)
	if registration == "" {
		return nil, &SessionError{Op: OpExit, Err: ErrInvalidRegistration}
	}

	ticket, err := s.tickets.FindOpenByRegistration(ctx, registration)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &SessionError{Op: OpExit, Err: fmt.Errorf("%w for %s", ErrNoOpenTicket, registration)}
		}
		return nil, s.failExit(ctx, "find open ticket", err)
	}
	if !ticket.IsOpen() {
		return nil, &SessionError{Op: OpExit, Err: fmt.Errorf("%w: ticket %s", ErrTicketClosed, ticket.ID)}
	}

	outTime := s.now()

	count, err := s.history.PriorVisitCount(ctx, registration)
	if err != nil {
		return nil, s.failExit(ctx, "count prior visits", err)
	}
	discounted := count > discountThreshold

	minutes, err := ticket.ParkedMinutes(outTime)
	if err != nil {
		return nil, &SessionError{Op: OpExit, Err: err}
	}

	price, err := s.fares.ComputeFare(minutes, ticket.Spot.Category, discounted)
	if err != nil {
		return nil, &SessionError{Op: OpExit, Err: err}
	}

	if err := ticket.Close(outTime, price); err != nil {
		return nil, &SessionError{Op: OpExit, Err: err}
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.failExit(ctx, "update ticket", err)
	}

	if err := s.spots.SetAvailability(ctx, ticket.Spot.ID, true); err != nil {
		logging.Error(ctx, "ticket closed but spot not freed", "ticket_id", ticket.ID, "spot_id", ticket.Spot.ID)
		return nil, s.failExit(ctx, "free spot", err)
	}

	receipt := ExitReceipt{
		TicketID:        ticket.ID,
		SpotID:          ticket.Spot.ID,
		Category:        ticket.Spot.Category,
		Registration:    registration,
		InTime:          ticket.InTime,
		OutTime:         outTime,
		DurationMinutes: minutes,
		Discounted:      discounted,
		Price:           price,
	}
	s.notifier.ExitRecorded(ctx, receipt)
	return &receipt, nil
}

func (s *SessionService) Spots(ctx context.Context) ([]Spot, error) {
	spots, err := s.spots.ListSpots(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return spots, nil
}

func (s *SessionService) Tickets(ctx context.Context, registration string) ([]*Ticket, error) {
	registration = strings.TrimSpace(registration)
	if registration == "" {
		return nil, ErrInvalidRegistration
	}
	tickets, err := s.tickets.ListByRegistration(ctx, registration)
	if err != nil {
		return nil, storeFailure(err)
	}
	return tickets, nil
}

func (s *SessionService) failEntry(ctx context.Context, step string, err error) error {
	err = storeFailure(err)
	logging.Error(ctx, "unable to process incoming vehicle", "step", step, "error", err)
	return &SessionError{Op: OpEntry, Err: fmt.Errorf("%s: %w", step, err)}
}

func (s *SessionService) failExit(ctx context.Context, step string, err error) error {
	err = storeFailure(err)
	logging.Error(ctx, "unable to process exiting vehicle", "step", step, "error", err)
	return &SessionError{Op: OpExit, Err: fmt.Errorf("%s: %w", step, err)}
}
