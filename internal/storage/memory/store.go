// Package memory keeps spots and tickets in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"parking-system/internal/parking"
)

// Store implements parking.SpotStore, parking.TicketStore and parking.CustomerHistory.
type Store struct {
	mu      sync.Mutex
	spots   []*parking.Spot
	tickets []*parking.Ticket
}

func NewStore(spots []parking.Spot) *Store {
	s := &Store{spots: make([]*parking.Spot, 0, len(spots))}
	for _, spot := range spots {
		spot := spot
		s.spots = append(s.spots, &spot)
	}
	sort.Slice(s.spots, func(i, j int) bool {
		return s.spots[i].ID < s.spots[j].ID
	})
	return s
}

func (s *Store) NextAvailable(_ context.Context, category parking.VehicleCategory) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spot := range s.spots {
		if spot.Category == category && spot.Available {
			return spot.ID, nil
		}
	}
	return 0, fmt.Errorf("free %s spot: %w", category, parking.ErrNotFound)
}

func (s *Store) SetAvailability(_ context.Context, spotID int, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spot := range s.spots {
		if spot.ID == spotID {
			return spot.SetAvailability(available)
		}
	}
	return fmt.Errorf("spot %d: %w", spotID, parking.ErrNotFound)
}

func (s *Store) ListSpots(_ context.Context) ([]parking.Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spots := make([]parking.Spot, 0, len(s.spots))
	for _, spot := range s.spots {
		spots = append(spots, *spot)
	}
	return spots, nil
}

func (s *Store) Create(_ context.Context, ticket *parking.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tickets {
		if t.ID == ticket.ID {
			return fmt.Errorf("ticket %s already exists", ticket.ID)
		}
	}
	s.tickets = append(s.tickets, cloneTicket(ticket))
	return nil
}

// FindOpenByRegistration returns the most recent open ticket for the registration.
func (s *Store) FindOpenByRegistration(_ context.Context, registration string) (*parking.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.tickets) - 1; i >= 0; i-- {
		t := s.tickets[i]
		if t.VehicleRegistration == registration && t.IsOpen() {
			return cloneTicket(t), nil
		}
	}
	return nil, fmt.Errorf("open ticket for %s: %w", registration, parking.ErrNotFound)
}

func (s *Store) Update(_ context.Context, ticket *parking.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tickets {
		if t.ID == ticket.ID {
			if !t.IsOpen() {
				return fmt.Errorf("%w: ticket %s", parking.ErrTicketClosed, ticket.ID)
			}
			s.tickets[i] = cloneTicket(ticket)
			return nil
		}
	}
	return fmt.Errorf("ticket %s: %w", ticket.ID, parking.ErrNotFound)
}

func (s *Store) ListByRegistration(_ context.Context, registration string) ([]*parking.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tickets []*parking.Ticket
	for _, t := range s.tickets {
		if t.VehicleRegistration == registration {
			tickets = append(tickets, cloneTicket(t))
		}
	}
	return tickets, nil
}

func (s *Store) PriorVisitCount(_ context.Context, registration string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, t := range s.tickets {
		if t.VehicleRegistration == registration {
			count++
		}
	}
	return count, nil
}

func cloneTicket(t *parking.Ticket) *parking.Ticket {
	c := *t
	if t.OutTime != nil {
		out := *t.OutTime
		c.OutTime = &out
	}
	return &c
}
