package parking

import "context"

// SpotStore persists spots. SetAvailability must be conditional (it fails with
// ErrSpotConflict when the spot already has the requested availability), which is
// what keeps two concurrent entries from claiming the same spot.
type SpotStore interface {
	NextAvailable(ctx context.Context, category VehicleCategory) (int, error)
	SetAvailability(ctx context.Context, spotID int, available bool) error
	ListSpots(ctx context.Context) ([]Spot, error)
}

type TicketStore interface {
	Create(ctx context.Context, ticket *Ticket) error
	FindOpenByRegistration(ctx context.Context, registration string) (*Ticket, error)
	Update(ctx context.Context, ticket *Ticket) error
	ListByRegistration(ctx context.Context, registration string) ([]*Ticket, error)
}

// CustomerHistory counts every ticket recorded for a registration, open ones included.
type CustomerHistory interface {
	PriorVisitCount(ctx context.Context, registration string) (int, error)
}

// SessionManager is what the shell and the HTTP API drive.
type SessionManager interface {
	BeginSession(ctx context.Context, category VehicleCategory, registration string) (*EntryReceipt, error)
	EndSession(ctx context.Context, registration string) (*ExitReceipt, error)
	Spots(ctx context.Context) ([]Spot, error)
	Tickets(ctx context.Context, registration string) ([]*Ticket, error)
}
