package parking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketOpen   TicketStatus = "OPEN"
	TicketClosed TicketStatus = "CLOSED"
)

type Ticket struct {
	ID                  string          `json:"id"`
	Spot                Spot            `json:"spot"`
	VehicleRegistration string          `json:"vehicle_registration"`
	InTime              time.Time       `json:"in_time"`
	OutTime             *time.Time      `json:"out_time,omitempty"`
	Price               decimal.Decimal `json:"price"`
}

// NewTicket opens a ticket on the given spot. Price stays zero until Close.
func NewTicket(spot Spot, registration string, inTime time.Time) *Ticket {
	return &Ticket{
		ID:                  uuid.NewString(),
		Spot:                spot,
		VehicleRegistration: registration,
		InTime:              inTime,
		Price:               decimal.Zero,
	}
}

func (t *Ticket) Status() TicketStatus {
	if t.OutTime == nil {
		return TicketOpen
	}
	return TicketClosed
}

func (t *Ticket) IsOpen() bool {
	return t.Status() == TicketOpen
}

// ParkedMinutes returns the whole minutes between in-time and outTime, rounded down.
func (t *Ticket) ParkedMinutes(outTime time.Time) (int, error) {
	if !outTime.After(t.InTime) {
		return 0, fmt.Errorf("%w: in=%s out=%s", ErrInvalidInterval,
			t.InTime.Format(time.RFC3339), outTime.Format(time.RFC3339))
	}
	return int(outTime.Sub(t.InTime) / time.Minute), nil
}

// Close moves the ticket from OPEN to CLOSED. It is the only mutation a ticket allows.
func (t *Ticket) Close(outTime time.Time, price decimal.Decimal) error {
	if !t.IsOpen() {
		return fmt.Errorf("%w: ticket %s", ErrTicketClosed, t.ID)
	}
	if _, err := t.ParkedMinutes(outTime); err != nil {
		return err
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: negative price %s", ErrValidation, price)
	}
	out := outTime
	t.OutTime = &out
	t.Price = price
	return nil
}
