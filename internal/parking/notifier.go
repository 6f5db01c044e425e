package parking

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"parking-system/internal/logging"
)

const receiptTimeLayout = "2006-01-02 15:04:05"

type EntryReceipt struct {
	TicketID          string          `json:"ticket_id"`
	SpotID            int             `json:"spot_id"`
	Category          VehicleCategory `json:"category"`
	Registration      string          `json:"registration"`
	InTime            time.Time       `json:"in_time"`
	ReturningCustomer bool            `json:"returning_customer"`
}

type ExitReceipt struct {
	TicketID        string          `json:"ticket_id"`
	SpotID          int             `json:"spot_id"`
	Category        VehicleCategory `json:"category"`
	Registration    string          `json:"registration"`
	InTime          time.Time       `json:"in_time"`
	OutTime         time.Time       `json:"out_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Discounted      bool            `json:"discounted"`
	Price           decimal.Decimal `json:"price"`
}

// Notifier delivers entry and exit confirmations.
type Notifier interface {
	EntryRecorded(ctx context.Context, receipt EntryReceipt)
	ExitRecorded(ctx context.Context, receipt ExitReceipt)
}

type nopNotifier struct{}

func (nopNotifier) EntryRecorded(context.Context, EntryReceipt) {}
func (nopNotifier) ExitRecorded(context.Context, ExitReceipt)   {}

// ConsoleNotifier prints confirmations for the operator at the terminal.
type ConsoleNotifier struct {
	out io.Writer
}

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) EntryRecorded(_ context.Context, r EntryReceipt) {
	fmt.Fprintln(n.out, "Generated Ticket and saved in DB")
	fmt.Fprintf(n.out, "Please park your vehicle in spot number:%d\n", r.SpotID)
	fmt.Fprintf(n.out, "Recorded in-time for vehicle number:%s is:%s\n", r.Registration, r.InTime.Format(receiptTimeLayout))
	if r.ReturningCustomer {
		fmt.Fprintln(n.out, "Welcome back! As a recurring user of our parking lot, you'll benefit from a 5% discount")
	} else {
		fmt.Fprintln(n.out, "Welcome! You are a new customer.")
	}
}

func (n *ConsoleNotifier) ExitRecorded(_ context.Context, r ExitReceipt) {
	fmt.Fprintf(n.out, "Please pay the parking fare: %s\n", r.Price.StringFixed(2))
	fmt.Fprintf(n.out, "Recorded out-time for vehicle number: %s is:%s\n", r.Registration, r.OutTime.Format(receiptTimeLayout))
}

// LogNotifier records confirmations as structured log entries.
type LogNotifier struct{}

func (LogNotifier) EntryRecorded(ctx context.Context, r EntryReceipt) {
	logging.Info(ctx, "ticket opened",
		"ticket_id", r.TicketID,
		"spot_id", r.SpotID,
		"category", r.Category.String(),
		"registration", r.Registration,
		"in_time", r.InTime,
		"returning_customer", r.ReturningCustomer,
	)
}

func (LogNotifier) ExitRecorded(ctx context.Context, r ExitReceipt) {
	logging.Info(ctx, "payment due",
		"ticket_id", r.TicketID,
		"spot_id", r.SpotID,
		"registration", r.Registration,
		"out_time", r.OutTime,
		"duration_minutes", r.DurationMinutes,
		"discounted", r.Discounted,
		"price", r.Price.StringFixed(2),
	)
}
