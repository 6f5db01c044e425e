package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedSessionService struct {
	*SessionService
	telemetry *TelemetryProvider

	// Metrics
	sessionsStarted   metric.Int64Counter
	sessionsEnded     metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	faresCollected    metric.Float64Counter
	operationDuration metric.Float64Histogram
}

func NewInstrumentedSessionService(service *SessionService, telemetry *TelemetryProvider) (*InstrumentedSessionService, error) {
	meter := telemetry.Meter()

	sessionsStarted, err := meter.Int64Counter("parking_sessions_started_total",
		metric.WithDescription("Total number of vehicle entries"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	sessionsEnded, err := meter.Int64Counter("parking_sessions_ended_total",
		metric.WithDescription("Total number of vehicle exits"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	faresCollected, err := meter.Float64Counter("parking_fares_collected",
		metric.WithDescription("Sum of fares charged at exit"),
		metric.WithUnit("{currency}"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of parking session operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedSessionService{
		SessionService:    service,
		telemetry:         telemetry,
		sessionsStarted:   sessionsStarted,
		sessionsEnded:     sessionsEnded,
		occupancyGauge:    occupancyGauge,
		faresCollected:    faresCollected,
		operationDuration: operationDuration,
	}, nil
}

func (s *InstrumentedSessionService) BeginSession(ctx context.Context, category VehicleCategory, registration string) (*EntryReceipt, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking.begin_session",
		trace.WithAttributes(
			attribute.String("vehicle.category", category.String()),
			attribute.String("vehicle.registration", registration),
		))
	defer span.End()

	start := time.Now()
	span.AddEvent("allocating_spot")

	receipt, err := s.SessionService.BeginSession(ctx, category, registration)

	labels := []attribute.KeyValue{
		attribute.String("operation", "begin_session"),
		attribute.String("vehicle_category", category.String()),
	}

	if err != nil {
		recordSpanError(span, err)
		labels = append(labels, attribute.String("status", outcomeStatus(err)))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.Int("spot.id", receipt.SpotID),
			attribute.String("ticket.id", receipt.TicketID),
			attribute.Bool("customer.returning", receipt.ReturningCustomer),
		)
		span.AddEvent("ticket_opened")
		s.occupancyGauge.Add(ctx, 1, metric.WithAttributes(attribute.String("vehicle_category", category.String())))
	}

	s.sessionsStarted.Add(ctx, 1, metric.WithAttributes(labels...))
	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return receipt, err
}

func (s *InstrumentedSessionService) EndSession(ctx context.Context, registration string) (*ExitReceipt, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking.end_session",
		trace.WithAttributes(
			attribute.String("vehicle.registration", registration),
		))
	defer span.End()

	start := time.Now()
	span.AddEvent("closing_ticket")

	receipt, err := s.SessionService.EndSession(ctx, registration)

	labels := []attribute.KeyValue{
		attribute.String("operation", "end_session"),
	}

	if err != nil {
		recordSpanError(span, err)
		labels = append(labels, attribute.String("status", outcomeStatus(err)))
	} else {
		category := receipt.Category.String()
		labels = append(labels,
			attribute.String("status", "success"),
			attribute.String("vehicle_category", category),
			attribute.Bool("discounted", receipt.Discounted),
		)
		span.SetAttributes(
			attribute.Int("spot.id", receipt.SpotID),
			attribute.String("ticket.id", receipt.TicketID),
			attribute.Int("ticket.duration_minutes", receipt.DurationMinutes),
			attribute.String("ticket.price", receipt.Price.String()),
		)
		span.AddEvent("spot_released")
		s.occupancyGauge.Add(ctx, -1, metric.WithAttributes(attribute.String("vehicle_category", category)))
		s.faresCollected.Add(ctx, receipt.Price.InexactFloat64(), metric.WithAttributes(attribute.String("vehicle_category", category)))
	}

	s.sessionsEnded.Add(ctx, 1, metric.WithAttributes(labels...))
	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return receipt, err
}

func (s *InstrumentedSessionService) Spots(ctx context.Context) ([]Spot, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking.list_spots")
	defer span.End()

	start := time.Now()
	spots, err := s.SessionService.Spots(ctx)

	status := "success"
	if err != nil {
		recordSpanError(span, err)
		status = outcomeStatus(err)
	} else {
		available := 0
		for _, spot := range spots {
			if spot.Available {
				available++
			}
		}
		span.SetAttributes(
			attribute.Int("spots.total", len(spots)),
			attribute.Int("spots.available", available),
		)
	}

	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "list_spots"),
		attribute.String("status", status),
	))
	return spots, err
}

func (s *InstrumentedSessionService) Tickets(ctx context.Context, registration string) ([]*Ticket, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking.list_tickets",
		trace.WithAttributes(attribute.String("vehicle.registration", registration)))
	defer span.End()

	start := time.Now()
	tickets, err := s.SessionService.Tickets(ctx, registration)

	status := "success"
	if err != nil {
		recordSpanError(span, err)
		status = outcomeStatus(err)
	} else {
		span.SetAttributes(attribute.Int("tickets.count", len(tickets)))
	}

	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "list_tickets"),
		attribute.String("status", status),
	))
	return tickets, err
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func outcomeStatus(err error) string {
	switch {
	case errors.Is(err, ErrLotFull):
		return "lot_full"
	case errors.Is(err, ErrNoOpenTicket):
		return "no_open_ticket"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "failed"
	}
}
