package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"parking-system/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type EntryRequest struct {
	Category     string `json:"category"`
	Registration string `json:"registration"`
}

type ExitRequest struct {
	Registration string `json:"registration"`
}

type FareQuoteRequest struct {
	Category          string `json:"category"`
	DurationMinutes   int    `json:"duration_minutes"`
	ReturningCustomer bool   `json:"returning_customer"`
}

type FareQuoteResponse struct {
	Category          parking.VehicleCategory `json:"category"`
	DurationMinutes   int                     `json:"duration_minutes"`
	ReturningCustomer bool                    `json:"returning_customer"`
	Price             string                  `json:"price"`
}

type SpotsResponse struct {
	Total     int            `json:"total"`
	Available int            `json:"available"`
	Spots     []parking.Spot `json:"spots"`
}

type TicketResponse struct {
	ID           string                  `json:"id"`
	SpotID       int                     `json:"spot_id"`
	Category     parking.VehicleCategory `json:"category"`
	Registration string                  `json:"registration"`
	Status       parking.TicketStatus    `json:"status"`
	InTime       time.Time               `json:"in_time"`
	OutTime      *time.Time              `json:"out_time,omitempty"`
	Price        string                  `json:"price"`
}

func newTicketResponse(t *parking.Ticket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		SpotID:       t.Spot.ID,
		Category:     t.Spot.Category,
		Registration: t.VehicleRegistration,
		Status:       t.Status(),
		InTime:       t.InTime,
		OutTime:      t.OutTime,
		Price:        t.Price.StringFixed(2),
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteCreated(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
