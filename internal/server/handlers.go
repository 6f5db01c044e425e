package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"parking-system/internal/logging"
	"parking-system/internal/parking"
)

type Handler struct {
	sessions    parking.SessionManager
	fares       *parking.FarePolicy
	serviceName string
}

func NewHandler(sessions parking.SessionManager, fares *parking.FarePolicy, serviceName string) *Handler {
	if serviceName == "" {
		serviceName = "parking-system"
	}
	return &Handler{
		sessions:    sessions,
		fares:       fares,
		serviceName: serviceName,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) BeginSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := parking.ParseVehicleCategory(req.Category)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Category must be CAR or BIKE")
		return
	}

	receipt, err := h.sessions.BeginSession(ctx, category, req.Registration)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteCreated(ctx, w, "Vehicle parked successfully", receipt)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ExitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.sessions.EndSession(ctx, req.Registration)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Parking fare computed", receipt)
}

func (h *Handler) ListSpots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spots, err := h.sessions.Spots(ctx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response := SpotsResponse{
		Total: len(spots),
		Spots: spots,
	}
	for _, spot := range spots {
		if spot.Available {
			response.Available++
		}
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", response)
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registration := chi.URLParam(r, "registration")

	tickets, err := h.sessions.Tickets(ctx, registration)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		response = append(response, newTicketResponse(t))
	}

	WriteSuccess(ctx, w, "Tickets retrieved successfully", response)
}

func (h *Handler) QuoteFare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req FareQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := parking.ParseVehicleCategory(req.Category)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Category must be CAR or BIKE")
		return
	}

	price, err := h.fares.ComputeFare(req.DurationMinutes, category, req.ReturningCustomer)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Fare computed", FareQuoteResponse{
		Category:          category,
		DurationMinutes:   req.DurationMinutes,
		ReturningCustomer: req.ReturningCustomer,
		Price:             price.StringFixed(2),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, parking.ErrLotFull):
		return http.StatusConflict
	case errors.Is(err, parking.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(ctx, "request failed", "path", r.URL.Path, "error", err.Error())
		WriteError(ctx, w, status, "Internal server error")
		return
	}
	WriteError(ctx, w, status, clientMessage(err))
}

// clientMessage drops the outcome prefix added by SessionError.
func clientMessage(err error) string {
	var sessionErr *parking.SessionError
	if errors.As(err, &sessionErr) {
		err = sessionErr.Err
	}
	return strings.TrimSpace(err.Error())
}
