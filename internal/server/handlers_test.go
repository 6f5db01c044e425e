package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-system/internal/parking"
	"parking-system/internal/storage/memory"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type apiFixture struct {
	router http.Handler
	clock  *testClock
}

func newAPIFixture(t *testing.T, cars, bikes int) *apiFixture {
	t.Helper()
	spots, err := parking.NewLayout(cars, bikes)
	require.NoError(t, err)
	store := memory.NewStore(spots)
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	fares := parking.NewFarePolicy()
	svc := parking.NewSessionService(store, store, store, fares, parking.WithClock(clock.Now))

	return &apiFixture{
		router: NewRouter(NewHandler(svc, fares, "parking-test")),
		clock:  clock,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealthCheck(t *testing.T) {
	f := newAPIFixture(t, 1, 1)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "parking-test", health.Service)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	f := newAPIFixture(t, 1, 1)
	req := httptest.NewRequest(http.MethodGet, "/api/parking/spots", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "req-123", resp.Meta.RequestID)
}

func TestEntryAndExitFlow(t *testing.T) {
	f := newAPIFixture(t, 1, 1)

	rec, resp := f.do(t, http.MethodPost, "/api/parking/entries", `{"category":"car","registration":"ABCDEF"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	entry := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), entry["spot_id"])
	assert.Equal(t, "CAR", entry["category"])
	assert.Equal(t, false, entry["returning_customer"])

	f.clock.now = f.clock.now.Add(time.Hour)
	rec, resp = f.do(t, http.MethodPost, "/api/parking/exits", `{"registration":"ABCDEF"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exit := resp.Data.(map[string]any)
	assert.Equal(t, float64(60), exit["duration_minutes"])
	assert.Equal(t, "1.5", exit["price"])
	assert.Equal(t, false, exit["discounted"])

	rec, resp = f.do(t, http.MethodGet, "/api/parking/tickets/ABCDEF", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tickets := resp.Data.([]any)
	require.Len(t, tickets, 1)
	ticket := tickets[0].(map[string]any)
	assert.Equal(t, "CLOSED", ticket["status"])
	assert.Equal(t, "1.50", ticket["price"])
}

func TestEntryErrors(t *testing.T) {
	f := newAPIFixture(t, 1, 0)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "malformed body", body: `{`, status: http.StatusBadRequest},
		{name: "unknown category", body: `{"category":"TRUCK","registration":"ABC"}`, status: http.StatusBadRequest},
		{name: "blank registration", body: `{"category":"CAR","registration":"  "}`, status: http.StatusBadRequest},
		{name: "first car parks", body: `{"category":"CAR","registration":"AAA"}`, status: http.StatusCreated},
		{name: "already parked", body: `{"category":"CAR","registration":"AAA"}`, status: http.StatusBadRequest},
		{name: "lot full", body: `{"category":"CAR","registration":"BBB"}`, status: http.StatusConflict},
		{name: "no bike spots at all", body: `{"category":"BIKE","registration":"CCC"}`, status: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.do(t, http.MethodPost, "/api/parking/entries", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.status < 400, resp.Success)
		})
	}
}

func TestExitWithoutOpenTicket(t *testing.T) {
	f := newAPIFixture(t, 1, 1)

	rec, resp := f.do(t, http.MethodPost, "/api/parking/exits", `{"registration":"NOPE"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no open ticket")
	assert.NotContains(t, resp.Error, "exit failed")
}

func TestListSpots(t *testing.T) {
	f := newAPIFixture(t, 2, 1)

	_, _ = f.do(t, http.MethodPost, "/api/parking/entries", `{"category":"BIKE","registration":"BIKE01"}`)

	rec, resp := f.do(t, http.MethodGet, "/api/parking/spots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(2), data["available"])
	spots := data["spots"].([]any)
	require.Len(t, spots, 3)
	assert.Equal(t, false, spots[2].(map[string]any)["available"])
}

func TestQuoteFare(t *testing.T) {
	f := newAPIFixture(t, 1, 1)

	tests := []struct {
		name   string
		body   string
		status int
		price  string
	}{
		{name: "free period", body: `{"category":"CAR","duration_minutes":30}`, status: http.StatusOK, price: "0.00"},
		{name: "car hour", body: `{"category":"CAR","duration_minutes":60}`, status: http.StatusOK, price: "1.50"},
		{name: "returning car day", body: `{"category":"car","duration_minutes":1440,"returning_customer":true}`, status: http.StatusOK, price: "34.20"},
		{name: "bike hour", body: `{"category":"BIKE","duration_minutes":60}`, status: http.StatusOK, price: "0.96"},
		{name: "negative duration", body: `{"category":"CAR","duration_minutes":-1}`, status: http.StatusBadRequest},
		{name: "unknown category", body: `{"category":"BUS","duration_minutes":10}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.do(t, http.MethodPost, "/api/parking/fares/quote", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.price != "" {
				assert.Equal(t, tt.price, resp.Data.(map[string]any)["price"])
			}
		})
	}
}

type failingSessions struct{}

func (failingSessions) BeginSession(context.Context, parking.VehicleCategory, string) (*parking.EntryReceipt, error) {
	return nil, &parking.SessionError{Op: parking.OpEntry, Err: errors.New("connection reset")}
}

func (failingSessions) EndSession(context.Context, string) (*parking.ExitReceipt, error) {
	return nil, &parking.SessionError{Op: parking.OpExit, Err: parking.ErrStoreFailure}
}

func (failingSessions) Spots(context.Context) ([]parking.Spot, error) {
	return nil, parking.ErrStoreFailure
}

func (failingSessions) Tickets(context.Context, string) ([]*parking.Ticket, error) {
	return nil, parking.ErrStoreFailure
}

func TestStoreFailuresMapToInternalError(t *testing.T) {
	router := NewRouter(NewHandler(failingSessions{}, parking.NewFarePolicy(), ""))

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/parking/entries", `{"category":"CAR","registration":"AAA"}`},
		{http.MethodPost, "/api/parking/exits", `{"registration":"AAA"}`},
		{http.MethodGet, "/api/parking/spots", ""},
		{http.MethodGet, "/api/parking/tickets/AAA", ""},
	}

	for _, r := range requests {
		req := httptest.NewRequest(r.method, r.path, strings.NewReader(r.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code, r.path)
		assert.NotContains(t, rec.Body.String(), "connection reset", r.path)
	}
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	f := newAPIFixture(t, 1, 1)
	_, _ = f.do(t, http.MethodGet, "/api/parking/spots", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "parking_http_requests_total")
	assert.Contains(t, body, `route="/api/parking/spots"`)
	assert.Contains(t, body, "parking_http_request_duration_seconds")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(parking.ErrNegativeDuration))
	assert.Equal(t, http.StatusConflict, statusFor(&parking.SessionError{Op: parking.OpEntry, Err: parking.ErrLotFull}))
	assert.Equal(t, http.StatusNotFound, statusFor(parking.ErrNoOpenTicket))
	assert.Equal(t, http.StatusInternalServerError, statusFor(parking.ErrSpotConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
