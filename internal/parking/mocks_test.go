package parking_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"parking-system/internal/parking"
)

type mockSpotStore struct {
	mock.Mock
}

func (m *mockSpotStore) NextAvailable(ctx context.Context, category parking.VehicleCategory) (int, error) {
	args := m.Called(ctx, category)
	return args.Int(0), args.Error(1)
}

func (m *mockSpotStore) SetAvailability(ctx context.Context, spotID int, available bool) error {
	return m.Called(ctx, spotID, available).Error(0)
}

func (m *mockSpotStore) ListSpots(ctx context.Context) ([]parking.Spot, error) {
	args := m.Called(ctx)
	spots, _ := args.Get(0).([]parking.Spot)
	return spots, args.Error(1)
}

type mockTicketStore struct {
	mock.Mock
}

func (m *mockTicketStore) Create(ctx context.Context, ticket *parking.Ticket) error {
	return m.Called(ctx, ticket).Error(0)
}

func (m *mockTicketStore) FindOpenByRegistration(ctx context.Context, registration string) (*parking.Ticket, error) {
	args := m.Called(ctx, registration)
	ticket, _ := args.Get(0).(*parking.Ticket)
	return ticket, args.Error(1)
}

func (m *mockTicketStore) Update(ctx context.Context, ticket *parking.Ticket) error {
	return m.Called(ctx, ticket).Error(0)
}

func (m *mockTicketStore) ListByRegistration(ctx context.Context, registration string) ([]*parking.Ticket, error) {
	args := m.Called(ctx, registration)
	tickets, _ := args.Get(0).([]*parking.Ticket)
	return tickets, args.Error(1)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) PriorVisitCount(ctx context.Context, registration string) (int, error) {
	args := m.Called(ctx, registration)
	return args.Int(0), args.Error(1)
}

type recordingNotifier struct {
	entries []parking.EntryReceipt
	exits   []parking.ExitReceipt
}

func (n *recordingNotifier) EntryRecorded(_ context.Context, r parking.EntryReceipt) {
	n.entries = append(n.entries, r)
}

func (n *recordingNotifier) ExitRecorded(_ context.Context, r parking.ExitReceipt) {
	n.exits = append(n.exits, r)
}
