package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/kafka"
	"github.com/BartoooMuch/irline-ticketing-system/internal/repository"
)

type MockSweepStore struct {
	mock.Mock
}

func (m *MockSweepStore) DepartedFlightIDs(ctx context.Context, before time.Time) ([]int64, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockSweepStore) UnnotifiedTransactions(ctx context.Context, limit int) ([]domain.PendingNotification, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.PendingNotification), args.Error(1)
}

func (m *MockSweepStore) MarkTransactionNotified(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	return m.Called(ctx, topic, key, value).Error(0)
}

type fakeLedger struct {
	tx *MockLedgerTx
}

func (f *fakeLedger) WithinTx(ctx context.Context, fn func(context.Context, repository.LedgerTx) error) error {
	return fn(ctx, f.tx)
}

type MockLedgerTx struct {
	mock.Mock
}

func (m *MockLedgerTx) FlightForUpdate(ctx context.Context, flightID int64) (*domain.Flight, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockLedgerTx) SetFlightSeats(ctx context.Context, flightID int64, available int) error {
	return m.Called(ctx, flightID, available).Error(0)
}

func (m *MockLedgerTx) SetFlightStatus(ctx context.Context, flightID int64, status domain.FlightStatus) error {
	return m.Called(ctx, flightID, status).Error(0)
}

func (m *MockLedgerTx) SetFlightPrice(ctx context.Context, flightID int64, priceCents int64) error {
	return m.Called(ctx, flightID, priceCents).Error(0)
}

func (m *MockLedgerTx) SetFlightCapacity(ctx context.Context, flightID int64, total, available int) error {
	return m.Called(ctx, flightID, total, available).Error(0)
}

func (m *MockLedgerTx) SetFlightDeparture(ctx context.Context, flightID int64, departure time.Time) error {
	return m.Called(ctx, flightID, departure).Error(0)
}

func (m *MockLedgerTx) MemberForUpdate(ctx context.Context, memberID int64) (*domain.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockLedgerTx) MemberByNumberForUpdate(ctx context.Context, number string) (*domain.Member, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockLedgerTx) MemberByEmailForUpdate(ctx context.Context, email string) (*domain.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockLedgerTx) SetMemberMiles(ctx context.Context, memberID, totalMiles, availableMiles int64) error {
	return m.Called(ctx, memberID, totalMiles, availableMiles).Error(0)
}

func (m *MockLedgerTx) InsertTicket(ctx context.Context, t *domain.Ticket) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockLedgerTx) TicketForUpdate(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockLedgerTx) SetTicketStatus(ctx context.Context, ticketID int64, status domain.TicketStatus) error {
	return m.Called(ctx, ticketID, status).Error(0)
}

func (m *MockLedgerTx) ConfirmedTickets(ctx context.Context, flightID int64) ([]domain.Ticket, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockLedgerTx) InsertPointsTransaction(ctx context.Context, pt *domain.PointsTransaction) error {
	return m.Called(ctx, pt).Error(0)
}

func (m *MockLedgerTx) SettlementCreditExists(ctx context.Context, ticketID int64) (bool, error) {
	args := m.Called(ctx, ticketID)
	return args.Bool(0), args.Error(1)
}

var _ repository.LedgerTx = (*MockLedgerTx)(nil)

var frozen = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *MockSweepStore, tx *MockLedgerTx, producer Producer) *SettlementService {
	return NewSettlementService(&fakeLedger{tx: tx}, store, producer,
		WithNotificationsTopic("notifications"),
		WithClock(func() time.Time { return frozen }))
}

func departedFlight(status domain.FlightStatus) *domain.Flight {
	return &domain.Flight{
		ID:             1,
		FromAirport:    "IST",
		ToAirport:      "JFK",
		DepartureTime:  frozen.Add(-2 * time.Hour),
		TotalSeats:     180,
		AvailableSeats: 100,
		Status:         status,
	}
}

func memberTicket(id int64, memberID int64, earned int64) domain.Ticket {
	return domain.Ticket{
		ID:          id,
		FlightID:    1,
		MemberID:    &memberID,
		MilesEarned: earned,
		Status:      domain.TicketStatusConfirmed,
	}
}

func TestSettleDepartedFlights_CreditsAndCompletes(t *testing.T) {
	store := &MockSweepStore{}
	mockTx := &MockLedgerTx{}
	service := newTestService(store, mockTx, &MockProducer{})

	anonymous := domain.Ticket{ID: 30, FlightID: 1, Status: domain.TicketStatusConfirmed}
	tickets := []domain.Ticket{
		memberTicket(10, 7, 1000),
		memberTicket(20, 8, 500),
		anonymous,
	}

	store.On("DepartedFlightIDs", mock.Anything, frozen).Return([]int64{1}, nil)
	mockTx.On("FlightForUpdate", mock.Anything, int64(1)).Return(departedFlight(domain.FlightStatusScheduled), nil)
	mockTx.On("ConfirmedTickets", mock.Anything, int64(1)).Return(tickets, nil)
	mockTx.On("SettlementCreditExists", mock.Anything, int64(10)).Return(false, nil)
	mockTx.On("SettlementCreditExists", mock.Anything, int64(20)).Return(false, nil)
	mockTx.On("MemberForUpdate", mock.Anything, int64(7)).Return(&domain.Member{ID: 7, TotalMiles: 100, AvailableMiles: 100}, nil)
	mockTx.On("MemberForUpdate", mock.Anything, int64(8)).Return(&domain.Member{ID: 8, TotalMiles: 0, AvailableMiles: 0}, nil)
	mockTx.On("SetMemberMiles", mock.Anything, int64(7), int64(1100), int64(1100)).Return(nil)
	mockTx.On("SetMemberMiles", mock.Anything, int64(8), int64(500), int64(500)).Return(nil)
	mockTx.On("InsertPointsTransaction", mock.Anything, mock.MatchedBy(func(pt *domain.PointsTransaction) bool {
		return pt.Type == domain.TransactionCredit &&
			pt.Source == domain.SourceFlightCompletion &&
			pt.SettlementProcessed &&
			pt.TicketID != nil
	})).Return(nil).Twice()
	mockTx.On("SetFlightStatus", mock.Anything, int64(1), domain.FlightStatusCompleted).Return(nil)

	result, err := service.SettleDepartedFlights(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.FlightsSettled)
	assert.Equal(t, 2, result.TicketsCredited)
	assert.Equal(t, int64(1500), result.MilesAwarded)
	assert.Equal(t, 0, result.FlightsFailed)
	mockTx.AssertExpectations(t)
}

func TestSettleDepartedFlights_SkipsAlreadyCreditedTickets(t *testing.T) {
	store := &MockSweepStore{}
	mockTx := &MockLedgerTx{}
	service := newTestService(store, mockTx, &MockProducer{})

	store.On("DepartedFlightIDs", mock.Anything, frozen).Return([]int64{1}, nil)
	mockTx.On("FlightForUpdate", mock.Anything, int64(1)).Return(departedFlight(domain.FlightStatusDelayed), nil)
	mockTx.On("ConfirmedTickets", mock.Anything, int64(1)).Return([]domain.Ticket{memberTicket(10, 7, 1000)}, nil)
	mockTx.On("SettlementCreditExists", mock.Anything, int64(10)).Return(true, nil)
	mockTx.On("SetFlightStatus", mock.Anything, int64(1), domain.FlightStatusCompleted).Return(nil)

	result, err := service.SettleDepartedFlights(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.FlightsSettled)
	assert.Equal(t, 0, result.TicketsCredited)
	mockTx.AssertNotCalled(t, "MemberForUpdate", mock.Anything, mock.Anything)
	mockTx.AssertNotCalled(t, "InsertPointsTransaction", mock.Anything, mock.Anything)
}

func TestSettleDepartedFlights_RescheduledFlightIsNotCompleted(t *testing.T) {
	store := &MockSweepStore{}
	mockTx := &MockLedgerTx{}
	service := newTestService(store, mockTx, &MockProducer{})

	// An admin moved the departure forward between the work-list read and
	// the lock; the flight has not actually departed.
	rescheduled := departedFlight(domain.FlightStatusDelayed)
	rescheduled.DepartureTime = frozen.Add(6 * time.Hour)

	store.On("DepartedFlightIDs", mock.Anything, frozen).Return([]int64{1}, nil)
	mockTx.On("FlightForUpdate", mock.Anything, int64(1)).Return(rescheduled, nil)

	result, err := service.SettleDepartedFlights(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, result.TicketsCredited)
	mockTx.AssertNotCalled(t, "ConfirmedTickets", mock.Anything, mock.Anything)
	mockTx.AssertNotCalled(t, "SetFlightStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettleDepartedFlights_RecheckUnderLock(t *testing.T) {
	store := &MockSweepStore{}
	mockTx := &MockLedgerTx{}
	service := newTestService(store, mockTx, &MockProducer{})

	// Another worker completed the flight between the work-list read and
	// the lock.
	store.On("DepartedFlightIDs", mock.Anything, frozen).Return([]int64{1}, nil)
	mockTx.On("FlightForUpdate", mock.Anything, int64(1)).Return(departedFlight(domain.FlightStatusCompleted), nil)

	result, err := service.SettleDepartedFlights(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, result.TicketsCredited)
	mockTx.AssertNotCalled(t, "ConfirmedTickets", mock.Anything, mock.Anything)
	mockTx.AssertNotCalled(t, "SetFlightStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettleDepartedFlights_OneBadFlightDoesNotBlockTheRest(t *testing.T) {
	store := &MockSweepStore{}
	mockTx := &MockLedgerTx{}
	service := newTestService(store, mockTx, &MockProducer{})

	store.On("DepartedFlightIDs", mock.Anything, frozen).Return([]int64{1, 2}, nil)
	broken := departedFlight(domain.FlightStatusScheduled)
	mockTx.On("FlightForUpdate", mock.Anything, int64(1)).Return(broken, nil)
	mockTx.On("ConfirmedTickets", mock.Anything, int64(1)).Return([]domain.Ticket{}, errors.New("connection reset"))

	healthy := departedFlight(domain.FlightStatusScheduled)
	healthy.ID = 2
	mockTx.On("FlightForUpdate", mock.Anything, int64(2)).Return(healthy, nil)
	mockTx.On("ConfirmedTickets", mock.Anything, int64(2)).Return([]domain.Ticket{}, nil)
	mockTx.On("SetFlightStatus", mock.Anything, int64(2), domain.FlightStatusCompleted).Return(nil)

	result, err := service.SettleDepartedFlights(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.FlightsFailed)
	assert.Equal(t, 1, result.FlightsSettled)
}

func TestSettleDepartedFlights_WorkListFailure(t *testing.T) {
	store := &MockSweepStore{}
	service := newTestService(store, &MockLedgerTx{}, &MockProducer{})

	store.On("DepartedFlightIDs", mock.Anything, frozen).Return(nil, errors.New("db down"))

	_, err := service.SettleDepartedFlights(context.Background())
	assert.Error(t, err)
}

func TestRetryPendingNotifications_PublishesAndMarks(t *testing.T) {
	store := &MockSweepStore{}
	producer := &MockProducer{}
	service := newTestService(store, &MockLedgerTx{}, producer)

	pending := []domain.PendingNotification{
		{
			Transaction:  domain.PointsTransaction{ID: 1, Type: domain.TransactionCredit, Miles: 1000, Source: domain.SourceFlightCompletion},
			MemberNumber: "FF00000007",
			MemberEmail:  "ada@example.com",
		},
		{
			Transaction:  domain.PointsTransaction{ID: 2, Type: domain.TransactionDebit, Miles: 200, Source: domain.SourceTicketPurchase},
			MemberNumber: "FF00000008",
			MemberEmail:  "grace@example.com",
		},
	}

	store.On("UnnotifiedTransactions", mock.Anything, 50).Return(pending, nil)
	producer.On("Publish", mock.Anything, "notifications", "FF00000007", mock.MatchedBy(func(e kafka.NotificationEvent) bool {
		return e.Type == kafka.EventMilesChanged && e.Recipient == "ada@example.com" && e.Payload["miles"] == "1000"
	})).Return(nil)
	producer.On("Publish", mock.Anything, "notifications", "FF00000008", mock.Anything).Return(nil)
	store.On("MarkTransactionNotified", mock.Anything, int64(1)).Return(nil)
	store.On("MarkTransactionNotified", mock.Anything, int64(2)).Return(nil)

	sent, err := service.RetryPendingNotifications(context.Background(), 50)

	assert.NoError(t, err)
	assert.Equal(t, 2, sent)
	store.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestRetryPendingNotifications_PublishFailureLeavesEntryPending(t *testing.T) {
	store := &MockSweepStore{}
	producer := &MockProducer{}
	service := newTestService(store, &MockLedgerTx{}, producer)

	pending := []domain.PendingNotification{
		{Transaction: domain.PointsTransaction{ID: 1, Miles: 100}, MemberNumber: "FF1", MemberEmail: "a@b.com"},
	}
	store.On("UnnotifiedTransactions", mock.Anything, 10).Return(pending, nil)
	producer.On("Publish", mock.Anything, "notifications", "FF1", mock.Anything).Return(errors.New("broker down"))

	sent, err := service.RetryPendingNotifications(context.Background(), 10)

	assert.NoError(t, err)
	assert.Equal(t, 0, sent)
	store.AssertNotCalled(t, "MarkTransactionNotified", mock.Anything, mock.Anything)
}

func TestRetryPendingNotifications_EmptyBatch(t *testing.T) {
	store := &MockSweepStore{}
	producer := &MockProducer{}
	service := newTestService(store, &MockLedgerTx{}, producer)

	store.On("UnnotifiedTransactions", mock.Anything, 25).Return([]domain.PendingNotification{}, nil)

	sent, err := service.RetryPendingNotifications(context.Background(), 25)

	assert.NoError(t, err)
	assert.Equal(t, 0, sent)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
