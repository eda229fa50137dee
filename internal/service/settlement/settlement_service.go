package settlement

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/kafka"
	"github.com/BartoooMuch/irline-ticketing-system/internal/repository"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// SweepStore is the read side of the ledger store the sweeps use outside
// of row-locking transactions.
type SweepStore interface {
	DepartedFlightIDs(ctx context.Context, before time.Time) ([]int64, error)
	UnnotifiedTransactions(ctx context.Context, limit int) ([]domain.PendingNotification, error)
	MarkTransactionNotified(ctx context.Context, id int64) error
}

// SweepResult summarizes one settlement pass for the worker's log line.
type SweepResult struct {
	FlightsSettled  int
	TicketsCredited int
	MilesAwarded    int64
	FlightsFailed   int
}

type SettlementService struct {
	ledger             repository.Ledger
	store              SweepStore
	producer           Producer
	notificationsTopic string
	now                func() time.Time
}

type SettlementServiceOption func(*SettlementService)

func WithNotificationsTopic(topic string) SettlementServiceOption {
	return func(s *SettlementService) {
		s.notificationsTopic = topic
	}
}

func WithClock(now func() time.Time) SettlementServiceOption {
	return func(s *SettlementService) {
		s.now = now
	}
}

func NewSettlementService(ledger repository.Ledger, store SweepStore, producer Producer, opts ...SettlementServiceOption) *SettlementService {
	service := &SettlementService{
		ledger:   ledger,
		store:    store,
		producer: producer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// SettleDepartedFlights finds flights that have departed, credits the earn
// recorded on each confirmed ticket to its member, and marks the flight
// COMPLETED. Each flight settles in its own transaction, so one bad flight
// does not block the rest of the sweep. The whole pass is idempotent: a
// ticket gets its completion credit at most once, ever, and an interrupted
// pass simply resumes on the next tick.
func (s *SettlementService) SettleDepartedFlights(ctx context.Context) (*SweepResult, error) {
	ids, err := s.store.DepartedFlightIDs(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list departed flights: %w", err)
	}

	result := &SweepResult{}
	for _, flightID := range ids {
		credited, awarded, err := s.settleFlight(ctx, flightID)
		if err != nil {
			result.FlightsFailed++
			log.Printf("WARNING: settlement of flight %d failed: %v", flightID, err)
			continue
		}
		result.FlightsSettled++
		result.TicketsCredited += credited
		result.MilesAwarded += awarded
	}
	return result, nil
}

func (s *SettlementService) settleFlight(ctx context.Context, flightID int64) (credited int, awarded int64, err error) {
	err = s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		flight, err := tx.FlightForUpdate(ctx, flightID)
		if err != nil {
			return err
		}
		// Re-check under the lock: an admin may have cancelled the flight
		// or another worker may have settled it since the work list was read.
		if flight.Status != domain.FlightStatusScheduled && flight.Status != domain.FlightStatusDelayed {
			return nil
		}
		if flight.DepartureTime.After(s.now()) {
			return nil
		}

		tickets, err := tx.ConfirmedTickets(ctx, flight.ID)
		if err != nil {
			return err
		}
		for _, ticket := range tickets {
			if ticket.MemberID == nil || ticket.MilesEarned <= 0 {
				continue
			}
			exists, err := tx.SettlementCreditExists(ctx, ticket.ID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			member, err := tx.MemberForUpdate(ctx, *ticket.MemberID)
			if err != nil {
				return err
			}
			if err := tx.SetMemberMiles(ctx, member.ID, member.TotalMiles+ticket.MilesEarned, member.AvailableMiles+ticket.MilesEarned); err != nil {
				return err
			}
			ticketRef := ticket.ID
			if err := tx.InsertPointsTransaction(ctx, &domain.PointsTransaction{
				MemberID:            member.ID,
				TicketID:            &ticketRef,
				Type:                domain.TransactionCredit,
				Miles:               ticket.MilesEarned,
				Description:         fmt.Sprintf("Flight %s-%s completion bonus", flight.FromAirport, flight.ToAirport),
				Source:              domain.SourceFlightCompletion,
				SettlementProcessed: true,
			}); err != nil {
				return err
			}
			credited++
			awarded += ticket.MilesEarned
		}

		return tx.SetFlightStatus(ctx, flight.ID, domain.FlightStatusCompleted)
	})
	if err != nil {
		return 0, 0, err
	}
	return credited, awarded, nil
}

// RetryPendingNotifications publishes a miles_changed event for each ledger
// entry whose member was never notified, marking entries sent only after a
// successful publish. A publish failure leaves the entry pending for the
// next tick; at-least-once delivery is the contract here.
func (s *SettlementService) RetryPendingNotifications(ctx context.Context, batchSize int) (int, error) {
	pending, err := s.store.UnnotifiedTransactions(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unnotified transactions: %w", err)
	}

	sent := 0
	for _, p := range pending {
		event := kafka.NotificationEvent{
			Type:      kafka.EventMilesChanged,
			Recipient: p.MemberEmail,
			Payload: map[string]string{
				"member_number": p.MemberNumber,
				"type":          string(p.Transaction.Type),
				"miles":         strconv.FormatInt(p.Transaction.Miles, 10),
				"source":        string(p.Transaction.Source),
				"description":   p.Transaction.Description,
			},
		}
		if err := s.producer.Publish(ctx, s.notificationsTopic, p.MemberNumber, event); err != nil {
			log.Printf("WARNING: failed to publish miles_changed for transaction %d: %v", p.Transaction.ID, err)
			continue
		}
		if err := s.store.MarkTransactionNotified(ctx, p.Transaction.ID); err != nil {
			log.Printf("WARNING: failed to mark transaction %d notified: %v", p.Transaction.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}
