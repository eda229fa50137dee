package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/identity"
	"github.com/BartoooMuch/irline-ticketing-system/internal/kafka"
	"github.com/BartoooMuch/irline-ticketing-system/internal/miles"
	"github.com/BartoooMuch/irline-ticketing-system/internal/repository"
)

const maxPassengers = 9

type BookingUseCase interface {
	Purchase(ctx context.Context, input PurchaseInput) (*BookingResult, error)
	Cancel(ctx context.Context, ticketID int64) (*CancellationResult, error)
	TicketsByReference(ctx context.Context, reference string) ([]domain.Ticket, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type TicketReader interface {
	TicketsByReference(ctx context.Context, reference string) ([]domain.Ticket, error)
}

type PassengerInput struct {
	FirstName string
	LastName  string
	Title     string
	BirthDate time.Time
	Email     string
}

type PurchaseInput struct {
	FlightID     int64
	Passengers   []PassengerInput
	UseMiles     bool
	MemberNumber string             // explicit member hint, may be empty
	Identity     *identity.Identity // verified identity, may be nil
}

type BookingResult struct {
	BookingReference string
	Tickets          []domain.Ticket
	CashTotalCents   int64 // before the miles discount
	CashDueCents     int64
	MilesUsed        int64
	MilesEarned      int64
	Member           *domain.Member // post-purchase balances, nil if anonymous
}

type CancellationResult struct {
	Ticket           *domain.Ticket
	MilesRefunded    int64
	AlreadyCancelled bool
}

type BookingService struct {
	ledger             repository.Ledger
	tickets            TicketReader
	rates              miles.Config
	producer           Producer
	notificationsTopic string
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	ledger repository.Ledger,
	tickets TicketReader,
	rates miles.Config,
	producer Producer,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		ledger:   ledger,
		tickets:  tickets,
		rates:    rates,
		producer: producer,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Purchase sells seats on one flight as a single all-or-nothing unit. The
// flight row is locked exclusively for the whole transaction, so the
// capacity check and the decrement cannot be split by a concurrent buyer.
// Purchases against different flights do not serialize against each other.
func (s *BookingService) Purchase(ctx context.Context, input PurchaseInput) (*BookingResult, error) {
	if err := validatePurchase(input); err != nil {
		return nil, err
	}

	var result *BookingResult
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		flight, err := tx.FlightForUpdate(ctx, input.FlightID)
		if err != nil {
			return err
		}
		if !flight.Bookable() {
			return domain.ErrFlightUnavailable
		}
		seats := len(input.Passengers)
		if flight.AvailableSeats < seats {
			return &domain.InsufficientCapacityError{Requested: seats, Available: flight.AvailableSeats}
		}

		member, err := s.resolveMember(ctx, tx, input)
		if err != nil {
			return err
		}

		cashTotalCents := flight.BasePriceCents * int64(seats)
		cashDueCents := cashTotalCents
		var milesUsed int64
		if input.UseMiles && member != nil {
			need := s.rates.MilesForCash(miles.CashFromCents(cashTotalCents))
			switch {
			case member.AvailableMiles >= need:
				milesUsed = need
				cashDueCents = 0
			case member.AvailableMiles > 0:
				milesUsed = member.AvailableMiles
				discounted := miles.CashFromCents(cashTotalCents).Sub(s.rates.CashForMiles(milesUsed))
				cashDueCents = miles.CentsFromCash(discounted)
			}
		}
		// UseMiles without a resolved member silently falls back to cash.

		method := domain.PaymentMethodCash
		switch {
		case milesUsed > 0 && cashDueCents == 0:
			method = domain.PaymentMethodMiles
		case milesUsed > 0:
			method = domain.PaymentMethodCashAndMiles
		}

		var perTicketEarn int64
		if member != nil {
			perTicketEarn = s.rates.MilesEarnedForCash(miles.CashFromCents(flight.BasePriceCents))
		}

		reference := newBookingReference()
		milesShare := milesUsed / int64(seats)
		milesRemainder := milesUsed % int64(seats)

		tickets := make([]domain.Ticket, 0, seats)
		for i, p := range input.Passengers {
			ticket := domain.Ticket{
				TicketNumber:     newTicketNumber(),
				BookingReference: reference,
				FlightID:         flight.ID,
				FirstName:        p.FirstName,
				LastName:         p.LastName,
				Title:            p.Title,
				BirthDate:        p.BirthDate,
				ContactEmail:     p.Email,
				PriceCents:       flight.BasePriceCents,
				MilesUsed:        milesShare,
				MilesEarned:      perTicketEarn,
				PaymentMethod:    method,
				Status:           domain.TicketStatusConfirmed,
			}
			if i == 0 {
				ticket.MilesUsed += milesRemainder
			}
			if member != nil {
				memberID := member.ID
				ticket.MemberID = &memberID
			}
			if err := tx.InsertTicket(ctx, &ticket); err != nil {
				return fmt.Errorf("insert ticket: %w", err)
			}
			tickets = append(tickets, ticket)
		}

		if err := tx.SetFlightSeats(ctx, flight.ID, flight.AvailableSeats-seats); err != nil {
			return err
		}

		if member != nil && milesUsed > 0 {
			member.AvailableMiles -= milesUsed
			if err := tx.SetMemberMiles(ctx, member.ID, member.TotalMiles, member.AvailableMiles); err != nil {
				return err
			}
			if err := tx.InsertPointsTransaction(ctx, &domain.PointsTransaction{
				MemberID:    member.ID,
				Type:        domain.TransactionDebit,
				Miles:       milesUsed,
				Description: fmt.Sprintf("Miles redeemed on booking %s", reference),
				Source:      domain.SourceTicketPurchase,
			}); err != nil {
				return err
			}
		}

		totalEarned := perTicketEarn * int64(seats)
		if member != nil && totalEarned > 0 {
			member.TotalMiles += totalEarned
			member.AvailableMiles += totalEarned
			if err := tx.SetMemberMiles(ctx, member.ID, member.TotalMiles, member.AvailableMiles); err != nil {
				return err
			}
			if err := tx.InsertPointsTransaction(ctx, &domain.PointsTransaction{
				MemberID:    member.ID,
				Type:        domain.TransactionCredit,
				Miles:       totalEarned,
				Description: fmt.Sprintf("Miles earned on booking %s", reference),
				Source:      domain.SourceTicketPurchase,
			}); err != nil {
				return err
			}
		}

		result = &BookingResult{
			BookingReference: reference,
			Tickets:          tickets,
			CashTotalCents:   cashTotalCents,
			CashDueCents:     cashDueCents,
			MilesUsed:        milesUsed,
			MilesEarned:      totalEarned,
			Member:           member,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyBooking(ctx, input, result)
	return result, nil
}

// Cancel voids one ticket and releases its seat. Cancelling an already
// cancelled ticket is a no-op reported via AlreadyCancelled. Redeemed
// miles attributed to the ticket are refunded; earned miles are not
// clawed back, matching the behavior of the system this replaces.
func (s *BookingService) Cancel(ctx context.Context, ticketID int64) (*CancellationResult, error) {
	var result *CancellationResult
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		ticket, err := tx.TicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status == domain.TicketStatusCancelled {
			result = &CancellationResult{Ticket: ticket, AlreadyCancelled: true}
			return nil
		}

		flight, err := tx.FlightForUpdate(ctx, ticket.FlightID)
		if err != nil {
			return err
		}
		if err := tx.SetTicketStatus(ctx, ticket.ID, domain.TicketStatusCancelled); err != nil {
			return err
		}
		if err := tx.SetFlightSeats(ctx, flight.ID, flight.AvailableSeats+1); err != nil {
			return err
		}

		var refunded int64
		if ticket.MilesUsed > 0 && ticket.MemberID != nil {
			member, err := tx.MemberForUpdate(ctx, *ticket.MemberID)
			if err != nil {
				return err
			}
			refunded = ticket.MilesUsed
			if err := tx.SetMemberMiles(ctx, member.ID, member.TotalMiles, member.AvailableMiles+refunded); err != nil {
				return err
			}
			ticketRef := ticket.ID
			if err := tx.InsertPointsTransaction(ctx, &domain.PointsTransaction{
				MemberID:    member.ID,
				TicketID:    &ticketRef,
				Type:        domain.TransactionCredit,
				Miles:       refunded,
				Description: fmt.Sprintf("Miles refunded for cancelled ticket %s", ticket.TicketNumber),
				Source:      domain.SourceRefund,
			}); err != nil {
				return err
			}
		}

		ticket.Status = domain.TicketStatusCancelled
		result = &CancellationResult{Ticket: ticket, MilesRefunded: refunded}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCancelled {
		s.notifyCancellation(ctx, result)
	}
	return result, nil
}

func (s *BookingService) TicketsByReference(ctx context.Context, reference string) ([]domain.Ticket, error) {
	return s.tickets.TicketsByReference(ctx, reference)
}

// resolveMember finds the loyalty account for this purchase: an explicit
// member number wins, then the verified identity's address. A hint that
// matches nothing is not an error; the booking proceeds without loyalty.
func (s *BookingService) resolveMember(ctx context.Context, tx repository.LedgerTx, input PurchaseInput) (*domain.Member, error) {
	if input.MemberNumber != "" {
		member, err := tx.MemberByNumberForUpdate(ctx, input.MemberNumber)
		if err != nil {
			if errors.Is(err, domain.ErrMemberNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return member, nil
	}
	if input.Identity != nil && input.Identity.Email != "" {
		// Accounts store the address lowercased; identity providers do not
		// guarantee casing on the email claim.
		member, err := tx.MemberByEmailForUpdate(ctx, strings.ToLower(input.Identity.Email))
		if err != nil {
			if errors.Is(err, domain.ErrMemberNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return member, nil
	}
	return nil, nil
}

func validatePurchase(input PurchaseInput) error {
	if input.FlightID <= 0 {
		return &domain.ValidationError{Field: "flight_id", Reason: "must be positive"}
	}
	if len(input.Passengers) == 0 {
		return &domain.ValidationError{Field: "passengers", Reason: "at least one passenger is required"}
	}
	if len(input.Passengers) > maxPassengers {
		return &domain.ValidationError{Field: "passengers", Reason: fmt.Sprintf("at most %d passengers per booking", maxPassengers)}
	}
	for i, p := range input.Passengers {
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return &domain.ValidationError{Field: fmt.Sprintf("passengers[%d].name", i), Reason: "first and last name are required"}
		}
		if strings.TrimSpace(p.Email) == "" {
			return &domain.ValidationError{Field: fmt.Sprintf("passengers[%d].email", i), Reason: "contact email is required"}
		}
		if p.BirthDate.IsZero() {
			return &domain.ValidationError{Field: fmt.Sprintf("passengers[%d].birth_date", i), Reason: "birth date is required"}
		}
	}
	return nil
}

func (s *BookingService) notifyBooking(ctx context.Context, input PurchaseInput, result *BookingResult) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	recipient := input.Passengers[0].Email
	if result.Member != nil {
		recipient = result.Member.Email
	}
	event := kafka.NotificationEvent{
		Type:             kafka.EventBookingConfirmed,
		BookingReference: result.BookingReference,
		Recipient:        recipient,
		Payload: map[string]string{
			"flight_id":  strconv.FormatInt(input.FlightID, 10),
			"seats":      strconv.Itoa(len(result.Tickets)),
			"cash_due":   miles.CashFromCents(result.CashDueCents).StringFixed(2),
			"miles_used": strconv.FormatInt(result.MilesUsed, 10),
		},
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, result.BookingReference, event); err != nil {
		log.Printf("WARNING: failed to publish booking_confirmed for %s: %v", result.BookingReference, err)
	}
}

func (s *BookingService) notifyCancellation(ctx context.Context, result *CancellationResult) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	event := kafka.NotificationEvent{
		Type:             kafka.EventBookingCancelled,
		BookingReference: result.Ticket.BookingReference,
		Recipient:        result.Ticket.ContactEmail,
		Payload: map[string]string{
			"ticket_number":  result.Ticket.TicketNumber,
			"miles_refunded": strconv.FormatInt(result.MilesRefunded, 10),
		},
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, result.Ticket.BookingReference, event); err != nil {
		log.Printf("WARNING: failed to publish booking_cancelled for ticket %s: %v", result.Ticket.TicketNumber, err)
	}
}

// Booking references avoid characters that read ambiguously on a printed
// itinerary.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newBookingReference() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			// crypto/rand failing means the process is in serious trouble;
			// fall back to a uuid-derived code rather than abort the sale.
			return strings.ToUpper(uuid.NewString()[:6])
		}
		b.WriteByte(referenceAlphabet[n.Int64()])
	}
	return b.String()
}

func newTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

var _ BookingUseCase = (*BookingService)(nil)
