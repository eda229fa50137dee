package loyalty

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/identity"
	"github.com/BartoooMuch/irline-ticketing-system/internal/miles"
	"github.com/BartoooMuch/irline-ticketing-system/internal/repository"
)

type LoyaltyUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.Member, error)
	ResolveIdentity(ctx context.Context, id identity.Identity) (*domain.Member, error)
	MemberByNumber(ctx context.Context, number string) (*domain.Member, error)
	Statement(ctx context.Context, number string) (*Statement, error)
	PartnerCredit(ctx context.Context, partner *domain.Partner, input PartnerCreditInput) (*domain.PointsTransaction, error)
}

// MemberStore is the read/write surface of the ledger store this service
// uses outside of row-locking transactions.
type MemberStore interface {
	MemberByNumber(ctx context.Context, number string) (*domain.Member, error)
	MemberByEmail(ctx context.Context, email string) (*domain.Member, error)
	CreateMember(ctx context.Context, m *domain.Member) error
	UpsertMemberByIdentity(ctx context.Context, memberNumber, subjectID, email, name string) (*domain.Member, error)
	TransactionsForMember(ctx context.Context, memberID int64) ([]domain.PointsTransaction, error)
}

type RegisterInput struct {
	Email string
	Name  string
}

type PartnerCreditInput struct {
	MemberNumber string
	Miles        int64
	Description  string
}

type Statement struct {
	Member       *domain.Member
	Transactions []domain.PointsTransaction
}

type LoyaltyService struct {
	members MemberStore
	ledger  repository.Ledger
	rates   miles.Config
}

func NewLoyaltyService(members MemberStore, ledger repository.Ledger, rates miles.Config) *LoyaltyService {
	return &LoyaltyService{members: members, ledger: ledger, rates: rates}
}

// Register creates a loyalty account with a fresh member number. Email is
// the natural key: registering an address twice returns the existing
// account rather than an error, so retried signups stay harmless.
func (s *LoyaltyService) Register(ctx context.Context, input RegisterInput) (*domain.Member, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "email is required"}
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "name is required"}
	}

	existing, err := s.members.MemberByEmail(ctx, email)
	if err == nil {
		s.fillTier(existing)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrMemberNotFound) {
		return nil, err
	}

	member := &domain.Member{
		MemberNumber: newMemberNumber(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
	}
	if err := s.members.CreateMember(ctx, member); err != nil {
		// A concurrent signup for the same address won the insert; this
		// request gets the winner's account, same as a plain retry would.
		if errors.Is(err, domain.ErrMemberExists) {
			winner, readErr := s.members.MemberByEmail(ctx, email)
			if readErr != nil {
				return nil, fmt.Errorf("create member: %w", err)
			}
			s.fillTier(winner)
			return winner, nil
		}
		return nil, fmt.Errorf("create member: %w", err)
	}
	s.fillTier(member)
	return member, nil
}

// ResolveIdentity maps a verified identity onto a loyalty account, creating
// one on first login. The subject id is backfilled onto accounts registered
// before the identity provider knew them.
func (s *LoyaltyService) ResolveIdentity(ctx context.Context, id identity.Identity) (*domain.Member, error) {
	if id.Email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "identity carries no email"}
	}
	name := id.Name
	if name == "" {
		name = id.Email
	}
	member, err := s.members.UpsertMemberByIdentity(ctx, newMemberNumber(), id.SubjectID, strings.ToLower(id.Email), name)
	if err != nil {
		return nil, err
	}
	s.fillTier(member)
	return member, nil
}

func (s *LoyaltyService) MemberByNumber(ctx context.Context, number string) (*domain.Member, error) {
	member, err := s.members.MemberByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	s.fillTier(member)
	return member, nil
}

func (s *LoyaltyService) Statement(ctx context.Context, number string) (*Statement, error) {
	member, err := s.MemberByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	txs, err := s.members.TransactionsForMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	return &Statement{Member: member, Transactions: txs}, nil
}

// PartnerCredit awards miles on behalf of an external partner. Unlike the
// booking path, an unknown member number is an error here: the partner
// named an account and nothing useful can happen without it. The entry is
// tagged with the partner's code so statements show who awarded it.
func (s *LoyaltyService) PartnerCredit(ctx context.Context, partner *domain.Partner, input PartnerCreditInput) (*domain.PointsTransaction, error) {
	if input.MemberNumber == "" {
		return nil, &domain.ValidationError{Field: "member_number", Reason: "member number is required"}
	}
	if input.Miles <= 0 {
		return nil, &domain.ValidationError{Field: "miles", Reason: "miles must be positive"}
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = fmt.Sprintf("Miles awarded by %s", partner.Name)
	}

	var credited *domain.PointsTransaction
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		member, err := tx.MemberByNumberForUpdate(ctx, input.MemberNumber)
		if err != nil {
			return err
		}
		if err := tx.SetMemberMiles(ctx, member.ID, member.TotalMiles+input.Miles, member.AvailableMiles+input.Miles); err != nil {
			return err
		}
		pt := &domain.PointsTransaction{
			MemberID:    member.ID,
			Type:        domain.TransactionCredit,
			Miles:       input.Miles,
			Description: description,
			Source:      domain.TransactionSource(partner.Code),
		}
		if err := tx.InsertPointsTransaction(ctx, pt); err != nil {
			return err
		}
		credited = pt
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("partner %s credited %d miles to %s", partner.Code, input.Miles, input.MemberNumber)
	return credited, nil
}

func (s *LoyaltyService) fillTier(m *domain.Member) {
	m.Tier = s.rates.TierFor(m.TotalMiles)
}

// Member numbers are "FF" plus eight digits, the format printed on cards.
func newMemberNumber() string {
	var b strings.Builder
	b.WriteString("FF")
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			n = big.NewInt(int64(i))
		}
		b.WriteString(n.String())
	}
	return b.String()
}

var _ LoyaltyUseCase = (*LoyaltyService)(nil)
