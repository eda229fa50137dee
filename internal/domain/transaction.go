package domain

import "time"

type TransactionType string

const (
	TransactionCredit TransactionType = "CREDIT"
	TransactionDebit  TransactionType = "DEBIT"
)

// TransactionSource tags where a balance change came from. Partner credits
// use the partner's own code as the source tag.
type TransactionSource string

const (
	SourceTicketPurchase   TransactionSource = "TICKET_PURCHASE"
	SourceRedemption       TransactionSource = "REDEMPTION"
	SourceRefund           TransactionSource = "REFUND"
	SourceFlightCompletion TransactionSource = "FLIGHT_COMPLETION"
)

// PointsTransaction is the append-only audit trail of the miles ledger.
// Rows are only ever inserted; corrections happen via compensating entries.
type PointsTransaction struct {
	ID                  int64
	MemberID            int64
	TicketID            *int64
	Type                TransactionType
	Miles               int64 // positive magnitude, sign carried by Type
	Description         string
	Source              TransactionSource
	SettlementProcessed bool
	NotificationSent    bool
	CreatedAt           time.Time
}

// PendingNotification is a ledger entry whose member notification has not
// been delivered yet, joined with the recipient's contact details.
type PendingNotification struct {
	Transaction  PointsTransaction
	MemberNumber string
	MemberEmail  string
}
