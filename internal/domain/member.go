package domain

import "time"

type Tier string

const (
	TierBasic    Tier = "BASIC"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// Member is a loyalty account. TotalMiles only ever grows; AvailableMiles
// is the spendable part and never exceeds TotalMiles. Both fields change
// only inside a ledger transaction paired with a PointsTransaction row.
type Member struct {
	ID             int64
	MemberNumber   string
	SubjectID      string // identity-provider subject, backfilled on first login
	Email          string
	Name           string
	TotalMiles     int64
	AvailableMiles int64
	Tier           Tier
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
