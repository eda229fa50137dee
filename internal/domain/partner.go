package domain

import "time"

// Partner is an external airline allowed to credit miles to members
// through the partner API, authenticated by a long-lived key+secret pair.
type Partner struct {
	ID         int64
	Code       string
	Name       string
	APIKey     string
	SecretHash string
	Active     bool
	CreatedAt  time.Time
}
