package model

import (
	"strings"
	"time"
)

// Tier is a user's entitlement level.
type Tier string

const (
	TierFree  Tier = "FREE"
	TierPro   Tier = "PRO"
	TierAdmin Tier = "ADMIN"
)

var tierRank = map[Tier]int{TierFree: 0, TierPro: 1, TierAdmin: 2}

// ParseTier normalizes a tier name. Unknown or empty names are rejected.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := tierRank[t]
	return t, ok
}

// AtLeast reports whether t grants everything min grants.
func (t Tier) AtLeast(min Tier) bool {
	return tierRank[t] >= tierRank[min]
}

// User is a registered account.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Tier         Tier       `json:"tier"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// GlobalSettings is the admin-controlled market state.
type GlobalSettings struct {
	CSVURL       string    `json:"csv_url"`
	MarketStatus string    `json:"market_status"`
	UpdatedAt    time.Time `json:"updated_at"`
}
