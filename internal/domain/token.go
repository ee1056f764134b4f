package domain

import (
	"strings"
	"time"
)

// NormalizeToken lowercases a token address so map keys and store lookups
// agree regardless of checksum casing.
func NormalizeToken(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// TokenSummary is one row of the launchpad's recent-token listing.
type TokenSummary struct {
	Address        string
	Symbol         string
	Name           string
	CreatedAt      time.Time
	Price          float64
	ReserveMon     float64
	HolderCount    int
	CurveProgress  float64 // 0-100 percent toward graduation
	Volume1h       float64
	PriceChange1h  float64 // percent
	PriceChange24h float64 // percent
	Graduated      bool
}

// Age returns how long the token has existed relative to now.
func (t TokenSummary) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// MarketSnapshot is a point-in-time read of one token's market state.
type MarketSnapshot struct {
	Price          float64
	Volume1h       float64
	PriceChange1h  float64
	PriceChange24h float64
	HolderCount    int
	ReserveMon     float64
	CurveProgress  float64
	Graduated      bool
}

// PricePoint is one bucket of a token's price/volume series.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
	Volume    float64
}

// HolderBalance is one holder's share of a token's supply.
type HolderBalance struct {
	Address string
	Pct     float64 // percent of supply, 0-100
}
