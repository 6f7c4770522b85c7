package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote sources distinguish how a calculation was requested.
const (
	QuoteSourceListing = "listing"
	QuoteSourceManual  = "manual"
)

// User is a chat user known to the bot, with a running calculation counter.
type User struct {
	ChatID    int64
	Username  string
	FirstName string
	CalcCount int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuoteRecord is one persisted landed-cost calculation.
type QuoteRecord struct {
	ID             int64
	Source         string
	ListingID      *int64
	Title          string
	AgeBracket     string
	DisplacementCC int64
	PriceKRW       decimal.Decimal
	TotalKRW       decimal.Decimal
	TotalUSD       decimal.Decimal
	TotalRUB       decimal.Decimal
	CreatedAt      time.Time
}

// RateRecord is one persisted exchange-rate snapshot.
type RateRecord struct {
	ID        int64
	FetchedAt time.Time
	USDToKRW  decimal.Decimal
	USDToRUB  decimal.Decimal
	KRWToRUB  decimal.Decimal
	USDTToKRW decimal.Decimal
	CreatedAt time.Time
}
