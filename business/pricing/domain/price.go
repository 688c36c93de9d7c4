// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source tags where a price came from.
type Source string

const (
	SourceStatic Source = "static"
	SourceFeed   Source = "coingecko"
)

// Price is an asset's USD price at a point in time.
type Price struct {
	Symbol    string          `json:"symbol"`
	USD       decimal.Decimal `json:"usd"`
	Source    Source          `json:"source"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewPrice creates a new Price.
func NewPrice(symbol string, usd decimal.Decimal, source Source, at time.Time) Price {
	return Price{
		Symbol:    symbol,
		USD:       usd,
		Source:    source,
		UpdatedAt: at,
	}
}

// Snapshot is a read-only copy of the cached prices.
type Snapshot struct {
	Prices      map[string]Price `json:"prices"`
	RefreshedAt time.Time        `json:"refreshedAt"`
}

// USD returns the price of symbol and whether it is present.
func (s Snapshot) USD(symbol string) (decimal.Decimal, bool) {
	p, ok := s.Prices[symbol]
	if !ok {
		return decimal.Zero, false
	}
	return p.USD, true
}
