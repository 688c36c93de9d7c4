// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/shopspring/decimal"
)

// Feed fetches USD prices from a remote price API.
type Feed interface {
	// FetchUSD returns the USD price for each price id it knows. Unknown ids
	// are absent from the result.
	FetchUSD(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}
