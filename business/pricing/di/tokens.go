// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/lendscope/business/pricing/app"
	"github.com/fd1az/lendscope/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PriceCache = di.NewToken[*app.PriceCache]("pricing.PriceCache")
)

// Private dependency tokens - internal to pricing module
var (
	Feed = di.NewToken[app.Feed]("pricing:feed")
)

// Helper functions for type-safe access
func GetPriceCache(c di.ServiceRegistry) *app.PriceCache {
	return di.GetToken(c, PriceCache)
}

func GetFeed(c di.ServiceRegistry) app.Feed {
	return di.GetToken(c, Feed)
}
