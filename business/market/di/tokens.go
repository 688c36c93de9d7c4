// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/lendscope/business/market/app"
	"github.com/fd1az/lendscope/internal/di"
)

// Public service tokens - exposed to other modules
var (
	MarketService = di.NewToken[*app.MarketService]("market.MarketService")
)

// Private dependency tokens - internal to market module
var (
	Extractor  = di.NewToken[app.Extractor]("market:extractor")
	Calculator = di.NewToken[*app.Calculator]("market:calculator")
)

// Helper functions for type-safe access
func GetMarketService(c di.ServiceRegistry) *app.MarketService {
	return di.GetToken(c, MarketService)
}

func GetExtractor(c di.ServiceRegistry) app.Extractor {
	return di.GetToken(c, Extractor)
}

func GetCalculator(c di.ServiceRegistry) *app.Calculator {
	return di.GetToken(c, Calculator)
}
