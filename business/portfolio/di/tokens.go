// Package di contains dependency injection tokens for the portfolio context.
package di

import (
	"github.com/fd1az/lendscope/business/portfolio/app"
	"github.com/fd1az/lendscope/business/portfolio/domain"
	"github.com/fd1az/lendscope/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("portfolio.Engine")
)

// Private dependency tokens - internal to portfolio module
var (
	Thresholds = di.NewToken[domain.Thresholds]("portfolio:thresholds")
)

// Helper functions for type-safe access
func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetThresholds(c di.ServiceRegistry) domain.Thresholds {
	return di.GetToken(c, Thresholds)
}
