// Package di contains dependency injection tokens for the chain context.
package di

import (
	"github.com/fd1az/lendscope/business/chain/app"
	"github.com/fd1az/lendscope/business/chain/infra/ethereum"
	"github.com/fd1az/lendscope/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService = di.NewToken[*app.ChainService]("chain.ChainService")
)

// Private dependency tokens - internal to chain module
var (
	Dialer = di.NewToken[ethereum.Dialer]("chain:dialer")
)

// Helper functions for type-safe access
func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetDialer(c di.ServiceRegistry) ethereum.Dialer {
	return di.GetToken(c, Dialer)
}
