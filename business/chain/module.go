// Package chain implements the chain access bounded context: provider pools
// and Multicall3 batch execution per configured EVM chain.
package chain

import (
	"context"

	"github.com/fd1az/lendscope/business/chain/app"
	chainDI "github.com/fd1az/lendscope/business/chain/di"
	"github.com/fd1az/lendscope/business/chain/infra/ethereum"
	"github.com/fd1az/lendscope/internal/circuitbreaker"
	"github.com/fd1az/lendscope/internal/config"
	"github.com/fd1az/lendscope/internal/di"
	"github.com/fd1az/lendscope/internal/logger"
	"github.com/fd1az/lendscope/internal/monolith"
)

// Module implements the chain bounded context.
type Module struct{}

// RegisterServices registers all chain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Dialer (private - swapped in tests)
	di.RegisterToken(c, chainDI.Dialer, func(sr di.ServiceRegistry) ethereum.Dialer {
		return ethereum.DialEthClient
	})

	// Register ChainService (public - exposed to other modules)
	di.RegisterToken(c, chainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		executors, err := NewExecutors(cfg, chainDI.GetDialer(sr), log)
		if err != nil {
			panic("failed to create chain executors: " + err.Error())
		}
		return app.NewChainService(executors...)
	})

	return nil
}

// NewExecutors builds one executor per configured chain.
func NewExecutors(cfg *config.Config, dial ethereum.Dialer, log logger.LoggerInterface) ([]app.BatchExecutor, error) {
	breaker := circuitbreaker.DefaultConfig("rpc")
	if cfg.RPC.BreakerFailures > 0 {
		breaker.FailureThreshold = cfg.RPC.BreakerFailures
	}
	if cfg.RPC.BreakerCooldown > 0 {
		breaker.Timeout = cfg.RPC.BreakerCooldown
	}

	executors := make([]app.BatchExecutor, 0, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		pool, err := ethereum.NewProviderPool(chain.Name, chain.RPCURLs, dial, breaker, log)
		if err != nil {
			return nil, err
		}

		execCfg := ethereum.DefaultExecutorConfig(chain.Name, cfg.RPC.MulticallAddressHex())
		if cfg.RPC.CallTimeout > 0 {
			execCfg.CallTimeout = cfg.RPC.CallTimeout
		}
		execCfg.BackoffStep = cfg.RPC.BackoffStep

		exec, err := ethereum.NewExecutor(execCfg, pool, log)
		if err != nil {
			return nil, err
		}
		executors = append(executors, exec)
	}
	return executors, nil
}

// Startup initializes the chain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := chainDI.GetChainService(mono.Services())
	mono.OnClose(svc.Close)

	log.Info(ctx, "chain module started", "chains", svc.Chains())
	return nil
}
