// Package impermaxtest installs Impermax pool contracts into an ethtest
// simulator.
package impermaxtest

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	chaindomain "github.com/fd1az/lendscope/business/chain/domain"
	"github.com/fd1az/lendscope/business/chain/infra/ethereum/ethtest"
	"github.com/fd1az/lendscope/business/market/infra/impermax"
)

var (
	borrowable = chaindomain.MustParseABI(impermax.BorrowableABI)
	collateral = chaindomain.MustParseABI(impermax.CollateralABI)
	vault      = chaindomain.MustParseABI(impermax.VaultABI)
	erc20      = chaindomain.MustParseABI(impermax.ERC20ABI)
)

// State is a borrowable's accounting on one side of sync.
type State struct {
	TotalBalance *big.Int
	TotalBorrows *big.Int
	ExchangeRate *big.Int
	BorrowRate   *big.Int
}

// Vault is a vault reading.
type Vault struct {
	ExchangeRate *big.Int
	TotalBalance *big.Int
}

// Pool describes one borrowable with its collateral pair.
type Pool struct {
	Borrowable common.Address
	Collateral common.Address
	Underlying common.Address
	Vault      common.Address
	// Opposite is the other borrowable of the collateral pair. Borrowable
	// sits in slot 0 unless SecondSlot is set.
	Opposite           common.Address
	OppositeUnderlying common.Address
	OppositeSymbol     string
	SecondSlot         bool

	Name          string
	Old           State
	New           State
	ReserveFactor *big.Int
	Kink          *big.Int
	Balances      map[common.Address]*big.Int

	Stable bool
	// VaultBefore is served at the historical block, VaultAfter elsewhere.
	VaultBefore Vault
	VaultAfter  Vault
	// HistoricalTimestamp is what getBlockTimestamp returns at the
	// historical block.
	HistoricalTimestamp uint64
	// BrokenHistory makes every historical read revert.
	BrokenHistory bool
}

// Install registers pool's contracts on sim. historicalBlock is the block
// served VaultBefore; currentTimestamp is returned by getBlockTimestamp
// elsewhere.
func Install(sim *ethtest.Simulator, historicalBlock, currentTimestamp uint64, p Pool) {
	var mu sync.Mutex
	synced := make(map[int64]bool)

	state := func(cc ethtest.CallContext) State {
		mu.Lock()
		defer mu.Unlock()
		if synced[cc.Seq] {
			return p.New
		}
		return p.Old
	}
	constant := func(v any) ethtest.HandlerFunc {
		return func(ethtest.CallContext, []any) ([]any, error) { return []any{v}, nil }
	}
	historical := func(cc ethtest.CallContext) bool {
		return cc.Block == historicalBlock
	}

	b := p.Borrowable
	sim.Handle(b, borrowable, "collateral", constant(p.Collateral))
	sim.Handle(b, borrowable, "underlying", constant(p.Underlying))
	sim.Handle(b, borrowable, "sync", func(cc ethtest.CallContext, _ []any) ([]any, error) {
		mu.Lock()
		defer mu.Unlock()
		synced[cc.Seq] = true
		return nil, nil
	})
	sim.Handle(b, borrowable, "totalBalance", func(cc ethtest.CallContext, _ []any) ([]any, error) {
		return []any{state(cc).TotalBalance}, nil
	})
	sim.Handle(b, borrowable, "totalBorrows", func(cc ethtest.CallContext, _ []any) ([]any, error) {
		return []any{state(cc).TotalBorrows}, nil
	})
	sim.Handle(b, borrowable, "borrowRate", func(cc ethtest.CallContext, _ []any) ([]any, error) {
		return []any{state(cc).BorrowRate}, nil
	})
	sim.Handle(b, borrowable, "exchangeRateLast", constant(p.Old.ExchangeRate))
	sim.Handle(b, borrowable, "exchangeRate", constant(p.New.ExchangeRate))
	sim.Handle(b, borrowable, "reserveFactor", constant(p.ReserveFactor))
	sim.Handle(b, borrowable, "name", constant(p.Name))
	sim.Handle(b, borrowable, "kinkUtilizationRate", constant(p.Kink))
	sim.Handle(b, borrowable, "balanceOf", func(_ ethtest.CallContext, args []any) ([]any, error) {
		if v, ok := p.Balances[args[0].(common.Address)]; ok {
			return []any{v}, nil
		}
		return []any{big.NewInt(0)}, nil
	})

	slot0, slot1 := p.Borrowable, p.Opposite
	if p.SecondSlot {
		slot0, slot1 = p.Opposite, p.Borrowable
	}
	sim.Handle(p.Collateral, collateral, "borrowable0", constant(slot0))
	sim.Handle(p.Collateral, collateral, "borrowable1", constant(slot1))
	sim.Handle(p.Collateral, collateral, "underlying", constant(p.Vault))

	guard := func(fn ethtest.HandlerFunc) ethtest.HandlerFunc {
		return func(cc ethtest.CallContext, args []any) ([]any, error) {
			if p.BrokenHistory && historical(cc) {
				return nil, ethtest.ErrReverted
			}
			return fn(cc, args)
		}
	}

	o := p.Opposite
	sim.Handle(o, borrowable, "underlying", guard(constant(p.OppositeUnderlying)))
	sim.Handle(o, borrowable, "getBlockTimestamp", guard(func(cc ethtest.CallContext, _ []any) ([]any, error) {
		if historical(cc) {
			return []any{new(big.Int).SetUint64(p.HistoricalTimestamp)}, nil
		}
		return []any{new(big.Int).SetUint64(currentTimestamp)}, nil
	}))
	sim.Handle(p.OppositeUnderlying, erc20, "symbol", constant(p.OppositeSymbol))

	v := p.Vault
	sim.Handle(v, vault, "stable", guard(constant(p.Stable)))
	sim.Handle(v, vault, "reinvest", guard(func(ethtest.CallContext, []any) ([]any, error) { return nil, nil }))
	sim.Handle(v, vault, "exchangeRate", guard(func(cc ethtest.CallContext, _ []any) ([]any, error) {
		if historical(cc) {
			return []any{p.VaultBefore.ExchangeRate}, nil
		}
		return []any{p.VaultAfter.ExchangeRate}, nil
	}))
	sim.Handle(v, vault, "totalBalance", guard(func(cc ethtest.CallContext, _ []any) ([]any, error) {
		if historical(cc) {
			return []any{p.VaultBefore.TotalBalance}, nil
		}
		return []any{p.VaultAfter.TotalBalance}, nil
	}))
}

// InstallToken registers an ERC20 with fixed balances.
func InstallToken(sim *ethtest.Simulator, token common.Address, symbol string, balances map[common.Address]*big.Int) {
	sim.Handle(token, erc20, "symbol", func(ethtest.CallContext, []any) ([]any, error) {
		return []any{symbol}, nil
	})
	sim.Handle(token, erc20, "balanceOf", func(_ ethtest.CallContext, args []any) ([]any, error) {
		if v, ok := balances[args[0].(common.Address)]; ok {
			return []any{v}, nil
		}
		return []any{big.NewInt(0)}, nil
	})
}

// InstallNative registers Multicall3 getEthBalance with fixed balances.
func InstallNative(sim *ethtest.Simulator, multicall common.Address, balances map[common.Address]*big.Int) {
	sim.Handle(multicall, chaindomain.Multicall3(), "getEthBalance", func(_ ethtest.CallContext, args []any) ([]any, error) {
		if v, ok := balances[args[0].(common.Address)]; ok {
			return []any{v}, nil
		}
		return []any{big.NewInt(0)}, nil
	})
}
