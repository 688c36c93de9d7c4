// Package domain contains the core domain types for the lending market context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ChainSpec is the static description of a chain the extractor walks.
type ChainSpec struct {
	Name        string
	NativeAsset string
	Borrowables []common.Address
	// Tokens maps underlying token addresses to asset symbols.
	Tokens  map[common.Address]string
	Staking map[common.Address]Staking
}

// Staking is optional reward metadata attached to a borrowable.
type Staking struct {
	Pool        common.Address `json:"pool"`
	RewardToken common.Address `json:"rewardToken"`
}

// State is a borrowable's accounting at one point of the sync.
type State struct {
	TotalBalance *big.Int
	TotalBorrows *big.Int
	ExchangeRate *big.Int
	BorrowRate   *big.Int
}

// Supply returns totalBorrows + totalBalance.
func (s State) Supply() *big.Int {
	return new(big.Int).Add(s.TotalBorrows, s.TotalBalance)
}

// VaultSample is a vault reading at one block.
type VaultSample struct {
	Known        bool
	ExchangeRate *big.Int
	TotalBalance *big.Int
	Timestamp    uint64
}

// RawPool is the on-chain state of one borrowable as extracted.
type RawPool struct {
	Chain          string
	Name           string
	Asset          string
	Borrowable     common.Address
	Collateral     common.Address
	Underlying     common.Address
	Vault          common.Address
	Opposite       common.Address
	OppositeSymbol string
	Stable         bool
	Staking        *Staking

	// Old is read before sync, New after it.
	Old           State
	New           State
	ReserveFactor *big.Int
	Kink          *big.Int

	// UserShares holds the tracked users' pool token balances.
	UserShares []UserShares

	VaultBefore VaultSample
	VaultAfter  VaultSample
}

// UserShares is one user's pool token balance.
type UserShares struct {
	User   common.Address
	Shares *big.Int
}

// TotalShares sums the tracked users' balances.
func (p RawPool) TotalShares() *big.Int {
	total := new(big.Int)
	for _, u := range p.UserShares {
		total.Add(total, u.Shares)
	}
	return total
}

// Position is one user's supply in one pool, in raw asset units.
type Position struct {
	User             common.Address
	OldSupplied      *big.Int
	NewSupplied      *big.Int
	OldDailyEarnings *big.Int
	NewDailyEarnings *big.Int
}

// Pool is a borrowable with every derived metric. Built once per pass.
type Pool struct {
	Platform       string         `json:"platform"`
	Chain          string         `json:"chain"`
	Asset          string         `json:"asset"`
	Borrowable     common.Address `json:"borrowable"`
	Collateral     common.Address `json:"collateral"`
	Vault          common.Address `json:"vault"`
	Opposite       common.Address `json:"opposite"`
	OppositeSymbol string         `json:"oppositeSymbol"`
	Stable         bool           `json:"stable"`
	Staking        *Staking       `json:"staking,omitempty"`

	Supplied              decimal.Decimal `json:"supplied"`
	SuppliedUSD           decimal.Decimal `json:"suppliedUsd"`
	TVL                   decimal.Decimal `json:"tvl"`
	TVLUSD                decimal.Decimal `json:"tvlUsd"`
	AvailableToDeposit    decimal.Decimal `json:"availableToDeposit"`
	AvailableToDepositUSD decimal.Decimal `json:"availableToDepositUsd"`
	EarningsOld           decimal.Decimal `json:"earningsOld"`
	EarningsNew           decimal.Decimal `json:"earningsNew"`
	EarningsOldUSD        decimal.Decimal `json:"earningsOldUsd"`
	EarningsNewUSD        decimal.Decimal `json:"earningsNewUsd"`
	APROld                decimal.Decimal `json:"aprOld"`
	APRNew                decimal.Decimal `json:"aprNew"`
	Utilization           decimal.Decimal `json:"utilization"`
	Kink                  decimal.Decimal `json:"kink"`
	VaultAPR              VaultAPR        `json:"vaultAPR"`

	Raw       PoolRaw    `json:"-"`
	Positions []Position `json:"-"`
}

// PoolRaw keeps the exact integers behind the display values.
type PoolRaw struct {
	OldSupplied      *big.Int
	NewSupplied      *big.Int
	OldDailyEarnings *big.Int
	NewDailyEarnings *big.Int
	OldDailyAPR      *big.Int
	NewDailyAPR      *big.Int
	Supply           *big.Int
	Available        *big.Int
	Utilization      *big.Int
}

// IdleBalance is a tracked wallet's balance of an asset outside any pool.
type IdleBalance struct {
	Asset string
	User  common.Address
	Raw   *big.Int
}

// Snapshot is the raw extraction result of one chain.
type Snapshot struct {
	Chain           string
	Block           uint64
	HistoricalBlock uint64
	Timestamp       uint64
	Pools           []RawPool
	Idle            []IdleBalance
}

// ChainMarket is a chain's computed pools plus its idle balances.
type ChainMarket struct {
	Chain     string
	Block     uint64
	Timestamp uint64
	Pools     []Pool
	Idle      []IdleBalance
}
