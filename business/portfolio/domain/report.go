package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	marketdomain "github.com/fd1az/lendscope/business/market/domain"
)

// Report is the consolidated output of one pass.
type Report struct {
	GeneratedAt time.Time                  `json:"generatedAt"`
	Totals      Totals                     `json:"totals"`
	Chains      []ChainSummary             `json:"chains"`
	Assets      []AssetSummary             `json:"assets"`
	Users       []UserSummary              `json:"users"`
	Positions   []PositionSummary          `json:"positions"`
	GoodPools   []marketdomain.Pool        `json:"goodPools"`
	Prices      map[string]decimal.Decimal `json:"prices"`
}

// Totals are the grand totals of a report.
type Totals struct {
	TotalDeposited   decimal.Decimal `json:"totalDeposited"`
	OldTotalEarnings decimal.Decimal `json:"oldTotalEarnings"`
	NewTotalEarnings decimal.Decimal `json:"newTotalEarnings"`
	MaxTotalEarnings decimal.Decimal `json:"maxTotalEarnings"`
	CurrentAPR       decimal.Decimal `json:"currentAPR"`
	MaxAPR           decimal.Decimal `json:"maxAPR"`
	IdleUSD          decimal.Decimal `json:"idleUsd"`
}

// ChainSummary is one chain's assets, ranked by supplied plus idle USD.
type ChainSummary struct {
	Chain       string          `json:"chain"`
	Block       uint64          `json:"block"`
	Timestamp   uint64          `json:"timestamp"`
	SuppliedUSD decimal.Decimal `json:"suppliedUsd"`
	IdleUSD     decimal.Decimal `json:"idleUsd"`
	Pools       int             `json:"pools"`
	Assets      []AssetSummary  `json:"assets"`
}

// UserSummary is one tracked wallet across every chain and asset.
type UserSummary struct {
	User     common.Address     `json:"user"`
	Supplied Valuation          `json:"supplied"`
	Idle     Valuation          `json:"idle"`
	Assets   []UserAssetSummary `json:"assets"`
	Chains   []UserChainSummary `json:"chains"`
}

// TotalUSD is supplied plus idle USD.
func (u UserSummary) TotalUSD() decimal.Decimal {
	return u.Supplied.USD.Add(u.Idle.USD)
}

// UserAssetSummary is one user's holding of one asset across chains.
type UserAssetSummary struct {
	Asset    string  `json:"asset"`
	Supplied Deposit `json:"supplied"`
	Idle     Deposit `json:"idle"`
}

// UserChainSummary is one user's holdings on one chain.
type UserChainSummary struct {
	Chain    string    `json:"chain"`
	Supplied Valuation `json:"supplied"`
	Idle     Valuation `json:"idle"`
}

// PositionSummary is one user's supply in one pool.
type PositionSummary struct {
	Chain            string         `json:"chain"`
	Asset            string         `json:"asset"`
	Borrowable       common.Address `json:"borrowable"`
	User             common.Address `json:"user"`
	Supplied         Deposit        `json:"supplied"`
	OldDailyEarnings Deposit        `json:"oldDailyEarnings"`
	NewDailyEarnings Deposit        `json:"newDailyEarnings"`
}
