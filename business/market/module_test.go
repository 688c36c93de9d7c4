package market_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/lendscope/business/market"
	"github.com/fd1az/lendscope/internal/config"
)

func TestChainSpecs(t *testing.T) {
	chains := []config.ChainConfig{
		{
			Name:        "BASE",
			NativeAsset: "ETH",
			Borrowables: []string{"0x0000000000000000000000000000000000001001", "0x0000000000000000000000000000000000001002"},
			Tokens: []config.TokenConfig{
				{Address: "0x0000000000000000000000000000000000000c01", Symbol: "USDC"},
			},
			Staking: []config.StakingConfig{
				{
					Borrowable:  "0x0000000000000000000000000000000000001002",
					Pool:        "0x0000000000000000000000000000000000004001",
					RewardToken: "0x0000000000000000000000000000000000000c03",
				},
			},
		},
		{Name: "OPTIMISM", NativeAsset: "ETH"},
	}

	specs := market.ChainSpecs(chains)
	if len(specs) != 2 || specs[0].Name != "BASE" || specs[1].Name != "OPTIMISM" {
		t.Fatalf("expected specs in config order, got %+v", specs)
	}

	base := specs[0]
	if len(base.Borrowables) != 2 || base.Borrowables[1] != common.HexToAddress("0x0000000000000000000000000000000000001002") {
		t.Errorf("unexpected borrowables: %v", base.Borrowables)
	}
	if base.Tokens[common.HexToAddress("0x0000000000000000000000000000000000000c01")] != "USDC" {
		t.Errorf("expected USDC token mapping, got %v", base.Tokens)
	}

	st, ok := base.Staking[common.HexToAddress("0x0000000000000000000000000000000000001002")]
	if !ok || st.Pool != common.HexToAddress("0x0000000000000000000000000000000000004001") {
		t.Errorf("expected staking on the second borrowable, got %+v", base.Staking)
	}
	if _, ok := base.Staking[base.Borrowables[0]]; ok {
		t.Error("expected no staking on the first borrowable")
	}
}
