package impermax_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	chainapp "github.com/fd1az/lendscope/business/chain/app"
	chaineth "github.com/fd1az/lendscope/business/chain/infra/ethereum"
	"github.com/fd1az/lendscope/business/chain/infra/ethereum/ethtest"
	"github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/business/market/infra/impermax"
	"github.com/fd1az/lendscope/business/market/infra/impermax/impermaxtest"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/circuitbreaker"
	"github.com/fd1az/lendscope/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

func (m *mockLogger) warned(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.warns {
		if w == msg {
			return true
		}
	}
	return false
}

const (
	head      = 5000
	headTime  = 1_700_003_600
	histBlock = head - 100
	histTime  = 1_700_002_400
)

var (
	multicall = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000b1")

	usdc = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	weth = common.HexToAddress("0x0000000000000000000000000000000000000c02")
	aero = common.HexToAddress("0x0000000000000000000000000000000000000c03")

	usdcPool = impermaxtest.Pool{
		Borrowable:          common.HexToAddress("0x0000000000000000000000000000000000001001"),
		Collateral:          common.HexToAddress("0x0000000000000000000000000000000000002001"),
		Vault:               common.HexToAddress("0x0000000000000000000000000000000000003001"),
		Opposite:            common.HexToAddress("0x0000000000000000000000000000000000001002"),
		Underlying:          usdc,
		OppositeUnderlying:  aero,
		OppositeSymbol:      "AERO",
		Name:                "Impermax USDC/AERO",
		Old:                 impermaxtest.State{TotalBalance: e(800, 6), TotalBorrows: e(200, 6), ExchangeRate: e(1, 18), BorrowRate: big.NewInt(1_000_000_000)},
		New:                 impermaxtest.State{TotalBalance: e(790, 6), TotalBorrows: e(210, 6), ExchangeRate: e(11, 17), BorrowRate: big.NewInt(2_000_000_000)},
		ReserveFactor:       e(1, 17),
		Kink:                e(75, 16),
		Balances:            map[common.Address]*big.Int{alice: e(50, 6)},
		Stable:              true,
		VaultBefore:         impermaxtest.Vault{ExchangeRate: e(1, 18), TotalBalance: e(1000, 18)},
		VaultAfter:          impermaxtest.Vault{ExchangeRate: e(101, 16), TotalBalance: e(1010, 18)},
		HistoricalTimestamp: histTime,
	}

	wethPool = impermaxtest.Pool{
		Borrowable:          common.HexToAddress("0x0000000000000000000000000000000000001011"),
		Collateral:          common.HexToAddress("0x0000000000000000000000000000000000002011"),
		Vault:               common.HexToAddress("0x0000000000000000000000000000000000003011"),
		Opposite:            common.HexToAddress("0x0000000000000000000000000000000000001012"),
		Underlying:          weth,
		OppositeUnderlying:  aero,
		OppositeSymbol:      "AERO",
		SecondSlot:          true,
		Name:                "Impermax WETH/AERO",
		Old:                 impermaxtest.State{TotalBalance: e(10, 18), TotalBorrows: e(5, 18), ExchangeRate: e(1, 18), BorrowRate: big.NewInt(1)},
		New:                 impermaxtest.State{TotalBalance: e(10, 18), TotalBorrows: e(5, 18), ExchangeRate: e(1, 18), BorrowRate: big.NewInt(1)},
		ReserveFactor:       big.NewInt(0),
		Kink:                e(8, 17),
		Balances:            map[common.Address]*big.Int{bob: e(2, 18)},
		VaultBefore:         impermaxtest.Vault{ExchangeRate: e(1, 18), TotalBalance: e(1, 18)},
		VaultAfter:          impermaxtest.Vault{ExchangeRate: e(1, 18), TotalBalance: e(1, 18)},
		HistoricalTimestamp: histTime,
	}
)

// e returns m * 10^exp.
func e(m int64, exp int64) *big.Int {
	v := new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
	return v.Mul(v, big.NewInt(m))
}

func spec(pools ...impermaxtest.Pool) domain.ChainSpec {
	s := domain.ChainSpec{
		Name:        "BASE",
		NativeAsset: "ETH",
		Tokens:      map[common.Address]string{usdc: "USDC", weth: "WETH"},
	}
	for _, p := range pools {
		s.Borrowables = append(s.Borrowables, p.Borrowable)
	}
	return s
}

func newSim(pools ...impermaxtest.Pool) *ethtest.Simulator {
	sim := ethtest.NewSimulator(multicall)
	sim.SetHead(head, headTime)
	for _, p := range pools {
		impermaxtest.Install(sim, histBlock, headTime, p)
	}
	impermaxtest.InstallToken(sim, usdc, "USDC", map[common.Address]*big.Int{alice: e(7, 6)})
	impermaxtest.InstallToken(sim, weth, "WETH", map[common.Address]*big.Int{bob: e(3, 18)})
	impermaxtest.InstallNative(sim, multicall, map[common.Address]*big.Int{alice: e(1, 17), bob: e(2, 17)})
	return sim
}

func newExtractor(t *testing.T, sim *ethtest.Simulator) (*impermax.Extractor, *mockLogger) {
	t.Helper()

	log := &mockLogger{}
	pool, err := chaineth.NewProviderPool("BASE", []string{"sim://a"},
		ethtest.Dialer(map[string]*ethtest.Simulator{"sim://a": sim}),
		circuitbreaker.DefaultConfig("rpc"), log)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	cfg := chaineth.DefaultExecutorConfig("BASE", multicall)
	cfg.BackoffStep = 0
	cfg.CallTimeout = time.Second
	exec, err := chaineth.NewExecutor(cfg, pool, log)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	x, err := impermax.NewExtractor(impermax.Config{
		Users:           []common.Address{alice, bob},
		Multicall:       multicall,
		HistoricalDepth: 100,
	}, chainapp.NewChainService(exec), log)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return x, log
}

func TestExtract_ReadsAllStages(t *testing.T) {
	sim := newSim(usdcPool, wethPool)
	x, _ := newExtractor(t, sim)

	snap, err := x.Extract(context.Background(), spec(usdcPool, wethPool))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Block != head || snap.HistoricalBlock != histBlock || snap.Timestamp != headTime {
		t.Errorf("unexpected blocks: %d/%d at %d", snap.Block, snap.HistoricalBlock, snap.Timestamp)
	}
	if !sim.SawBlock(histBlock) {
		t.Error("expected the vault history batch at the historical block")
	}
	if len(snap.Pools) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(snap.Pools))
	}

	p := snap.Pools[0]
	if p.Asset != "USDC" || p.Name != "Impermax USDC/AERO" {
		t.Errorf("unexpected identity: %s %q", p.Asset, p.Name)
	}
	if p.Old.TotalBalance.Cmp(usdcPool.Old.TotalBalance) != 0 {
		t.Errorf("expected old balance read before sync, got %s", p.Old.TotalBalance)
	}
	if p.New.TotalBalance.Cmp(usdcPool.New.TotalBalance) != 0 || p.New.BorrowRate.Cmp(usdcPool.New.BorrowRate) != 0 {
		t.Errorf("expected new state read after sync, got %s/%s", p.New.TotalBalance, p.New.BorrowRate)
	}
	if p.Old.ExchangeRate.Cmp(usdcPool.Old.ExchangeRate) != 0 || p.New.ExchangeRate.Cmp(usdcPool.New.ExchangeRate) != 0 {
		t.Error("unexpected exchange rates")
	}
	if p.Vault != usdcPool.Vault || p.Opposite != usdcPool.Opposite {
		t.Errorf("unexpected collateral resolution: vault %s opposite %s", p.Vault.Hex(), p.Opposite.Hex())
	}
	if p.OppositeSymbol != "AERO" || !p.Stable {
		t.Errorf("expected AERO stable pair, got %s stable=%v", p.OppositeSymbol, p.Stable)
	}
	if len(p.UserShares) != 2 || p.UserShares[0].Shares.Cmp(e(50, 6)) != 0 || p.UserShares[1].Shares.Sign() != 0 {
		t.Errorf("unexpected user shares: %+v", p.UserShares)
	}

	if !p.VaultBefore.Known || p.VaultBefore.Timestamp != histTime || p.VaultBefore.TotalBalance.Cmp(e(1000, 18)) != 0 {
		t.Errorf("unexpected vault before: %+v", p.VaultBefore)
	}
	if !p.VaultAfter.Known || p.VaultAfter.Timestamp != headTime || p.VaultAfter.ExchangeRate.Cmp(e(101, 16)) != 0 {
		t.Errorf("unexpected vault after: %+v", p.VaultAfter)
	}

	if snap.Pools[1].Opposite != wethPool.Opposite {
		t.Errorf("expected opposite from slot 0 when borrowable sits in slot 1, got %s", snap.Pools[1].Opposite.Hex())
	}
}

func TestExtract_IdleBalanceOrder(t *testing.T) {
	sim := newSim(usdcPool, wethPool)
	x, _ := newExtractor(t, sim)

	snap, err := x.Extract(context.Background(), spec(usdcPool, wethPool))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		asset string
		user  common.Address
		raw   *big.Int
	}{
		{"ETH", alice, e(1, 17)},
		{"ETH", bob, e(2, 17)},
		{"USDC", alice, e(7, 6)},
		{"USDC", bob, big.NewInt(0)},
		{"WETH", alice, big.NewInt(0)},
		{"WETH", bob, e(3, 18)},
	}
	if len(snap.Idle) != len(want) {
		t.Fatalf("expected %d idle balances, got %d", len(want), len(snap.Idle))
	}
	for i, w := range want {
		got := snap.Idle[i]
		if got.Asset != w.asset || got.User != w.user || got.Raw.Cmp(w.raw) != 0 {
			t.Errorf("idle[%d]: expected %s %s %s, got %s %s %s",
				i, w.asset, w.user.Hex(), w.raw, got.Asset, got.User.Hex(), got.Raw)
		}
	}
}

func TestExtract_UnknownUnderlyingIsFatal(t *testing.T) {
	stray := usdcPool
	stray.Underlying = common.HexToAddress("0x0000000000000000000000000000000000000dead")
	sim := newSim(stray)
	x, _ := newExtractor(t, sim)

	_, err := x.Extract(context.Background(), spec(stray))
	if !apperror.HasCode(err, apperror.CodeUnknownUnderlying) {
		t.Fatalf("expected unknown underlying, got %v", err)
	}
}

func TestExtract_BrokenHistoryLeavesVaultUnknown(t *testing.T) {
	broken := usdcPool
	broken.BrokenHistory = true
	sim := newSim(broken)
	x, log := newExtractor(t, sim)

	snap, err := x.Extract(context.Background(), spec(broken))
	if err != nil {
		t.Fatalf("expected tolerant history, got %v", err)
	}

	p := snap.Pools[0]
	if p.VaultBefore.Known {
		t.Error("expected unknown vault history")
	}
	if p.OppositeSymbol != "" {
		t.Errorf("expected no opposite symbol without its underlying, got %q", p.OppositeSymbol)
	}
	if !p.VaultAfter.Known {
		t.Error("expected current vault sample")
	}
	if !log.warned("vault history unavailable") {
		t.Error("expected a warning for the missing history")
	}
}

func TestExtract_UnknownChain(t *testing.T) {
	sim := newSim(usdcPool)
	x, _ := newExtractor(t, sim)

	s := spec(usdcPool)
	s.Name = "MODE"
	_, err := x.Extract(context.Background(), s)
	if !apperror.HasCode(err, apperror.CodeUnknownChain) {
		t.Fatalf("expected unknown chain, got %v", err)
	}
}

func TestExtract_StakingAttached(t *testing.T) {
	sim := newSim(usdcPool)
	x, _ := newExtractor(t, sim)

	staking := domain.Staking{
		Pool:        common.HexToAddress("0x0000000000000000000000000000000000004001"),
		RewardToken: aero,
	}
	s := spec(usdcPool)
	s.Staking = map[common.Address]domain.Staking{usdcPool.Borrowable: staking}

	snap, err := x.Extract(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Pools[0].Staking == nil || *snap.Pools[0].Staking != staking {
		t.Errorf("expected staking metadata, got %+v", snap.Pools[0].Staking)
	}
}
