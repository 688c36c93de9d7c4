package domain_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/lendscope/business/chain/domain"
	"github.com/fd1az/lendscope/internal/apperror"
)

const tokenABI = `[
	{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

var (
	token = domain.MustParseABI(tokenABI)
	usdc  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	user  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func packOutput(t *testing.T, method string, values ...any) []byte {
	t.Helper()
	data, err := token.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return data
}

func TestAggregate3_RoundTrip(t *testing.T) {
	batch := domain.NewBatch("idle")
	balIdx := batch.Add(usdc, token, "balanceOf", user)
	symIdx := batch.Add(usdc, token, "symbol")

	calldata, err := domain.EncodeAggregate3(batch, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := calldata[:4]; string(got) != string(domain.Multicall3().Methods["aggregate3"].ID) {
		t.Fatalf("unexpected selector %x", got)
	}

	returned, err := domain.Multicall3().Methods["aggregate3"].Outputs.Pack([]domain.Result{
		{Success: true, ReturnData: packOutput(t, "balanceOf", big.NewInt(1_500_000))},
		{Success: true, ReturnData: packOutput(t, "symbol", "USDC")},
	})
	if err != nil {
		t.Fatalf("pack results: %v", err)
	}

	raw, err := domain.DecodeAggregate3(returned)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := domain.NewResults(batch, raw)
	if err != nil {
		t.Fatalf("results: %v", err)
	}

	rd := res.Reader()
	if got := rd.Big(balIdx); got.Int64() != 1_500_000 {
		t.Errorf("expected 1500000, got %s", got)
	}
	if got := rd.String(symIdx); got != "USDC" {
		t.Errorf("expected USDC, got %q", got)
	}
	if rd.Err() != nil {
		t.Errorf("unexpected reader error: %v", rd.Err())
	}
}

func TestBatch_KeepsFirstEncodeError(t *testing.T) {
	batch := domain.NewBatch("discover")
	batch.Add(usdc, token, "balanceOf", "not an address")
	batch.Add(usdc, token, "nope")

	if !apperror.HasCode(batch.Err(), apperror.CodeMulticallEncode) {
		t.Fatalf("expected encode error, got %v", batch.Err())
	}
	if _, err := domain.EncodeAggregate3(batch, false); err != batch.Err() {
		t.Errorf("expected batch error from encode, got %v", err)
	}
}

func TestReader_StopsAtFirstError(t *testing.T) {
	batch := domain.NewBatch("mixed")
	batch.Add(usdc, token, "symbol")
	batch.Add(usdc, token, "balanceOf", user)

	res, err := domain.NewResults(batch, []domain.Result{
		{Success: false},
		{Success: true, ReturnData: packOutput(t, "balanceOf", big.NewInt(7))},
	})
	if err != nil {
		t.Fatalf("results: %v", err)
	}

	rd := res.Reader()
	_ = rd.String(0)
	if got := rd.Big(1); got.Sign() != 0 {
		t.Errorf("expected zero after error, got %s", got)
	}
	if !apperror.HasCode(rd.Err(), apperror.CodeRPCCallFailed) {
		t.Errorf("expected call failure, got %v", rd.Err())
	}

	if v, ok := res.TryBig(1); !ok || v.Int64() != 7 {
		t.Errorf("expected tolerant read of 7, got %v %v", v, ok)
	}
	if _, ok := res.TryBig(0); ok {
		t.Error("expected failed call to be unreadable")
	}
}

func TestReader_TypeMismatch(t *testing.T) {
	batch := domain.NewBatch("types")
	batch.Add(usdc, token, "symbol")

	res, err := domain.NewResults(batch, []domain.Result{
		{Success: true, ReturnData: packOutput(t, "symbol", "USDC")},
	})
	if err != nil {
		t.Fatalf("results: %v", err)
	}

	rd := res.Reader()
	_ = rd.Big(0)
	if !apperror.HasCode(rd.Err(), apperror.CodeMulticallDecode) {
		t.Errorf("expected decode error, got %v", rd.Err())
	}
}

func TestNewResults_CountMismatch(t *testing.T) {
	batch := domain.NewBatch("short")
	batch.Add(usdc, token, "symbol")
	batch.Add(usdc, token, "symbol")

	_, err := domain.NewResults(batch, []domain.Result{{Success: true}})
	if !apperror.HasCode(err, apperror.CodeMulticallDecode) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestFailedResults(t *testing.T) {
	batch := domain.NewBatch("historical")
	batch.Add(usdc, token, "symbol")
	batch.Add(usdc, token, "balanceOf", user)

	res := domain.FailedResults(batch)
	if res.Len() != 2 {
		t.Fatalf("expected 2 results, got %d", res.Len())
	}
	for i := 0; i < res.Len(); i++ {
		if res.OK(i) {
			t.Errorf("expected call %d to be failed", i)
		}
	}
}

func TestBlock_Past(t *testing.T) {
	tests := []struct {
		name   string
		number uint64
		depth  uint64
		want   uint64
	}{
		{"normal", 1000, 100, 900},
		{"shallow chain", 50, 100, 1},
		{"exact", 100, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := domain.Block{Number: tt.number}
			if got := b.Past(tt.depth); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCallOpts_BlockNumber(t *testing.T) {
	if (domain.CallOpts{}).BlockNumber() != nil {
		t.Error("expected nil for latest")
	}
	if got := (domain.CallOpts{Block: 42}).BlockNumber(); got.Uint64() != 42 {
		t.Errorf("expected 42, got %s", got)
	}
}
