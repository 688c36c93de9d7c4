// Package ethtest provides an in-memory JSON-RPC endpoint that answers
// Multicall3 aggregate3 batches from registered contract handlers.
package ethtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/lendscope/business/chain/domain"
	chaineth "github.com/fd1az/lendscope/business/chain/infra/ethereum"
)

// ErrReverted is returned for a strict batch containing a failing call.
var ErrReverted = errors.New("execution reverted")

// CallContext describes the environment of a simulated call.
type CallContext struct {
	Block uint64
	From  common.Address
	// Seq identifies the aggregate3 request, so handlers can keep state
	// that lives for one transaction.
	Seq int64
}

// HandlerFunc answers one contract method. It receives the unpacked inputs
// and returns the output values in ABI order.
type HandlerFunc func(cc CallContext, args []any) ([]any, error)

type method struct {
	abi     *abi.ABI
	name    string
	handler HandlerFunc
}

type methodKey struct {
	target   common.Address
	selector [4]byte
}

// Simulator is a fake RPC endpoint. It is safe for concurrent use.
type Simulator struct {
	multicall common.Address

	mu      sync.RWMutex
	methods map[methodKey]method
	header  types.Header

	failMu   sync.Mutex
	failNext int
	failErr  error
	failAll  error
	delay    time.Duration

	calls   atomic.Int64
	headers atomic.Int64
	blocks  sync.Map // block number -> struct{}
}

// NewSimulator creates a simulator routing aggregate3 calls sent to multicall.
func NewSimulator(multicall common.Address) *Simulator {
	return &Simulator{
		multicall: multicall,
		methods:   make(map[methodKey]method),
		header: types.Header{
			Number: big.NewInt(1000),
			Time:   1_700_000_000,
		},
	}
}

// SetHead sets the latest block returned by HeaderByNumber.
func (s *Simulator) SetHead(number, timestamp uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = types.Header{Number: new(big.Int).SetUint64(number), Time: timestamp}
}

// Handle registers fn for contract.method at target.
func (s *Simulator) Handle(target common.Address, contract *abi.ABI, name string, fn HandlerFunc) {
	m, ok := contract.Methods[name]
	if !ok {
		panic(fmt.Sprintf("ethtest: unknown method %s", name))
	}

	var key methodKey
	key.target = target
	copy(key.selector[:], m.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[key] = method{abi: contract, name: name, handler: fn}
}

// Returns registers constant outputs for contract.method at target.
func (s *Simulator) Returns(target common.Address, contract *abi.ABI, name string, values ...any) {
	s.Handle(target, contract, name, func(CallContext, []any) ([]any, error) {
		return values, nil
	})
}

// Reverts registers a method that always fails.
func (s *Simulator) Reverts(target common.Address, contract *abi.ABI, name string) {
	s.Handle(target, contract, name, func(CallContext, []any) ([]any, error) {
		return nil, ErrReverted
	})
}

// FailNext makes the next n requests fail with err.
func (s *Simulator) FailNext(n int, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failNext = n
	s.failErr = err
}

// FailAll makes every request fail with err until cleared with nil.
func (s *Simulator) FailAll(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failAll = err
}

// SetDelay delays every request by d, honoring context cancellation.
func (s *Simulator) SetDelay(d time.Duration) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.delay = d
}

// Calls returns the number of CallContract requests received.
func (s *Simulator) Calls() int {
	return int(s.calls.Load())
}

// HeaderCalls returns the number of HeaderByNumber requests received.
func (s *Simulator) HeaderCalls() int {
	return int(s.headers.Load())
}

// SawBlock reports whether a batch was evaluated at block.
func (s *Simulator) SawBlock(block uint64) bool {
	_, ok := s.blocks.Load(block)
	return ok
}

func (s *Simulator) prelude(ctx context.Context) error {
	s.failMu.Lock()
	delay := s.delay
	var err error
	switch {
	case s.failAll != nil:
		err = s.failAll
	case s.failNext > 0:
		s.failNext--
		err = s.failErr
	}
	s.failMu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

// HeaderByNumber returns the configured head for a nil number.
func (s *Simulator) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	s.headers.Add(1)
	if err := s.prelude(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.header
	if number != nil {
		h.Number = new(big.Int).Set(number)
	}
	return &h, nil
}

// CallContract answers an aggregate3 call.
func (s *Simulator) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	seq := s.calls.Add(1)
	if err := s.prelude(ctx); err != nil {
		return nil, err
	}

	if msg.To == nil || *msg.To != s.multicall {
		return nil, fmt.Errorf("ethtest: unexpected target %v", msg.To)
	}

	mc := domain.Multicall3()
	agg := mc.Methods["aggregate3"]
	if len(msg.Data) < 4 || !bytes.Equal(msg.Data[:4], agg.ID) {
		return nil, fmt.Errorf("ethtest: only aggregate3 is supported")
	}

	in, err := agg.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	calls := *abi.ConvertType(in[0], new([]domain.Call3)).(*[]domain.Call3)

	cc := CallContext{From: msg.From, Seq: seq}
	if blockNumber != nil {
		cc.Block = blockNumber.Uint64()
	} else {
		s.mu.RLock()
		cc.Block = s.header.Number.Uint64()
		s.mu.RUnlock()
	}
	s.blocks.Store(cc.Block, struct{}{})

	results := make([]domain.Result, len(calls))
	for i, c := range calls {
		data, err := s.dispatch(cc, c)
		if err != nil {
			if !c.AllowFailure {
				return nil, fmt.Errorf("%w: call %d: %v", ErrReverted, i, err)
			}
			continue
		}
		results[i] = domain.Result{Success: true, ReturnData: data}
	}

	return agg.Outputs.Pack(results)
}

func (s *Simulator) dispatch(cc CallContext, c domain.Call3) ([]byte, error) {
	if len(c.CallData) < 4 {
		return nil, ErrReverted
	}

	var key methodKey
	key.target = c.Target
	copy(key.selector[:], c.CallData[:4])

	s.mu.RLock()
	m, ok := s.methods[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler for %s selector %x", c.Target.Hex(), key.selector)
	}

	def := m.abi.Methods[m.name]
	args, err := def.Inputs.Unpack(c.CallData[4:])
	if err != nil {
		return nil, err
	}

	out, err := m.handler(cc, args)
	if err != nil {
		return nil, err
	}
	return def.Outputs.Pack(out...)
}

// Dialer returns a dialer resolving URLs to simulators. Unknown URLs fail
// to dial.
func Dialer(endpoints map[string]*Simulator) chaineth.Dialer {
	return func(_ context.Context, url string) (chaineth.Caller, error) {
		sim, ok := endpoints[url]
		if !ok {
			return nil, fmt.Errorf("ethtest: no simulator for %s", url)
		}
		return sim, nil
	}
}
