// Package domain contains the core domain types for the chain context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/lendscope/internal/apperror"
)

// CallOpts pins a batch to a block and a sender.
type CallOpts struct {
	// Block is the block number to evaluate at; zero means latest.
	Block uint64
	From  common.Address
}

// BlockNumber returns the block as a *big.Int, or nil for latest.
func (o CallOpts) BlockNumber() *big.Int {
	if o.Block == 0 {
		return nil
	}
	return new(big.Int).SetUint64(o.Block)
}

// Call is a single contract read within a batch.
type Call struct {
	Target common.Address
	Method string
	Data   []byte

	contract *abi.ABI
}

// Batch collects contract reads that execute together in one round trip.
type Batch struct {
	name  string
	calls []Call
	err   error
}

// NewBatch creates an empty named batch.
func NewBatch(name string) *Batch {
	return &Batch{name: name}
}

// Add packs method(args) for the contract at target and returns the index of
// its result. The first packing error is kept and reported by Err.
func (b *Batch) Add(target common.Address, contract *abi.ABI, method string, args ...any) int {
	data, err := contract.Pack(method, args...)
	if err != nil && b.err == nil {
		b.err = apperror.New(apperror.CodeMulticallEncode,
			apperror.WithCause(err),
			apperror.WithContextf("batch %s: %s.%s", b.name, target.Hex(), method))
	}

	b.calls = append(b.calls, Call{
		Target:   target,
		Method:   method,
		Data:     data,
		contract: contract,
	})
	return len(b.calls) - 1
}

// Name returns the batch name used in logs and errors.
func (b *Batch) Name() string {
	return b.name
}

// Len returns the number of calls.
func (b *Batch) Len() int {
	return len(b.calls)
}

// Calls returns the calls in insertion order.
func (b *Batch) Calls() []Call {
	return b.calls
}

// Err returns the first encoding error, if any.
func (b *Batch) Err() error {
	return b.err
}

// Result is the raw outcome of one call.
type Result struct {
	Success    bool
	ReturnData []byte
}

// Results holds one outcome per batch call, in input order.
type Results struct {
	batch *Batch
	raw   []Result
}

// NewResults pairs raw outcomes with the batch that produced them.
func NewResults(batch *Batch, raw []Result) (*Results, error) {
	if len(raw) != batch.Len() {
		return nil, apperror.New(apperror.CodeMulticallDecode,
			apperror.WithContextf("batch %s: expected %d results, got %d", batch.Name(), batch.Len(), len(raw)))
	}
	return &Results{batch: batch, raw: raw}, nil
}

// FailedResults returns a result set with every call marked failed.
func FailedResults(batch *Batch) *Results {
	return &Results{batch: batch, raw: make([]Result, batch.Len())}
}

// Len returns the number of results.
func (r *Results) Len() int {
	return len(r.raw)
}

// OK reports whether call i succeeded.
func (r *Results) OK(i int) bool {
	return i >= 0 && i < len(r.raw) && r.raw[i].Success
}

// Raw returns the undecoded outcome of call i.
func (r *Results) Raw(i int) Result {
	return r.raw[i]
}

// Unpack decodes the return values of call i.
func (r *Results) Unpack(i int) ([]any, error) {
	if i < 0 || i >= len(r.raw) {
		return nil, apperror.New(apperror.CodeMulticallDecode,
			apperror.WithContextf("batch %s: index %d out of range", r.batch.Name(), i))
	}

	call := r.batch.calls[i]
	if !r.raw[i].Success {
		return nil, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithContextf("batch %s: call %d %s.%s failed", r.batch.Name(), i, call.Target.Hex(), call.Method))
	}

	out, err := call.contract.Unpack(call.Method, r.raw[i].ReturnData)
	if err != nil || len(out) == 0 {
		return nil, apperror.New(apperror.CodeMulticallDecode,
			apperror.WithCause(err),
			apperror.WithContextf("batch %s: call %d %s.%s", r.batch.Name(), i, call.Target.Hex(), call.Method))
	}
	return out, nil
}

// TryBig decodes call i as an integer; ok is false when the call failed.
func (r *Results) TryBig(i int) (*big.Int, bool) {
	v, err := decodeAs[*big.Int](r, i)
	return v, err == nil
}

// TryAddress decodes call i as an address; ok is false when the call failed.
func (r *Results) TryAddress(i int) (common.Address, bool) {
	v, err := decodeAs[common.Address](r, i)
	return v, err == nil
}

// TryBool decodes call i as a bool; ok is false when the call failed.
func (r *Results) TryBool(i int) (bool, bool) {
	v, err := decodeAs[bool](r, i)
	return v, err == nil
}

// Reader returns a strict decoder over the results.
func (r *Results) Reader() *Reader {
	return &Reader{res: r}
}

func decodeAs[T any](r *Results, i int) (T, error) {
	var zero T
	out, err := r.Unpack(i)
	if err != nil {
		return zero, err
	}

	v, ok := out[0].(T)
	if !ok {
		call := r.batch.calls[i]
		return zero, apperror.New(apperror.CodeMulticallDecode,
			apperror.WithContextf("batch %s: call %d %s.%s: want %T, got %T",
				r.batch.Name(), i, call.Target.Hex(), call.Method, zero, out[0]))
	}
	return v, nil
}

// Reader decodes results in sequence and keeps the first error, so callers
// can read a whole block of values and check Err once.
type Reader struct {
	res *Results
	err error
}

// Big decodes call i as an integer. Returns zero after an error.
func (rd *Reader) Big(i int) *big.Int {
	v := read[*big.Int](rd, i)
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Address decodes call i as an address.
func (rd *Reader) Address(i int) common.Address {
	return read[common.Address](rd, i)
}

// String decodes call i as a string.
func (rd *Reader) String(i int) string {
	return read[string](rd, i)
}

// Bool decodes call i as a bool.
func (rd *Reader) Bool(i int) bool {
	return read[bool](rd, i)
}

// Err returns the first decode error.
func (rd *Reader) Err() error {
	return rd.err
}

func read[T any](rd *Reader, i int) T {
	var zero T
	if rd.err != nil {
		return zero
	}
	v, err := decodeAs[T](rd.res, i)
	if err != nil {
		rd.err = err
		return zero
	}
	return v
}
