package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/lendscope/internal/apperror"
)

// Multicall3ABI covers the Multicall3 functions used for batching.
const Multicall3ABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "bool", "name": "allowFailure", "type": "bool"},
					{"internalType": "bytes", "name": "callData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Call3[]",
				"name": "calls",
				"type": "tuple[]"
			}
		],
		"name": "aggregate3",
		"outputs": [
			{
				"components": [
					{"internalType": "bool", "name": "success", "type": "bool"},
					{"internalType": "bytes", "name": "returnData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Result[]",
				"name": "returnData",
				"type": "tuple[]"
			}
		],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "addr", "type": "address"}],
		"name": "getEthBalance",
		"outputs": [{"internalType": "uint256", "name": "balance", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getCurrentBlockTimestamp",
		"outputs": [{"internalType": "uint256", "name": "timestamp", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var multicall3 = MustParseABI(Multicall3ABI)

// MustParseABI parses a JSON ABI definition. It panics on malformed input and
// is meant for package-level contract definitions.
func MustParseABI(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("parse abi: " + err.Error())
	}
	return &parsed
}

// Multicall3 returns the parsed Multicall3 ABI.
func Multicall3() *abi.ABI {
	return multicall3
}

// Call3 is the aggregate3 input tuple.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// EncodeAggregate3 packs the batch into aggregate3 calldata.
func EncodeAggregate3(b *Batch, allowFailure bool) ([]byte, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}

	calls := make([]Call3, 0, b.Len())
	for _, c := range b.Calls() {
		calls = append(calls, Call3{
			Target:       c.Target,
			AllowFailure: allowFailure,
			CallData:     c.Data,
		})
	}

	data, err := multicall3.Pack("aggregate3", calls)
	if err != nil {
		return nil, apperror.New(apperror.CodeMulticallEncode,
			apperror.WithCause(err),
			apperror.WithContextf("batch %s", b.Name()))
	}
	return data, nil
}

// DecodeAggregate3 unpacks aggregate3 return data.
func DecodeAggregate3(data []byte) ([]Result, error) {
	var out []Result
	if err := multicall3.UnpackIntoInterface(&out, "aggregate3", data); err != nil {
		return nil, apperror.New(apperror.CodeMulticallDecode, apperror.WithCause(err))
	}
	return out, nil
}
