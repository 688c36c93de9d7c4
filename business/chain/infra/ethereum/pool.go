// Package ethereum implements the chain ports over go-ethereum JSON-RPC clients.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/circuitbreaker"
	"github.com/fd1az/lendscope/internal/logger"
)

// Caller is the part of an RPC client the executor needs.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Dialer opens a client for an endpoint URL.
type Dialer func(ctx context.Context, url string) (Caller, error)

// DialEthClient dials an ethclient over HTTP or WebSocket.
func DialEthClient(ctx context.Context, url string) (Caller, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, apperror.New(apperror.CodeRPCConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(url))
	}
	return client, nil
}

type endpoint struct {
	url     string
	breaker *circuitbreaker.CircuitBreaker[struct{}]

	mu     sync.Mutex
	client Caller
}

// ProviderPool is the ordered endpoint list of one chain with a shared cursor.
type ProviderPool struct {
	chain     string
	endpoints []*endpoint
	cursor    atomic.Int64
	dial      Dialer
	logger    logger.LoggerInterface
}

// NewProviderPool creates a pool over urls. Each endpoint gets its own
// breaker derived from breaker.
func NewProviderPool(chain string, urls []string, dial Dialer, breaker circuitbreaker.Config, log logger.LoggerInterface) (*ProviderPool, error) {
	if len(urls) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContextf("chain %s: no rpc endpoints", chain))
	}
	if dial == nil {
		dial = DialEthClient
	}

	p := &ProviderPool{
		chain:  chain,
		dial:   dial,
		logger: log,
	}
	for i, url := range urls {
		cfg := breaker
		cfg.Name = fmt.Sprintf("rpc-%s-%d", chain, i)
		p.endpoints = append(p.endpoints, &endpoint{
			url:     url,
			breaker: circuitbreaker.New[struct{}](cfg),
		})
	}
	return p, nil
}

// Chain returns the chain name.
func (p *ProviderPool) Chain() string {
	return p.chain
}

// Len returns the number of endpoints.
func (p *ProviderPool) Len() int {
	return len(p.endpoints)
}

// Current returns the index of the active endpoint.
func (p *ProviderPool) Current() int {
	return int(p.cursor.Load())
}

// URL returns the endpoint URL at idx.
func (p *ProviderPool) URL(idx int) string {
	return p.endpoints[idx].url
}

// RecordFailureAndAdvance moves the cursor past idx, wrapping around. Only
// the first caller reporting a failure of idx moves it; it returns whether
// this call did.
func (p *ProviderPool) RecordFailureAndAdvance(ctx context.Context, idx int) bool {
	next := (idx + 1) % len(p.endpoints)
	if !p.cursor.CompareAndSwap(int64(idx), int64(next)) {
		return false
	}
	p.logger.Warn(ctx, "switching provider", "chain", p.chain, "from", idx, "to", next)
	return true
}

// client returns the cached client for idx, dialling it on first use.
func (p *ProviderPool) client(ctx context.Context, idx int) (Caller, error) {
	ep := p.endpoints[idx]
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.client != nil {
		return ep.client, nil
	}

	c, err := p.dial(ctx, ep.url)
	if err != nil {
		return nil, err
	}
	ep.client = c
	return c, nil
}

// breaker returns the breaker guarding idx.
func (p *ProviderPool) breaker(idx int) *circuitbreaker.CircuitBreaker[struct{}] {
	return p.endpoints[idx].breaker
}

// Close closes every dialled client.
func (p *ProviderPool) Close() error {
	for _, ep := range p.endpoints {
		ep.mu.Lock()
		if c, ok := ep.client.(interface{ Close() }); ok {
			c.Close()
		}
		ep.client = nil
		ep.mu.Unlock()
	}
	return nil
}
