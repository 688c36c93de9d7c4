// Package app contains application services and port definitions for the chain context.
package app

import (
	"context"

	"github.com/fd1az/lendscope/business/chain/domain"
)

// BatchExecutor runs contract-read batches against a single chain.
type BatchExecutor interface {
	// Chain returns the configured chain name.
	Chain() string

	// LatestBlock discovers the current block number and timestamp.
	LatestBlock(ctx context.Context) (domain.Block, error)

	// Execute runs every call of the batch at opts.Block. Any failing call
	// fails the batch.
	Execute(ctx context.Context, batch *domain.Batch, opts domain.CallOpts) (*domain.Results, error)

	// TryExecute runs the batch allowing individual calls to fail. When all
	// endpoints are exhausted it returns a result set with every call failed.
	TryExecute(ctx context.Context, batch *domain.Batch, opts domain.CallOpts) (*domain.Results, error)
}
