package app

import (
	"io"

	"github.com/fd1az/lendscope/internal/apperror"
)

// ChainService holds one batch executor per configured chain.
type ChainService struct {
	executors map[string]BatchExecutor
	order     []string
}

// NewChainService creates a ChainService. Chain order follows the argument order.
func NewChainService(executors ...BatchExecutor) *ChainService {
	s := &ChainService{executors: make(map[string]BatchExecutor, len(executors))}
	for _, e := range executors {
		if _, exists := s.executors[e.Chain()]; exists {
			continue
		}
		s.executors[e.Chain()] = e
		s.order = append(s.order, e.Chain())
	}
	return s
}

// Executor returns the executor for chain.
func (s *ChainService) Executor(chain string) (BatchExecutor, error) {
	e, ok := s.executors[chain]
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownChain, apperror.WithContext(chain))
	}
	return e, nil
}

// Chains returns the configured chain names in configuration order.
func (s *ChainService) Chains() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Close releases executor resources.
func (s *ChainService) Close() error {
	var first error
	for _, name := range s.order {
		if c, ok := s.executors[name].(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
