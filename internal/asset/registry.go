package asset

import (
	"sort"
	"sync"

	"github.com/fd1az/lendscope/internal/apperror"
)

// Registry is a thread-safe registry of known assets.
type Registry struct {
	bySymbol  map[string]*Asset
	byPriceID map[string]*Asset
	mu        sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		bySymbol:  make(map[string]*Asset),
		byPriceID: make(map[string]*Asset),
	}
}

// Register adds an asset to the registry. Registering a symbol twice is a
// configuration error.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return apperror.New(apperror.CodeConfigurationError, apperror.WithContext("nil asset"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySymbol[a.Symbol()]; exists {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithContextf("asset %s already registered", a.Symbol()))
	}

	r.bySymbol[a.Symbol()] = a
	if a.PriceID() != "" {
		r.byPriceID[a.PriceID()] = a
	}
	return nil
}

// Get retrieves an asset by symbol.
func (r *Registry) Get(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.bySymbol[symbol]
	return a, ok
}

// Lookup retrieves an asset by symbol, failing with CodeUnknownAsset.
func (r *Registry) Lookup(symbol string) (*Asset, error) {
	a, ok := r.Get(symbol)
	if !ok {
		return nil, apperror.NotFound(apperror.CodeUnknownAsset, symbol)
	}
	return a, nil
}

// MustGet retrieves an asset by symbol, panics if not found.
func (r *Registry) MustGet(symbol string) *Asset {
	a, err := r.Lookup(symbol)
	if err != nil {
		panic(err)
	}
	return a
}

// ByPriceID retrieves the asset a price feed id belongs to.
func (r *Registry) ByPriceID(id string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byPriceID[id]
	return a, ok
}

// PriceIDs returns the sorted price feed ids of every registered asset.
func (r *Registry) PriceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byPriceID))
	for id := range r.byPriceID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns all registered assets ordered by symbol.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.bySymbol))
	for _, a := range r.bySymbol {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].symbol < result[j].symbol })
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySymbol)
}

// Has returns true if an asset with the given symbol is registered.
func (r *Registry) Has(symbol string) bool {
	_, ok := r.Get(symbol)
	return ok
}
