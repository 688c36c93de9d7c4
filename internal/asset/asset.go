package asset

// Asset is the logical asset a pool or wallet balance is denominated in.
// The same asset lives at different token addresses on different chains; the
// symbol is its identity across chains.
type Asset struct {
	symbol   string
	name     string
	decimals uint8
	priceID  string
}

// NewAsset creates a new Asset. priceID is the id the price feed knows the
// asset by.
func NewAsset(symbol string, decimals uint8, priceID string) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	return &Asset{
		symbol:   symbol,
		decimals: decimals,
		priceID:  priceID,
	}
}

// NewAssetWithName creates a new Asset with a human-readable name.
func NewAssetWithName(symbol, name string, decimals uint8, priceID string) *Asset {
	a := NewAsset(symbol, decimals, priceID)
	a.name = name
	return a
}

// Symbol returns the ticker symbol (e.g., "ETH", "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name (e.g., "Ethereum", "USD Coin").
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// PriceID returns the price feed id, empty when the asset is priced statically.
func (a *Asset) PriceID() string {
	return a.priceID
}

// String returns a human-readable representation.
func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two Assets by symbol.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.symbol == other.symbol
}
