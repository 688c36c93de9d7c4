package asset

// Well-known assets tracked across the supported chains. Price ids are
// CoinGecko ids.
var (
	USDC   = NewAssetWithName("USDC", "USD Coin", 6, "usd-coin")
	ETH    = NewAssetWithName("ETH", "Ether", 18, "weth")
	FTM    = NewAssetWithName("FTM", "Fantom", 18, "wrapped-fantom")
	WstETH = NewAssetWithName("wstETH", "Wrapped stETH", 18, "wrapped-steth")
	OP     = NewAssetWithName("OP", "Optimism", 18, "optimism")
	IBEX   = NewAssetWithName("IBEX", "Impermax", 18, "impermax-2")
	OX     = NewAssetWithName("OX", "OX Coin", 18, "ox-fun")
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{USDC, ETH, FTM, WstETH, OP, IBEX, OX} {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}
