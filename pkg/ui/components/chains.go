package components

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/pkg/ui"
)

// ChainRow is one chain in the ranking.
type ChainRow struct {
	Chain       string
	Block       uint64
	Pools       int
	SuppliedUSD decimal.Decimal
	IdleUSD     decimal.Decimal
	Assets      []AssetRow
}

// AssetRow is one asset of a chain.
type AssetRow struct {
	Asset       string
	Supplied    decimal.Decimal
	SuppliedUSD decimal.Decimal
	IdleUSD     decimal.Decimal
	CurrentAPR  decimal.Decimal
	MaxAPR      decimal.Decimal
}

// ChainsComponent renders the chain ranking with each chain's assets.
type ChainsComponent struct {
	rows []ChainRow
}

// NewChainsComponent creates a new chains component.
func NewChainsComponent(rows []ChainRow) *ChainsComponent {
	return &ChainsComponent{rows: rows}
}

// View renders the chains component.
func (c *ChainsComponent) View() string {
	if len(c.rows) == 0 {
		return "No chains loaded"
	}

	t := newTable(
		[]string{"#", "Chain", "Asset", "Supplied", "Supplied $", "Idle $", "APR", "Max APR"},
		map[int]bool{0: true, 3: true, 4: true, 5: true, 6: true, 7: true},
	)
	for i, ch := range c.rows {
		t.Row(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%s @%d", ch.Chain, ch.Block),
			fmt.Sprintf("%d pools", ch.Pools),
			"",
			ch.SuppliedUSD.StringFixed(2),
			ch.IdleUSD.StringFixed(2),
			"",
			"",
		)
		for _, a := range ch.Assets {
			t.Row(
				"",
				"",
				a.Asset,
				a.Supplied.StringFixed(4),
				a.SuppliedUSD.StringFixed(2),
				a.IdleUSD.StringFixed(2),
				a.CurrentAPR.StringFixed(2)+"%",
				a.MaxAPR.StringFixed(2)+"%",
			)
		}
	}

	return ui.HeaderStyle.Render("CHAINS") + "\n" + t.String()
}
