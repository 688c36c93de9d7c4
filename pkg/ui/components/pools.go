package components

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/pkg/ui"
)

// PoolRow is one good pool.
type PoolRow struct {
	Chain        string
	Platform     string
	Pair         string
	Supplied     decimal.Decimal
	SuppliedUSD  decimal.Decimal
	TVLUSD       decimal.Decimal
	AvailableUSD decimal.Decimal
	APROld       decimal.Decimal
	APRNew       decimal.Decimal
	Utilization  decimal.Decimal
	VaultAPR     string
}

// PoolsComponent renders the good pools list.
type PoolsComponent struct {
	rows    []PoolRow
	maxRows int
}

// NewPoolsComponent creates a new pools component showing at most maxRows
// pools. maxRows <= 0 shows every pool.
func NewPoolsComponent(rows []PoolRow, maxRows int) *PoolsComponent {
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return &PoolsComponent{rows: rows, maxRows: maxRows}
}

// View renders the pools component.
func (p *PoolsComponent) View() string {
	if len(p.rows) == 0 {
		return "No pools pass the filter"
	}

	t := newTable(
		[]string{"Chain", "Pool", "Supplied $", "TVL $", "Available $", "APR old", "APR new", "Util", "Vault APR"},
		map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true},
	)
	for _, r := range p.rows {
		t.Row(
			r.Chain,
			r.Platform+" "+r.Pair,
			r.SuppliedUSD.StringFixed(2),
			r.TVLUSD.StringFixed(0),
			r.AvailableUSD.StringFixed(0),
			r.APROld.StringFixed(2)+"%",
			r.APRNew.StringFixed(2)+"%",
			r.Utilization.StringFixed(2)+"%",
			r.VaultAPR,
		)
	}

	return ui.HeaderStyle.Render("GOOD POOLS") + "\n" + t.String()
}
