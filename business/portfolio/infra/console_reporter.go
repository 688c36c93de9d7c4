// Package infra contains infrastructure adapters for the portfolio context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fd1az/lendscope/business/portfolio/app"
	"github.com/fd1az/lendscope/business/portfolio/domain"
	"github.com/fd1az/lendscope/pkg/ui"
	"github.com/fd1az/lendscope/pkg/ui/components"
)

// Ensure ConsoleReporter implements Reporter.
var _ app.Reporter = (*ConsoleReporter)(nil)

const defaultMaxPools = 20

// ConsoleReporter renders reports as lipgloss tables.
type ConsoleReporter struct {
	out      io.Writer
	maxPools int
}

// NewConsoleReporter creates a ConsoleReporter writing to out, or stdout
// when out is nil.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{
		out:      out,
		maxPools: defaultMaxPools,
	}
}

// Report writes the totals, the chain ranking and the good pools.
func (r *ConsoleReporter) Report(ctx context.Context, report *domain.Report) error {
	var b strings.Builder

	b.WriteString(ui.TitleStyle.Render(" lendscope "))
	b.WriteString(" ")
	b.WriteString(ui.MutedValue.Render(report.GeneratedAt.Format(time.RFC3339)))
	b.WriteString("\n\n")

	b.WriteString(ui.BoxStyle.Render(strings.TrimSuffix(totalsView(report.Totals), "\n")))
	b.WriteString("\n\n")

	b.WriteString(components.NewChainsComponent(chainRows(report.Chains)).View())
	b.WriteString("\n\n")

	pools := poolRows(report)
	b.WriteString(components.NewPoolsComponent(pools, r.maxPools).View())
	b.WriteString("\n")
	if unknown := unknownVaultAPRs(report); unknown > 0 {
		b.WriteString(ui.WarningValue.Render(fmt.Sprintf("%d good pools have no vault APR history", unknown)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

func totalsView(t domain.Totals) string {
	return components.NewTotalsComponent(components.Totals{
		TotalDeposited:   t.TotalDeposited,
		IdleUSD:          t.IdleUSD,
		OldTotalEarnings: t.OldTotalEarnings,
		NewTotalEarnings: t.NewTotalEarnings,
		MaxTotalEarnings: t.MaxTotalEarnings,
		CurrentAPR:       t.CurrentAPR,
		MaxAPR:           t.MaxAPR,
	}).View()
}

func chainRows(chains []domain.ChainSummary) []components.ChainRow {
	rows := make([]components.ChainRow, 0, len(chains))
	for _, c := range chains {
		row := components.ChainRow{
			Chain:       c.Chain,
			Block:       c.Block,
			Pools:       c.Pools,
			SuppliedUSD: c.SuppliedUSD,
			IdleUSD:     c.IdleUSD,
		}
		for _, a := range c.Assets {
			row.Assets = append(row.Assets, components.AssetRow{
				Asset:       a.Asset,
				Supplied:    a.Supplied.Amount,
				SuppliedUSD: a.Supplied.USD,
				IdleUSD:     a.Idle.USD,
				CurrentAPR:  a.CurrentAPR,
				MaxAPR:      a.MaxAPR,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func poolRows(report *domain.Report) []components.PoolRow {
	rows := make([]components.PoolRow, 0, len(report.GoodPools))
	for _, p := range report.GoodPools {
		opposite := p.OppositeSymbol
		if opposite == "" {
			opposite = "?"
		}
		rows = append(rows, components.PoolRow{
			Chain:        p.Chain,
			Platform:     p.Platform,
			Pair:         p.Asset + "/" + opposite,
			Supplied:     p.Supplied,
			SuppliedUSD:  p.SuppliedUSD,
			TVLUSD:       p.TVLUSD,
			AvailableUSD: p.AvailableToDepositUSD,
			APROld:       p.APROld,
			APRNew:       p.APRNew,
			Utilization:  p.Utilization,
			VaultAPR:     p.VaultAPR.String(),
		})
	}
	return rows
}

func unknownVaultAPRs(report *domain.Report) int {
	n := 0
	for _, p := range report.GoodPools {
		if !p.VaultAPR.IsKnown() {
			n++
		}
	}
	return n
}
