package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/pkg/ui"
)

// Totals holds the grand totals for display.
type Totals struct {
	TotalDeposited   decimal.Decimal
	IdleUSD          decimal.Decimal
	OldTotalEarnings decimal.Decimal
	NewTotalEarnings decimal.Decimal
	MaxTotalEarnings decimal.Decimal
	CurrentAPR       decimal.Decimal
	MaxAPR           decimal.Decimal
}

// TotalsComponent renders the grand totals.
type TotalsComponent struct {
	totals Totals
}

// NewTotalsComponent creates a new totals component.
func NewTotalsComponent(t Totals) *TotalsComponent {
	return &TotalsComponent{totals: t}
}

// View renders the totals component.
func (c *TotalsComponent) View() string {
	valueStyle := lipgloss.NewStyle().Bold(true)
	aprStyle := ui.PositiveValue.Bold(true)

	t := c.totals
	line := func(label, value string, style lipgloss.Style) string {
		return ui.MutedValue.Render(fmt.Sprintf("%-16s", label)) + style.Render(value) + "\n"
	}

	result := ui.HeaderStyle.Render("TOTALS") + "\n"
	result += line("Deposited", "$"+t.TotalDeposited.StringFixed(2), valueStyle)
	result += line("Idle", "$"+t.IdleUSD.StringFixed(2), valueStyle)
	result += line("Daily (old)", "$"+t.OldTotalEarnings.StringFixed(2), valueStyle)
	result += line("Daily (new)", "$"+t.NewTotalEarnings.StringFixed(2), valueStyle)
	result += line("Daily (max)", "$"+t.MaxTotalEarnings.StringFixed(2), valueStyle)
	result += line("Current APR", t.CurrentAPR.StringFixed(2)+"%", aprStyle)
	result += line("Max APR", t.MaxAPR.StringFixed(2)+"%", aprStyle)
	return result
}
