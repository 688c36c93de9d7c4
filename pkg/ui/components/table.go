// Package components provides reusable report components.
package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fd1az/lendscope/pkg/ui"
)

var borderStyle = lipgloss.NewStyle().Foreground(ui.ColorBorder)

// newTable builds a bordered table whose columns listed in numeric are
// right aligned.
func newTable(headers []string, numeric map[int]bool) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return ui.TableHeaderStyle
			case numeric[col]:
				return ui.TableNumberStyle
			default:
				return ui.TableCellStyle
			}
		})
}
