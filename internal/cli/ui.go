package cli

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"cryptodash/internal/dataprocessing"
	"cryptodash/pkg/contracts/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 2).
			MarginRight(1)

	labelStyle = lipgloss.NewStyle().Bold(true)

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderCards lays the metric cards out side by side.
func renderCards(cards []domain.MetricCard) string {
	if len(cards) == 0 {
		return ""
	}
	boxes := make([]string, 0, len(cards))
	for _, c := range cards {
		delta := upStyle
		if c.Direction == domain.DirectionDown {
			delta = downStyle
		}
		boxes = append(boxes, cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			labelStyle.Render(c.Label),
			c.Value,
			delta.Render(c.Delta),
		)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

// renderLatest prints the most recent row of each symbol.
func renderLatest(rows []domain.DerivedRecord) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SYMBOL", "DATE", "CLOSE", "CHANGE", "VOLATILITY 7D").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		t.Row(
			strings.ToUpper(r.Symbol),
			r.Date.Format(domain.DateLayout),
			dataprocessing.FormatUSD(r.Close),
			dataprocessing.FormatDelta(r.ChangePct),
			optional(r.Volatility7d),
		)
	}
	return t.String()
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + "%"
}
