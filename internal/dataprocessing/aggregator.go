package dataprocessing

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cryptodash/pkg/contracts/domain"
)

// DefaultCardLimit is how many metric cards the dashboard shows.
const DefaultCardLimit = 4

var englishPrinter = message.NewPrinter(language.English)

// Latest returns the last row of each symbol group. rows must already be in
// date order. Groups are keyed by the symbol as written and returned in
// ascending key order.
func Latest(rows []domain.DerivedRecord) []domain.DerivedRecord {
	last := make(map[string]domain.DerivedRecord)
	for _, r := range rows {
		last[r.Symbol] = r
	}

	keys := make([]string, 0, len(last))
	for k := range last {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.DerivedRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, last[k])
	}
	return out
}

// MetricCards builds headline cards for the first limit entries of latest.
// A limit <= 0 means no cap.
func MetricCards(latest []domain.DerivedRecord, limit int) []domain.MetricCard {
	if limit > 0 && len(latest) > limit {
		latest = latest[:limit]
	}

	cards := make([]domain.MetricCard, 0, len(latest))
	for _, r := range latest {
		card := domain.MetricCard{
			Label:     r.UpperSymbol(),
			Close:     r.Close,
			Value:     FormatUSD(r.Close),
			ChangePct: r.ChangePct,
			Delta:     FormatDelta(r.ChangePct),
			Direction: domain.DirectionDown,
			Date:      r.Date.Format(domain.DateLayout),
		}
		// An undefined change is not ">= 0" and shows as down.
		if r.ChangePct != nil && *r.ChangePct >= 0 {
			card.Direction = domain.DirectionUp
		}
		cards = append(cards, card)
	}
	return cards
}

// FormatUSD renders a price as whole dollars with thousands separators,
// e.g. 43250.6 -> "$43,251".
func FormatUSD(v float64) string {
	n := decimal.NewFromFloat(v).Round(0).IntPart()
	if n < 0 {
		return "-$" + formatCount(-n)
	}
	return "$" + formatCount(n)
}

// FormatDelta renders a change as a signed percentage with two decimals.
// Undefined changes render as "n/a".
func FormatDelta(pct *float64) string {
	if pct == nil {
		return "n/a"
	}
	d := decimal.NewFromFloat(*pct).Round(2)
	s := d.StringFixed(2)
	if !d.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}

// formatCount renders n with English thousands separators.
func formatCount(n int64) string {
	return englishPrinter.Sprintf("%d", n)
}
