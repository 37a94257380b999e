package dataprocessing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"cryptodash/pkg/contracts/domain"
)

// Banner summarises the full derived table, e.g.
// "Loaded 1,204 price records • Latest: 2024-03-01".
func Banner(rows []domain.DerivedRecord) string {
	count := formatCount(int64(len(rows)))
	_, max, ok := DateSpan(rows)
	if !ok {
		return fmt.Sprintf("Loaded %s price records", count)
	}
	return fmt.Sprintf("Loaded %s price records • Latest: %s", count, max.Format(domain.DateLayout))
}

// Series groups rows into per-coin chart series. Coins appear in first-seen
// order and points keep the row order.
func Series(rows []domain.DerivedRecord) []domain.SymbolSeries {
	index := make(map[string]int)
	var out []domain.SymbolSeries

	for _, r := range rows {
		sym := r.UpperSymbol()
		i, ok := index[sym]
		if !ok {
			i = len(out)
			index[sym] = i
			out = append(out, domain.SymbolSeries{Symbol: sym})
		}

		date := r.Date.Format(domain.DateLayout)
		s := &out[i]
		s.Candles = append(s.Candles, domain.Candle{
			Date:  date,
			Open:  r.Open,
			High:  r.High,
			Low:   r.Low,
			Close: r.Close,
		})
		s.Close = append(s.Close, domain.Point{Date: date, Value: domain.Float(r.Close)})
		s.Volatility7d = append(s.Volatility7d, domain.Point{Date: date, Value: r.Volatility7d})
		s.HighLowRange = append(s.HighLowRange, domain.Point{Date: date, Value: domain.Float(r.HighLowRange)})
	}
	return out
}

// DetailTable renders rows for the detail grid, newest first. Rows sharing a
// date keep their relative order.
func DetailTable(rows []domain.DerivedRecord) []domain.DetailRow {
	sorted := make([]domain.DerivedRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	out := make([]domain.DetailRow, len(sorted))
	for i, r := range sorted {
		out[i] = domain.DetailRow{
			Date:         r.Date.Format(domain.DateLayout),
			Symbol:       r.Symbol,
			Open:         r.Open,
			High:         r.High,
			Low:          r.Low,
			Close:        r.Close,
			ChangePct:    Round2(r.ChangePct),
			Volatility7d: Round2(r.Volatility7d),
		}
	}
	return out
}

// Round2 rounds half away from zero to two decimals. Nil stays nil.
func Round2(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f, _ := decimal.NewFromFloat(*v).Round(2).Float64()
	return &f
}
