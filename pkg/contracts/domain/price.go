package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for filters, exports and display.
const DateLayout = "2006-01-02"

// PriceRecord is one row of the input table: the OHLC summary of a coin for a
// single trading period. Prices are USD.
//
// The usual OHLC ordering (low <= open, close <= high) is expected but never
// enforced; rows are passed through as supplied.
type PriceRecord struct {
	// CoinID is the optional long-form identifier (e.g. "bitcoin").
	CoinID string `json:"coin_id" csv:"coin_id"`

	// Symbol is the ticker (e.g. "btc"). Matching is case-insensitive.
	Symbol string `json:"symbol" csv:"symbol" validate:"required"`

	// Timestamp is the raw timestamp column. It is carried through to exports
	// but no metric depends on it.
	Timestamp string `json:"timestamp" csv:"timestamp"`

	// Date is the primary sort and filter key.
	Date time.Time `json:"date" csv:"date" validate:"required"`

	Open  float64 `json:"open" csv:"open" validate:"min=0"`
	High  float64 `json:"high" csv:"high" validate:"min=0"`
	Low   float64 `json:"low" csv:"low" validate:"min=0"`
	Close float64 `json:"close" csv:"close" validate:"min=0"`
}

// UpperSymbol returns the symbol in the canonical form used for matching.
func (r PriceRecord) UpperSymbol() string {
	return strings.ToUpper(strings.TrimSpace(r.Symbol))
}

// Day returns the date truncated to midnight UTC. Filters compare days only.
func (r PriceRecord) Day() time.Time {
	return TruncateDay(r.Date)
}

// DerivedRecord is a PriceRecord extended with the analytic fields computed by
// the metric deriver. Nil pointers mean "undefined" (not enough history).
type DerivedRecord struct {
	PriceRecord

	// ChangePct is the percent change of Close against the preceding record.
	ChangePct *float64 `json:"change_pct"`

	// Volatility7d is the sample standard deviation of the trailing seven
	// ChangePct values, expressed in percent.
	Volatility7d *float64 `json:"volatility_7d"`

	// HighLowRange is High - Low.
	HighLowRange float64 `json:"high_low_range"`

	// TypicalPrice is (High + Low + Close) / 3.
	TypicalPrice float64 `json:"typical_price"`
}

// DateRange is an inclusive range of calendar days. A nil End leaves the
// upper bound unconstrained.
type DateRange struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Contains reports whether the day of t falls inside the range.
func (dr DateRange) Contains(t time.Time) bool {
	day := TruncateDay(t)
	if day.Before(TruncateDay(dr.Start)) {
		return false
	}
	if dr.End == nil {
		return true
	}
	return !day.After(TruncateDay(*dr.End))
}

// FilterSelection is the user's choice of coins and dates for one render pass.
// nil Symbols means no choice was made; an empty non-nil slice selects no coin.
type FilterSelection struct {
	Symbols []string  `json:"symbols"`
	Range   DateRange `json:"range"`
}

// SymbolSet returns the selected symbols uppercased, as a lookup set.
func (f FilterSelection) SymbolSet() map[string]struct{} {
	set := make(map[string]struct{}, len(f.Symbols))
	for _, s := range f.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

// TruncateDay drops the time-of-day portion, keeping the calendar date as
// written in t's own location.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Float returns a pointer to v. Handy for building DerivedRecords in tests
// and fixtures.
func Float(v float64) *float64 {
	return &v
}
