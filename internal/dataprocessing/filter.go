package dataprocessing

import (
	"time"

	"cryptodash/pkg/contracts/domain"
)

// Filter returns the rows whose symbol is selected and whose date falls in the
// selected range. The result is a new slice in input order. An empty result is
// reported as ErrEmptyResult.
func Filter(rows []domain.DerivedRecord, sel domain.FilterSelection) ([]domain.DerivedRecord, error) {
	symbols := sel.SymbolSet()

	out := make([]domain.DerivedRecord, 0, len(rows))
	for _, r := range rows {
		if _, ok := symbols[r.UpperSymbol()]; !ok {
			continue
		}
		if !sel.Range.Contains(r.Date) {
			continue
		}
		out = append(out, r)
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

// Symbols lists the distinct uppercase symbols in first-seen order.
func Symbols(rows []domain.DerivedRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		s := r.UpperSymbol()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// DateSpan returns the earliest and latest day in rows. ok is false for an
// empty table.
func DateSpan(rows []domain.DerivedRecord) (min, max time.Time, ok bool) {
	for i, r := range rows {
		d := r.Day()
		if i == 0 || d.Before(min) {
			min = d
		}
		if i == 0 || d.After(max) {
			max = d
		}
	}
	return min, max, len(rows) > 0
}

// DefaultSelection is the first available coin over the full date span.
func DefaultSelection(rows []domain.DerivedRecord) domain.FilterSelection {
	sel := domain.FilterSelection{}
	if symbols := Symbols(rows); len(symbols) > 0 {
		sel.Symbols = symbols[:1]
	}
	if min, max, ok := DateSpan(rows); ok {
		sel.Range = domain.DateRange{Start: min, End: &max}
	}
	return sel
}

// ResolveSelection fills unset parts of a requested selection from the defaults.
// nil Symbols take the default coin; an explicitly empty list stays empty and
// filters to nothing. A zero Start means no date was requested; a requested
// Start with no End stays open-ended.
func ResolveSelection(rows []domain.DerivedRecord, requested domain.FilterSelection) domain.FilterSelection {
	def := DefaultSelection(rows)
	sel := requested
	if sel.Symbols == nil {
		sel.Symbols = def.Symbols
	}
	if sel.Range.Start.IsZero() && sel.Range.End == nil {
		sel.Range = def.Range
	}
	return sel
}
