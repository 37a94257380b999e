package dataprocessing

import (
	"fmt"
	"log/slog"
	"sort"

	"cryptodash/pkg/contracts/domain"
)

// RollingScope decides which rows are neighbours when computing change and
// volatility.
type RollingScope string

const (
	// ScopeGlobal chains every row of the date-sorted table, whatever its coin.
	ScopeGlobal RollingScope = "global"
	// ScopePerSymbol chains rows of the same coin only.
	ScopePerSymbol RollingScope = "per_symbol"
)

// Valid reports whether s is a known scope.
func (s RollingScope) Valid() bool {
	return s == ScopeGlobal || s == ScopePerSymbol
}

// DeriverConfig holds options for the Deriver.
type DeriverConfig struct {
	Scope            RollingScope
	VolatilityWindow int
}

// DefaultDeriverConfig returns the dashboard defaults: global scope, seven rows.
func DefaultDeriverConfig() DeriverConfig {
	return DeriverConfig{
		Scope:            ScopeGlobal,
		VolatilityWindow: 7,
	}
}

// Deriver turns loaded price records into DerivedRecords.
type Deriver struct {
	logger *slog.Logger
	config DeriverConfig
}

// NewDeriver creates a Deriver. Zero config fields fall back to defaults.
func NewDeriver(logger *slog.Logger, config DeriverConfig) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultDeriverConfig()
	if !config.Scope.Valid() {
		config.Scope = defaults.Scope
	}
	if config.VolatilityWindow < 2 {
		config.VolatilityWindow = defaults.VolatilityWindow
	}
	return &Deriver{
		logger: logger.With(slog.String("component", "deriver")),
		config: config,
	}
}

// Config returns the effective configuration.
func (d *Deriver) Config() DeriverConfig {
	return d.config
}

// Derive sorts a copy of records by date (ties keep input order) and fills in
// the analytic fields. The input slice is not modified.
func (d *Deriver) Derive(records []domain.PriceRecord) []domain.DerivedRecord {
	out := make([]domain.DerivedRecord, len(records))
	for i, rec := range records {
		out[i] = domain.DerivedRecord{
			PriceRecord:  rec,
			HighLowRange: rec.High - rec.Low,
			TypicalPrice: (rec.High + rec.Low + rec.Close) / 3,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	for _, idx := range d.chains(out) {
		changes := make([]*float64, len(idx))
		for k := 1; k < len(idx); k++ {
			if pct, err := PercentChange(out[idx[k-1]].Close, out[idx[k]].Close); err == nil {
				changes[k] = &pct
			}
		}
		vols := RollingStdDev(changes, d.config.VolatilityWindow)
		for k, i := range idx {
			out[i].ChangePct = changes[k]
			out[i].Volatility7d = vols[k]
		}
	}

	d.logger.Debug("derived metrics",
		slog.Int("records", len(out)),
		slog.String("scope", string(d.config.Scope)))

	return out
}

// chains returns index lists into rows; each list is one change/volatility
// sequence in date order.
func (d *Deriver) chains(rows []domain.DerivedRecord) [][]int {
	if d.config.Scope == ScopeGlobal {
		all := make([]int, len(rows))
		for i := range rows {
			all[i] = i
		}
		return [][]int{all}
	}

	var order []string
	groups := make(map[string][]int)
	for i, r := range rows {
		key := r.UpperSymbol()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	out := make([][]int, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out
}

// ParseRollingScope converts a configuration value into a RollingScope.
func ParseRollingScope(s string) (RollingScope, error) {
	scope := RollingScope(s)
	if !scope.Valid() {
		return "", fmt.Errorf("unknown rolling scope %q", s)
	}
	return scope, nil
}
