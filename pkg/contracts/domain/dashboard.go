package domain

import "time"

// DatasetInfo describes a loaded and derived table.
type DatasetInfo struct {
	Source      string    `json:"source"`
	RecordCount int       `json:"record_count"`
	Symbols     []string  `json:"symbols"`
	MinDate     time.Time `json:"min_date"`
	MaxDate     time.Time `json:"max_date"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Direction of the latest change shown on a metric card.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// MetricCard is a headline figure for one coin: latest close and change.
type MetricCard struct {
	Label     string    `json:"label"`
	Close     float64   `json:"close"`
	Value     string    `json:"value"`
	ChangePct *float64  `json:"change_pct"`
	Delta     string    `json:"delta"`
	Direction Direction `json:"direction"`
	Date      string    `json:"date"`
}

// DetailRow is one line of the detail table. Percentages are rounded to two
// decimal places.
type DetailRow struct {
	Date         string   `json:"date"`
	Symbol       string   `json:"symbol"`
	Open         float64  `json:"open"`
	High         float64  `json:"high"`
	Low          float64  `json:"low"`
	Close        float64  `json:"close"`
	ChangePct    *float64 `json:"change_pct"`
	Volatility7d *float64 `json:"volatility_7d"`
}

// Candle is one OHLC point of a candlestick series.
type Candle struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Point is one (date, value) sample of a line or bar series. A nil Value is a
// gap in the series.
type Point struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// SymbolSeries groups chart data for a single coin.
type SymbolSeries struct {
	Symbol       string   `json:"symbol"`
	Candles      []Candle `json:"candles"`
	Close        []Point  `json:"close"`
	Volatility7d []Point  `json:"volatility_7d"`
	HighLowRange []Point  `json:"high_low_range"`
}

// DashboardView is everything the presentation layer needs for one pass.
type DashboardView struct {
	Banner      string          `json:"banner"`
	Dataset     DatasetInfo     `json:"dataset"`
	Selection   FilterSelection `json:"selection"`
	RecordCount int             `json:"record_count"`
	Cards       []MetricCard    `json:"cards"`
	Latest      []DerivedRecord `json:"latest"`
	Series      []SymbolSeries  `json:"series"`
	Table       []DetailRow     `json:"table"`
}
