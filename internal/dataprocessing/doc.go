// Package dataprocessing implements the dashboard's pure data pipeline over
// crypto OHLC price tables.
//
// # Architecture
//
// A render pass runs the stages in order:
//
// 1. Parser: reads CSV or XLSX tables into domain.PriceRecord values
// 2. Deriver: sorts by date and adds change, rolling volatility, range and typical price
// 3. Filter: narrows the derived table to the selected coins and days
// 4. Aggregator: picks the latest row per coin and builds metric cards
// 5. Views: banner, chart series and the detail table
//
// Every stage returns new slices. Input tables are never modified, so a parsed
// table can be cached and shared between passes.
//
// # Usage
//
//	records, err := dataprocessing.ParseFile("cryptodata.csv")
//	if err != nil {
//	    return err
//	}
//	derived := dataprocessing.NewDeriver(logger, dataprocessing.DefaultDeriverConfig()).Derive(records)
//	sel := dataprocessing.DefaultSelection(derived)
//	filtered, err := dataprocessing.Filter(derived, sel)
//	if errors.Is(err, dataprocessing.ErrEmptyResult) {
//	    // show "No data for selected filters."
//	}
//	cards := dataprocessing.MetricCards(dataprocessing.Latest(filtered), dataprocessing.DefaultCardLimit)
package dataprocessing
