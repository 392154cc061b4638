// Package dataprocessing turns raw retail transaction tables into the
// validated (silver) table and the four business-aggregated (gold) views.
//
// # Architecture
//
// The package is organized into three components:
//
// 1. QualityValidator: measures duplicates, missing identifiers, negative
// quantities, zero prices and unparsable timestamps without touching the data
// 2. Cleaner: applies an ordered list of filter and derivation stages
// 3. Engine: runs independent aggregators (sales by country, by month, top
// products, customer segments) and isolates their failures
//
// # Usage
//
//	cleaner := dataprocessing.NewCleaner(dataprocessing.CleanerConfigFrom(cfg.Cleaning), logger)
//	res, err := cleaner.Clean(ctx, raw)
//	if err != nil {
//	    return err // *errors.SchemaError when contract columns are absent
//	}
//
//	engine := dataprocessing.NewEngine(dataprocessing.EngineConfigFrom(cfg.Aggregation), logger)
//	gold := engine.Run(ctx, res.Table)
//	for name, t := range gold.Tables {
//	    // t is nil when gold.Errors[name] is set
//	}
//
// # Data Flow
//
//	raw table → QualityValidator → Cleaner → validated table → Engine → gold views
//
// # Error Handling
//
// A missing contract column is fatal for cleaning. Row-level problems are
// never errors: they are filtered and counted. A failing aggregator yields an
// *errors.AggregationError for its view only.
package dataprocessing
