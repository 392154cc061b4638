// Package operations runs the retail ETL pipeline as an ordered list of steps.
//
// The Manager executes Extract, Bronze, Clean, Silver, Aggregate and Gold in
// registration order. Each step has a StepState tracking its status and
// timings. Critical steps (extraction, cleaning, aggregation) abort the run
// when they fail: later steps are marked skipped and Execute returns an
// *OperationError. Storage steps are not critical; their failures become
// warnings on the RunResponse.
//
// Every run gets a UUID run id, one span per step and pipeline metric updates.
//
// Example usage:
//
//	manager := operations.NewManager(operations.Dependencies{
//		Extractor: extractor.New(cfg.Source, logger),
//		Cleaner:   dataprocessing.NewCleaner(dataprocessing.CleanerConfigFrom(cfg.Cleaning), logger),
//		Engine:    dataprocessing.NewEngine(dataprocessing.EngineConfigFrom(cfg.Aggregation), logger),
//		Store:     store,
//		Logger:    logger,
//	})
//	resp, err := manager.Execute(ctx)
package operations
