package operations

import (
	"context"
	"errors"
	"fmt"

	"retailpulse/internal/dataprocessing"
	"retailpulse/internal/extractor"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/storage"
	"retailpulse/internal/table"
)

// WorkbookWriter exports gold tables as one report file
type WorkbookWriter interface {
	Export(ctx context.Context, tables []storage.NamedTable) (string, error)
}

// ExtractStep acquires the raw dataset
type ExtractStep struct {
	BaseStep
	extractor extractor.Extractor
	metrics   *infrastructure.PipelineMetrics
}

// NewExtractStep creates the extraction step
func NewExtractStep(e extractor.Extractor, metrics *infrastructure.PipelineMetrics) *ExtractStep {
	return &ExtractStep{
		BaseStep:  NewBaseStep(StepIDExtract, StepNameExtract, true),
		extractor: e,
		metrics:   metrics,
	}
}

// Execute extracts the raw table into the run state
func (s *ExtractStep) Execute(ctx context.Context, state *RunState) error {
	raw, err := s.extractor.Extract(ctx)
	if err != nil {
		return err
	}
	state.Raw = raw
	state.Step(s.ID()).SetMetadata("rows", raw.Len())
	s.metrics.RecordRows(ctx, string(storage.Bronze), TableRawSales, raw.Len())
	return nil
}

// LayerWriteStep persists one table of the run to a layer
type LayerWriteStep struct {
	BaseStep
	store   storage.TableStore
	layer   storage.Layer
	table   string
	source  func(*RunState) *table.Table
	metrics *infrastructure.PipelineMetrics
}

// NewBronzeStep persists the raw table unchanged
func NewBronzeStep(store storage.TableStore, metrics *infrastructure.PipelineMetrics) *LayerWriteStep {
	return &LayerWriteStep{
		BaseStep: NewBaseStep(StepIDBronze, StepNameBronze, false),
		store:    store,
		layer:    storage.Bronze,
		table:    TableRawSales,
		source:   func(s *RunState) *table.Table { return s.Raw },
		metrics:  metrics,
	}
}

// NewSilverStep persists the validated table
func NewSilverStep(store storage.TableStore, metrics *infrastructure.PipelineMetrics) *LayerWriteStep {
	return &LayerWriteStep{
		BaseStep: NewBaseStep(StepIDSilver, StepNameSilver, false),
		store:    store,
		layer:    storage.Silver,
		table:    TableValidatedSales,
		source: func(s *RunState) *table.Table {
			if s.Cleaned == nil {
				return nil
			}
			return s.Cleaned.Table
		},
		metrics: metrics,
	}
}

// Execute writes the table
func (s *LayerWriteStep) Execute(ctx context.Context, state *RunState) error {
	t := s.source(state)
	if t == nil {
		return fmt.Errorf("no %s table to persist", s.layer)
	}
	loc, err := s.store.Write(ctx, t, s.layer, s.table)
	if err != nil {
		s.metrics.RecordStorageFailure(ctx, string(s.layer))
		return err
	}
	state.SetLocation(locationKey(string(s.layer), s.table), loc)
	state.Step(s.ID()).SetMetadata("location", loc)
	return nil
}

// CleanStep builds the validated table
type CleanStep struct {
	BaseStep
	cleaner *dataprocessing.Cleaner
	metrics *infrastructure.PipelineMetrics
}

// NewCleanStep creates the cleaning step
func NewCleanStep(c *dataprocessing.Cleaner, metrics *infrastructure.PipelineMetrics) *CleanStep {
	return &CleanStep{
		BaseStep: NewBaseStep(StepIDClean, StepNameClean, true),
		cleaner:  c,
		metrics:  metrics,
	}
}

// Execute cleans the raw table. A schema error aborts the run.
func (s *CleanStep) Execute(ctx context.Context, state *RunState) error {
	if state.Raw == nil {
		return fmt.Errorf("no raw table to clean")
	}
	result, err := s.cleaner.Clean(ctx, state.Raw)
	if err != nil {
		return err
	}
	state.Cleaned = result

	for _, m := range result.Quality.Metrics() {
		s.metrics.RecordQualityIssue(ctx, m.Name, m.Value)
	}
	for _, st := range result.Summary.Stages {
		s.metrics.RecordRemoved(ctx, st.Stage, st.RowsIn-st.RowsOut)
	}
	s.metrics.RecordRows(ctx, string(storage.Silver), TableValidatedSales, result.Table.Len())

	step := state.Step(s.ID())
	step.SetMetadata("rows_in", result.Summary.InitialRows)
	step.SetMetadata("rows_out", result.Summary.FinalRows)
	step.SetMetadata("invalid_timestamps", result.Summary.InvalidTimestamps)
	return nil
}

// AggregateStep computes the gold views
type AggregateStep struct {
	BaseStep
	engine  *dataprocessing.Engine
	metrics *infrastructure.PipelineMetrics
}

// NewAggregateStep creates the aggregation step
func NewAggregateStep(e *dataprocessing.Engine, metrics *infrastructure.PipelineMetrics) *AggregateStep {
	return &AggregateStep{
		BaseStep: NewBaseStep(StepIDAggregate, StepNameAggregate, true),
		engine:   e,
		metrics:  metrics,
	}
}

// Execute runs every aggregator. Failed views become warnings.
func (s *AggregateStep) Execute(ctx context.Context, state *RunState) error {
	if state.Cleaned == nil {
		return fmt.Errorf("no validated table to aggregate")
	}
	result := s.engine.Run(ctx, state.Cleaned.Table)
	state.Gold = result

	for _, name := range result.Names() {
		if err, failed := result.Errors[name]; failed {
			s.metrics.RecordViewFailure(ctx, name)
			state.AddWarning(err.Error())
			continue
		}
		s.metrics.RecordRows(ctx, string(storage.Gold), name, result.Tables[name].Len())
	}
	state.Step(s.ID()).SetMetadata("views", len(result.Available()))
	return ctx.Err()
}

// GoldStep persists every computed gold view and optionally the workbook
type GoldStep struct {
	BaseStep
	store    storage.TableStore
	workbook WorkbookWriter
	metrics  *infrastructure.PipelineMetrics
}

// NewGoldStep creates the gold step. A nil workbook writer disables the report.
func NewGoldStep(store storage.TableStore, workbook WorkbookWriter, metrics *infrastructure.PipelineMetrics) *GoldStep {
	return &GoldStep{
		BaseStep: NewBaseStep(StepIDGold, StepNameGold, false),
		store:    store,
		workbook: workbook,
		metrics:  metrics,
	}
}

// Execute writes each available view. Every failed write is reported; the
// remaining views are still written.
func (s *GoldStep) Execute(ctx context.Context, state *RunState) error {
	if state.Gold == nil {
		return fmt.Errorf("no gold views to persist")
	}

	var errs []error
	var named []storage.NamedTable
	written := 0
	for _, name := range state.Gold.Names() {
		t := state.Gold.Tables[name]
		if t == nil {
			continue
		}
		named = append(named, storage.NamedTable{Name: name, Table: t})
		loc, err := s.store.Write(ctx, t, storage.Gold, name)
		if err != nil {
			s.metrics.RecordStorageFailure(ctx, string(storage.Gold))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		state.SetLocation(locationKey(string(storage.Gold), name), loc)
		written++
	}

	if s.workbook != nil && len(named) > 0 {
		path, err := s.workbook.Export(ctx, named)
		if err != nil {
			s.metrics.RecordStorageFailure(ctx, "report")
			errs = append(errs, fmt.Errorf("workbook: %w", err))
		} else {
			state.SetReport(path)
			state.Step(s.ID()).SetMetadata("report", path)
		}
	}
	state.Step(s.ID()).SetMetadata("written", written)
	return errors.Join(errs...)
}
