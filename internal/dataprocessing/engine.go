package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"retailpulse/internal/config"
	"retailpulse/internal/errors"
	"retailpulse/internal/table"
)

// Aggregator computes one gold view from the validated table. Implementations
// must treat the input as read-only.
type Aggregator interface {
	Name() string
	Aggregate(ctx context.Context, validated *table.Table) (*table.Table, error)
}

// AggregatorFunc adapts a function to the Aggregator interface.
type AggregatorFunc struct {
	View string
	Fn   func(ctx context.Context, validated *table.Table) (*table.Table, error)
}

// Name returns the view name
func (f AggregatorFunc) Name() string { return f.View }

// Aggregate calls Fn
func (f AggregatorFunc) Aggregate(ctx context.Context, validated *table.Table) (*table.Table, error) {
	return f.Fn(ctx, validated)
}

// DefaultAggregators returns the four gold view aggregators in canonical order.
func DefaultAggregators(topProducts int) []Aggregator {
	return []Aggregator{
		countryAggregator{},
		periodAggregator{},
		productAggregator{topN: topProducts},
		segmentAggregator{},
	}
}

// EngineConfig controls how aggregators are scheduled.
type EngineConfig struct {
	TopProducts    int
	Parallel       bool
	MaxConcurrency int
}

// EngineConfigFrom converts the aggregation section of the application config.
func EngineConfigFrom(c config.AggregationConfig) EngineConfig {
	return EngineConfig{
		TopProducts:    c.TopProducts,
		Parallel:       c.Parallel,
		MaxConcurrency: c.MaxConcurrency,
	}
}

// AggregationResult maps every view name to its table. A failed view maps to
// a nil table and has an entry in Errors.
type AggregationResult struct {
	Tables map[string]*table.Table
	Errors map[string]error
	order  []string
}

// Names returns the view names in aggregator order.
func (r *AggregationResult) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Available returns the names of the views that were computed.
func (r *AggregationResult) Available() []string {
	var out []string
	for _, name := range r.order {
		if r.Tables[name] != nil {
			out = append(out, name)
		}
	}
	return out
}

// Engine runs independent aggregators over one validated table. A failing
// aggregator never affects its siblings.
type Engine struct {
	cfg         EngineConfig
	aggregators []Aggregator
	logger      *slog.Logger
}

// NewEngine creates an engine. Without explicit aggregators it runs
// DefaultAggregators(cfg.TopProducts).
func NewEngine(cfg EngineConfig, logger *slog.Logger, aggregators ...Aggregator) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if len(aggregators) == 0 {
		aggregators = DefaultAggregators(cfg.TopProducts)
	}
	return &Engine{
		cfg:         cfg,
		aggregators: aggregators,
		logger:      logger.With(slog.String("component", "aggregation_engine")),
	}
}

// Run executes every aggregator and returns once all of them finished.
func (e *Engine) Run(ctx context.Context, validated *table.Table) *AggregationResult {
	result := &AggregationResult{
		Tables: make(map[string]*table.Table, len(e.aggregators)),
		Errors: make(map[string]error),
	}
	for _, agg := range e.aggregators {
		result.order = append(result.order, agg.Name())
		result.Tables[agg.Name()] = nil
	}

	var mu sync.Mutex
	record := func(name string, t *table.Table, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Errors[name] = err
			return
		}
		result.Tables[name] = t
	}

	g := new(errgroup.Group)
	if e.cfg.Parallel {
		g.SetLimit(e.cfg.MaxConcurrency)
	} else {
		g.SetLimit(1)
	}

	for _, agg := range e.aggregators {
		agg := agg
		g.Go(func() error {
			t, err := e.runOne(ctx, agg, validated)
			record(agg.Name(), t, err)
			return nil
		})
	}
	_ = g.Wait()

	e.logger.InfoContext(ctx, "aggregation complete",
		slog.Int("views", len(result.order)),
		slog.Int("available", len(result.Available())),
		slog.Int("failed", len(result.Errors)))
	return result
}

// runOne executes one aggregator, converting errors and panics into an
// *errors.AggregationError.
func (e *Engine) runOne(ctx context.Context, agg Aggregator, validated *table.Table) (t *table.Table, err error) {
	name := agg.Name()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			t, err = nil, errors.NewAggregationError(name, fmt.Errorf("panic: %v", rec))
		}
		if err != nil {
			e.logger.ErrorContext(ctx, "gold view failed",
				slog.String("view", name),
				slog.String("error", err.Error()))
			return
		}
		e.logger.InfoContext(ctx, "gold view computed",
			slog.String("view", name),
			slog.Int("rows", t.Len()),
			slog.Duration("duration", time.Since(start)))
	}()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewAggregationError(name, err)
	}
	out, aggErr := agg.Aggregate(ctx, validated)
	if aggErr != nil {
		return nil, errors.NewAggregationError(name, aggErr)
	}
	if out == nil {
		return nil, errors.NewAggregationError(name, fmt.Errorf("aggregator returned no table"))
	}
	return out, nil
}
