package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/internal/config"
	"retailpulse/internal/errors"
	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

// Cleaning stage names, in execution order.
const (
	StageRemoveDuplicates      = "remove_duplicates"
	StageDropMissingCustomer   = "drop_missing_customer"
	StageFilterQuantityPrice   = "filter_quantity_price"
	StageTotalPrice            = "compute_total_price"
	StageParseTimestamp        = "parse_timestamp"
	StageDropInvalidTimestamps = "drop_invalid_timestamps"
	StageTimeParts             = "derive_time_parts"
	StageNormalizeText         = "normalize_text"
	StageCoerceCustomerID      = "coerce_customer_id"
)

// CleanerConfig holds the row filter thresholds. Prices are inclusive bounds,
// quantities must be strictly greater than MinQuantity.
type CleanerConfig struct {
	MinQuantity           int64
	MinUnitPrice          decimal.Decimal
	MaxUnitPrice          decimal.Decimal
	DropInvalidTimestamps bool
}

// DefaultCleanerConfig returns the thresholds of the default configuration.
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfigFrom(config.Default().Cleaning)
}

// CleanerConfigFrom converts the cleaning section of the application config.
func CleanerConfigFrom(c config.CleaningConfig) CleanerConfig {
	return CleanerConfig{
		MinQuantity:           c.MinQuantity,
		MinUnitPrice:          decimal.NewFromFloat(c.MinUnitPrice),
		MaxUnitPrice:          decimal.NewFromFloat(c.MaxUnitPrice),
		DropInvalidTimestamps: c.DropInvalidTimestamps,
	}
}

// CleanResult is the output of one cleaning run.
type CleanResult struct {
	Table   *table.Table
	Summary domain.TransformSummary
	Quality domain.QualityReport
}

// stage is one step of the ordered cleaning chain. Each stage receives the
// previous stage's table and returns a new one.
type stage struct {
	name  string
	apply func(*cleanRun, *table.Table) (*table.Table, error)
}

// cleanRun carries per-run state shared by the stages.
type cleanRun struct {
	cfg               CleanerConfig
	invalidTimestamps int
}

// Cleaner turns a raw table into the validated table through an ordered list
// of filter and derivation stages.
type Cleaner struct {
	cfg       CleanerConfig
	validator *QualityValidator
	logger    *slog.Logger
}

// NewCleaner creates a cleaner with the given thresholds.
func NewCleaner(cfg CleanerConfig, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		cfg:       cfg,
		validator: NewQualityValidator(logger),
		logger:    logger.With(slog.String("component", "cleaner")),
	}
}

func (c *Cleaner) stages() []stage {
	stages := []stage{
		{StageRemoveDuplicates, removeDuplicates},
		{StageDropMissingCustomer, dropMissingCustomer},
		{StageFilterQuantityPrice, filterQuantityPrice},
		{StageTotalPrice, computeTotalPrice},
		{StageParseTimestamp, parseTimestamps},
	}
	if c.cfg.DropInvalidTimestamps {
		stages = append(stages, stage{StageDropInvalidTimestamps, dropInvalidTimestamps})
	}
	return append(stages,
		stage{StageTimeParts, deriveTimeParts},
		stage{StageNormalizeText, normalizeText},
		stage{StageCoerceCustomerID, coerceCustomerID},
	)
}

// Clean assesses raw, then runs the cleaning stages in order. It fails with a
// *errors.SchemaError when a contract column is absent. raw is not modified.
func (c *Cleaner) Clean(ctx context.Context, raw *table.Table) (*CleanResult, error) {
	if missing := raw.MissingColumns(domain.RawColumns...); len(missing) > 0 {
		c.logger.ErrorContext(ctx, "raw table is missing required columns",
			slog.Any("missing", missing))
		return nil, errors.NewSchemaError(missing...)
	}

	quality := c.validator.Assess(ctx, raw)

	run := &cleanRun{cfg: c.cfg}
	initial := raw.Len()
	summary := domain.TransformSummary{InitialRows: initial}

	current := raw
	for _, s := range c.stages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := current.Len()
		next, err := s.apply(run, current)
		if err != nil {
			return nil, fmt.Errorf("cleaning stage %s: %w", s.name, err)
		}
		current = next
		summary.Stages = append(summary.Stages, domain.StageCount{
			Stage:             s.name,
			RowsIn:            in,
			RowsOut:           current.Len(),
			CumulativeRemoved: initial - current.Len(),
		})
		c.logger.DebugContext(ctx, "cleaning stage done",
			slog.String("stage", s.name),
			slog.Int("rows_in", in),
			slog.Int("rows_out", current.Len()))
	}

	summary.FinalRows = current.Len()
	summary.RowsRemoved = initial - current.Len()
	if initial > 0 {
		summary.RemovalRatio = float64(summary.RowsRemoved) / float64(initial)
	}
	summary.InvalidTimestamps = run.invalidTimestamps

	if run.invalidTimestamps > 0 {
		c.logger.WarnContext(ctx, "rows with unparsable invoice timestamps",
			slog.Int("count", run.invalidTimestamps),
			slog.Bool("dropped", c.cfg.DropInvalidTimestamps))
	}
	c.logger.InfoContext(ctx, "cleaning complete",
		slog.Int("initial_rows", summary.InitialRows),
		slog.Int("final_rows", summary.FinalRows),
		slog.Int("rows_removed", summary.RowsRemoved),
		slog.Float64("removal_ratio", summary.RemovalRatio))

	return &CleanResult{Table: current, Summary: summary, Quality: quality}, nil
}

func removeDuplicates(_ *cleanRun, t *table.Table) (*table.Table, error) {
	seen := make(map[string]struct{}, t.Len())
	return t.Filter(func(i int) bool {
		k := t.RowKey(i)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	}), nil
}

// dropMissingCustomer keeps rows whose customer id is present and numeric.
func dropMissingCustomer(_ *cleanRun, t *table.Table) (*table.Table, error) {
	return t.Filter(func(i int) bool {
		_, ok := table.ToInt(t.Value(domain.ColCustomerID, i))
		return ok
	}), nil
}

// filterQuantityPrice applies quantity > min AND min <= price <= max in one
// pass. Quantities are converted to int64 and prices to decimals.
func filterQuantityPrice(run *cleanRun, t *table.Table) (*table.Table, error) {
	n := t.Len()
	qty := make([]any, n)
	price := make([]any, n)

	out := t.Filter(func(i int) bool {
		q, ok := table.ToFloat(t.Value(domain.ColQuantity, i))
		if !ok || q != math.Trunc(q) || int64(q) <= run.cfg.MinQuantity {
			return false
		}
		p, ok := table.ToDecimal(t.Value(domain.ColUnitPrice, i))
		if !ok || p.LessThan(run.cfg.MinUnitPrice) || p.GreaterThan(run.cfg.MaxUnitPrice) {
			return false
		}
		qty[i] = int64(q)
		price[i] = p
		return true
	})

	kept := make([]int, 0, out.Len())
	for i := 0; i < n; i++ {
		if qty[i] != nil {
			kept = append(kept, i)
		}
	}
	if err := out.SetColumn(domain.ColQuantity, pick(qty, kept)); err != nil {
		return nil, err
	}
	if err := out.SetColumn(domain.ColUnitPrice, pick(price, kept)); err != nil {
		return nil, err
	}
	return out, nil
}

func pick(values []any, indices []int) []any {
	out := make([]any, len(indices))
	for k, i := range indices {
		out[k] = values[i]
	}
	return out
}

// computeTotalPrice adds totalPrice = quantity * unitPrice as an exact decimal.
func computeTotalPrice(_ *cleanRun, t *table.Table) (*table.Table, error) {
	total := make([]any, t.Len())
	for i := range total {
		q, _ := t.Value(domain.ColQuantity, i).(int64)
		p, _ := t.Value(domain.ColUnitPrice, i).(decimal.Decimal)
		total[i] = p.Mul(decimal.NewFromInt(q))
	}
	out := t.Clone()
	return out, out.SetColumn(domain.ColTotalPrice, total)
}

// parseTimestamps replaces the timestamp column with time values; unparsable
// cells become null and are counted.
func parseTimestamps(run *cleanRun, t *table.Table) (*table.Table, error) {
	parsed := make([]any, t.Len())
	for i := range parsed {
		if ts, ok := ParseTimestamp(t.Value(domain.ColInvoiceTimestamp, i)); ok {
			parsed[i] = ts
			continue
		}
		run.invalidTimestamps++
	}
	out := t.Clone()
	return out, out.SetColumn(domain.ColInvoiceTimestamp, parsed)
}

func dropInvalidTimestamps(_ *cleanRun, t *table.Table) (*table.Table, error) {
	return t.Filter(func(i int) bool {
		return t.Value(domain.ColInvoiceTimestamp, i) != nil
	}), nil
}

// deriveTimeParts adds year, month, dayOfWeek (Monday=0) and hour. Rows
// without a timestamp get nulls.
func deriveTimeParts(_ *cleanRun, t *table.Table) (*table.Table, error) {
	n := t.Len()
	year, month, dow, hour := make([]any, n), make([]any, n), make([]any, n), make([]any, n)
	for i := 0; i < n; i++ {
		ts, ok := t.Value(domain.ColInvoiceTimestamp, i).(time.Time)
		if !ok {
			continue
		}
		year[i] = int64(ts.Year())
		month[i] = int64(ts.Month())
		dow[i] = int64((ts.Weekday() + 6) % 7)
		hour[i] = int64(ts.Hour())
	}

	out := t.Clone()
	parts := []struct {
		name   string
		values []any
	}{
		{domain.ColYear, year},
		{domain.ColMonth, month},
		{domain.ColDayOfWeek, dow},
		{domain.ColHour, hour},
	}
	for _, p := range parts {
		if err := out.SetColumn(p.name, p.values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// normalizeText trims and upper-cases description, trims country and turns
// invoice and stock identifiers into trimmed strings. Nulls stay null.
func normalizeText(_ *cleanRun, t *table.Table) (*table.Table, error) {
	out := t.Clone()
	transforms := []struct {
		name string
		fn   func(string) string
	}{
		{domain.ColDescription, func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }},
		{domain.ColCountry, strings.TrimSpace},
		{domain.ColInvoiceID, strings.TrimSpace},
		{domain.ColStockCode, strings.TrimSpace},
	}
	for _, tr := range transforms {
		src, _ := t.Column(tr.name)
		values := make([]any, len(src))
		for i, cell := range src {
			if s, ok := table.ToString(cell); ok {
				values[i] = tr.fn(s)
			}
		}
		if err := out.SetColumn(tr.name, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func coerceCustomerID(_ *cleanRun, t *table.Table) (*table.Table, error) {
	ids := make([]any, t.Len())
	for i := range ids {
		id, ok := table.ToInt(t.Value(domain.ColCustomerID, i))
		if !ok {
			return nil, fmt.Errorf("row %d: customer id %v is not numeric", i, t.Value(domain.ColCustomerID, i))
		}
		ids[i] = id
	}
	out := t.Clone()
	return out, out.SetColumn(domain.ColCustomerID, ids)
}
