package dataprocessing

import (
	"context"
	"log/slog"
	"strings"

	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

// QualityValidator measures data-quality problems of a raw table without
// modifying it.
type QualityValidator struct {
	logger *slog.Logger
}

// NewQualityValidator creates a validator that logs non-zero metrics to logger.
func NewQualityValidator(logger *slog.Logger) *QualityValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &QualityValidator{logger: logger.With(slog.String("component", "quality_validator"))}
}

// Assess computes the quality report of raw. It never fails: a metric whose
// column is absent is reported as the full row count.
func (v *QualityValidator) Assess(ctx context.Context, raw *table.Table) domain.QualityReport {
	n := raw.Len()
	report := domain.QualityReport{
		TotalRows:        n,
		Duplicates:       countDuplicates(raw),
		MissingInvoice:   countColumn(raw, domain.ColInvoiceID, isMissing),
		MissingCustomer:  countColumn(raw, domain.ColCustomerID, isMissing),
		NegativeQuantity: countColumn(raw, domain.ColQuantity, isNegative),
		ZeroPrice:        countColumn(raw, domain.ColUnitPrice, isZero),
		InvalidDates: countColumn(raw, domain.ColInvoiceTimestamp, func(cell any) bool {
			_, ok := ParseTimestamp(cell)
			return !ok
		}),
	}

	v.logger.InfoContext(ctx, "data quality assessed", slog.Int("total_rows", n))
	for _, m := range report.Metrics() {
		if m.Value == 0 {
			continue
		}
		v.logger.WarnContext(ctx, "data quality issue",
			slog.String("metric", m.Name),
			slog.Int("count", m.Value),
			slog.Float64("percent", report.Percent(m.Value)))
	}

	return report
}

// countDuplicates counts rows equal to an earlier row.
func countDuplicates(t *table.Table) int {
	seen := make(map[string]struct{}, t.Len())
	dups := 0
	for i := 0; i < t.Len(); i++ {
		k := t.RowKey(i)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

func countColumn(t *table.Table, name string, match func(any) bool) int {
	values, ok := t.Column(name)
	if !ok {
		return t.Len()
	}
	count := 0
	for _, cell := range values {
		if match(cell) {
			count++
		}
	}
	return count
}

func isMissing(cell any) bool {
	if s, ok := cell.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	_, ok := table.ToString(cell)
	return !ok
}

func isNegative(cell any) bool {
	f, ok := table.ToFloat(cell)
	return ok && f < 0
}

func isZero(cell any) bool {
	f, ok := table.ToFloat(cell)
	return ok && f == 0
}
