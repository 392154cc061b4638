package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// PipelineMetrics holds the instruments updated by pipeline runs and the gold API.
// A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	RunsTotal        metric.Int64Counter
	RunDuration      metric.Float64Histogram
	StepDuration     metric.Float64Histogram
	RowsProcessed    metric.Int64Counter
	RowsRemoved      metric.Int64Counter
	QualityIssues    metric.Int64Counter
	ViewFailures     metric.Int64Counter
	StorageFailures  metric.Int64Counter
	HTTPRequests     metric.Int64Counter
	HTTPRequestTimes metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter. A nil meter
// yields no-op instruments.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(InstrumentationName)
	}

	var (
		m   PipelineMetrics
		err error
	)

	if m.RunsTotal, err = meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Total number of pipeline runs")); err != nil {
		return nil, err
	}
	if m.RunDuration, err = meter.Float64Histogram("pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.StepDuration, err = meter.Float64Histogram("pipeline_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.RowsProcessed, err = meter.Int64Counter("pipeline_rows_total",
		metric.WithDescription("Rows written per layer")); err != nil {
		return nil, err
	}
	if m.RowsRemoved, err = meter.Int64Counter("pipeline_rows_removed_total",
		metric.WithDescription("Rows removed per cleaning stage")); err != nil {
		return nil, err
	}
	if m.QualityIssues, err = meter.Int64Counter("pipeline_quality_issues_total",
		metric.WithDescription("Data quality issues found in raw tables")); err != nil {
		return nil, err
	}
	if m.ViewFailures, err = meter.Int64Counter("pipeline_view_failures_total",
		metric.WithDescription("Gold views that could not be computed")); err != nil {
		return nil, err
	}
	if m.StorageFailures, err = meter.Int64Counter("pipeline_storage_failures_total",
		metric.WithDescription("Layer writes that failed")); err != nil {
		return nil, err
	}
	if m.HTTPRequests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestTimes, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordRun records a finished pipeline run
func (m *PipelineMetrics) RecordRun(ctx context.Context, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordStep records a finished pipeline step
func (m *PipelineMetrics) RecordStep(ctx context.Context, step, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", status),
	))
}

// RecordRows records rows written to a layer table
func (m *PipelineMetrics) RecordRows(ctx context.Context, layer, name string, rows int) {
	if m == nil {
		return
	}
	m.RowsProcessed.Add(ctx, int64(rows), metric.WithAttributes(
		attribute.String("layer", layer),
		attribute.String("table", name),
	))
}

// RecordRemoved records rows dropped by a cleaning stage
func (m *PipelineMetrics) RecordRemoved(ctx context.Context, stage string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.RowsRemoved.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordQualityIssue records a non-zero quality metric
func (m *PipelineMetrics) RecordQualityIssue(ctx context.Context, name string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.QualityIssues.Add(ctx, int64(count), metric.WithAttributes(attribute.String("metric", name)))
}

// RecordViewFailure records a gold view that could not be computed
func (m *PipelineMetrics) RecordViewFailure(ctx context.Context, view string) {
	if m == nil {
		return
	}
	m.ViewFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
}

// RecordStorageFailure records a failed layer write
func (m *PipelineMetrics) RecordStorageFailure(ctx context.Context, layer string) {
	if m == nil {
		return
	}
	m.StorageFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordHTTPRequest records one served HTTP request
func (m *PipelineMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.HTTPRequests.Add(ctx, 1, attrs)
	m.HTTPRequestTimes.Record(ctx, d.Seconds(), attrs)
}
