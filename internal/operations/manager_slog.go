package operations

import (
	"context"
	"log/slog"
	"time"

	"retailpulse/internal/infrastructure"
)

// logRunStart logs the start of a run
func (m *Manager) logRunStart(ctx context.Context, runID string) {
	m.logger.InfoContext(ctx, "run_start",
		slog.String("run_id", runID),
		slog.Any("steps", m.registry.ListIDs()))
}

// logRunComplete logs the completion of a run
func (m *Manager) logRunComplete(ctx context.Context, resp *RunResponse) {
	attrs := []any{
		slog.String("run_id", resp.RunID),
		slog.String("status", string(resp.Status)),
		slog.Duration("duration", resp.Duration),
		slog.Int("warnings", len(resp.Warnings)),
	}
	if resp.Summary != nil {
		attrs = append(attrs,
			slog.Int("initial_rows", resp.Summary.InitialRows),
			slog.Int("final_rows", resp.Summary.FinalRows),
			slog.Float64("removal_ratio", resp.Summary.RemovalRatio))
	}
	m.logger.InfoContext(ctx, "run_complete", attrs...)
}

// logStepStart logs the start of a step
func (m *Manager) logStepStart(ctx context.Context, runID, stepID string) {
	m.logger.InfoContext(ctx, "step_start",
		slog.String("run_id", runID),
		slog.String("step", stepID))
}

// logStepComplete logs the completion of a step
func (m *Manager) logStepComplete(ctx context.Context, runID, stepID string, duration time.Duration) {
	m.logger.InfoContext(ctx, "step_complete",
		slog.String("run_id", runID),
		slog.String("step", stepID),
		slog.Duration("duration", duration))
}

// logStepError logs a step failure. Failures of non-critical steps are warnings.
func (m *Manager) logStepError(ctx context.Context, runID string, step Step, err error) {
	level := slog.LevelWarn
	if step.Critical() {
		level = slog.LevelError
	}
	infrastructure.WithError(m.logger, err).Log(ctx, level, "step_error",
		slog.String("run_id", runID),
		slog.String("step", step.ID()),
		slog.Bool("critical", step.Critical()))
}

// logStepSkipped logs a step that did not run
func (m *Manager) logStepSkipped(ctx context.Context, runID, stepID, reason string) {
	m.logger.WarnContext(ctx, "step_skipped",
		slog.String("run_id", runID),
		slog.String("step", stepID),
		slog.String("reason", reason))
}
