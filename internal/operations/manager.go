package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"retailpulse/internal/dataprocessing"
	"retailpulse/internal/extractor"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/storage"
)

// Dependencies are the collaborators of a Manager. Exporter is optional.
type Dependencies struct {
	Extractor extractor.Extractor
	Cleaner   *dataprocessing.Cleaner
	Engine    *dataprocessing.Engine
	Store     storage.TableStore
	Exporter  WorkbookWriter
	Tracer    trace.Tracer
	Metrics   *infrastructure.PipelineMetrics
	Logger    *slog.Logger
}

// Manager orchestrates pipeline runs
type Manager struct {
	registry *Registry
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager registers the standard steps:
// Extract, Bronze, Clean, Silver, Aggregate, Gold.
func NewManager(deps Dependencies) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := NewRegistry()
	steps := []Step{
		NewExtractStep(deps.Extractor, deps.Metrics),
		NewBronzeStep(deps.Store, deps.Metrics),
		NewCleanStep(deps.Cleaner, deps.Metrics),
		NewSilverStep(deps.Store, deps.Metrics),
		NewAggregateStep(deps.Engine, deps.Metrics),
		NewGoldStep(deps.Store, deps.Exporter, deps.Metrics),
	}
	for _, step := range steps {
		// IDs are distinct constants
		_ = registry.Register(step)
	}

	return NewManagerWithRegistry(registry, NewOperationTracer(deps.Tracer, deps.Metrics), logger)
}

// NewManagerWithRegistry creates a manager running the given steps
func NewManagerWithRegistry(registry *Registry, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil, nil)
	}
	return &Manager{
		registry: registry,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operations"),
	}
}

// Registry returns the registered steps
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Execute runs every step in order. The returned response is never nil. The
// error is an *OperationError when a critical step failed or the context was
// cancelled.
func (m *Manager) Execute(ctx context.Context) (*RunResponse, error) {
	runID := uuid.NewString()
	ctx = infrastructure.WithTraceID(ctx, runID)

	steps := m.registry.List()
	state := NewRunState(runID, steps)
	state.Start()

	ctx, runSpan := m.tracer.TraceRun(ctx, runID)
	m.logRunStart(ctx, runID)

	var abort *OperationError
	for _, step := range steps {
		st := state.Step(step.ID())
		if abort != nil {
			reason := fmt.Sprintf("skipped after %s failed", abort.Step)
			st.Skip(reason)
			m.logStepSkipped(ctx, runID, step.ID(), reason)
			continue
		}
		if err := ctx.Err(); err != nil {
			abort = NewCancellationError(step.ID(), err)
			st.Skip("run cancelled")
			m.logStepSkipped(ctx, runID, step.ID(), "run cancelled")
			continue
		}

		if err := m.runStep(ctx, runID, step, st, state); err != nil {
			m.logStepError(ctx, runID, step, err)
			if step.Critical() {
				abort = WrapError(err, step.ID())
				continue
			}
			state.AddWarning(fmt.Sprintf("%s: %v", step.ID(), err))
		}
	}

	status := RunStatusCompleted
	switch {
	case abort != nil && abort.Type == ErrorTypeCancellation:
		status = RunStatusCancelled
	case abort != nil:
		status = RunStatusFailed
	}
	state.Finish(status)

	resp := m.buildResponse(state, abort)
	var runErr error
	if abort != nil {
		runErr = abort
	}
	m.tracer.RecordRunCompletion(ctx, runSpan, status, resp.Duration, runErr)
	m.logRunComplete(ctx, resp)
	return resp, runErr
}

func (m *Manager) runStep(ctx context.Context, runID string, step Step, st *StepState, state *RunState) (err error) {
	stepCtx, span := m.tracer.TraceStep(ctx, runID, step)
	st.Start()
	m.logStepStart(stepCtx, runID, step.ID())

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
		if err != nil {
			st.Fail(err)
		} else {
			st.Complete()
			m.logStepComplete(stepCtx, runID, step.ID(), st.Duration())
		}
		m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), st.Duration(), err)
	}()

	return step.Execute(stepCtx, state)
}

func (m *Manager) buildResponse(state *RunState, abort *OperationError) *RunResponse {
	resp := &RunResponse{
		RunID:    state.ID,
		Status:   state.Status,
		Steps:    state.StepStates(),
		Warnings: state.Warnings(),
		Duration: state.Duration(),
		Report:   state.report,
	}
	if abort != nil {
		resp.Error = abort.Error()
	}
	if state.Cleaned != nil {
		summary := state.Cleaned.Summary
		quality := state.Cleaned.Quality
		resp.Summary = &summary
		resp.Quality = &quality
	}
	if state.Gold != nil {
		resp.GoldTables = make(map[string]GoldTableStatus, len(state.Gold.Names()))
		for _, name := range state.Gold.Names() {
			var gs GoldTableStatus
			if t := state.Gold.Tables[name]; t != nil {
				gs.Available = true
				gs.Rows = t.Len()
				gs.Location, _ = state.Location(locationKey(string(storage.Gold), name))
			}
			if err := state.Gold.Errors[name]; err != nil {
				gs.Error = err.Error()
			}
			resp.GoldTables[name] = gs
		}
	}
	return resp
}
