package operations

import (
	"sync"
	"time"

	"retailpulse/internal/dataprocessing"
	"retailpulse/internal/table"
)

// RunState carries the data flowing between steps of one run
type RunState struct {
	mu sync.RWMutex

	ID        string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time

	steps map[string]*StepState
	order []string

	// Raw is the extracted bronze table.
	Raw *table.Table
	// Cleaned holds the validated table with its summary and quality report.
	Cleaned *dataprocessing.CleanResult
	// Gold holds the aggregation views.
	Gold *dataprocessing.AggregationResult

	locations map[string]string
	report    string
	warnings  []string
}

// NewRunState creates the state of a run over the given steps
func NewRunState(id string, steps []Step) *RunState {
	s := &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		steps:     make(map[string]*StepState, len(steps)),
		locations: make(map[string]string),
	}
	for _, step := range steps {
		s.steps[step.ID()] = NewStepState(step.ID(), step.Name())
		s.order = append(s.order, step.ID())
	}
	return s
}

// Start marks the run as running
func (s *RunState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = RunStatusRunning
	s.StartTime = time.Now()
}

// Finish marks the run with its final status
func (s *RunState) Finish(status RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = status
}

// Step returns the state of a specific step
func (s *RunState) Step(id string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[id]
}

// StepStates returns copies of all step states in run order
func (s *RunState) StepStates() []*StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StepState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.steps[id].Clone())
	}
	return out
}

// AddWarning records a non-fatal problem
func (s *RunState) AddWarning(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

// Warnings returns the recorded warnings
func (s *RunState) Warnings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// SetLocation records where a layer table was written
func (s *RunState) SetLocation(key, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[key] = location
}

// Location returns where a layer table was written
func (s *RunState) Location(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[key]
	return loc, ok
}

// SetReport records the path of the gold workbook
func (s *RunState) SetReport(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = path
}

// Duration returns the duration of the run
func (s *RunState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// locationKey is the key of a layer table in the location map
func locationKey(layer, name string) string {
	return layer + "/" + name
}
