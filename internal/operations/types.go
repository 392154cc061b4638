package operations

import (
	"time"

	"retailpulse/pkg/contracts/domain"
)

// Step identifiers
const (
	StepIDExtract   = "extract"
	StepIDBronze    = "bronze"
	StepIDClean     = "clean"
	StepIDSilver    = "silver"
	StepIDAggregate = "aggregate"
	StepIDGold      = "gold"
)

// Step names
const (
	StepNameExtract   = "Extract Raw Dataset"
	StepNameBronze    = "Persist Bronze Layer"
	StepNameClean     = "Clean and Validate"
	StepNameSilver    = "Persist Silver Layer"
	StepNameAggregate = "Compute Gold Views"
	StepNameGold      = "Persist Gold Layer"
)

// Layer table names
const (
	TableRawSales       = "raw_sales"
	TableValidatedSales = "validated_sales"
)

// RunStatus is the overall status of a pipeline run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// GoldTableStatus reports one gold view of a run. A view that could not be
// computed has Available false and an Error.
type GoldTableStatus struct {
	Available bool   `json:"available"`
	Rows      int    `json:"rows"`
	Location  string `json:"location,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunResponse is the outcome of one pipeline run
type RunResponse struct {
	RunID      string                     `json:"run_id"`
	Status     RunStatus                  `json:"status"`
	Steps      []*StepState               `json:"steps"`
	Summary    *domain.TransformSummary   `json:"summary,omitempty"`
	Quality    *domain.QualityReport      `json:"quality,omitempty"`
	GoldTables map[string]GoldTableStatus `json:"gold_tables,omitempty"`
	Report     string                     `json:"report,omitempty"`
	Warnings   []string                   `json:"warnings,omitempty"`
	Duration   time.Duration              `json:"duration"`
	Error      string                     `json:"error,omitempty"`
}

// Succeeded reports whether the run produced the validated table.
func (r *RunResponse) Succeeded() bool {
	return r != nil && r.Status == RunStatusCompleted
}
