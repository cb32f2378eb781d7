package models

import (
	"time"
)

// TuningStatus is the lifecycle state of a tuning run. PENDING and RUNNING are
// transient; COMPLETED and FAILED are terminal and never transition further.
type TuningStatus string

const (
	TuningStatusPending   TuningStatus = "PENDING"
	TuningStatusRunning   TuningStatus = "RUNNING"
	TuningStatusCompleted TuningStatus = "COMPLETED"
	TuningStatusFailed    TuningStatus = "FAILED"
)

// Bounds enforced when a tuning run is submitted.
const (
	MinTargetScore    = 0.0
	MaxTargetScore    = 100.0
	MinIterations     = 1
	MaxIterationsCap  = 10
	MinScenarioWeight = 1
	MaxScenarioWeight = 5
)

// ScenarioWeight pairs a scenario with its relative importance in the
// aggregated score.
type ScenarioWeight struct {
	ScenarioID string `json:"scenario_id"`
	Weight     int    `json:"weight"`
}

// TuningConfiguration is the immutable input of a tuning run. It is embedded
// in the run record verbatim and never modified afterwards.
type TuningConfiguration struct {
	InitialPromptID string           `json:"initial_prompt_id"`
	TargetScore     float64          `json:"target_score"`
	MaxIterations   int              `json:"max_iterations"`
	Scenarios       []ScenarioWeight `json:"scenarios"`
}

// Iteration is one completed pass of the tuning loop. Iterations are
// append-only: once recorded they are never modified or removed, including
// when the run later fails.
type Iteration struct {
	Sequence      int       `json:"sequence"`
	PromptID      string    `json:"prompt_id"`
	EvaluationIDs []string  `json:"evaluation_ids"`
	WeightedScore float64   `json:"weighted_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// TuningRun is the durable record of a tuning loop execution. The background
// task driving the loop is its only writer.
type TuningRun struct {
	ID            string              `json:"id"`
	Status        TuningStatus        `json:"status"`
	Config        TuningConfiguration `json:"config"`
	Iterations    []Iteration         `json:"iterations"`
	FinalPromptID string              `json:"final_prompt_id,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func NewTuningRun(id string, config TuningConfiguration) *TuningRun {
	now := time.Now().UTC()
	return &TuningRun{
		ID:         id,
		Status:     TuningStatusPending,
		Config:     config,
		Iterations: []Iteration{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func NewIteration(sequence int, promptID string, evaluationIDs []string, weightedScore float64) Iteration {
	return Iteration{
		Sequence:      sequence,
		PromptID:      promptID,
		EvaluationIDs: evaluationIDs,
		WeightedScore: weightedScore,
		CreatedAt:     time.Now().UTC(),
	}
}

func (r *TuningRun) MarkRunning() {
	now := time.Now().UTC()
	r.Status = TuningStatusRunning
	r.StartedAt = &now
	r.UpdatedAt = now
}

func (r *TuningRun) MarkCompleted(finalPromptID string) {
	now := time.Now().UTC()
	r.Status = TuningStatusCompleted
	r.FinalPromptID = finalPromptID
	r.CompletedAt = &now
	r.UpdatedAt = now
}

func (r *TuningRun) MarkFailed(message string) {
	now := time.Now().UTC()
	r.Status = TuningStatusFailed
	r.ErrorMessage = message
	r.CompletedAt = &now
	r.UpdatedAt = now
}

func (r *TuningRun) AppendIteration(it Iteration) {
	r.Iterations = append(r.Iterations, it)
	r.UpdatedAt = time.Now().UTC()
}

func (r *TuningRun) IsTerminal() bool {
	return r.Status == TuningStatusCompleted || r.Status == TuningStatusFailed
}

// LatestIteration returns the most recently appended iteration, or nil when
// none has been recorded yet.
func (r *TuningRun) LatestIteration() *Iteration {
	if len(r.Iterations) == 0 {
		return nil
	}
	return &r.Iterations[len(r.Iterations)-1]
}

// TotalWeight sums the configured scenario weights.
func (c TuningConfiguration) TotalWeight() int {
	total := 0
	for _, sw := range c.Scenarios {
		total += sw.Weight
	}
	return total
}
