package models

import (
	"time"
)

// EvaluationStatus is the lifecycle state of a single scenario evaluation.
type EvaluationStatus string

const (
	EvaluationStatusPending   EvaluationStatus = "PENDING"
	EvaluationStatusRunning   EvaluationStatus = "RUNNING"
	EvaluationStatusCompleted EvaluationStatus = "COMPLETED"
	EvaluationStatusFailed    EvaluationStatus = "FAILED"
)

// Speaker identifies who produced a transcript message.
type Speaker string

const (
	SpeakerAgent  Speaker = "agent"
	SpeakerDebtor Speaker = "debtor"
)

type TranscriptMessage struct {
	Speaker Speaker `json:"speaker"`
	Message string  `json:"message"`
}

// EvaluationScores holds the judge's two 0-100 dimensions.
type EvaluationScores struct {
	TaskCompletion         int `json:"task_completion"`
	ConversationEfficiency int `json:"conversation_efficiency"`
}

// Composite is the unweighted mean of the two dimensions, used as the
// scenario's score wherever a single number is needed.
func (s EvaluationScores) Composite() float64 {
	return (float64(s.TaskCompletion) + float64(s.ConversationEfficiency)) / 2
}

// Evaluation is one simulated conversation of a prompt against a scenario,
// plus the judge's verdict. RunID ties loop-driven evaluations back to their
// tuning run; standalone evaluations leave it empty.
type Evaluation struct {
	ID                string              `json:"id"`
	PromptID          string              `json:"prompt_id"`
	ScenarioID        string              `json:"scenario_id"`
	RunID             string              `json:"run_id,omitempty"`
	Status            EvaluationStatus    `json:"status"`
	Transcript        []TranscriptMessage `json:"transcript,omitempty"`
	Scores            *EvaluationScores   `json:"scores,omitempty"`
	EvaluatorAnalysis string              `json:"evaluator_analysis,omitempty"`
	ErrorMessage      string              `json:"error_message,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
}

func NewEvaluation(id, promptID, scenarioID string) *Evaluation {
	return &Evaluation{
		ID:         id,
		PromptID:   promptID,
		ScenarioID: scenarioID,
		Status:     EvaluationStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

func NewRunEvaluation(id, promptID, scenarioID, runID string) *Evaluation {
	e := NewEvaluation(id, promptID, scenarioID)
	e.RunID = runID
	return e
}

func (e *Evaluation) MarkRunning() {
	e.Status = EvaluationStatusRunning
}

func (e *Evaluation) MarkCompleted(transcript []TranscriptMessage, scores EvaluationScores, analysis string) {
	now := time.Now().UTC()
	e.Status = EvaluationStatusCompleted
	e.Transcript = transcript
	e.Scores = &scores
	e.EvaluatorAnalysis = analysis
	e.CompletedAt = &now
}

func (e *Evaluation) MarkFailed(message string) {
	now := time.Now().UTC()
	e.Status = EvaluationStatusFailed
	e.ErrorMessage = message
	e.CompletedAt = &now
}
