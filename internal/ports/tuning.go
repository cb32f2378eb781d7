package ports

import (
	"context"

	"github.com/finvox/tuneloop/internal/domain/models"
)

// TuningProgressEvent represents a progress update during a tuning run.
// This is the canonical event type for pub/sub progress notifications.
type TuningProgressEvent struct {
	Type          string  `json:"type"` // "started", "iteration", "revision", "completed", "failed"
	RunID         string  `json:"run_id"`
	Iteration     int     `json:"iteration"`
	MaxIterations int     `json:"max_iterations"`
	WeightedScore float64 `json:"weighted_score"`
	TargetScore   float64 `json:"target_score"`
	PromptID      string  `json:"prompt_id,omitempty"`
	Status        string  `json:"status"`
	Message       string  `json:"message,omitempty"`
	Timestamp     int64   `json:"timestamp"`
}

// Progress event types
const (
	TuningEventStarted   = "started"
	TuningEventIteration = "iteration"
	TuningEventRevision  = "revision"
	TuningEventCompleted = "completed"
	TuningEventFailed    = "failed"
)

// TuningProgressPublisher defines the interface for pub/sub progress
// notifications. Implementations can use WebSocket, SSE, or other transports.
type TuningProgressPublisher interface {
	// Subscribe creates a subscription for progress events for a specific run
	Subscribe(runID string) <-chan TuningProgressEvent

	// Unsubscribe removes a subscription created by Subscribe
	Unsubscribe(runID string, ch <-chan TuningProgressEvent)

	// Publish broadcasts a progress event to all subscribers of the run
	Publish(event TuningProgressEvent)

	// Close closes all subscriptions for a run once it reaches a terminal state
	Close(runID string)
}

// TuningProgressBroadcaster pushes progress updates to connected WebSocket
// clients.
type TuningProgressBroadcaster interface {
	BroadcastTuningProgress(runID string, event TuningProgressEvent)
}

// ScenarioWeightInput pairs a scenario reference with its weight on submission
type ScenarioWeightInput struct {
	ScenarioID string `json:"scenario_id"`
	Weight     int    `json:"weight"`
}

// RunTuningInput contains the parameters for starting a tuning run
type RunTuningInput struct {
	InitialPromptID string                `json:"initial_prompt_id"`
	TargetScore     float64               `json:"target_score"`
	MaxIterations   int                   `json:"max_iterations"`
	Scenarios       []ScenarioWeightInput `json:"scenarios"`
}

// RunTuningOutput contains the synchronous result of submitting a tuning run.
// The loop itself continues in the background; poll the run for progress.
type RunTuningOutput struct {
	Run *models.TuningRun `json:"run"`
}

// RunTuningUseCase is the entry point of the automated tuning loop.
type RunTuningUseCase interface {
	// Execute validates the configuration, persists a PENDING run and
	// schedules the background loop. It returns as soon as the run is
	// durable; caller disconnects never cancel the loop.
	Execute(ctx context.Context, input *RunTuningInput) (*RunTuningOutput, error)
}

// RunEvaluationInput contains the parameters for a standalone evaluation
type RunEvaluationInput struct {
	PromptID   string `json:"prompt_id"`
	ScenarioID string `json:"scenario_id"`
}

// RunEvaluationOutput contains the synchronous result of submitting an
// evaluation; the pipeline continues in the background.
type RunEvaluationOutput struct {
	Evaluation *models.Evaluation `json:"evaluation"`
}

// RunEvaluationUseCase starts a standalone simulate-then-judge evaluation.
type RunEvaluationUseCase interface {
	Execute(ctx context.Context, input *RunEvaluationInput) (*RunEvaluationOutput, error)
}
