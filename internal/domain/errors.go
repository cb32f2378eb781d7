package domain

import "errors"

// Common domain errors
var (
	// Tuning run errors
	ErrTuningRunNotFound  = errors.New("tuning run not found")
	ErrRunAlreadyTerminal = errors.New("tuning run already in a terminal state")
	ErrRunNotRunning      = errors.New("tuning run is not running")
	ErrNoImprovement      = errors.New("revision produced no improvement over the current prompt")

	// Prompt errors
	ErrPromptNotFound  = errors.New("prompt version not found")
	ErrEmptyPromptText = errors.New("prompt text cannot be empty")

	// Scenario and personality errors
	ErrScenarioNotFound    = errors.New("scenario not found")
	ErrPersonalityNotFound = errors.New("personality not found")
	ErrDuplicateScenario   = errors.New("duplicate scenario reference")

	// Evaluation errors
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrEvaluationFailed   = errors.New("scenario evaluation failed")

	// LLM errors
	ErrLLMUnavailable   = errors.New("LLM service unavailable")
	ErrLLMRequestFailed = errors.New("LLM request failed")
	ErrGenerationFailed = errors.New("prompt generation failed")
	ErrMalformedOutput  = errors.New("malformed model output")

	// Validation errors
	ErrInvalidID    = errors.New("invalid ID format")
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

func NewDomainErrorWithCode(err error, message, code string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}
