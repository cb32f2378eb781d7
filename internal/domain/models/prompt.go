package models

import (
	"fmt"
	"time"
)

// Prompt field limits enforced on creation.
const (
	MaxPromptNameLength    = 100
	MinPromptTextLength    = 10
	MaxVersionLabelLength  = 50
	TunedPromptNamePattern = "Tuned-AI-Iter%d-%s"
)

// PromptVersion is one immutable entry in the append-only prompt log. Tuning
// never edits a prompt in place; every revision lands as a new version.
type PromptVersion struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPromptVersion(id, name, text, version string) *PromptVersion {
	return &PromptVersion{
		ID:        id,
		Name:      name,
		Text:      text,
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTunedPromptVersion builds the prompt version produced by a tuning
// iteration, with the lineage name tying it back to its run.
func NewTunedPromptVersion(id, runID string, iteration int, text string) *PromptVersion {
	runRef := runID
	if len(runRef) > 8 {
		runRef = runRef[:8]
	}
	return NewPromptVersion(
		id,
		fmt.Sprintf(TunedPromptNamePattern, iteration, runRef),
		text,
		fmt.Sprintf("Auto-generated from tuning loop iteration %d", iteration),
	)
}
