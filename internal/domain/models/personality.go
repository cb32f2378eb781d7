package models

import (
	"time"
)

// Personality field limits enforced on creation.
const (
	MaxPersonalityNameLength = 100
	MaxDescriptionLength     = 500
)

// Personality is a debtor persona the simulator role-plays against the agent
// under test. CoreTraits carries free-form behavioral attributes; Amount is
// the outstanding debt in rupees, when known.
type Personality struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	CoreTraits   map[string]string `json:"core_traits"`
	SystemPrompt string            `json:"system_prompt"`
	Amount       *float64          `json:"amount,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func NewPersonality(id, name, description, systemPrompt string, coreTraits map[string]string, amount *float64) *Personality {
	if coreTraits == nil {
		coreTraits = make(map[string]string)
	}
	return &Personality{
		ID:           id,
		Name:         name,
		Description:  description,
		CoreTraits:   coreTraits,
		SystemPrompt: systemPrompt,
		Amount:       amount,
		CreatedAt:    time.Now().UTC(),
	}
}
