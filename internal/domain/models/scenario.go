package models

import (
	"time"
)

// Scenario field limits enforced on creation.
const (
	MaxBriefLength        = 500
	MinBackstoryLength    = 10
	MaxBackstoryLength    = 2000
	DefaultScenarioWeight = 3
)

// Scenario is a test situation grounded in a personality: the backstory and
// objective steer the simulated debtor, the weight sets how much the scenario
// counts toward a tuning run's aggregated score.
type Scenario struct {
	ID            string    `json:"id"`
	PersonalityID string    `json:"personality_id"`
	Title         string    `json:"title"`
	Brief         string    `json:"brief"`
	Backstory     string    `json:"backstory"`
	Objective     string    `json:"objective"`
	Weight        int       `json:"weight"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewScenario(id, personalityID, title, brief, backstory, objective string, weight int) *Scenario {
	if weight == 0 {
		weight = DefaultScenarioWeight
	}
	return &Scenario{
		ID:            id,
		PersonalityID: personalityID,
		Title:         title,
		Brief:         brief,
		Backstory:     backstory,
		Objective:     objective,
		Weight:        weight,
		CreatedAt:     time.Now().UTC(),
	}
}
