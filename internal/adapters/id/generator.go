package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateTuningRunID() string {
	return g.generate("tr")
}

func (g *Generator) GeneratePromptVersionID() string {
	return g.generate("tp")
}

func (g *Generator) GenerateScenarioID() string {
	return g.generate("tsc")
}

func (g *Generator) GeneratePersonalityID() string {
	return g.generate("tpe")
}

func (g *Generator) GenerateEvaluationID() string {
	return g.generate("te")
}
