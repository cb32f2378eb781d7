package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// Phrases that end a simulated call when either side utters them.
var hangupKeywords = []string{
	"don't call me again",
	"i'm hanging up",
	"stop calling",
	"goodbye",
	"hanging up now",
	"leave me alone",
	"don't contact me",
	"end this call",
}

const defaultDebtorName = "Customer"

// Simulator drives a turn-by-turn conversation between the agent under test
// and a role-played debtor, both backed by the same LLM collaborator with
// separate system prompts. The agent always opens the call.
type Simulator struct {
	llm          ports.LLMService
	maxTurnPairs int
	temperature  float64
}

func NewSimulator(llm ports.LLMService, maxTurnPairs int, temperature float64) *Simulator {
	if maxTurnPairs <= 0 {
		maxTurnPairs = 10
	}
	return &Simulator{
		llm:          llm,
		maxTurnPairs: maxTurnPairs,
		temperature:  temperature,
	}
}

// Simulate runs one full conversation and returns the transcript. An error
// from the LLM collaborator aborts the simulation; partial transcripts are
// not returned.
func (s *Simulator) Simulate(ctx context.Context, agentPrompt string, scenario *models.Scenario, personality *models.Personality) ([]models.TranscriptMessage, error) {
	if strings.TrimSpace(agentPrompt) == "" {
		return nil, domain.NewDomainError(domain.ErrEmptyPromptText, "agent prompt")
	}

	debtorName := personality.Name
	if debtorName == "" {
		debtorName = defaultDebtorName
	}

	agentSystem := substituteVariables(agentPrompt, debtorName, personality.Amount)
	personaSystem := substituteVariables(personality.SystemPrompt, debtorName, personality.Amount)

	debtorSystem := fmt.Sprintf(`%s

YOUR OBJECTIVE IN THIS CALL: %s

You are receiving a call from a debt collection agent. Stay in character and pursue your objective naturally through the conversation.`,
		personaSystem, scenario.Objective)

	transcript := make([]models.TranscriptMessage, 0, s.maxTurnPairs*2)

	for pair := 0; pair < s.maxTurnPairs; pair++ {
		agentReply, err := s.nextTurn(ctx, agentSystem, transcript, models.SpeakerAgent)
		if err != nil {
			return nil, fmt.Errorf("agent turn %d: %w", pair+1, err)
		}
		transcript = append(transcript, models.TranscriptMessage{
			Speaker: models.SpeakerAgent,
			Message: agentReply,
		})
		if containsHangup(agentReply) {
			break
		}

		debtorReply, err := s.nextTurn(ctx, debtorSystem, transcript, models.SpeakerDebtor)
		if err != nil {
			return nil, fmt.Errorf("debtor turn %d: %w", pair+1, err)
		}
		transcript = append(transcript, models.TranscriptMessage{
			Speaker: models.SpeakerDebtor,
			Message: debtorReply,
		})
		if containsHangup(debtorReply) {
			break
		}
	}

	return transcript, nil
}

// nextTurn asks the LLM for the next utterance from the given speaker's
// perspective: their own prior messages become assistant turns, the other
// side's become user turns.
func (s *Simulator) nextTurn(ctx context.Context, systemPrompt string, transcript []models.TranscriptMessage, speaker models.Speaker) (string, error) {
	messages := make([]ports.LLMMessage, 0, len(transcript)+2)
	messages = append(messages, ports.LLMMessage{Role: "system", Content: systemPrompt})

	for _, msg := range transcript {
		role := "user"
		if msg.Speaker == speaker {
			role = "assistant"
		}
		messages = append(messages, ports.LLMMessage{Role: role, Content: msg.Message})
	}

	// The very first agent turn has no history; prompt the model to open.
	if len(transcript) == 0 {
		messages = append(messages, ports.LLMMessage{Role: "user", Content: "(The call connects.)"})
	}

	resp, err := s.llm.ChatWithOptions(ctx, messages, ports.ChatOptions{
		Temperature: float32(s.temperature),
	})
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", domain.NewDomainError(domain.ErrMalformedOutput, "empty turn from model")
	}
	return reply, nil
}

// substituteVariables fills {name} and {amount} placeholders. Amounts render
// as Indian rupees with two decimals.
func substituteVariables(prompt, name string, amount *float64) string {
	result := prompt
	if name != "" {
		result = strings.ReplaceAll(result, "{name}", name)
	}
	if amount != nil {
		result = strings.ReplaceAll(result, "{amount}", formatRupees(*amount))
	}
	return result
}

func formatRupees(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	dot := strings.Index(s, ".")
	intPart, fracPart := s[:dot], s[dot:]

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	return "₹" + strings.Join(groups, ",") + fracPart
}

func containsHangup(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range hangupKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
