package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

const judgeSystemPrompt = "You are an expert conversation analyst specializing in debt collection call quality assessment. Be objective, fair, and data-driven in your evaluations."

const judgePromptTemplate = `You are a conversation analyst. Your task is to evaluate the following debt collection call transcript.

DEBTOR'S OBJECTIVE: %s
AGENT'S GOAL: To collect the debt or arrange a payment plan in a compliant and efficient manner.

TRANSCRIPT:
%s

Analyze the transcript and provide:
1. TASK COMPLETION SCORE (0-100): How well did the agent move towards their goal? Consider:
   - Did they successfully collect payment or arrange a payment plan?
   - Did they maintain compliance with regulations?
   - Did they handle objections effectively?
   - Did they achieve a concrete outcome?

2. CONVERSATION EFFICIENCY SCORE (0-100): How efficient was the agent's communication? Consider:
   - Was the dialogue relevant and on-topic?
   - Did they avoid unnecessary repetition?
   - Were they concise yet complete?
   - Did they waste time with irrelevant questions?

3. EVALUATOR ANALYSIS: Provide a brief qualitative analysis (2-4 sentences) highlighting:
   - Key strengths of the agent's approach
   - Main areas for improvement
   - How well they handled the specific debtor's objective and personality

Be objective and data-driven in your scoring.

Respond with a JSON object: {"scores": {"task_completion": <int>, "conversation_efficiency": <int>}, "evaluator_analysis": "<string>"}`

// Judge scores finished transcripts with an LLM acting as the evaluator.
type Judge struct {
	llm         ports.LLMService
	temperature float64
}

func NewJudge(llm ports.LLMService, temperature float64) *Judge {
	return &Judge{
		llm:         llm,
		temperature: temperature,
	}
}

type judgeVerdict struct {
	Scores struct {
		TaskCompletion         int `json:"task_completion"`
		ConversationEfficiency int `json:"conversation_efficiency"`
	} `json:"scores"`
	EvaluatorAnalysis string `json:"evaluator_analysis"`
}

// Judge evaluates a transcript against the scenario objective and returns
// the two-dimension scores plus the qualitative analysis.
func (j *Judge) Judge(ctx context.Context, transcript []models.TranscriptMessage, objective string) (models.EvaluationScores, string, error) {
	if len(transcript) == 0 {
		return models.EvaluationScores{}, "", domain.NewDomainError(domain.ErrInvalidInput, "transcript is empty")
	}

	prompt := fmt.Sprintf(judgePromptTemplate, objective, FormatTranscript(transcript))

	resp, err := j.llm.ChatWithOptions(ctx, []ports.LLMMessage{
		{Role: "system", Content: judgeSystemPrompt},
		{Role: "user", Content: prompt},
	}, ports.ChatOptions{
		Temperature: float32(j.temperature),
		JSONMode:    true,
	})
	if err != nil {
		return models.EvaluationScores{}, "", fmt.Errorf("judge request failed: %w", err)
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Content)), &verdict); err != nil {
		return models.EvaluationScores{}, "", domain.NewDomainError(domain.ErrMalformedOutput, "judge verdict is not valid JSON")
	}

	scores := models.EvaluationScores{
		TaskCompletion:         clampScore(verdict.Scores.TaskCompletion),
		ConversationEfficiency: clampScore(verdict.Scores.ConversationEfficiency),
	}

	return scores, strings.TrimSpace(verdict.EvaluatorAnalysis), nil
}

// FormatTranscript renders a transcript as "SPEAKER: message" lines.
func FormatTranscript(transcript []models.TranscriptMessage) string {
	lines := make([]string, 0, len(transcript))
	for _, msg := range transcript {
		lines = append(lines, strings.ToUpper(string(msg.Speaker))+": "+msg.Message)
	}
	return strings.Join(lines, "\n")
}

// stripCodeFences removes a surrounding markdown code fence, which some
// models emit even in JSON mode.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
