package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/ports"
)

// maxCritiqueCycles caps how many times the Writer may be asked for a draft
// within a single revision.
const maxCritiqueCycles = 3

// transcriptExcerptLen is how many messages of each failed transcript the
// Writer sees (5 agent/debtor exchanges).
const transcriptExcerptLen = 10

const writerPromptTemplate = `You are an expert prompt engineer specializing in conversational AI for debt collection.

Your task is to create an improved system prompt for a debt collection voice agent based on the following context:

%s

INSTRUCTIONS:
1. Analyze the failed evaluations to identify patterns and weaknesses
2. Understand what caused low scores in Task Completion and Conversation Efficiency
3. Create a new system prompt that addresses these weaknesses
4. The new prompt should be clear, comprehensive, and actionable
5. Focus on empathy, compliance, efficiency, and goal achievement
6. Include specific behavioral guidelines based on the failure patterns

Generate a complete, ready-to-use system prompt that will perform better than the current one.

Respond with a JSON object: {"system_prompt": "<the improved prompt>"}`

const critiquePromptTemplate = `You are a senior AI quality reviewer for conversational agents.

Your task is to evaluate the following system prompt for a debt collection agent.

CONTEXT PACKAGE:
%s

PROPOSED SYSTEM PROMPT:
%s

EVALUATION CRITERIA:
1. Does it address the specific failures identified in the context?
2. Is it clear, specific, and actionable?
3. Does it include appropriate empathy and compliance guidelines?
4. Does it provide concrete behavioral instructions?
5. Is it likely to improve both Task Completion and Conversation Efficiency?

Provide constructive feedback and indicate whether this prompt is acceptable (pass=true) or needs revision (pass=false).

Respond with a JSON object: {"feedback": "<string>", "pass": <bool>}`

// Reviser runs the Writer-Critique cycle. The Writer drafts an improved
// prompt from the failure context; the Critique reviews it and either accepts
// or sends it back with feedback, up to maxCritiqueCycles drafts. When the
// cycle budget runs out the latest draft wins.
type Reviser struct {
	llm          ports.LLMService
	writerTemp   float64
	critiqueTemp float64
}

func NewReviser(llm ports.LLMService, writerTemp, critiqueTemp float64) *Reviser {
	return &Reviser{
		llm:          llm,
		writerTemp:   writerTemp,
		critiqueTemp: critiqueTemp,
	}
}

type writerDraft struct {
	SystemPrompt string `json:"system_prompt"`
}

type critiqueVerdict struct {
	Feedback string `json:"feedback"`
	Pass     bool   `json:"pass"`
}

// Revise produces an improved prompt for the given failure context.
func (r *Reviser) Revise(ctx context.Context, rc ports.RevisionContext) (string, error) {
	if strings.TrimSpace(rc.CurrentPrompt) == "" {
		return "", domain.NewDomainError(domain.ErrEmptyPromptText, "current prompt")
	}

	contextPackage := buildContextPackage(rc)
	writerPrompt := fmt.Sprintf(writerPromptTemplate, contextPackage)

	var draft, feedback string

	for cycle := 0; cycle < maxCritiqueCycles; cycle++ {
		writerInput := writerPrompt
		if draft != "" {
			writerInput = fmt.Sprintf(`%s

PREVIOUS ATTEMPT:
%s

CRITIQUE FEEDBACK:
%s

Please revise the prompt to address the critique feedback.`, writerPrompt, draft, feedback)
		}

		next, err := r.draftPrompt(ctx, writerInput)
		if err != nil {
			return "", err
		}
		draft = next

		verdict, err := r.critique(ctx, contextPackage, draft)
		if err != nil {
			return "", err
		}
		if verdict.Pass {
			break
		}
		feedback = verdict.Feedback
	}

	if strings.TrimSpace(draft) == strings.TrimSpace(rc.CurrentPrompt) {
		return "", domain.ErrNoImprovement
	}

	return draft, nil
}

func (r *Reviser) draftPrompt(ctx context.Context, writerInput string) (string, error) {
	resp, err := r.llm.ChatWithOptions(ctx, []ports.LLMMessage{
		{Role: "user", Content: writerInput},
	}, ports.ChatOptions{
		Temperature: float32(r.writerTemp),
		JSONMode:    true,
	})
	if err != nil {
		return "", fmt.Errorf("writer request failed: %w", err)
	}

	var draft writerDraft
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Content)), &draft); err != nil {
		return "", domain.NewDomainError(domain.ErrMalformedOutput, "writer draft is not valid JSON")
	}
	if strings.TrimSpace(draft.SystemPrompt) == "" {
		return "", domain.NewDomainError(domain.ErrMalformedOutput, "writer draft has no system_prompt")
	}
	return strings.TrimSpace(draft.SystemPrompt), nil
}

func (r *Reviser) critique(ctx context.Context, contextPackage, draft string) (*critiqueVerdict, error) {
	resp, err := r.llm.ChatWithOptions(ctx, []ports.LLMMessage{
		{Role: "user", Content: fmt.Sprintf(critiquePromptTemplate, contextPackage, draft)},
	}, ports.ChatOptions{
		Temperature: float32(r.critiqueTemp),
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("critique request failed: %w", err)
	}

	var verdict critiqueVerdict
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Content)), &verdict); err != nil {
		return nil, domain.NewDomainError(domain.ErrMalformedOutput, "critique verdict is not valid JSON")
	}
	return &verdict, nil
}

// buildContextPackage assembles the failure digest both the Writer and the
// Critique read: the current prompt, the target, and each failed evaluation
// with its scores, analysis and a transcript excerpt.
func buildContextPackage(rc ports.RevisionContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CURRENT SYSTEM PROMPT:\n%s\n\n", rc.CurrentPrompt)
	fmt.Fprintf(&b, "TARGET SCORE: %.1f\n\n", rc.TargetScore)
	b.WriteString("FAILED EVALUATIONS:\n\n")

	for i, f := range rc.Failures {
		fmt.Fprintf(&b, "--- Evaluation %d ---\n", i+1)
		fmt.Fprintf(&b, "Scenario: %s\n", f.ScenarioTitle)
		fmt.Fprintf(&b, "Scenario Objective: %s\n", f.ScenarioObjective)
		fmt.Fprintf(&b, "Scores: Task Completion=%d, Conversation Efficiency=%d, Average=%.1f\n",
			f.Scores.TaskCompletion, f.Scores.ConversationEfficiency, f.Scores.Composite())
		fmt.Fprintf(&b, "Evaluator Analysis: %s\n", f.EvaluatorAnalysis)

		b.WriteString("Transcript Excerpt (first 5 exchanges):\n")
		excerpt := f.Transcript
		if len(excerpt) > transcriptExcerptLen {
			excerpt = excerpt[:transcriptExcerptLen]
		}
		for _, msg := range excerpt {
			fmt.Fprintf(&b, "  %s: %s\n", strings.ToUpper(string(msg.Speaker)), msg.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
IMPROVEMENT GUIDELINES:
- Focus on addressing the specific weaknesses identified in the evaluations
- Enhance empathy and rapport-building techniques
- Improve goal-oriented dialogue flow
- Reduce repetitive or irrelevant responses
- Maintain compliance and professionalism
- Provide clear, actionable instructions for the agent
`)

	return b.String()
}
