package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finvox/tuneloop/internal/adapters/circuitbreaker"
	"github.com/finvox/tuneloop/internal/adapters/metrics"
	"github.com/finvox/tuneloop/internal/adapters/retry"
	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/ports"
)

const (
	// LLMTimeout is the maximum time to wait for LLM responses
	LLMTimeout = 2 * time.Minute
)

// Service implements ports.LLMService using the OpenAI-compatible client
type Service struct {
	client      *Client
	breaker     *circuitbreaker.CircuitBreaker
	retryConfig retry.BackoffConfig
}

// NewService creates a new LLM service
func NewService(client *Client) *Service {
	return &Service{
		client:      client,
		breaker:     circuitbreaker.New(5, 30*time.Second), // 5 failures, 30s cooldown
		retryConfig: retry.LLMConfig(),
	}
}

// Chat sends a chat request with provider-default sampling
func (s *Service) Chat(ctx context.Context, messages []ports.LLMMessage) (*ports.LLMResponse, error) {
	return s.ChatWithOptions(ctx, messages, ports.ChatOptions{})
}

// ChatWithOptions sends a chat request with per-call sampling options
func (s *Service) ChatWithOptions(ctx context.Context, messages []ports.LLMMessage, opts ports.ChatOptions) (*ports.LLMResponse, error) {
	var result *ports.LLMResponse
	err := s.breaker.Execute(func() error {
		var err error
		result, err = s.doChat(ctx, messages, opts)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return nil, domain.NewDomainError(domain.ErrLLMUnavailable, "circuit breaker open")
	}
	return result, err
}

func (s *Service) doChat(ctx context.Context, messages []ports.LLMMessage, opts ports.ChatOptions) (*ports.LLMResponse, error) {
	// Add timeout to prevent hanging on slow/failed LLM requests
	ctx, cancel := context.WithTimeout(ctx, LLMTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       s.client.Model,
		Messages:    s.convertMessages(messages),
		MaxTokens:   s.client.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	var response openai.ChatCompletionResponse

	err := retry.WithBackoff(ctx, s.retryConfig, func() error {
		resp, callErr := s.client.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return classifyError(callErr)
		}
		response = resp
		return nil
	})

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(req.Model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())

	if len(response.Choices) == 0 {
		return nil, domain.NewDomainError(domain.ErrMalformedOutput, "no choices in response")
	}

	return &ports.LLMResponse{
		Content:      response.Choices[0].Message.Content,
		FinishReason: string(response.Choices[0].FinishReason),
	}, nil
}

// convertMessages converts ports.LLMMessage to the OpenAI message format
func (s *Service) convertMessages(messages []ports.LLMMessage) []openai.ChatCompletionMessage {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return chatMessages
}

// classifyError marks provider rate limits and server errors as transient so
// the backoff loop retries them; everything else fails immediately.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && retry.IsRetryableHTTPStatus(apiErr.HTTPStatusCode) {
		return retry.Transient(err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && retry.IsRetryableHTTPStatus(reqErr.HTTPStatusCode) {
		return retry.Transient(err)
	}

	return err
}
