package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chemistryai/answermark/internal/content"
	"github.com/chemistryai/answermark/internal/metrics"
)

// OpenAIClient locates answer keys through an OpenAI-compatible chat
// completions endpoint in JSON mode. BaseURL makes it usable against
// self-hosted or proxy deployments.
type OpenAIClient struct {
	client *openai.Client
	model  string

	Stats *Stats
}

func NewOpenAIClient(apiKey, baseURL, model string, stats *Stats) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		Stats:  stats,
	}
}

// IdentifyAnswerKeys implements Classifier.
func (c *OpenAIClient) IdentifyAnswerKeys(ctx context.Context, records []content.Record) (AnswerKeySet, error) {
	prompt, err := BuildPrompt(records)
	if err != nil {
		return AnswerKeySet{}, err
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)
	if c.Stats != nil {
		c.Stats.Record(elapsed.Milliseconds())
	}
	if err != nil {
		return AnswerKeySet{}, c.mapAPIError(err, elapsed)
	}

	if len(resp.Choices) == 0 {
		metrics.ObserveClassifier("openai", "invalid", elapsed)
		return AnswerKeySet{}, &InvalidResponseError{Reason: "no choices in response"}
	}

	set, err := decodeAnswerKeys(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ObserveClassifier("openai", "invalid", elapsed)
		return AnswerKeySet{}, err
	}
	metrics.ObserveClassifier("openai", "success", elapsed)
	return set, nil
}

func (c *OpenAIClient) mapAPIError(err error, elapsed time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		metrics.ObserveClassifier("openai", "error", elapsed)
		return fmt.Errorf("chat completion: %v: %w", err, ErrTimeout)
	}

	status := 0
	msg := err.Error()
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		msg = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		msg = string(reqErr.Body)
	}

	if status == http.StatusTooManyRequests || status >= 500 {
		metrics.ObserveClassifier("openai", "retryable", elapsed)
		return &RetryableError{StatusCode: status, Message: msg}
	}
	metrics.ObserveClassifier("openai", "error", elapsed)
	if status != 0 {
		return fmt.Errorf("chat completion status %d: %s", status, truncate(msg, 200))
	}
	return fmt.Errorf("chat completion: %v: %w", err, ErrUnavailable)
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Close releases resources. The underlying client holds no connections of
// its own beyond the default transport.
func (c *OpenAIClient) Close() {}
