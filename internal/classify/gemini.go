package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chemistryai/answermark/internal/content"
	"github.com/chemistryai/answermark/internal/metrics"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient calls the Gemini generateContent API with a JSON response
// schema, so the provider is constrained to the AnswerKeySet shape server
// side.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	Stats *Stats
}

func NewGeminiClient(apiKey, model string, stats *Stats) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		Stats: stats,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType   string          `json:"responseMimeType,omitempty"`
	ResponseJSONSchema json.RawMessage `json:"responseJsonSchema,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// IdentifyAnswerKeys implements Classifier.
func (c *GeminiClient) IdentifyAnswerKeys(ctx context.Context, records []content.Record) (AnswerKeySet, error) {
	prompt, err := BuildPrompt(records)
	if err != nil {
		return AnswerKeySet{}, err
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMIMEType:   "application/json",
			ResponseJSONSchema: json.RawMessage(AnswerKeySchema),
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return AnswerKeySet{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return AnswerKeySet{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if c.Stats != nil {
		c.Stats.Record(elapsed.Milliseconds())
	}
	if err != nil {
		metrics.ObserveClassifier("gemini", "error", elapsed)
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return AnswerKeySet{}, fmt.Errorf("gemini api: %v: %w", err, ErrTimeout)
		}
		return AnswerKeySet{}, fmt.Errorf("gemini api: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.ObserveClassifier("gemini", "error", elapsed)
		return AnswerKeySet{}, fmt.Errorf("read response: %v: %w", err, ErrUnavailable)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		metrics.ObserveClassifier("gemini", "retryable", elapsed)
		return AnswerKeySet{}, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveClassifier("gemini", "error", elapsed)
		return AnswerKeySet{}, fmt.Errorf("gemini api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		metrics.ObserveClassifier("gemini", "invalid", elapsed)
		return AnswerKeySet{}, &InvalidResponseError{Reason: "non-JSON body: " + err.Error(), Raw: string(respBody)}
	}
	if apiResp.Error != nil {
		metrics.ObserveClassifier("gemini", "error", elapsed)
		return AnswerKeySet{}, fmt.Errorf("gemini error: %s: %s", apiResp.Error.Status, apiResp.Error.Message)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		metrics.ObserveClassifier("gemini", "invalid", elapsed)
		return AnswerKeySet{}, &InvalidResponseError{Reason: "no candidates in response", Raw: string(respBody)}
	}

	set, err := decodeAnswerKeys(apiResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		metrics.ObserveClassifier("gemini", "invalid", elapsed)
		return AnswerKeySet{}, err
	}
	metrics.ObserveClassifier("gemini", "success", elapsed)
	return set, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Close releases resources.
func (c *GeminiClient) Close() {
	c.httpClient.CloseIdleConnections()
}
