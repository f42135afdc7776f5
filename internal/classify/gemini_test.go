package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chemistryai/answermark/internal/content"
)

func testRecords() []content.Record {
	return []content.Record{
		{Kind: content.KindParagraph, Content: "What is 2+2?", ParaID: 0},
		{Kind: content.KindParagraph, Content: "Answer: 4", ParaID: 1},
	}
}

// geminiBody wraps a model text payload in the generateContent response shape.
func geminiBody(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestGemini(serverURL string) *GeminiClient {
	c := NewGeminiClient("test-key", "gemini-test", nil)
	c.baseURL = serverURL
	return c
}

func TestGeminiIdentifyAnswerKeys_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(geminiBody(`{"answer_keys":[{"para_id":0,"answer":"4"}]}`)))
	}))
	defer server.Close()

	client := newTestGemini(server.URL)
	set, err := client.IdentifyAnswerKeys(context.Background(), testRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.AnswerKeys) != 1 {
		t.Fatalf("expected 1 answer key, got %d", len(set.AnswerKeys))
	}
	if set.AnswerKeys[0].ParaID != 0 || set.AnswerKeys[0].Answer != "4" {
		t.Errorf("unexpected answer key: %+v", set.AnswerKeys[0])
	}

	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header not set, got %q", gotKey)
	}
	if gotReq.GenerationConfig == nil || gotReq.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("expected JSON response mime type, got %+v", gotReq.GenerationConfig)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected contents shape: %+v", gotReq.Contents)
	}
}

func TestGeminiIdentifyAnswerKeys_CodeBlockWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiBody("```json\n{\"answer_keys\":[{\"para_id\":2,\"answer\":\"yes\"}]}\n```")))
	}))
	defer server.Close()

	set, err := newTestGemini(server.URL).IdentifyAnswerKeys(context.Background(), testRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.AnswerKeys) != 1 || set.AnswerKeys[0].ParaID != 2 {
		t.Errorf("unexpected set: %+v", set)
	}
}

func TestGeminiIdentifyAnswerKeys_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).IdentifyAnswerKeys(context.Background(), testRecords())
	var retryable *RetryableError
	if !errors.As(err, &retryable) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if retryable.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", retryable.StatusCode)
	}
}

func TestGeminiIdentifyAnswerKeys_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).IdentifyAnswerKeys(context.Background(), testRecords())
	var retryable *RetryableError
	if !errors.As(err, &retryable) {
		t.Fatalf("expected RetryableError for 503, got %v", err)
	}
}

func TestGeminiIdentifyAnswerKeys_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestGemini(server.URL).IdentifyAnswerKeys(context.Background(), testRecords())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGeminiIdentifyAnswerKeys_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestGemini(server.URL).IdentifyAnswerKeys(ctx, testRecords())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestGeminiIdentifyAnswerKeys_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-JSON model text", geminiBody("sure, here are the answers")},
		{"missing answer_keys", geminiBody(`{"answers":[]}`)},
		{"no candidates", `{"candidates":[]}`},
		{"non-JSON body", `<html>gateway error</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestGemini(server.URL).IdentifyAnswerKeys(context.Background(), testRecords())
			var invalid *InvalidResponseError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidResponseError, got %v", err)
			}
		})
	}
}

func TestGeminiIdentifyAnswerKeys_RecordsLatency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiBody(`{"answer_keys":[]}`)))
	}))
	defer server.Close()

	stats := NewStats(time.Hour)
	client := newTestGemini(server.URL)
	client.Stats = stats

	if _, err := client.IdentifyAnswerKeys(context.Background(), testRecords()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stats.Snapshot().Count; got != 1 {
		t.Errorf("expected 1 latency sample, got %d", got)
	}
}
