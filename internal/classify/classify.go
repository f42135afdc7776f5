// Package classify holds the answer-key classifier boundary: the typed
// request/response model, the provider clients, and the failure taxonomy.
// Callers only see the Classifier interface, so the transport can be swapped
// for a deterministic stub in tests.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/chemistryai/answermark/internal/content"
)

// AnswerKey is one classifier finding: the flat-list identifier of the
// question paragraph and the extracted answer text.
type AnswerKey struct {
	ParaID int    `json:"para_id"`
	Answer string `json:"answer"`
}

// AnswerKeySet is the classifier's full response for one document.
type AnswerKeySet struct {
	AnswerKeys []AnswerKey `json:"answer_keys"`
}

// Classifier locates answer keys in an extracted record sequence.
type Classifier interface {
	IdentifyAnswerKeys(ctx context.Context, records []content.Record) (AnswerKeySet, error)
}

// ErrUnavailable indicates the external classifier could not be reached.
var ErrUnavailable = errors.New("classifier unavailable")

// ErrTimeout indicates the classifier call exceeded its deadline.
var ErrTimeout = errors.New("classifier timeout")

// InvalidResponseError indicates the classifier answered with a payload that
// does not conform to the answer-key schema. There is no safe partial
// interpretation, so this is fatal for the invocation.
type InvalidResponseError struct {
	Reason string
	Raw    string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid classifier response: %s (raw: %s)", e.Reason, truncate(e.Raw, 200))
}

// RetryableError indicates a transient provider failure (rate limit or
// server error) that the caller may retry.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// decodeAnswerKeys parses a provider's text payload into an AnswerKeySet.
func decodeAnswerKeys(text string) (AnswerKeySet, error) {
	text = stripCodeBlock(text)

	var set AnswerKeySet
	if err := json.Unmarshal([]byte(text), &set); err != nil {
		return AnswerKeySet{}, &InvalidResponseError{Reason: err.Error(), Raw: text}
	}
	if set.AnswerKeys == nil {
		return AnswerKeySet{}, &InvalidResponseError{Reason: "missing answer_keys field", Raw: text}
	}
	return set, nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
