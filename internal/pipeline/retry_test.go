package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chemistryai/answermark/internal/classify"
)

func TestIsRetryable(t *testing.T) {
	retryable := &classify.RetryableError{StatusCode: 429, Message: "rate limited"}
	if !IsRetryable(retryable) {
		t.Error("expected RetryableError to be retryable")
	}
	if !IsRetryable(fmt.Errorf("attempt failed: %w", retryable)) {
		t.Error("expected wrapped RetryableError to be retryable")
	}
	if IsRetryable(classify.ErrTimeout) {
		t.Error("timeout must not be retried")
	}
	if IsRetryable(&classify.InvalidResponseError{Reason: "bad"}) {
		t.Error("invalid response must not be retried")
	}
	if IsRetryable(errors.New("other")) {
		t.Error("arbitrary errors must not be retried")
	}
	if IsRetryable(nil) {
		t.Error("nil must not be retryable")
	}
}

func TestBackoff(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d > base+base/2 {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", attempt, d, base, base+base/2)
		}
	}
}
