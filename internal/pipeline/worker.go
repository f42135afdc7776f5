package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chemistryai/answermark/internal/annotate"
	"github.com/chemistryai/answermark/internal/classify"
	"github.com/chemistryai/answermark/internal/config"
	"github.com/chemistryai/answermark/internal/content"
	"github.com/chemistryai/answermark/internal/document"
)

// Worker processes a single annotation job end to end: open the document,
// extract its content records, call the classifier, reinsert the findings as
// comments, and store the annotated bytes on the job.
type Worker struct {
	classifier classify.Classifier
	log        *slog.Logger
	cfg        config.Config
}

func NewWorker(classifier classify.Classifier, log *slog.Logger, cfg config.Config) *Worker {
	return &Worker{
		classifier: classifier,
		log:        log,
		cfg:        cfg,
	}
}

// Process runs the full annotation pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse.
	job.SetStatus(StatusParsing, "parsing")
	doc, err := document.Open(job.FileData())
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 2: Extract.
	job.SetStatus(StatusExtracting, "extracting")
	records := content.Extract(doc)
	job.SetExtracted(doc.ParagraphCount(), len(records))
	log.Info("extracted document", "paragraphs", doc.ParagraphCount(), "records", len(records))

	if len(records) == 0 {
		log.Warn("no extractable content")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "extracting")
		return
	}

	// Phase 3: Classify. The classifier call is the one long-latency
	// suspend point; it gets its own deadline, and only transient provider
	// errors are retried.
	job.SetStatus(StatusClassifying, "classifying")
	set, err := w.classifyWithRetry(ctx, log, records)
	if err != nil {
		log.Error("classification failed", "error", err, "reason", failureReason(err))
		job.AddError(fmt.Sprintf("classify: %s", err))
		job.SetStatus(StatusFailed, "classifying")
		return
	}

	set = classify.FilterValid(set)
	job.SetAnswers(len(set.AnswerKeys))
	log.Info("classification complete", "answer_keys", len(set.AnswerKeys))

	// Phase 4: Annotate.
	job.SetStatus(StatusAnnotating, "annotating")
	report := annotate.Reinsert(doc, set, w.cfg.CommentAuthor)
	for _, s := range report.Skipped {
		log.Warn("assignment skipped", "para_id", s.Key.ParaID, "error", s.Err)
		job.AddError(fmt.Sprintf("para %d: %s", s.Key.ParaID, s.Err))
	}
	job.SetAnnotated(report.Applied, report.SkippedIDs())

	out, err := doc.Bytes()
	if err != nil {
		log.Error("save failed", "error", err)
		job.AddError(fmt.Sprintf("save: %s", err))
		job.SetStatus(StatusFailed, "annotating")
		return
	}
	job.SetResult(out, "annotated_"+job.Filename)
	log.Info("annotation complete", "applied", report.Applied, "skipped", len(report.Skipped))

	if len(report.Skipped) > 0 {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// classifyWithRetry performs the classifier call with a per-attempt deadline
// and bounded backoff on transient provider errors.
func (w *Worker) classifyWithRetry(ctx context.Context, log *slog.Logger, records []content.Record) (classify.AnswerKeySet, error) {
	var set classify.AnswerKeySet
	var lastErr error
	for attempt := 0; attempt < w.cfg.ClassifierMaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, w.cfg.ClassifierTimeout)
		set, lastErr = w.classifier.IdentifyAnswerKeys(callCtx, records)
		cancel()
		if lastErr == nil || !IsRetryable(lastErr) {
			return set, lastErr
		}
		if attempt == w.cfg.ClassifierMaxRetries-1 {
			break
		}
		log.Warn("retryable classifier error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return classify.AnswerKeySet{}, ctx.Err()
		}
	}
	return set, lastErr
}

// failureReason maps a classifier error to its taxonomy bucket for logging.
func failureReason(err error) string {
	var invalid *classify.InvalidResponseError
	switch {
	case errors.Is(err, classify.ErrTimeout):
		return "classifier_timeout"
	case errors.Is(err, classify.ErrUnavailable):
		return "classifier_unavailable"
	case errors.As(err, &invalid):
		return "invalid_classifier_response"
	default:
		return "classifier_error"
	}
}
