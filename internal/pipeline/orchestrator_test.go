package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/chemistryai/answermark/internal/classify"
)

func startedOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	cfg := testConfig()
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 2
	cfg.JobTTL = time.Hour
	stub := &stubClassifier{responses: []func() (classify.AnswerKeySet, error){
		answers(),
	}}
	o := NewOrchestrator(cfg, stub, testLogger())
	o.Start(context.Background())
	return o
}

func TestOrchestrator_ProcessesSubmittedJob(t *testing.T) {
	o := startedOrchestrator(t)
	defer o.Stop()

	job := newJob(t, fixtureDocx(t, "Q1"))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("submitted job not registered in the store")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		switch o.GetJob(job.ID).Snapshot().Status {
		case StatusCompleted, StatusPartial, StatusFailed:
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job never finished, status %s", job.Snapshot().Status)
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := startedOrchestrator(t)
	o.Stop()

	// Must refuse without panicking even though the workers are gone.
	job := newJob(t, fixtureDocx(t, "Q1"))
	if err := o.Submit(job); err == nil {
		t.Fatal("expected an error submitting after shutdown")
	}
	if got := job.Snapshot().Status; got != StatusFailed {
		t.Errorf("expected failed status, got %s", got)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 1
	stub := &stubClassifier{responses: []func() (classify.AnswerKeySet, error){
		answers(),
	}}
	// Never started: nothing drains the queue.
	o := NewOrchestrator(cfg, stub, testLogger())

	if err := o.Submit(newJob(t, fixtureDocx(t, "Q1"))); err != nil {
		t.Fatalf("first submit should fit the buffer: %v", err)
	}
	overflow := newJob(t, fixtureDocx(t, "Q2"))
	if err := o.Submit(overflow); err == nil {
		t.Fatal("expected queue-full error")
	}
	if got := overflow.Snapshot().Status; got != StatusFailed {
		t.Errorf("expected failed status, got %s", got)
	}
}
