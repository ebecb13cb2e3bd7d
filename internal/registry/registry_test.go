package registry

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"deckconv/internal/pkg/errors"
	"deckconv/internal/pkg/logger"
)

func newTestRegistry() *Registry {
	var buf bytes.Buffer
	return New(logger.New(logger.Config{Level: "error", Format: "json", Output: &buf}))
}

func testJob(tenant, id string) Job {
	return Job{
		TenantID:     tenant,
		JobID:        id,
		Input:        Ref{Bucket: "in", Key: "decks/deck.pptx"},
		OutputBucket: "out",
		OutputPrefix: "conversions/" + id + "/",
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := newTestRegistry()

	first, created := r.Register(testJob("t1", "j1"))
	if !created {
		t.Fatal("expected first Register to create")
	}
	if first.Status != StatusQueued {
		t.Errorf("expected queued, got %s", first.Status)
	}

	if err := r.MarkRunning("t1", "j1"); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}

	// Resubmission returns the existing record unchanged; no second execution.
	again, created := r.Register(testJob("t1", "j1"))
	if created {
		t.Error("expected resubmission to not create")
	}
	if again.Status != StatusRunning {
		t.Errorf("expected existing running state, got %s", again.Status)
	}
}

func TestSameJobIDDifferentTenants(t *testing.T) {
	r := newTestRegistry()

	if _, created := r.Register(testJob("t1", "j1")); !created {
		t.Fatal("expected create for t1")
	}
	if _, created := r.Register(testJob("t2", "j1")); !created {
		t.Error("same jobId under a different tenant should be a distinct job")
	}
}

func TestGetUnknownOrWrongTenant(t *testing.T) {
	r := newTestRegistry()
	r.Register(testJob("t1", "j1"))

	if _, err := r.Get("t1", "missing"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown job, got %v", err)
	}

	// Tenant mismatch must be indistinguishable from unknown.
	if _, err := r.Get("t2", "j1"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound for tenant mismatch, got %v", err)
	}
}

func TestTransitionsAreMonotonic(t *testing.T) {
	r := newTestRegistry()
	r.Register(testJob("t1", "j1"))

	if err := r.MarkRunning("t1", "j1"); err != nil {
		t.Fatalf("queued->running failed: %v", err)
	}
	if err := r.MarkRunning("t1", "j1"); err == nil {
		t.Error("running->running should be rejected")
	}

	if err := r.MarkSucceeded("t1", "j1", 3, Ref{Bucket: "out", Key: "conversions/j1/manifest.json"}); err != nil {
		t.Fatalf("running->succeeded failed: %v", err)
	}

	// No transition out of a terminal state.
	if err := r.MarkFailed("t1", "j1", "INTERNAL_ERROR", "late failure", Ref{}); err == nil {
		t.Error("terminal state should reject further transitions")
	}
	if err := r.MarkRunning("t1", "j1"); err == nil {
		t.Error("terminal->running should be rejected")
	}

	job, err := r.Get("t1", "j1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", job.Status)
	}
	if job.PageCount != 3 {
		t.Errorf("expected pageCount 3, got %d", job.PageCount)
	}
	if job.Manifest == nil || job.Manifest.Key != "conversions/j1/manifest.json" {
		t.Errorf("expected manifest ref, got %+v", job.Manifest)
	}
	if job.FinishedAt == nil {
		t.Error("expected finishedAt to be set on terminal state")
	}
}

func TestFailureFromQueued(t *testing.T) {
	// A job can fail without ever running (e.g. validation at the worker).
	r := newTestRegistry()
	r.Register(testJob("t1", "j1"))

	if err := r.MarkFailed("t1", "j1", "VALIDATION_ERROR", "input too large", Ref{Bucket: "out", Key: "conversions/j1/manifest.json"}); err != nil {
		t.Fatalf("queued->failed should be allowed: %v", err)
	}

	job, _ := r.Get("t1", "j1")
	if job.ErrorCode != "VALIDATION_ERROR" {
		t.Errorf("expected error code recorded, got %q", job.ErrorCode)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := newTestRegistry()
	r.Register(testJob("t1", "j1"))

	before, _ := r.Get("t1", "j1")
	_ = r.MarkRunning("t1", "j1")

	if before.Status != StatusQueued {
		t.Error("snapshot should not change after a later transition")
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("j%d", i)
			r.Register(testJob("t1", id))
			_ = r.MarkRunning("t1", id)
			if _, err := r.Get("t1", id); err != nil {
				t.Errorf("Get failed: %v", err)
			}
			_ = r.MarkSucceeded("t1", id, 1, Ref{Bucket: "out", Key: "m"})
		}(i)
	}
	wg.Wait()

	if got := r.RunningCount(); got != 0 {
		t.Errorf("expected no running jobs after completion, got %d", got)
	}
}
