// Package registry holds the in-memory job registry: the single source of
// truth for status queries. Jobs are retained for the life of the process.
package registry

import (
	"sync"
	"time"

	"deckconv/internal/pkg/errors"
	"deckconv/internal/pkg/logger"
)

type jobKey struct {
	tenantID string
	jobID    string
}

// Registry is a concurrency-safe map of job identity to job state.
// Reads never observe a partially written record: every accessor copies
// under the lock.
type Registry struct {
	mu   sync.RWMutex
	jobs map[jobKey]*Job
	log  *logger.Logger
}

func New(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Registry{
		jobs: make(map[jobKey]*Job),
		log:  log.WithComponent("registry"),
	}
}

// Register creates the job in queued state. If the identity already exists
// the existing record is returned unchanged with created=false; this is what
// makes duplicate submissions safe.
func (r *Registry) Register(job Job) (Job, bool) {
	key := jobKey{job.TenantID, job.JobID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[key]; ok {
		r.log.Warn("job already exists", "job_id", job.JobID, "tenant_id", job.TenantID, "status", string(existing.Status))
		return snapshot(existing), false
	}

	job.Status = StatusQueued
	job.CreatedAt = time.Now().UTC()
	stored := job
	r.jobs[key] = &stored

	r.log.Info("job registered", "job_id", job.JobID, "tenant_id", job.TenantID)
	return snapshot(&stored), true
}

// Get returns a copy of the job, or NotFound when the identity is unknown.
// A tenant mismatch is indistinguishable from an unknown job by construction
// since the tenant is part of the key.
func (r *Registry) Get(tenantID, jobID string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobKey{tenantID, jobID}]
	if !ok {
		return Job{}, errors.NotFound("job", jobID)
	}
	return snapshot(job), nil
}

// MarkRunning transitions queued → running.
func (r *Registry) MarkRunning(tenantID, jobID string) error {
	return r.transition(tenantID, jobID, StatusRunning, func(j *Job) {
		now := time.Now().UTC()
		j.StartedAt = &now
	})
}

// MarkSucceeded transitions to the terminal succeeded state. Called only
// after the success manifest upload completed.
func (r *Registry) MarkSucceeded(tenantID, jobID string, pageCount int, manifest Ref) error {
	return r.transition(tenantID, jobID, StatusSucceeded, func(j *Job) {
		j.PageCount = pageCount
		j.Manifest = &manifest
	})
}

// MarkFailed transitions to the terminal failed state. The manifest ref
// records where the failure manifest upload was attempted; it is set even
// when that upload did not succeed, since the registry is the fallback
// source of truth for polling callers.
func (r *Registry) MarkFailed(tenantID, jobID, code, message string, manifest Ref) error {
	return r.transition(tenantID, jobID, StatusFailed, func(j *Job) {
		j.ErrorCode = code
		j.ErrorMessage = message
		j.Manifest = &manifest
	})
}

func (r *Registry) transition(tenantID, jobID string, next Status, apply func(*Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobKey{tenantID, jobID}]
	if !ok {
		return errors.NotFound("job", jobID)
	}

	if !validTransition(job.Status, next) {
		return errors.Newf(errors.CodeInternal, "invalid transition %s -> %s for job %s", job.Status, next, jobID)
	}

	prev := job.Status
	job.Status = next
	if next.Terminal() {
		now := time.Now().UTC()
		job.FinishedAt = &now
	}
	apply(job)

	r.log.Info("job status updated",
		"job_id", jobID,
		"tenant_id", tenantID,
		"old_status", string(prev),
		"new_status", string(next),
	)
	return nil
}

// validTransition enforces the monotonic queued → running → terminal order.
// Terminal states admit nothing.
func validTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusRunning:
		return from == StatusQueued
	case StatusSucceeded, StatusFailed:
		return from == StatusQueued || from == StatusRunning
	default:
		return false
	}
}

// RunningCount reports how many jobs are currently in running state.
func (r *Registry) RunningCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, job := range r.jobs {
		if job.Status == StatusRunning {
			n++
		}
	}
	return n
}

func snapshot(j *Job) Job {
	out := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	if j.Manifest != nil {
		m := *j.Manifest
		out.Manifest = &m
	}
	return out
}
