package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"deckconv/internal/httpkit"
	"deckconv/internal/pkg/errors"
	"deckconv/internal/registry"
	"deckconv/internal/scheduler"
)

type objectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// outputRef's key is a prefix: page objects and the manifest are written
// under it.
type outputRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type submitRequest struct {
	TenantID string    `json:"tenantId"`
	JobID    string    `json:"jobId"`
	Input    objectRef `json:"input"`
	Output   outputRef `json:"output"`
}

type submitResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type manifestRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type statusResponse struct {
	JobID     string       `json:"jobId"`
	UserID    string       `json:"userId"`
	Status    string       `json:"status"`
	PageCount int          `json:"pageCount,omitempty"`
	Error     *errorDetail `json:"error,omitempty"`
	Manifest  *manifestRef `json:"manifest,omitempty"`
}

// SubmitJob accepts a conversion request, registers it, and enqueues it.
// Validation failures are the only synchronous errors; everything after
// acceptance is reported through polling. Resubmitting an existing
// (tenantId, jobId) returns the current state without a second enqueue.
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, http.StatusBadRequest, string(errors.CodeValidation), "invalid request body", nil)
		return
	}

	if err := validateSubmit(&req); err != nil {
		httpkit.WriteErr(w, http.StatusBadRequest, string(errors.CodeValidation), err.Message, errors.GetFields(err))
		return
	}

	job, created := h.reg.Register(registry.Job{
		TenantID:     req.TenantID,
		JobID:        req.JobID,
		Input:        registry.Ref{Bucket: req.Input.Bucket, Key: req.Input.Key},
		OutputBucket: req.Output.Bucket,
		OutputPrefix: req.Output.Key,
	})

	if !created {
		httpkit.WriteJSON(w, http.StatusOK, submitResponse{JobID: job.JobID, Status: string(job.Status)})
		return
	}

	h.sched.Enqueue(scheduler.Task{TenantID: job.TenantID, JobID: job.JobID})
	httpkit.WriteJSON(w, http.StatusCreated, submitResponse{JobID: job.JobID, Status: string(job.Status)})
}

// validateSubmit checks presence of all required identity and location
// fields and normalizes the output prefix to end with "/".
func validateSubmit(req *submitRequest) *errors.Error {
	switch {
	case strings.TrimSpace(req.TenantID) == "":
		return errors.ValidationField("tenantId", "tenantId is required")
	case strings.TrimSpace(req.JobID) == "":
		return errors.ValidationField("jobId", "jobId is required")
	case req.Input.Bucket == "":
		return errors.ValidationField("input.bucket", "input.bucket is required")
	case req.Input.Key == "":
		return errors.ValidationField("input.key", "input.key is required")
	case req.Output.Bucket == "":
		return errors.ValidationField("output.bucket", "output.bucket is required")
	case req.Output.Key == "":
		return errors.ValidationField("output.key", "output.key is required")
	}

	if !strings.HasSuffix(req.Output.Key, "/") {
		req.Output.Key += "/"
	}
	return nil
}

// GetJob returns the registry's view of a job. The tenant comes from the
// query string; a job owned by a different tenant answers 404, never 403,
// so callers cannot probe for foreign job IDs.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		httpkit.WriteErr(w, http.StatusBadRequest, string(errors.CodeValidation), "tenantId query parameter is required", nil)
		return
	}

	job, err := h.reg.Get(tenantID, jobID)
	if err != nil {
		httpkit.WriteErr(w, http.StatusNotFound, "JOB_NOT_FOUND", "job not found", nil)
		return
	}

	resp := statusResponse{
		JobID:  job.JobID,
		UserID: job.TenantID,
		Status: string(job.Status),
	}
	switch job.Status {
	case registry.StatusSucceeded:
		resp.PageCount = job.PageCount
	case registry.StatusFailed:
		resp.Error = &errorDetail{Code: job.ErrorCode, Message: job.ErrorMessage}
	}
	if job.Status.Terminal() && job.Manifest != nil {
		resp.Manifest = &manifestRef{Bucket: job.Manifest.Bucket, Key: job.Manifest.Key}
	}

	httpkit.WriteJSON(w, http.StatusOK, resp)
}
