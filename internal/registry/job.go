package registry

import "time"

// Status is the execution state of a conversion job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Ref is an object-store location.
type Ref struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Job is the registry's record of one conversion request. Identity is
// (TenantID, JobID), unique per tenant. The registry hands out copies;
// only the worker that owns the job mutates the stored record, through
// the registry's transition methods.
type Job struct {
	TenantID string
	JobID    string

	Input        Ref
	OutputBucket string
	OutputPrefix string

	Status     Status
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time

	// Set iff failed.
	ErrorCode    string
	ErrorMessage string

	// Set iff succeeded.
	PageCount int

	// Set once terminal: where the manifest upload was attempted.
	Manifest *Ref
}
