// Package manifest defines the completion record written to the object
// store. The manifest is the commit marker for a job: its presence at the
// well-known key is the only signal that every page object before it is
// complete and readable.
package manifest

import (
	"encoding/json"
	"fmt"
)

// PageEntry maps a 1-based page number to its object key.
type PageEntry struct {
	Page int    `json:"page"`
	Key  string `json:"key"`
}

// Success is the manifest written after all page uploads finish.
type Success struct {
	JobID     string      `json:"jobId"`
	UserID    string      `json:"userId"`
	Status    string      `json:"status"`
	PageCount int         `json:"pageCount"`
	Pages     []PageEntry `json:"pages"`
}

// FailureDetail carries the taxonomy code and a human-readable message.
type FailureDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Failure is the best-effort record written when a job fails. Consumers
// must treat its absence the same as a pending job.
type Failure struct {
	JobID  string        `json:"jobId"`
	UserID string        `json:"userId"`
	Status string        `json:"status"`
	Error  FailureDetail `json:"error"`
}

// NewSuccess builds a success manifest with page entries derived from the
// key layout. pageCount must be >= 1.
func NewSuccess(jobID, userID, keyPrefix string, pageCount int) Success {
	pages := make([]PageEntry, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		pages = append(pages, PageEntry{Page: page, Key: PageKey(keyPrefix, page)})
	}
	return Success{
		JobID:     jobID,
		UserID:    userID,
		Status:    "succeeded",
		PageCount: pageCount,
		Pages:     pages,
	}
}

// NewFailure builds a failure manifest.
func NewFailure(jobID, userID, code, message string) Failure {
	return Failure{
		JobID:  jobID,
		UserID: userID,
		Status: "failed",
		Error:  FailureDetail{Code: code, Message: message},
	}
}

// PageKey returns the object key for page n under the job's output prefix.
func PageKey(keyPrefix string, n int) string {
	return fmt.Sprintf("%spages/%04d.pdf", keyPrefix, n)
}

// Key returns the manifest object key under the job's output prefix.
func Key(keyPrefix string) string {
	return keyPrefix + "manifest.json"
}

// Encode renders a manifest as JSON.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
