package ports

import (
	"context"
	"io"
)

// StatInfo is object metadata from a probe, used to check input size
// before committing to a download.
type StatInfo struct {
	Size int64
}

type PutObjectInput struct {
	Bucket      string
	Key         string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// ObjectStore: implementations (s3, localfs). Errors returned by
// implementations are classified with errors.CodeStorageTransient or
// errors.CodeStoragePermanent so callers can decide whether to retry.
type ObjectStore interface {
	Provider() string

	StatObject(ctx context.Context, bucket, key string) (StatInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	PutObject(ctx context.Context, in PutObjectInput) error

	// Check probes reachability of the backing store. Used by readiness.
	Check(ctx context.Context) error
}
