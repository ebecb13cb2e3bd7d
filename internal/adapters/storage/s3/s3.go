// Package s3 implements ports.ObjectStore against any S3-compatible
// endpoint (AWS S3, MinIO, LocalStack).
package s3

import (
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"deckconv/internal/pkg/errors"
	"deckconv/internal/ports"
)

type Store struct {
	client *minio.Client
}

type Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

func New(opt Options) (*Store, error) {
	mopts := &minio.Options{
		Secure: opt.UseSSL,
		Region: opt.Region,
	}
	// Without static credentials the client falls back to the environment
	// (IAM role, AWS_* vars), matching how the service runs in-cluster.
	if opt.AccessKeyID != "" && opt.SecretAccessKey != "" {
		mopts.Creds = credentials.NewStaticV4(opt.AccessKeyID, opt.SecretAccessKey, "")
	} else {
		mopts.Creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(opt.Endpoint, mopts)
	if err != nil {
		return nil, errors.Wrap(err, "s3.new", "failed to create s3 client")
	}

	return &Store{client: client}, nil
}

func (s *Store) Provider() string { return "s3" }

func (s *Store) StatObject(ctx context.Context, bucket, key string) (ports.StatInfo, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ports.StatInfo{}, classify(err, "s3.stat")
	}
	return ports.StatInfo{Size: info.Size}, nil
}

func (s *Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err, "s3.get")
	}

	// GetObject is lazy; surface missing-object errors here instead of at
	// first read so callers get a classified error.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, classify(err, "s3.get")
	}

	return obj, nil
}

func (s *Store) PutObject(ctx context.Context, in ports.PutObjectInput) error {
	_, err := s.client.PutObject(ctx, in.Bucket, in.Key, in.Reader, in.Size, minio.PutObjectOptions{
		ContentType: in.ContentType,
	})
	if err != nil {
		return classify(err, "s3.put")
	}
	return nil
}

func (s *Store) Check(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return classify(err, "s3.check")
	}
	return nil
}

// classify maps an S3 error to the transient/permanent taxonomy. Not-found
// and access-denied cannot be fixed by retrying; throttling, server errors,
// and transport failures can.
func classify(err error, op string) *errors.Error {
	resp := minio.ToErrorResponse(err)

	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return errors.StoragePermanent(err, op)
	case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
		return errors.StorageTransient(err, op)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		return errors.StoragePermanent(err, op)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return errors.StorageTransient(err, op)
	case resp.StatusCode == 0:
		// No HTTP response at all: network failure, treat as transient.
		return errors.StorageTransient(err, op)
	}

	return errors.StoragePermanent(err, op)
}
