// Package pipeline executes one conversion job end to end: validate the
// input, fetch it, render to PDF, split into pages, upload pages, then
// publish the manifest. The manifest upload is last on purpose: readers
// treat its presence as proof that every page object before it is complete.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"

	"deckconv/internal/converter"
	"deckconv/internal/manifest"
	"deckconv/internal/pdf"
	"deckconv/internal/pkg/errors"
	"deckconv/internal/pkg/logger"
	"deckconv/internal/registry"
	"deckconv/internal/scheduler"
	"deckconv/internal/storage"
)

// Splitter turns a rendered PDF into ordered page files. Indirection for
// tests; production wiring uses pdf.Split.
type Splitter func(inPath, outDir string) ([]string, error)

type Pipeline struct {
	store    storage.Store
	reg      *registry.Registry
	engine   converter.Engine
	split    Splitter
	log      *logger.Logger
	scratch  string
	maxBytes int64

	retryAttempts int
	retryBase     time.Duration
}

type Options struct {
	ScratchDir    string
	MaxInputBytes int64
	RetryAttempts int
	RetryBase     time.Duration
}

func New(store storage.Store, reg *registry.Registry, engine converter.Engine, opts Options, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewDefault()
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	return &Pipeline{
		store:         store,
		reg:           reg,
		engine:        engine,
		split:         pdf.Split,
		log:           log.WithComponent("pipeline"),
		scratch:       opts.ScratchDir,
		maxBytes:      opts.MaxInputBytes,
		retryAttempts: opts.RetryAttempts,
		retryBase:     opts.RetryBase,
	}
}

// WithSplitter replaces the page splitter. Test hook.
func (p *Pipeline) WithSplitter(s Splitter) *Pipeline {
	p.split = s
	return p
}

// Run implements scheduler.Runner. Any error short of a registry bug ends
// in a terminal failed state with a best-effort failure manifest; Run only
// returns an error so the worker can log it.
func (p *Pipeline) Run(ctx context.Context, task scheduler.Task) error {
	job, err := p.reg.Get(task.TenantID, task.JobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		// Duplicate enqueue of an already finished job.
		return nil
	}

	if err := p.reg.MarkRunning(task.TenantID, task.JobID); err != nil {
		return err
	}

	log := p.log.WithJobID(job.JobID).WithTenant(job.TenantID)

	pageCount, execErr := p.execute(ctx, job, log)
	manifestRef := registry.Ref{
		Bucket: job.OutputBucket,
		Key:    manifest.Key(job.OutputPrefix),
	}

	if execErr != nil {
		code := string(errors.GetCode(execErr))
		msg := publicMessage(execErr)
		log.Warn("job execution failed", "code", code, "error", execErr.Error())

		p.uploadFailureManifest(ctx, job, code, msg, log)
		if markErr := p.reg.MarkFailed(task.TenantID, task.JobID, code, msg, manifestRef); markErr != nil {
			return markErr
		}
		return execErr
	}

	return p.reg.MarkSucceeded(task.TenantID, task.JobID, pageCount, manifestRef)
}

// execute runs the fallible part of the job and returns the page count.
func (p *Pipeline) execute(ctx context.Context, job registry.Job, log *logger.Logger) (int, error) {
	if err := p.validateInput(ctx, job); err != nil {
		return 0, err
	}

	workDir := filepath.Join(p.scratch, "job-"+job.JobID)
	inputDir := filepath.Join(workDir, "input")
	pdfDir := filepath.Join(workDir, "pdf")
	pagesDir := filepath.Join(workDir, "pages")
	for _, dir := range []string{inputDir, pdfDir, pagesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, errors.Wrap(err, "pipeline.execute", "creating scratch dirs")
		}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("scratch cleanup failed", "dir", workDir, "error", err.Error())
		}
	}()

	inputPath := filepath.Join(inputDir, filepath.Base(job.Input.Key))
	if err := p.fetchInput(ctx, job, inputPath); err != nil {
		return 0, err
	}

	pdfPath, err := p.engine.Convert(ctx, inputPath, pdfDir)
	if err != nil {
		return 0, err
	}

	pagePaths, err := p.split(pdfPath, pagesDir)
	if err != nil {
		return 0, err
	}
	log.Info("pdf split complete", "pages", len(pagePaths))

	for i, pagePath := range pagePaths {
		key := manifest.PageKey(job.OutputPrefix, i+1)
		if err := p.uploadFile(ctx, job.OutputBucket, key, pagePath); err != nil {
			return 0, err
		}
	}

	// Publishing the manifest commits the job. Everything above must have
	// succeeded before this line runs.
	m := manifest.NewSuccess(job.JobID, job.TenantID, job.OutputPrefix, len(pagePaths))
	if err := p.uploadManifest(ctx, job.OutputBucket, job.OutputPrefix, m); err != nil {
		return 0, err
	}
	log.Info("manifest published", "page_count", len(pagePaths))

	return len(pagePaths), nil
}

// validateInput probes the source object before committing to a download.
func (p *Pipeline) validateInput(ctx context.Context, job registry.Job) error {
	var info storage.StatInfo
	err := p.withRetry(ctx, func(ctx context.Context) error {
		var statErr error
		info, statErr = p.store.StatObject(ctx, job.Input.Bucket, job.Input.Key)
		return statErr
	})
	if err != nil {
		return err
	}

	if p.maxBytes > 0 && info.Size > p.maxBytes {
		return errors.Validationf("input size %d bytes exceeds limit of %d bytes", info.Size, p.maxBytes)
	}
	return nil
}

func (p *Pipeline) fetchInput(ctx context.Context, job registry.Job, destPath string) error {
	return p.withRetry(ctx, func(ctx context.Context) error {
		body, err := p.store.GetObject(ctx, job.Input.Bucket, job.Input.Key)
		if err != nil {
			return err
		}
		defer body.Close()

		f, err := os.Create(destPath)
		if err != nil {
			return errors.Wrap(err, "pipeline.fetchInput", "creating scratch file")
		}
		defer f.Close()

		if _, err := io.Copy(f, body); err != nil {
			return errors.StorageTransient(err, "pipeline.fetchInput")
		}
		return nil
	})
}

func (p *Pipeline) uploadFile(ctx context.Context, bucket, key, path string) error {
	return p.withRetry(ctx, func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "pipeline.uploadFile", "opening page file")
		}
		defer f.Close()

		fi, err := f.Stat()
		if err != nil {
			return errors.Wrap(err, "pipeline.uploadFile", "stating page file")
		}

		return p.store.PutObject(ctx, storage.PutObjectInput{
			Bucket:      bucket,
			Key:         key,
			ContentType: "application/pdf",
			Reader:      f,
			Size:        fi.Size(),
		})
	})
}

func (p *Pipeline) uploadManifest(ctx context.Context, bucket, prefix string, m manifest.Success) error {
	data, err := manifest.Encode(m)
	if err != nil {
		return errors.Wrap(err, "pipeline.uploadManifest", "encoding manifest")
	}
	return p.withRetry(ctx, func(ctx context.Context) error {
		return p.store.PutObject(ctx, storage.PutObjectInput{
			Bucket:      bucket,
			Key:         manifest.Key(prefix),
			ContentType: "application/json",
			Reader:      bytes.NewReader(data),
			Size:        int64(len(data)),
		})
	})
}

// uploadFailureManifest is best-effort: the registry already carries the
// authoritative failure record, so an upload error here is only logged.
func (p *Pipeline) uploadFailureManifest(ctx context.Context, job registry.Job, code, message string, log *logger.Logger) {
	m := manifest.NewFailure(job.JobID, job.TenantID, code, message)
	data, err := manifest.Encode(m)
	if err != nil {
		log.Error("encoding failure manifest", "error", err.Error())
		return
	}

	err = p.withRetry(ctx, func(ctx context.Context) error {
		return p.store.PutObject(ctx, storage.PutObjectInput{
			Bucket:      job.OutputBucket,
			Key:         manifest.Key(job.OutputPrefix),
			ContentType: "application/json",
			Reader:      bytes.NewReader(data),
			Size:        int64(len(data)),
		})
	})
	if err != nil {
		log.Warn("failure manifest upload failed", "error", err.Error())
	}
}

// withRetry retries fn on transient storage errors with exponential
// backoff. Permanent and non-storage errors surface immediately. A
// transient error that survives every attempt escalates to permanent.
func (p *Pipeline) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(p.retryAttempts-1), retry.NewExponential(p.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if errors.IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil && errors.IsTransient(err) {
		return errors.WrapWithCode(err, errors.CodeStoragePermanent, "pipeline.withRetry", "retry attempts exhausted")
	}
	return err
}

// publicMessage is what polling clients and the failure manifest see. It
// keeps internal wrapping detail out of the client-facing record.
func publicMessage(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fmt.Sprintf("job failed: %v", err)
}
