// Package converter shells out to a document conversion engine and turns
// its exit behavior into the service's error taxonomy.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"deckconv/internal/pkg/errors"
	"deckconv/internal/pkg/logger"
)

// maxDiagnosticLen bounds how much engine stderr is carried into the
// failure record and the manifest.
const maxDiagnosticLen = 500

// Engine converts a source document into a single PDF. It returns the
// path of the produced PDF inside outDir.
type Engine interface {
	Convert(ctx context.Context, inputPath, outDir string) (string, error)
}

// Runner executes an external command. Split out so tests can substitute
// the conversion binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// LibreOffice drives a headless soffice process. Each conversion gets its
// own user profile directory: soffice refuses to run two instances against
// one profile, and a stale lock from a killed run would poison every job
// after it.
type LibreOffice struct {
	bin        string
	scratchDir string
	timeout    time.Duration
	runner     Runner
	log        *logger.Logger
}

func NewLibreOffice(bin, scratchDir string, timeout time.Duration, log *logger.Logger) *LibreOffice {
	if log == nil {
		log = logger.NewDefault()
	}
	return &LibreOffice{
		bin:        bin,
		scratchDir: scratchDir,
		timeout:    timeout,
		runner:     execRunner{},
		log:        log.WithComponent("converter"),
	}
}

// WithRunner replaces the command runner. Test hook.
func (l *LibreOffice) WithRunner(r Runner) *LibreOffice {
	l.runner = r
	return l
}

func (l *LibreOffice) Convert(ctx context.Context, inputPath, outDir string) (string, error) {
	const op = "converter.Convert"

	profileDir := filepath.Join(l.scratchDir, "profile-"+uuid.NewString())
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return "", errors.Wrap(err, op, "creating profile dir")
	}
	defer os.RemoveAll(profileDir)

	runCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	args := []string{
		"--headless",
		"--nologo",
		"--nolockcheck",
		"--norestore",
		fmt.Sprintf("-env:UserInstallation=file://%s", profileDir),
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	}

	start := time.Now()
	_, stderr, err := l.runner.Run(runCtx, l.bin, args...)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			l.log.Warn("conversion timed out",
				"timeout_s", l.timeout.Seconds(),
				"input", filepath.Base(inputPath),
			)
			return "", errors.ConversionTimeout(l.timeout)
		}
		return "", errors.ConversionFailed(truncate(string(stderr)))
	}

	pdfPath := filepath.Join(outDir, stem(inputPath)+".pdf")
	if _, statErr := os.Stat(pdfPath); statErr != nil {
		// soffice sometimes exits 0 without producing output, e.g. on
		// files it silently refuses to open.
		return "", errors.ConversionFailed(truncate(string(stderr)))
	}

	l.log.Info("conversion finished",
		"input", filepath.Base(inputPath),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pdfPath, nil
}

// stem returns the file name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "conversion engine produced no diagnostic output"
	}
	if len(s) > maxDiagnosticLen {
		return s[:maxDiagnosticLen]
	}
	return s
}
