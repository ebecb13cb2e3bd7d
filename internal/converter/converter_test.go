package converter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deckconv/internal/pkg/errors"
	"deckconv/internal/pkg/logger"
)

type fakeRunner struct {
	stderr    []byte
	err       error
	delay     time.Duration
	produce   bool
	gotArgs   []string
	gotBinary string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.gotBinary = name
	f.gotArgs = args

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if f.produce {
		// Last arg is the input path, second-to-last the outdir flag value.
		outDir := args[len(args)-2]
		input := args[len(args)-1]
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		if err := os.WriteFile(filepath.Join(outDir, base+".pdf"), []byte("%PDF-1.7"), 0o644); err != nil {
			return nil, nil, err
		}
	}
	return nil, f.stderr, f.err
}

func newTestEngine(t *testing.T, runner Runner) (*LibreOffice, string) {
	t.Helper()
	scratch := t.TempDir()
	eng := NewLibreOffice("soffice", scratch, 5*time.Second, logger.NewDefault()).WithRunner(runner)
	return eng, scratch
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertSuccess(t *testing.T) {
	runner := &fakeRunner{produce: true}
	eng, scratch := newTestEngine(t, runner)

	input := writeInput(t, scratch, "deck.pptx")
	outDir := t.TempDir()

	pdfPath, err := eng.Convert(context.Background(), input, outDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(outDir, "deck.pdf"); pdfPath != want {
		t.Fatalf("pdf path = %q, want %q", pdfPath, want)
	}

	if runner.gotBinary != "soffice" {
		t.Fatalf("binary = %q, want soffice", runner.gotBinary)
	}
	joined := strings.Join(runner.gotArgs, " ")
	for _, flag := range []string{"--headless", "--nolockcheck", "--norestore", "--convert-to pdf"} {
		if !strings.Contains(joined, flag) {
			t.Fatalf("args missing %q: %s", flag, joined)
		}
	}
	if !strings.Contains(joined, "-env:UserInstallation=file://") {
		t.Fatalf("args missing profile isolation: %s", joined)
	}
}

func TestConvertTimeout(t *testing.T) {
	runner := &fakeRunner{delay: time.Minute}
	scratch := t.TempDir()
	eng := NewLibreOffice("soffice", scratch, 50*time.Millisecond, logger.NewDefault()).WithRunner(runner)

	input := writeInput(t, scratch, "deck.pptx")
	_, err := eng.Convert(context.Background(), input, t.TempDir())
	if !errors.IsCode(err, errors.CodeConversionTimeout) {
		t.Fatalf("error code = %v, want CONVERSION_TIMEOUT", errors.GetCode(err))
	}
}

func TestConvertNonzeroExitCarriesStderr(t *testing.T) {
	runner := &fakeRunner{stderr: []byte("source file could not be loaded"), err: os.ErrInvalid}
	eng, scratch := newTestEngine(t, runner)

	input := writeInput(t, scratch, "deck.pptx")
	_, err := eng.Convert(context.Background(), input, t.TempDir())
	if !errors.IsCode(err, errors.CodeConversionFailed) {
		t.Fatalf("error code = %v, want CONVERSION_FAILED", errors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "source file could not be loaded") {
		t.Fatalf("diagnostic missing from error: %v", err)
	}
}

func TestConvertMissingOutputIsFailure(t *testing.T) {
	// Exit code zero but no PDF on disk.
	runner := &fakeRunner{produce: false}
	eng, scratch := newTestEngine(t, runner)

	input := writeInput(t, scratch, "deck.pptx")
	_, err := eng.Convert(context.Background(), input, t.TempDir())
	if !errors.IsCode(err, errors.CodeConversionFailed) {
		t.Fatalf("error code = %v, want CONVERSION_FAILED", errors.GetCode(err))
	}
}

func TestTruncateBoundsDiagnostic(t *testing.T) {
	long := strings.Repeat("x", 2000)
	if got := truncate(long); len(got) != maxDiagnosticLen {
		t.Fatalf("truncated length = %d, want %d", len(got), maxDiagnosticLen)
	}
	if got := truncate("  short  "); got != "short" {
		t.Fatalf("got %q, want trimmed short", got)
	}
	if got := truncate(""); got == "" {
		t.Fatal("empty diagnostic should be replaced with placeholder")
	}
}

func TestConvertCleansUpProfileDir(t *testing.T) {
	runner := &fakeRunner{produce: true}
	eng, scratch := newTestEngine(t, runner)

	input := writeInput(t, scratch, "deck.pptx")
	if _, err := eng.Convert(context.Background(), input, t.TempDir()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "profile-") {
			t.Fatalf("profile dir %s not cleaned up", e.Name())
		}
	}
}
