package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"deckconv/internal/pkg/errors"
	"deckconv/internal/ports"
)

func TestPutGetRoundTrip(t *testing.T) {
	fs := New(t.TempDir())
	ctx := context.Background()

	err := fs.PutObject(ctx, ports.PutObjectInput{
		Bucket:      "outputs",
		Key:         "conversions/j1/pages/0001.pdf",
		ContentType: "application/pdf",
		Reader:      strings.NewReader("page one"),
		Size:        8,
	})
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}

	st, err := fs.StatObject(ctx, "outputs", "conversions/j1/pages/0001.pdf")
	if err != nil {
		t.Fatalf("StatObject failed: %v", err)
	}
	if st.Size != 8 {
		t.Errorf("expected size 8, got %d", st.Size)
	}

	rc, err := fs.GetObject(ctx, "outputs", "conversions/j1/pages/0001.pdf")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "page one" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestMissingObjectIsPermanent(t *testing.T) {
	fs := New(t.TempDir())
	ctx := context.Background()

	_, err := fs.StatObject(ctx, "inputs", "nope.pptx")
	if err == nil {
		t.Fatal("expected error for missing object")
	}
	if !errors.IsCode(err, errors.CodeStoragePermanent) {
		t.Errorf("expected STORAGE_PERMANENT, got %s", errors.GetCode(err))
	}

	if _, err := fs.GetObject(ctx, "inputs", "nope.pptx"); !errors.IsCode(err, errors.CodeStoragePermanent) {
		t.Errorf("expected STORAGE_PERMANENT from GetObject, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	root := t.TempDir()
	if err := New(root).Check(context.Background()); err != nil {
		t.Errorf("Check on existing root failed: %v", err)
	}
	if err := New(root + "/missing").Check(context.Background()); err == nil {
		t.Error("expected Check to fail on missing root")
	}
}
