package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"deckconv/internal/pkg/errors"
	"deckconv/internal/ports"
)

// LocalFS implements ports.ObjectStore on the local filesystem. Buckets are
// directories under a configured root. Used for development and tests.
type LocalFS struct {
	root string
}

func New(root string) *LocalFS {
	return &LocalFS{root: root}
}

func (l *LocalFS) Provider() string { return "localfs" }

func (l *LocalFS) path(bucket, key string) string {
	return filepath.Join(l.root, bucket, filepath.FromSlash(key))
}

func (l *LocalFS) StatObject(ctx context.Context, bucket, key string) (ports.StatInfo, error) {
	st, err := os.Stat(l.path(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return ports.StatInfo{}, errors.StoragePermanent(err, "localfs.stat")
		}
		return ports.StatInfo{}, errors.StorageTransient(err, "localfs.stat")
	}
	return ports.StatInfo{Size: st.Size()}, nil
}

func (l *LocalFS) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.path(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.StoragePermanent(err, "localfs.get")
		}
		return nil, errors.StorageTransient(err, "localfs.get")
	}
	return f, nil
}

func (l *LocalFS) PutObject(ctx context.Context, in ports.PutObjectInput) error {
	if in.Bucket == "" || in.Key == "" {
		return errors.StoragePermanent(fmt.Errorf("bucket and key are required"), "localfs.put")
	}

	dst := l.path(in.Bucket, in.Key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.StorageTransient(err, "localfs.put")
	}

	f, err := os.Create(dst)
	if err != nil {
		return errors.StorageTransient(err, "localfs.put")
	}
	defer f.Close()

	if _, err := io.Copy(f, in.Reader); err != nil {
		return errors.StorageTransient(err, "localfs.put")
	}
	return nil
}

func (l *LocalFS) Check(ctx context.Context) error {
	if _, err := os.Stat(l.root); err != nil {
		return errors.StoragePermanent(err, "localfs.check")
	}
	return nil
}
