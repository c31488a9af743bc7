package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirUploader writes documents into a directory and tracks their ETags in
// a Ledger.
type DirUploader struct {
	dir    string
	ledger *Ledger

	mu sync.Mutex
}

func NewDirUploader(dir string, ledger *Ledger) *DirUploader {
	return &DirUploader{dir: dir, ledger: ledger}
}

func (u *DirUploader) Dir() string {
	return u.dir
}

func (u *DirUploader) Upload(ctx context.Context, name string, data []byte, ifMatch string) (Handle, error) {
	clean := SanitizeFilename(name)
	target := filepath.Join(u.dir, clean)
	ifMatch = normalizeETag(ifMatch)

	u.mu.Lock()
	defer u.mu.Unlock()

	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return Handle{}, err
	}

	recorded := ""
	current := ""
	entry, err := u.ledger.Get(ctx, clean)
	switch {
	case err == nil:
		recorded = entry.ETag
		current = entry.ETag
	case errors.Is(err, ErrNotFound):
		// written by someone else: the file content is the truth
		if existing, readErr := os.ReadFile(target); readErr == nil {
			current = ETag(existing)
		}
	default:
		return Handle{}, err
	}

	switch {
	case ifMatch == "":
	case ifMatch == "*":
		if current == "" {
			return Handle{}, fmt.Errorf("%w: %s does not exist", ErrPreconditionFailed, clean)
		}
	case ifMatch != current:
		return Handle{}, fmt.Errorf("%w: %s has etag %q", ErrPreconditionFailed, clean, current)
	}

	tmp, err := os.CreateTemp(u.dir, "."+clean+".*.tmp")
	if err != nil {
		return Handle{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Handle{}, err
	}
	if err := tmp.Close(); err != nil {
		return Handle{}, err
	}

	etag := ETag(data)
	next := Entry{Name: clean, ETag: etag, Size: int64(len(data))}
	if err := u.ledger.CompareAndSwap(ctx, recorded, next); err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			return Handle{}, fmt.Errorf("%w: %s changed concurrently", ErrPreconditionFailed, clean)
		}
		return Handle{}, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return Handle{}, err
	}

	return Handle{Name: clean, Path: target, ETag: etag, Size: int64(len(data))}, nil
}

// normalizeETag strips the quotes and weak marker an HTTP client may send.
func normalizeETag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}
