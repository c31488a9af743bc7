// Package storage fetches source documents and stores produced ones.
package storage

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"
)

var (
	ErrNotFound           = errors.New("storage: not found")
	ErrPreconditionFailed = errors.New("storage: precondition failed")
	ErrTooLarge           = errors.New("storage: content exceeds size limit")
)

// Source is fetched input. MimeType is whatever the origin declared and may
// be empty.
type Source struct {
	Data     []byte
	MimeType string
	Filename string
}

// Fetcher loads content by reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (Source, error)
}

// Handle identifies a stored document.
type Handle struct {
	Name string `json:"name"`
	Path string `json:"path"`
	ETag string `json:"etag"`
	Size int64  `json:"size"`
}

// Uploader stores content under name. A non-empty ifMatch must equal the
// ETag of the stored version, otherwise ErrPreconditionFailed is returned and
// nothing is written.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, ifMatch string) (Handle, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces name to a single safe path element. Directory
// parts are dropped and runs of other characters become "_".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document"
	}
	return name
}
