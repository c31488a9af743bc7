package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFetcher reads local files and http(s) URLs.
type DefaultFetcher struct {
	client   *http.Client
	maxBytes int64
	root     string
}

// NewFetcher creates a fetcher. Relative paths that do not exist in the
// working directory are looked up under root, so outputs can be fed back in
// by name. maxBytes <= 0 disables the size check.
func NewFetcher(timeout time.Duration, maxBytes int64, root string) *DefaultFetcher {
	return &DefaultFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		root:     root,
	}
}

func (f *DefaultFetcher) Fetch(ctx context.Context, ref string) (Source, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Source{}, errors.New("storage: empty source reference")
	}

	if u, err := url.Parse(ref); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return f.fetchHTTP(ctx, u)
		case "file":
			return f.fetchFile(u.Path)
		}
	}
	return f.fetchFile(ref)
}

func (f *DefaultFetcher) fetchFile(name string) (Source, error) {
	resolved := name
	if _, err := os.Stat(resolved); errors.Is(err, os.ErrNotExist) && f.root != "" && !filepath.IsAbs(name) {
		resolved = filepath.Join(f.root, name)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Source{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Source{}, err
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("storage: %s is a directory", name)
	}
	if f.maxBytes > 0 && info.Size() > f.maxBytes {
		return Source{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, name, info.Size())
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Source{}, err
	}
	return Source{Data: data, Filename: filepath.Base(resolved)}, nil
}

func (f *DefaultFetcher) fetchHTTP(ctx context.Context, u *url.URL) (Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Source{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Source{}, fmt.Errorf("storage: fetch %s: %w", u.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Source{}, fmt.Errorf("%w: %s", ErrNotFound, u.Redacted())
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Source{}, fmt.Errorf("storage: fetch %s: %s", u.Redacted(), resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Source{}, fmt.Errorf("storage: fetch %s: %w", u.Redacted(), err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return Source{}, fmt.Errorf("%w: %s", ErrTooLarge, u.Redacted())
	}

	return Source{
		Data:     data,
		MimeType: resp.Header.Get("Content-Type"),
		Filename: responseFilename(resp, u),
	}, nil
}

// responseFilename prefers the Content-Disposition filename over the last
// path segment of the URL.
func responseFilename(resp *http.Response, u *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	if base := path.Base(u.Path); base != "/" && base != "." {
		return base
	}
	return ""
}
