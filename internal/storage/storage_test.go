package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"deck.pptx":              "deck.pptx",
		"../../etc/passwd":       "passwd",
		`C:\Users\me\notes.docx`: "notes.docx",
		"my report (v2).docx":    "my_report_v2_.docx",
		"  spaced.docx  ":        "spaced.docx",
		"..":                     "document",
		"":                       "document",
		".hidden":                "hidden",
		"résumé.docx":            "r_sum_.docx",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "SanitizeFilename(%q)", in)
	}
}

func TestETag(t *testing.T) {
	a := ETag([]byte("one"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, ETag([]byte("one")))
	assert.NotEqual(t, a, ETag([]byte("two")))
}

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger := NewLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, ledger.Init(context.Background()))
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t)

	_, err := ledger.Get(ctx, "a.docx")
	assert.ErrorIs(t, err, ErrNotFound)

	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, ledger.Put(ctx, Entry{Name: "a.docx", ETag: "e1", Size: 3, UpdatedAt: when}))
	got, err := ledger.Get(ctx, "a.docx")
	require.NoError(t, err)
	assert.Equal(t, Entry{Name: "a.docx", ETag: "e1", Size: 3, UpdatedAt: when}, got)

	require.NoError(t, ledger.Put(ctx, Entry{Name: "a.docx", ETag: "e2", Size: 4}))
	got, err = ledger.Get(ctx, "a.docx")
	require.NoError(t, err)
	assert.Equal(t, "e2", got.ETag)

	require.NoError(t, ledger.Delete(ctx, "a.docx"))
	_, err = ledger.Get(ctx, "a.docx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t)

	require.NoError(t, ledger.CompareAndSwap(ctx, "", Entry{Name: "x", ETag: "v1"}))
	assert.ErrorIs(t, ledger.CompareAndSwap(ctx, "", Entry{Name: "x", ETag: "v2"}), ErrPreconditionFailed)
	assert.ErrorIs(t, ledger.CompareAndSwap(ctx, "stale", Entry{Name: "x", ETag: "v2"}), ErrPreconditionFailed)
	require.NoError(t, ledger.CompareAndSwap(ctx, "v1", Entry{Name: "x", ETag: "v2"}))

	got, err := ledger.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.ETag)
}

func newUploader(t *testing.T) *DirUploader {
	t.Helper()
	return NewDirUploader(filepath.Join(t.TempDir(), "out"), newLedger(t))
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	up := newUploader(t)

	h, err := up.Upload(ctx, "../Quarterly Deck.pptx", []byte("v1"), "")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly_Deck.pptx", h.Name)
	assert.Equal(t, filepath.Join(up.Dir(), "Quarterly_Deck.pptx"), h.Path)
	assert.Equal(t, ETag([]byte("v1")), h.ETag)
	assert.EqualValues(t, 2, h.Size)

	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	// unconditional overwrite
	h2, err := up.Upload(ctx, h.Name, []byte("v2"), "")
	require.NoError(t, err)
	assert.NotEqual(t, h.ETag, h2.ETag)

	entries, err := os.ReadDir(up.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestUploadIfMatch(t *testing.T) {
	ctx := context.Background()
	up := newUploader(t)

	_, err := up.Upload(ctx, "doc.docx", []byte("v1"), "*")
	assert.ErrorIs(t, err, ErrPreconditionFailed, "* requires an existing document")

	h1, err := up.Upload(ctx, "doc.docx", []byte("v1"), "")
	require.NoError(t, err)

	h2, err := up.Upload(ctx, "doc.docx", []byte("v2"), `"`+h1.ETag+`"`)
	require.NoError(t, err)

	_, err = up.Upload(ctx, "doc.docx", []byte("v3"), h1.ETag)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	data, err := os.ReadFile(h2.Path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data), "a failed precondition must not write")

	_, err = up.Upload(ctx, "doc.docx", []byte("v3"), "*")
	assert.NoError(t, err)
}

func TestUploadUntrackedFile(t *testing.T) {
	ctx := context.Background()
	up := newUploader(t)
	require.NoError(t, os.MkdirAll(up.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(up.Dir(), "ext.docx"), []byte("outside"), 0o644))

	_, err := up.Upload(ctx, "ext.docx", []byte("new"), "wrong")
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = up.Upload(ctx, "ext.docx", []byte("new"), ETag([]byte("outside")))
	assert.NoError(t, err)
}

func TestUploadConcurrentIfMatch(t *testing.T) {
	ctx := context.Background()
	up := newUploader(t)
	base, err := up.Upload(ctx, "race.docx", []byte("base"), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := up.Upload(ctx, "race.docx", []byte{byte('a' + i)}, base.ETag)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, failed int
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrPreconditionFailed)
			failed++
		}
	}
	assert.Equal(t, 1, ok, "exactly one writer wins")
	assert.Equal(t, 7, failed)
}

func TestFetchLocal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := t.TempDir()
	file := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(file, []byte("# hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stored.docx"), []byte("PK"), 0o644))

	f := NewFetcher(time.Second, 0, root)

	src, err := f.Fetch(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, Source{Data: []byte("# hi"), Filename: "notes.md"}, src)

	src, err = f.Fetch(ctx, "file://"+file)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", src.Filename)

	src, err = f.Fetch(ctx, "stored.docx")
	require.NoError(t, err)
	assert.Equal(t, "PK", string(src.Data))

	_, err = f.Fetch(ctx, filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Fetch(ctx, dir)
	assert.Error(t, err)

	_, err = f.Fetch(ctx, "  ")
	assert.Error(t, err)

	_, err = NewFetcher(time.Second, 2, "").Fetch(ctx, file)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetchHTTP(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>hello</p>"))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="report.md"`)
		_, _ = w.Write([]byte("# report"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher(5*time.Second, 1024, "")

	src, err := f.Fetch(ctx, srv.URL+"/docs/page.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(src.Data))
	assert.Equal(t, "text/html; charset=utf-8", src.MimeType)
	assert.Equal(t, "page.html", src.Filename)

	src, err = f.Fetch(ctx, srv.URL+"/download")
	require.NoError(t, err)
	assert.Equal(t, "report.md", src.Filename)
	assert.Equal(t, "application/octet-stream", src.MimeType)

	_, err = f.Fetch(ctx, srv.URL+"/nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Fetch(ctx, srv.URL+"/broken")
	assert.ErrorContains(t, err, "500")

	_, err = NewFetcher(5*time.Second, 4, "").Fetch(ctx, srv.URL+"/docs/page.html")
	assert.ErrorIs(t, err, ErrTooLarge)
}
