package ooxml

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"testing"

	oxml "github.com/benjaminschreck/go-ooxml/pkg/ooxml/xml"
)

func testConfig() *Config {
	return DefaultConfig()
}

func testEngine() *Engine {
	return NewWithConfig(testConfig())
}

func mustOpen(t *testing.T, data []byte) *Package {
	t.Helper()
	pkg, err := OpenWithConfig(data, testConfig())
	if err != nil {
		t.Fatalf("OpenWithConfig() error = %v", err)
	}
	return pkg
}

func mustPresentation(t *testing.T, data []byte) *Presentation {
	t.Helper()
	pr, err := OpenPresentation(mustOpen(t, data))
	if err != nil {
		t.Fatalf("OpenPresentation() error = %v", err)
	}
	return pr
}

func mustDocument(t *testing.T, data []byte) *Document {
	t.Helper()
	doc, err := OpenDocument(mustOpen(t, data))
	if err != nil {
		t.Fatalf("OpenDocument() error = %v", err)
	}
	return doc
}

// zipEntries reads every entry of a ZIP archive.
func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("output is not a ZIP archive: %v", err)
	}
	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		entries[f.Name] = string(content)
	}
	return entries
}

// entryXML parses one entry of a ZIP archive.
func entryXML(t *testing.T, data []byte, name string) *oxml.Node {
	t.Helper()
	content, ok := zipEntries(t, data)[name]
	if !ok {
		t.Fatalf("entry %s is missing", name)
	}
	doc, err := oxml.Parse([]byte(content))
	if err != nil {
		t.Fatalf("entry %s does not parse: %v", name, err)
	}
	return doc
}

func slideIDs(t *testing.T, data []byte) []int {
	t.Helper()
	slides, err := testEngine().ListSlides(data)
	if err != nil {
		t.Fatalf("ListSlides() error = %v", err)
	}
	ids := make([]int, len(slides))
	for i, s := range slides {
		ids[i] = s.ID
	}
	return ids
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func intPtr(i int) *int {
	return &i
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
