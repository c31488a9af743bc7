package ooxml

import (
	"errors"
	"strings"
	"testing"

	"github.com/benjaminschreck/go-ooxml/pkg/ooxml/ooxmltest"
)

func TestParseSourceFormat(t *testing.T) {
	tests := []struct {
		mime string
		want SourceFormat
	}{
		{"text/plain", PlainText},
		{"plain", PlainText},
		{"text/markdown; charset=utf-8", Markdown},
		{"MD", Markdown},
		{"text/html", HTML},
		{"application/xhtml+xml", HTML},
		{"application/xml", XML},
		{"text/xml", XML},
		{"message/rfc822", MailArchive},
		{"multipart/related", MailArchive},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", WordprocessingFragment},
	}
	for _, tt := range tests {
		got, err := ParseSourceFormat(tt.mime)
		if err != nil {
			t.Errorf("ParseSourceFormat(%q) error = %v", tt.mime, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSourceFormat(%q) = %s, want %s", tt.mime, got, tt.want)
		}
	}
}

func TestUnsupportedImportTypeListsKinds(t *testing.T) {
	_, err := ParseSourceFormat("application/weird")
	var unsupported *UnsupportedImportTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want UnsupportedImportTypeError", err)
	}
	if unsupported.Type != "application/weird" || len(unsupported.Supported) != 6 {
		t.Errorf("error = %+v", unsupported)
	}
	for _, kind := range []string{"plain", "markdown", "html", "xml", "legacy-mail-archive", "wordprocessing-fragment"} {
		if !strings.Contains(err.Error(), kind) {
			t.Errorf("message %q does not list %s", err.Error(), kind)
		}
	}
}

func TestDetectSourceFormat(t *testing.T) {
	tests := []struct {
		mime     string
		filename string
		want     SourceFormat
		wantErr  bool
	}{
		{"", "notes.md", Markdown, false},
		{"", "page.HTM", HTML, false},
		{"", "archive.mhtml", MailArchive, false},
		{"", "part.docx", WordprocessingFragment, false},
		{"", "data.xml", XML, false},
		{"", "unknown.bin", PlainText, false},
		{"", "", PlainText, false},
		{"application/octet-stream", "notes.markdown", Markdown, false},
		{"text/html", "notes.md", HTML, false},
		{"image/png", "notes.md", PlainText, true},
	}
	for _, tt := range tests {
		got, err := DetectSourceFormat(tt.mime, tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("DetectSourceFormat(%q, %q) error = %v", tt.mime, tt.filename, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("DetectSourceFormat(%q, %q) = %s, want %s", tt.mime, tt.filename, got, tt.want)
		}
	}
}

func TestImporterPrepare(t *testing.T) {
	docx := ooxmltest.NewDocument().WithParagraph("fragment").Bytes()
	tests := []struct {
		name     string
		format   SourceFormat
		data     []byte
		wantKind ImportKind
		contains []string
	}{
		{"plain", PlainText, []byte("just text"), ImportPlainText, []string{"just text"}},
		{"markdown", Markdown, []byte("# Title\n\nsome ~~old~~ *text*"), ImportHTML, []string{"<html", "<h1>Title</h1>", "<del>old</del>", "<em>text</em>"}},
		{"html fragment", HTML, []byte("<p>hi</p>"), ImportHTML, []string{"<!DOCTYPE html><html>", "<body><p>hi</p></body>"}},
		{"html document", HTML, []byte("<HTML><body>x</body></HTML>"), ImportHTML, []string{"<HTML><body>x</body></HTML>"}},
		{"xml", XML, []byte("<root/>"), ImportXML, []string{"<root/>"}},
		{"mail archive", MailArchive, []byte("MIME-Version: 1.0\r\n"), ImportMailArchive, []string{"MIME-Version"}},
		{"docx", WordprocessingFragment, docx, ImportWordprocessingML, nil},
	}

	importer := NewImporter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := importer.Prepare(tt.format, tt.data)
			if err != nil {
				t.Fatalf("Prepare() error = %v", err)
			}
			if payload.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", payload.Kind, tt.wantKind)
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(payload.Data), want) {
					t.Errorf("payload missing %q:\n%s", want, payload.Data)
				}
			}
		})
	}
}

func TestImporterPrepareErrors(t *testing.T) {
	importer := NewImporter(nil)
	tests := []struct {
		name   string
		format SourceFormat
		data   []byte
	}{
		{"empty", PlainText, nil},
		{"whitespace", Markdown, []byte(" \n\t ")},
		{"docx that is not a zip", WordprocessingFragment, []byte("PK but not really")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := importer.Prepare(tt.format, tt.data); !IsInvalidArgument(err) {
				t.Errorf("Prepare() error = %v, want InvalidArgumentError", err)
			}
		})
	}

	if _, err := importer.Prepare(SourceFormat(99), []byte("x")); !IsUnsupportedImportType(err) {
		t.Errorf("unknown format error = %v", err)
	}
}

type stubConverter struct {
	out []byte
	err error
}

func (s stubConverter) ToHTML([]byte) ([]byte, error) {
	return s.out, s.err
}

func TestImporterCustomConverter(t *testing.T) {
	payload, err := NewImporter(stubConverter{out: []byte("<p>stub</p>")}).Prepare(Markdown, []byte("# ignored"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(payload.Data), "<body><p>stub</p></body>") {
		t.Errorf("payload = %s", payload.Data)
	}

	failure := errors.New("converter down")
	if _, err := NewImporter(stubConverter{err: failure}).Prepare(Markdown, []byte("x")); !errors.Is(err, failure) {
		t.Errorf("error = %v, want converter error", err)
	}
}

func TestPrepareForAppend(t *testing.T) {
	importer := NewImporter(nil)
	payload, err := importer.PrepareForAppend(PlainText, []byte("a < b\nnext\n\nsecond"))
	if err != nil {
		t.Fatal(err)
	}
	if payload.Kind != ImportHTML {
		t.Errorf("Kind = %s, want html", payload.Kind)
	}
	if !strings.Contains(string(payload.Data), "<body><p>a &lt; b<br/>next</p><p>second</p></body>") {
		t.Errorf("payload = %s", payload.Data)
	}

	xml, err := importer.PrepareForAppend(XML, []byte("<x/>"))
	if err != nil || xml.Kind != ImportXML {
		t.Errorf("non-text formats should be prepared as usual: %v %v", xml.Kind, err)
	}
	if _, err := importer.PrepareForAppend(PlainText, []byte("   ")); !IsInvalidArgument(err) {
		t.Errorf("blank text error = %v", err)
	}
}

func TestPrepareImportPayload(t *testing.T) {
	payload, err := PrepareImportPayload("text/markdown", []byte("**bold**"))
	if err != nil {
		t.Fatal(err)
	}
	if payload.Kind != ImportHTML || !strings.Contains(string(payload.Data), "<html") {
		t.Errorf("payload = %s %s", payload.Kind, payload.Data)
	}
	if _, err := PrepareImportPayload("application/weird", []byte("x")); !IsUnsupportedImportType(err) {
		t.Errorf("error = %v", err)
	}
}

func TestMarkdownKeepsRawHTML(t *testing.T) {
	src := "Hello <u>under</u> world\n\n<table><tr><td>cell</td></tr></table>\n"
	payload, err := PrepareImportPayload("text/markdown", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	out := string(payload.Data)
	for _, want := range []string{"<u>under</u>", "<table><tr><td>cell</td></tr></table>"} {
		if !strings.Contains(out, want) {
			t.Errorf("payload should contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "raw HTML omitted") {
		t.Errorf("raw HTML was dropped:\n%s", out)
	}
}

func TestTextToHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"one", "<p>one</p>"},
		{"a\r\nb", "<p>a<br/>b</p>"},
		{"first\n \nsecond", "<p>first</p><p>second</p>"},
		{"<script>&", "<p>&lt;script&gt;&amp;</p>"},
		{"\n\n\n", ""},
	}
	for _, tt := range tests {
		if got := TextToHTML(tt.input); got != tt.want {
			t.Errorf("TextToHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestImportKinds(t *testing.T) {
	tests := []struct {
		kind        ImportKind
		name        string
		contentType string
		ext         string
	}{
		{ImportPlainText, "text", "text/plain", "txt"},
		{ImportHTML, "html", "text/html", "html"},
		{ImportXML, "xml", "application/xml", "xml"},
		{ImportMailArchive, "mht", "message/rfc822", "mht"},
		{ImportWordprocessingML, "docx", ContentTypeDocumentMain, "docx"},
	}
	for _, tt := range tests {
		if tt.kind.String() != tt.name || tt.kind.ContentType() != tt.contentType || tt.kind.Extension() != tt.ext {
			t.Errorf("%d = %s %s %s", int(tt.kind), tt.kind, tt.kind.ContentType(), tt.kind.Extension())
		}
	}
	if ImportKind(9).String() != "ImportKind(9)" || SourceFormat(9).String() != "SourceFormat(9)" {
		t.Error("unknown values should print their number")
	}
}
