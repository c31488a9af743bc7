package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// SourceFormat is the declared format of content handed to the importer.
type SourceFormat int

const (
	PlainText SourceFormat = iota
	Markdown
	HTML
	XML
	MailArchive
	WordprocessingFragment
)

// supportedImportTypes names the formats in error messages.
var supportedImportTypes = []string{
	"plain", "markdown", "html", "xml", "legacy-mail-archive", "wordprocessing-fragment",
}

func (f SourceFormat) String() string {
	if int(f) >= 0 && int(f) < len(supportedImportTypes) {
		return supportedImportTypes[f]
	}
	return fmt.Sprintf("SourceFormat(%d)", int(f))
}

var mimeFormats = map[string]SourceFormat{
	"text":                      PlainText,
	"plain":                     PlainText,
	"text/plain":                PlainText,
	"markdown":                  Markdown,
	"md":                        Markdown,
	"text/markdown":             Markdown,
	"text/x-markdown":           Markdown,
	"html":                      HTML,
	"text/html":                 HTML,
	"application/xhtml+xml":     HTML,
	"xml":                       XML,
	"text/xml":                  XML,
	"application/xml":           XML,
	"message/rfc822":            MailArchive,
	"multipart/related":         MailArchive,
	"application/x-mimearchive": MailArchive,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": WordprocessingFragment,
}

var extensionFormats = map[string]SourceFormat{
	".md":       Markdown,
	".markdown": Markdown,
	".htm":      HTML,
	".html":     HTML,
	".txt":      PlainText,
	".xml":      XML,
	".mht":      MailArchive,
	".mhtml":    MailArchive,
	".docx":     WordprocessingFragment,
}

// ParseSourceFormat maps a MIME type or alias to a format. Parameters such
// as "; charset=utf-8" are ignored.
func ParseSourceFormat(mimeType string) (SourceFormat, error) {
	key, _, _ := strings.Cut(mimeType, ";")
	key = strings.ToLower(strings.TrimSpace(key))
	if format, ok := mimeFormats[key]; ok {
		return format, nil
	}
	return PlainText, &UnsupportedImportTypeError{Type: mimeType, Supported: supportedImportTypes}
}

// SourceFormatFromFilename sniffs the format from the extension, defaulting
// to plain text.
func SourceFormatFromFilename(filename string) SourceFormat {
	if format, ok := extensionFormats[strings.ToLower(path.Ext(filename))]; ok {
		return format
	}
	return PlainText
}

// DetectSourceFormat uses the MIME type when one is declared and the file
// name otherwise. The generic binary type counts as undeclared.
func DetectSourceFormat(mimeType, filename string) (SourceFormat, error) {
	trimmed := strings.TrimSpace(mimeType)
	if trimmed == "" || strings.EqualFold(trimmed, "application/octet-stream") {
		return SourceFormatFromFilename(filename), nil
	}
	return ParseSourceFormat(mimeType)
}

// ImportKind is how the host application interprets an alt-chunk part.
type ImportKind int

const (
	ImportPlainText ImportKind = iota
	ImportHTML
	ImportXML
	ImportMailArchive
	ImportWordprocessingML
)

type importKindInfo struct {
	name        string
	contentType string
	extension   string
}

var importKinds = [...]importKindInfo{
	ImportPlainText:        {"text", "text/plain", "txt"},
	ImportHTML:             {"html", "text/html", "html"},
	ImportXML:              {"xml", "application/xml", "xml"},
	ImportMailArchive:      {"mht", "message/rfc822", "mht"},
	ImportWordprocessingML: {"docx", ContentTypeDocumentMain, "docx"},
}

func (k ImportKind) String() string {
	if k < 0 || int(k) >= len(importKinds) {
		return fmt.Sprintf("ImportKind(%d)", int(k))
	}
	return importKinds[k].name
}

// ContentType returns the content type declared for the chunk part.
func (k ImportKind) ContentType() string {
	return importKinds[k].contentType
}

// Extension returns the file extension of the chunk part, without the dot.
func (k ImportKind) Extension() string {
	return importKinds[k].extension
}

// ImportPayload is content ready to be stored as an alt-chunk part.
type ImportPayload struct {
	Kind ImportKind
	Data []byte
}

// MarkdownConverter renders Markdown to HTML.
type MarkdownConverter interface {
	ToHTML(markdown []byte) ([]byte, error)
}

// GoldmarkConverter converts CommonMark with the GitHub extensions.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates the default converter. Raw HTML in the
// Markdown is passed through, Word renders it like any other chunk markup.
func NewGoldmarkConverter() *GoldmarkConverter {
	return &GoldmarkConverter{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)}
}

func (c *GoldmarkConverter) ToHTML(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Importer normalizes source content into alt-chunk payloads.
type Importer struct {
	converter MarkdownConverter
}

// NewImporter creates an importer. A nil converter selects goldmark.
func NewImporter(converter MarkdownConverter) *Importer {
	if converter == nil {
		converter = NewGoldmarkConverter()
	}
	return &Importer{converter: converter}
}

var defaultImporter = NewImporter(nil)

// Prepare converts data of the given format into a payload.
func (im *Importer) Prepare(format SourceFormat, data []byte) (ImportPayload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ImportPayload{}, NewInvalidArgumentError("content", "content is empty")
	}

	switch format {
	case PlainText:
		return ImportPayload{Kind: ImportPlainText, Data: data}, nil
	case Markdown:
		converted, err := im.converter.ToHTML(data)
		if err != nil {
			return ImportPayload{}, err
		}
		return ImportPayload{Kind: ImportHTML, Data: []byte(WrapHTMLDocument(string(converted)))}, nil
	case HTML:
		return ImportPayload{Kind: ImportHTML, Data: []byte(WrapHTMLDocument(string(data)))}, nil
	case XML:
		return ImportPayload{Kind: ImportXML, Data: data}, nil
	case MailArchive:
		return ImportPayload{Kind: ImportMailArchive, Data: data}, nil
	case WordprocessingFragment:
		if _, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
			return ImportPayload{}, NewInvalidArgumentError("content", "wordprocessing fragment is not a ZIP package")
		}
		return ImportPayload{Kind: ImportWordprocessingML, Data: data}, nil
	}
	return ImportPayload{}, &UnsupportedImportTypeError{Type: format.String(), Supported: supportedImportTypes}
}

// PrepareForAppend is Prepare, except that plain text becomes HTML
// paragraphs so it picks up the document's paragraph formatting.
func (im *Importer) PrepareForAppend(format SourceFormat, data []byte) (ImportPayload, error) {
	if format != PlainText {
		return im.Prepare(format, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ImportPayload{}, NewInvalidArgumentError("content", "content is empty")
	}
	return ImportPayload{Kind: ImportHTML, Data: []byte(WrapHTMLDocument(TextToHTML(string(data))))}, nil
}

// PrepareImportPayload parses mimeType and prepares data with the default
// importer.
func PrepareImportPayload(mimeType string, data []byte) (ImportPayload, error) {
	format, err := ParseSourceFormat(mimeType)
	if err != nil {
		return ImportPayload{}, err
	}
	return defaultImporter.Prepare(format, data)
}

// WrapHTMLDocument wraps an HTML fragment in a complete document. Input that
// already contains an <html> element is returned unchanged.
func WrapHTMLDocument(fragment string) string {
	if strings.Contains(strings.ToLower(fragment), "<html") {
		return fragment
	}
	return `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body>` + fragment + `</body></html>`
}

var blankLinePattern = regexp.MustCompile(`\n[ \t]*\n`)

// TextToHTML escapes text and turns blank-line separated blocks into <p>
// elements and the remaining newlines into <br/>.
func TextToHTML(text string) string {
	text = normalizeNewlines(text)
	var b strings.Builder
	for _, block := range blankLinePattern.Split(text, -1) {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(line)
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br/>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
