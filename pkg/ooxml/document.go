package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
	oxml "github.com/benjaminschreck/go-ooxml/pkg/ooxml/xml"
	"github.com/google/uuid"
)

const blankDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="` + oxml.NamespaceW + `" xmlns:r="` + oxml.NamespaceR + `">` +
	`<w:body><w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
	`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
	`</w:sectPr></w:body></w:document>`

// Document is the main part of a wordprocessing package.
type Document struct {
	pkg  *Package
	part *Part
	root *oxml.Node
	body *oxml.Node
}

func isDocumentContentType(ct string) bool {
	switch ct {
	case ContentTypeDocumentMain, ContentTypeDocumentTemplate, ContentTypeDocumentMacro, ContentTypeDocumentMacroTmpl:
		return true
	}
	return false
}

// NewDocumentPackage builds an empty .docx package.
func NewDocumentPackage() (*Package, error) {
	return newDocumentPackage(GetGlobalConfig())
}

func newDocumentPackage(config *Config) (*Package, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	entries := []struct{ name, body string }{
		{contentTypesPartName, xmlHeader + `<Types xmlns="` + contentTypesNamespace + `">` +
			`<Default Extension="rels" ContentType="` + ContentTypeRelationships + `"/>` +
			`<Default Extension="xml" ContentType="` + ContentTypeXML + `"/>` +
			`<Override PartName="/word/document.xml" ContentType="` + ContentTypeDocumentMain + `"/>` +
			`</Types>`},
		{"_rels/.rels", xmlHeader + `<Relationships xmlns="` + relationshipsNamespace + `">` +
			`<Relationship Id="rId1" Type="` + RelTypeOfficeDocument + `" Target="word/document.xml"/>` +
			`</Relationships>`},
		{"word/document.xml", blankDocumentXML},
	}
	for _, entry := range entries {
		fw, err := w.Create(entry.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", entry.name, err)
		}
		if _, err := io.WriteString(fw, entry.body); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", entry.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return OpenWithConfig(buf.Bytes(), config)
}

// OpenDocument locates the main document part of pkg.
func OpenDocument(pkg *Package) (*Document, error) {
	main := pkg.MainPart()
	if main == nil {
		return nil, NewMalformedPackageError("_rels/.rels", "no officeDocument relationship", nil)
	}
	if !isDocumentContentType(main.ContentType()) {
		return nil, NewMalformedPackageError(main.name, fmt.Sprintf("main part has content type %q, not a wordprocessing document", main.ContentType()), nil)
	}
	root, err := main.Root()
	if err != nil {
		return nil, err
	}
	if !oxml.Is(root, oxml.NamespaceW, "document") {
		return nil, NewMalformedPackageError(main.name, "root element is not w:document", nil)
	}
	body := oxml.Child(root, oxml.NamespaceW, "body")
	if body == nil {
		return nil, NewMalformedPackageError(main.name, "document has no body", nil)
	}
	return &Document{pkg: pkg, part: main, root: root, body: body}, nil
}

// Part returns the main document part.
func (d *Document) Part() *Part {
	return d.part
}

func (d *Document) prefix() string {
	return oxml.PrefixFor(d.root, oxml.NamespaceW, "w")
}

// appendBlock adds a block element to the body, before the final section
// properties.
func (d *Document) appendBlock(block *oxml.Node) {
	if last := d.body.LastChild; last != nil {
		for n := last; n != nil; n = n.PrevSibling {
			if n.Type != xmlquery.ElementNode {
				continue
			}
			if oxml.Is(n, oxml.NamespaceW, "sectPr") {
				oxml.InsertBefore(n, block)
				return
			}
			break
		}
	}
	oxml.AppendChild(d.body, block)
}

func newTextElement(w, local, text string) *oxml.Node {
	t := oxml.NewElement(w, oxml.NamespaceW, local)
	oxml.SetAttr(t, "xml", oxml.NamespaceXML, "space", "preserve")
	oxml.SetText(t, text)
	return t
}

// newRun builds a run holding text. Tabs become w:tab and line feeds w:br,
// the inverse of paragraphText.
func newRun(w, local, text string) *oxml.Node {
	r := oxml.NewElement(w, oxml.NamespaceW, "r")
	start := 0
	for i := 0; i < len(text); i++ {
		var special string
		switch text[i] {
		case '\t':
			special = "tab"
		case '\n':
			special = "br"
		default:
			continue
		}
		if start < i {
			oxml.AppendChild(r, newTextElement(w, local, text[start:i]))
		}
		oxml.AppendChild(r, oxml.NewElement(w, oxml.NamespaceW, special))
		start = i + 1
	}
	if start < len(text) || start == 0 {
		oxml.AppendChild(r, newTextElement(w, local, text[start:]))
	}
	return r
}

// AppendText adds one paragraph per blank-line separated block. Lines of a
// block become runs separated by line breaks; whitespace is kept as is.
func (d *Document) AppendText(text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, NewInvalidArgumentError("text", "text is empty")
	}
	w := d.prefix()
	added := 0
	for _, block := range blankLinePattern.Split(normalizeNewlines(text), -1) {
		block = strings.Trim(block, "\n")
		if block == "" {
			continue
		}
		p := oxml.NewElement(w, oxml.NamespaceW, "p")
		for i, line := range strings.Split(block, "\n") {
			r := oxml.NewElement(w, oxml.NamespaceW, "r")
			if i > 0 {
				oxml.AppendChild(r, oxml.NewElement(w, oxml.NamespaceW, "br"))
			}
			if line != "" {
				oxml.AppendChild(r, newTextElement(w, "t", line))
			}
			oxml.AppendChild(p, r)
		}
		d.appendBlock(p)
		added++
	}
	d.part.MarkModified()
	return added, nil
}

// AppendAltChunk stores payload as its own part and references it from the
// end of the body. It returns the relationship id of the chunk.
func (d *Document) AppendAltChunk(payload ImportPayload) (string, error) {
	if len(payload.Data) == 0 {
		return "", NewInvalidArgumentError("content", "content is empty")
	}
	name := path.Join(path.Dir(d.part.name), fmt.Sprintf("afchunk_%s.%s", uuid.NewString(), payload.Kind.Extension()))
	chunk, err := d.pkg.AddPart(name, payload.Kind.ContentType(), payload.Data)
	if err != nil {
		return "", err
	}
	rel := d.pkg.AddRelationship(d.part, RelTypeAFChunk, chunk)

	altChunk := oxml.NewElement(d.prefix(), oxml.NamespaceW, "altChunk")
	oxml.SetAttr(altChunk, oxml.PrefixFor(d.root, oxml.NamespaceR, "r"), oxml.NamespaceR, "id", rel.ID)
	d.appendBlock(altChunk)
	d.part.MarkModified()

	d.pkg.logger.WithFields(Fields{"part": name, "kind": payload.Kind}).Debug("appended alt chunk %s", rel.ID)
	return rel.ID, nil
}

// ListParagraphs returns the text of every body paragraph in document order.
func (d *Document) ListParagraphs() ([]string, error) {
	paragraphs, err := oxml.Find(d.root, "//w:body//w:p")
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		texts = append(texts, paragraphText(p))
	}
	return texts, nil
}

// paragraphText concatenates the text of p, skipping nested paragraphs.
// w:tab reads as a tab, w:br and w:cr as a line feed.
func paragraphText(p *oxml.Node) string {
	var b strings.Builder
	var walk func(n *oxml.Node)
	walk = func(n *oxml.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode || oxml.Is(child, oxml.NamespaceW, "p") {
				continue
			}
			switch {
			case oxml.Is(child, oxml.NamespaceW, "t"):
				b.WriteString(oxml.Text(child))
			case oxml.Is(child, oxml.NamespaceW, "tab"):
				// tab stops in w:pPr/w:tabs are not characters
				if oxml.Is(child.Parent, oxml.NamespaceW, "r") {
					b.WriteByte('\t')
				}
			case oxml.Is(child, oxml.NamespaceW, "br"), oxml.Is(child, oxml.NamespaceW, "cr"):
				b.WriteByte('\n')
			default:
				walk(child)
			}
		}
	}
	walk(p)
	return b.String()
}

// DocumentFromTemplate turns a template package into a regular document with
// a main part and a body.
func DocumentFromTemplate(pkg *Package) (*Document, error) {
	main := pkg.MainPart()
	if main == nil {
		doc, err := oxml.Parse([]byte(blankDocumentXML))
		if err != nil {
			return nil, &InternalInconsistencyError{Message: "blank document template", Cause: err}
		}
		name := "word/document.xml"
		if pkg.Part(name) != nil {
			name = pkg.NextPartName("word/document%d.xml")
		}
		if main, err = pkg.AddXMLPart(name, ContentTypeDocumentMain, doc); err != nil {
			return nil, err
		}
		pkg.AddRelationship(nil, RelTypeOfficeDocument, main)
	}

	root, err := main.Root()
	if err != nil {
		return nil, err
	}
	if !oxml.Is(root, oxml.NamespaceW, "document") {
		return nil, NewMalformedPackageError(main.name, "root element is not w:document", nil)
	}
	if target, ok := templateContentTypes[main.ContentType()]; ok && isDocumentContentType(target) {
		pkg.SetContentType(main, target)
	} else if !isDocumentContentType(main.ContentType()) {
		pkg.SetContentType(main, ContentTypeDocumentMain)
	}
	if oxml.Child(root, oxml.NamespaceW, "body") == nil {
		oxml.AppendChild(root, oxml.NewElement(oxml.PrefixFor(root, oxml.NamespaceW, "w"), oxml.NamespaceW, "body"))
		main.MarkModified()
	}
	return OpenDocument(pkg)
}
