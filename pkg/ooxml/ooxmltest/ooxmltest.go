// Package ooxmltest builds small in-memory .pptx and .docx packages for tests.
// These should not be used in production code.
package ooxmltest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"
)

const (
	header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsP14 = "http://schemas.microsoft.com/office/powerpoint/2010/main"
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"

	ctPresentation         = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctPresentationTemplate = "application/vnd.openxmlformats-officedocument.presentationml.template.main+xml"
	ctSlide                = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctSlideLayout          = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	ctSlideMaster          = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	ctNotesSlide           = "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"
	ctDocument             = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctDocumentTemplate     = "application/vnd.openxmlformats-officedocument.wordprocessingml.template.main+xml"
	ctSettings             = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"

	spTreeHeader = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`
)

// Entry is one file of a ZIP archive.
type Entry struct {
	Name string
	Body string
}

// Zip writes entries, in order, into a ZIP archive.
func Zip(entries ...Entry) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		fw, err := w.Create(e.Name)
		if err != nil {
			panic(fmt.Sprintf("ooxmltest: create %s: %v", e.Name, err))
		}
		if _, err := fw.Write([]byte(e.Body)); err != nil {
			panic(fmt.Sprintf("ooxmltest: write %s: %v", e.Name, err))
		}
	}
	if err := w.Close(); err != nil {
		panic(fmt.Sprintf("ooxmltest: close: %v", err))
	}
	return buf.Bytes()
}

// Shape describes a p:sp of a slide. An empty PlaceholderType with
// Placeholder set yields <p:ph/> without a type.
type Shape struct {
	Name            string
	Placeholder     bool
	PlaceholderType string
	Paragraphs      []string
	NoTextBody      bool
}

// Title is a title placeholder shape.
func Title(text string) Shape {
	return Shape{Name: "Title", Placeholder: true, PlaceholderType: "title", Paragraphs: []string{text}}
}

// Body is a body placeholder shape.
func Body(paragraphs ...string) Shape {
	return Shape{Name: "Content", Placeholder: true, PlaceholderType: "body", Paragraphs: paragraphs}
}

// TextBox is a shape without a placeholder.
func TextBox(name string, paragraphs ...string) Shape {
	return Shape{Name: name, Paragraphs: paragraphs}
}

// Layout describes a slide layout of the single slide master.
type Layout struct {
	Name         string
	Placeholders bool
}

// PresentationBuilder assembles a .pptx package.
type PresentationBuilder struct {
	slides     [][]Shape
	layouts    []Layout
	template   bool
	notes      bool
	customShow bool
	sections   bool
	noMaster   bool
}

// NewPresentation starts a presentation whose master has a "Blank" layout
// without placeholders followed by a "Title and Content" layout.
func NewPresentation() *PresentationBuilder {
	return &PresentationBuilder{
		layouts: []Layout{{Name: "Blank"}, {Name: "Title and Content", Placeholders: true}},
	}
}

// WithSlide adds a slide made of shapes.
func (b *PresentationBuilder) WithSlide(shapes ...Shape) *PresentationBuilder {
	b.slides = append(b.slides, shapes)
	return b
}

// WithTitledSlide adds a slide with a title and a body placeholder.
func (b *PresentationBuilder) WithTitledSlide(title string, body ...string) *PresentationBuilder {
	return b.WithSlide(Title(title), Body(body...))
}

// WithLayouts replaces the master's layouts.
func (b *PresentationBuilder) WithLayouts(layouts ...Layout) *PresentationBuilder {
	b.layouts = layouts
	return b
}

// AsTemplate declares the presentation part with the template content type.
func (b *PresentationBuilder) AsTemplate() *PresentationBuilder {
	b.template = true
	return b
}

// WithNotes gives every slide a notes slide.
func (b *PresentationBuilder) WithNotes() *PresentationBuilder {
	b.notes = true
	return b
}

// WithCustomShow adds a custom show listing every slide.
func (b *PresentationBuilder) WithCustomShow() *PresentationBuilder {
	b.customShow = true
	return b
}

// WithSections adds a PowerPoint 2010 section list holding every slide.
func (b *PresentationBuilder) WithSections() *PresentationBuilder {
	b.sections = true
	return b
}

// WithoutMaster omits the slide master and its layouts.
func (b *PresentationBuilder) WithoutMaster() *PresentationBuilder {
	b.noMaster = true
	return b
}

// Bytes returns the package.
func (b *PresentationBuilder) Bytes() []byte {
	var overrides, presRels, sldIDs, custShow, sectionIDs strings.Builder
	entries := []Entry{}

	mainCT := ctPresentation
	if b.template {
		mainCT = ctPresentationTemplate
	}
	override(&overrides, "/ppt/presentation.xml", mainCT)

	relID := 1
	masterList := ""
	if !b.noMaster {
		rel(&presRels, relID, "slideMaster", "slideMasters/slideMaster1.xml")
		masterList = fmt.Sprintf(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId%d"/></p:sldMasterIdLst>`, relID)
		relID++
		entries = append(entries, b.masterEntries(&overrides)...)
	}

	for i, shapes := range b.slides {
		n := i + 1
		rel(&presRels, relID, "slide", fmt.Sprintf("slides/slide%d.xml", n))
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="rId%d"/>`, 255+n, relID)
		fmt.Fprintf(&custShow, `<p:sld r:id="rId%d"/>`, relID)
		fmt.Fprintf(&sectionIDs, `<p14:sldId id="%d"/>`, 255+n)
		relID++

		override(&overrides, fmt.Sprintf("/ppt/slides/slide%d.xml", n), ctSlide)
		var slideRels strings.Builder
		if !b.noMaster {
			rel(&slideRels, 1, "slideLayout", "../slideLayouts/slideLayout1.xml")
		}
		if b.notes {
			rel(&slideRels, 2, "notesSlide", fmt.Sprintf("../notesSlides/notesSlide%d.xml", n))
			override(&overrides, fmt.Sprintf("/ppt/notesSlides/notesSlide%d.xml", n), ctNotesSlide)
			var notesRels strings.Builder
			rel(&notesRels, 1, "slide", fmt.Sprintf("../slides/slide%d.xml", n))
			entries = append(entries,
				Entry{fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n), header + `<p:notes xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` + spTreeHeader + `</p:spTree></p:cSld></p:notes>`},
				Entry{fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", n), rels(notesRels.String())},
			)
		}
		entries = append(entries,
			Entry{fmt.Sprintf("ppt/slides/slide%d.xml", n), header + `<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` + spTreeHeader + shapesXML(shapes) + `</p:spTree></p:cSld></p:sld>`},
			Entry{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), rels(slideRels.String())},
		)
	}

	slideList := ""
	if len(b.slides) > 0 {
		slideList = `<p:sldIdLst>` + sldIDs.String() + `</p:sldIdLst>`
	}
	custShowList := ""
	if b.customShow && len(b.slides) > 0 {
		custShowList = `<p:custShowLst><p:custShow name="All" id="0"><p:sldLst>` + custShow.String() + `</p:sldLst></p:custShow></p:custShowLst>`
	}

	sectionList := ""
	if b.sections {
		sectionList = `<p:extLst><p:ext uri="{521415D9-36F7-43E2-AB2F-B90AF26B5E84}">` +
			`<p14:sectionLst xmlns:p14="` + nsP14 + `"><p14:section name="Default Section" id="{6A3C1C52-8E5B-4C8A-9F43-1B0D2E7F5A10}"><p14:sldIdLst>` +
			sectionIDs.String() + `</p14:sldIdLst></p14:section></p14:sectionLst></p:ext></p:extLst>`
	}

	presentation := header + `<p:presentation xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">` +
		masterList + slideList +
		`<p:sldSz cx="9144000" cy="6858000"/><p:notesSz cx="6858000" cy="9144000"/>` +
		custShowList + sectionList + `</p:presentation>`

	var rootRels strings.Builder
	rel(&rootRels, 1, "officeDocument", "ppt/presentation.xml")

	return Zip(append([]Entry{
		{"[Content_Types].xml", contentTypes(overrides.String())},
		{"_rels/.rels", rels(rootRels.String())},
		{"ppt/presentation.xml", presentation},
		{"ppt/_rels/presentation.xml.rels", rels(presRels.String())},
	}, entries...)...)
}

func (b *PresentationBuilder) masterEntries(overrides *strings.Builder) []Entry {
	var masterRels, layoutIDs strings.Builder
	var entries []Entry
	override(overrides, "/ppt/slideMasters/slideMaster1.xml", ctSlideMaster)
	for i, layout := range b.layouts {
		n := i + 1
		rel(&masterRels, n, "slideLayout", fmt.Sprintf("../slideLayouts/slideLayout%d.xml", n))
		fmt.Fprintf(&layoutIDs, `<p:sldLayoutId id="%d" r:id="rId%d"/>`, 2147483648+n, n)
		override(overrides, fmt.Sprintf("/ppt/slideLayouts/slideLayout%d.xml", n), ctSlideLayout)

		shapes := ""
		if layout.Placeholders {
			shapes = shapesXML([]Shape{
				{Name: "Title 1", Placeholder: true, PlaceholderType: "title"},
				{Name: "Content Placeholder 2", Placeholder: true},
			})
		}
		var layoutRels strings.Builder
		rel(&layoutRels, 1, "slideMaster", "../slideMasters/slideMaster1.xml")
		entries = append(entries,
			Entry{fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", n), header + `<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld name="` + html.EscapeString(layout.Name) + `"><p:spTree>` + spTreeHeader + shapes + `</p:spTree></p:cSld></p:sldLayout>`},
			Entry{fmt.Sprintf("ppt/slideLayouts/_rels/slideLayout%d.xml.rels", n), rels(layoutRels.String())},
		)
	}
	master := header + `<p:sldMaster xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` + spTreeHeader + `</p:spTree></p:cSld>` +
		`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
		`<p:sldLayoutIdLst>` + layoutIDs.String() + `</p:sldLayoutIdLst></p:sldMaster>`
	return append([]Entry{
		{"ppt/slideMasters/slideMaster1.xml", master},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", rels(masterRels.String())},
	}, entries...)
}

func shapesXML(shapes []Shape) string {
	var b strings.Builder
	for i, s := range shapes {
		ph := ""
		if s.Placeholder {
			if s.PlaceholderType == "" {
				ph = fmt.Sprintf(`<p:ph idx="%d"/>`, i+1)
			} else {
				ph = fmt.Sprintf(`<p:ph type="%s"/>`, s.PlaceholderType)
			}
		}
		fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr>%s</p:nvPr></p:nvSpPr><p:spPr/>`,
			i+2, html.EscapeString(s.Name), ph)
		if !s.NoTextBody {
			b.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
			if len(s.Paragraphs) == 0 {
				b.WriteString(`<a:p/>`)
			}
			for _, p := range s.Paragraphs {
				if p == "" {
					b.WriteString(`<a:p/>`)
					continue
				}
				fmt.Fprintf(&b, `<a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p>`, html.EscapeString(p))
			}
			b.WriteString(`</p:txBody>`)
		}
		b.WriteString(`</p:sp>`)
	}
	return b.String()
}

// DocumentBuilder assembles a .docx package.
type DocumentBuilder struct {
	paragraphs [][]string
	settings   *string
	template   bool
	noBody     bool
	noMain     bool
	extraBody  string
}

// NewDocument starts an empty document without a settings part.
func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

// WithParagraph adds a paragraph; each argument becomes one run.
func (b *DocumentBuilder) WithParagraph(runs ...string) *DocumentBuilder {
	b.paragraphs = append(b.paragraphs, runs)
	return b
}

// WithBodyXML appends raw block XML after the paragraphs.
func (b *DocumentBuilder) WithBodyXML(xml string) *DocumentBuilder {
	b.extraBody += xml
	return b
}

// WithSettings adds word/settings.xml with the given child elements.
func (b *DocumentBuilder) WithSettings(children string) *DocumentBuilder {
	b.settings = &children
	return b
}

// AsTemplate declares the main part with the template content type.
func (b *DocumentBuilder) AsTemplate() *DocumentBuilder {
	b.template = true
	return b
}

// WithoutBody omits w:body from the main part.
func (b *DocumentBuilder) WithoutBody() *DocumentBuilder {
	b.noBody = true
	return b
}

// WithoutMainPart omits the main part and its relationship.
func (b *DocumentBuilder) WithoutMainPart() *DocumentBuilder {
	b.noMain = true
	return b
}

// Bytes returns the package.
func (b *DocumentBuilder) Bytes() []byte {
	var overrides, docRels, rootRels strings.Builder
	var entries []Entry

	if !b.noMain {
		mainCT := ctDocument
		if b.template {
			mainCT = ctDocumentTemplate
		}
		override(&overrides, "/word/document.xml", mainCT)
		rel(&rootRels, 1, "officeDocument", "word/document.xml")

		var body strings.Builder
		for _, runs := range b.paragraphs {
			body.WriteString(`<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr>`)
			for _, r := range runs {
				fmt.Fprintf(&body, `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r>`, html.EscapeString(r))
			}
			body.WriteString(`</w:p>`)
		}
		body.WriteString(b.extraBody)
		content := `<w:body>` + body.String() + `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr></w:body>`
		if b.noBody {
			content = ""
		}
		entries = append(entries, Entry{"word/document.xml", header + `<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR + `">` + content + `</w:document>`})

		if b.settings != nil {
			rel(&docRels, 1, "settings", "settings.xml")
			override(&overrides, "/word/settings.xml", ctSettings)
			entries = append(entries,
				Entry{"word/settings.xml", header + `<w:settings xmlns:w="` + nsW + `">` + *b.settings + `</w:settings>`},
				Entry{"word/_rels/document.xml.rels", rels(docRels.String())},
			)
		}
	}

	return Zip(append([]Entry{
		{"[Content_Types].xml", contentTypes(overrides.String())},
		{"_rels/.rels", rels(rootRels.String())},
	}, entries...)...)
}

func contentTypes(overrides string) string {
	return header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		overrides + `</Types>`
}

func override(b *strings.Builder, partName, contentType string) {
	fmt.Fprintf(b, `<Override PartName="%s" ContentType="%s"/>`, partName, contentType)
}

func rel(b *strings.Builder, id int, relType, target string) {
	fmt.Fprintf(b, `<Relationship Id="rId%d" Type="%s%s" Target="%s"/>`, id, relBase, relType, target)
}

func rels(body string) string {
	return header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + body + `</Relationships>`
}
