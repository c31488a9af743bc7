package ooxml

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	oxml "github.com/benjaminschreck/go-ooxml/pkg/ooxml/xml"
)

// SlideInfo describes one slide of a presentation.
type SlideInfo struct {
	Index    int    `json:"index"`
	ID       int    `json:"id"`
	RelID    string `json:"rel_id"`
	PartName string `json:"part_name"`
	Title    string `json:"title"`
}

// ShapeInfo describes one shape of a slide.
type ShapeInfo struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Text        string `json:"text"`
}

// ShapeTextRequest selects a shape and the text to put into it.
type ShapeTextRequest struct {
	Slide int
	// Shape is the explicit shape ordinal; nil selects body, then title,
	// then the first shape.
	Shape   *int
	Text    string
	Format  SourceFormat
	Replace bool
}

// presentation children that precede p:sldIdLst
var sldIdLstPredecessors = []string{"sldMasterIdLst", "notesMasterIdLst", "handoutMasterIdLst"}

const blankSlideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="` + oxml.NamespaceA + `" xmlns:r="` + oxml.NamespaceR + `" xmlns:p="` + oxml.NamespaceP + `">` +
	`<p:cSld><p:spTree>` +
	`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>` +
	`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>` +
	`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>` +
	`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`

// firstMaster returns the first slide master in sldMasterIdLst order.
func (pr *Presentation) firstMaster() *Part {
	for _, entry := range oxml.MustFind(pr.root, "p:sldMasterIdLst/p:sldMasterId") {
		if master := pr.pkg.Target(pr.pkg.Relationship(pr.part, oxml.Attr(entry, oxml.NamespaceR, "id"))); master != nil {
			return master
		}
	}
	if masters := pr.pkg.RelatedParts(pr.part, RelTypeSlideMaster); len(masters) > 0 {
		return masters[0]
	}
	return nil
}

// chooseLayout picks the first layout of the first master that has a
// placeholder shape, or the master's first layout.
func (pr *Presentation) chooseLayout() (*Part, error) {
	master := pr.firstMaster()
	if master == nil {
		return nil, NewMalformedPackageError(pr.part.name, "presentation has no slide master", nil)
	}
	masterRoot, err := master.Root()
	if err != nil {
		return nil, err
	}

	var layouts []*Part
	for _, entry := range oxml.MustFind(masterRoot, "p:sldLayoutIdLst/p:sldLayoutId") {
		if layout := pr.pkg.Target(pr.pkg.Relationship(master, oxml.Attr(entry, oxml.NamespaceR, "id"))); layout != nil {
			layouts = append(layouts, layout)
		}
	}
	if len(layouts) == 0 {
		layouts = pr.pkg.RelatedParts(master, RelTypeSlideLayout)
	}
	if len(layouts) == 0 {
		return nil, NewMalformedPackageError(master.name, "slide master has no layouts", nil)
	}

	for _, layout := range layouts {
		root, err := layout.Root()
		if err != nil {
			return nil, err
		}
		if ph, _ := oxml.FindOne(root, "//p:sp/p:nvSpPr/p:nvPr/p:ph"); ph != nil {
			return layout, nil
		}
	}
	return layouts[0], nil
}

// AddBlankSlide appends a slide with an empty title and body placeholder.
func (pr *Presentation) AddBlankSlide() (SlideInfo, error) {
	layout, err := pr.chooseLayout()
	if err != nil {
		return SlideInfo{}, err
	}

	doc, err := oxml.Parse([]byte(blankSlideXML))
	if err != nil {
		return SlideInfo{}, &InternalInconsistencyError{Message: "blank slide template", Cause: err}
	}
	name := pr.pkg.NextPartName(path.Join(path.Dir(pr.part.name), "slides", "slide%d.xml"))
	slide, err := pr.pkg.AddXMLPart(name, ContentTypeSlide, doc)
	if err != nil {
		return SlideInfo{}, err
	}
	pr.pkg.AddRelationship(slide, RelTypeSlideLayout, layout)
	rel := pr.pkg.AddRelationship(pr.part, RelTypeSlide, slide)

	list := pr.ensureSlideIDList()
	id := minSlideID - 1
	for _, entry := range oxml.Children(list, oxml.NamespaceP, "sldId") {
		if n, ok := slideNumericID(entry); ok && n > id {
			id = n
		}
	}
	id++

	entry := oxml.NewElement(oxml.PrefixFor(pr.root, oxml.NamespaceP, "p"), oxml.NamespaceP, "sldId")
	oxml.SetAttr(entry, "", "", "id", strconv.Itoa(id))
	oxml.SetAttr(entry, oxml.PrefixFor(pr.root, oxml.NamespaceR, "r"), oxml.NamespaceR, "id", rel.ID)
	oxml.AppendChild(list, entry)
	pr.part.MarkModified()

	info := SlideInfo{Index: pr.SlideCount() - 1, ID: id, RelID: rel.ID, PartName: slide.name}
	pr.pkg.logger.WithFields(Fields{"slide": info.PartName, "layout": layout.name}).Debug("added blank slide %d", id)
	return info, nil
}

func (pr *Presentation) ensureSlideIDList() *oxml.Node {
	if list := oxml.Child(pr.root, oxml.NamespaceP, "sldIdLst"); list != nil {
		return list
	}
	list := oxml.NewElement(oxml.PrefixFor(pr.root, oxml.NamespaceP, "p"), oxml.NamespaceP, "sldIdLst")
	insertInSchemaOrder(pr.root, list, oxml.NamespaceP, sldIdLstPredecessors)
	return list
}

// insertInSchemaOrder inserts child after the last existing sibling named in
// predecessors, or as the first element of parent.
func insertInSchemaOrder(parent, child *oxml.Node, space string, predecessors []string) {
	var anchor *oxml.Node
	for _, el := range oxml.Elements(parent) {
		for _, name := range predecessors {
			if oxml.Is(el, space, name) {
				anchor = el
			}
		}
	}
	if anchor != nil {
		oxml.InsertAfter(anchor, child)
		return
	}
	if first := oxml.Elements(parent); len(first) > 0 {
		oxml.InsertBefore(first[0], child)
		return
	}
	oxml.AppendChild(parent, child)
}

// RemoveSlide removes the slide at index from the slide list and deletes
// its part. Parts only the slide referenced are pruned on save.
func (pr *Presentation) RemoveSlide(index int) (SlideInfo, error) {
	ref, err := pr.ResolveSlideByOrdinal(index)
	if err != nil {
		return SlideInfo{}, err
	}

	oxml.Detach(ref.entry)
	for _, sld := range oxml.MustFind(pr.root, "p:custShowLst/p:custShow/p:sldLst/p:sld") {
		if oxml.Attr(sld, oxml.NamespaceR, "id") == ref.RelID {
			oxml.Detach(sld)
		}
	}
	for _, sld := range oxml.MustFind(pr.root, "p:extLst/p:ext/p14:sectionLst//p14:sldId") {
		if id, ok := slideNumericID(sld); ok && id == ref.ID {
			oxml.Detach(sld)
		}
	}
	pr.pkg.RemoveRelationship(pr.part, ref.RelID)
	pr.part.MarkModified()

	// notes slides point back at their slide
	notesSlides := pr.pkg.RelatedParts(ref.Part, RelTypeNotesSlide)
	refs := pr.pkg.ReferenceCount(ref.Part)
	for _, notes := range notesSlides {
		refs -= countReferences(notes.rels, ref.Part.id)
	}
	if refs == 0 {
		for _, notes := range notesSlides {
			if pr.pkg.ReferenceCount(notes) == 1 {
				pr.pkg.DeletePart(notes)
			}
		}
		pr.pkg.DeletePart(ref.Part)
	} else {
		pr.pkg.logger.Warn("slide part %s is still referenced, keeping it", ref.Part.name)
	}

	return SlideInfo{Index: index, ID: ref.ID, RelID: ref.RelID, PartName: ref.Part.name}, nil
}

// ReorderSlide moves the slide at from. When to is after from, the slide
// lands at to-1 because the list shrinks by one first.
func (pr *Presentation) ReorderSlide(from, to int) error {
	count := pr.SlideCount()
	if from < 0 || from >= count {
		return NewIndexOutOfRangeError("slide", from, count)
	}
	if to < 0 || to >= count {
		return NewIndexOutOfRangeError("slide", to, count)
	}
	if from == to {
		return nil
	}

	list := oxml.Child(pr.root, oxml.NamespaceP, "sldIdLst")
	entry := pr.slideEntries()[from]
	oxml.Detach(entry)

	target := to
	if to > from {
		target = to - 1
	}
	remaining := pr.slideEntries()
	if target >= len(remaining) {
		oxml.AppendChild(list, entry)
	} else {
		oxml.InsertBefore(remaining[target], entry)
	}
	pr.part.MarkModified()
	return nil
}

// ListSlides returns every slide with its derived title: the first
// non-blank shape text.
func (pr *Presentation) ListSlides() ([]SlideInfo, error) {
	count := pr.SlideCount()
	slides := make([]SlideInfo, 0, count)
	for i := 0; i < count; i++ {
		slide, err := pr.Slide(i)
		if err != nil {
			return nil, err
		}
		info := SlideInfo{Index: i, ID: slide.Ref.ID, RelID: slide.Ref.RelID, PartName: slide.Ref.Part.name}
		for _, shape := range slide.Shapes() {
			if text := strings.TrimSpace(shapeText(shape.Node)); text != "" {
				info.Title = text
				break
			}
		}
		slides = append(slides, info)
	}
	return slides, nil
}

// ListShapes returns the shapes of the slide at index.
func (pr *Presentation) ListShapes(index int) ([]ShapeInfo, error) {
	slide, err := pr.Slide(index)
	if err != nil {
		return nil, err
	}
	var shapes []ShapeInfo
	for _, shape := range slide.Shapes() {
		cNvPr, _ := oxml.FindOne(shape.Node, "p:nvSpPr/p:cNvPr")
		shapes = append(shapes, ShapeInfo{
			Index:       shape.Index,
			Name:        oxml.Attr(cNvPr, "", "name"),
			Placeholder: shape.PlaceholderName(),
			Text:        strings.TrimSpace(shapeText(shape.Node)),
		})
	}
	return shapes, nil
}

var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+`)
	markdownMarker  = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s+`)
)

// normalizeShapeLines splits text into non-blank lines. Markdown lines lose
// their heading hashes and list markers.
func normalizeShapeLines(text string, markdown bool) []string {
	var lines []string
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if markdown {
			line = strings.TrimSpace(line)
			line = markdownHeading.ReplaceAllString(line, "")
			line = markdownMarker.ReplaceAllString(line, "")
			if line == "" {
				continue
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// SetShapeText replaces or extends the paragraphs of a shape.
func (pr *Presentation) SetShapeText(req ShapeTextRequest) (ShapeInfo, error) {
	if req.Format != PlainText && req.Format != Markdown {
		return ShapeInfo{}, NewInvalidArgumentError("format", fmt.Sprintf("shape text must be plain or markdown, got %s", req.Format))
	}
	lines := normalizeShapeLines(req.Text, req.Format == Markdown)
	if len(lines) == 0 {
		return ShapeInfo{}, NewInvalidArgumentError("text", "no non-blank lines")
	}

	slide, err := pr.Slide(req.Slide)
	if err != nil {
		return ShapeInfo{}, err
	}
	shape, err := slide.ResolveTargetShape(req.Shape)
	if err != nil {
		return ShapeInfo{}, err
	}

	a := oxml.PrefixFor(slide.root, oxml.NamespaceA, "a")
	txBody := ensureTextBody(slide.root, shape.Node, a)
	existing := oxml.Children(txBody, oxml.NamespaceA, "p")
	if req.Replace || (len(existing) == 1 && paragraphIsEmpty(existing[0])) {
		for _, p := range existing {
			oxml.Detach(p)
		}
	}

	bullet := pr.pkg.config.BulletChar
	for _, line := range lines {
		p := oxml.NewElement(a, oxml.NamespaceA, "p")
		if req.Format == Markdown {
			pPr := oxml.NewElement(a, oxml.NamespaceA, "pPr")
			buChar := oxml.NewElement(a, oxml.NamespaceA, "buChar")
			oxml.SetAttr(buChar, "", "", "char", bullet)
			oxml.AppendChild(pPr, buChar)
			oxml.AppendChild(p, pPr)
		}
		r := oxml.NewElement(a, oxml.NamespaceA, "r")
		t := oxml.NewElement(a, oxml.NamespaceA, "t")
		oxml.SetText(t, line)
		oxml.AppendChild(r, t)
		oxml.AppendChild(p, r)
		oxml.AppendChild(txBody, p)
	}
	slide.Ref.Part.MarkModified()

	cNvPr, _ := oxml.FindOne(shape.Node, "p:nvSpPr/p:cNvPr")
	return ShapeInfo{
		Index:       shape.Index,
		Name:        oxml.Attr(cNvPr, "", "name"),
		Placeholder: shape.PlaceholderName(),
		Text:        strings.TrimSpace(shapeText(shape.Node)),
	}, nil
}

// ensureTextBody returns the p:txBody of sp, creating a minimal one before
// p:extLst (or at the end) when missing.
func ensureTextBody(root, sp *oxml.Node, a string) *oxml.Node {
	if txBody := oxml.Child(sp, oxml.NamespaceP, "txBody"); txBody != nil {
		return txBody
	}
	txBody := oxml.NewElement(oxml.PrefixFor(root, oxml.NamespaceP, "p"), oxml.NamespaceP, "txBody")
	oxml.AppendChild(txBody, oxml.NewElement(a, oxml.NamespaceA, "bodyPr"))
	oxml.AppendChild(txBody, oxml.NewElement(a, oxml.NamespaceA, "lstStyle"))
	if extLst := oxml.Child(sp, oxml.NamespaceP, "extLst"); extLst != nil {
		oxml.InsertBefore(extLst, txBody)
	} else {
		oxml.AppendChild(sp, txBody)
	}
	return txBody
}

func paragraphIsEmpty(p *oxml.Node) bool {
	for _, child := range oxml.Elements(p) {
		switch {
		case oxml.Is(child, oxml.NamespaceA, "r"), oxml.Is(child, oxml.NamespaceA, "fld"):
			if oxml.Text(oxml.Child(child, oxml.NamespaceA, "t")) != "" {
				return false
			}
		case oxml.Is(child, oxml.NamespaceA, "br"):
			return false
		}
	}
	return true
}

// PresentationFromTemplate turns a template package into a regular
// presentation with at least one slide.
func PresentationFromTemplate(pkg *Package) (*Presentation, error) {
	main := pkg.MainPart()
	if main == nil {
		return nil, NewMalformedPackageError("_rels/.rels", "no officeDocument relationship", nil)
	}
	if target, ok := templateContentTypes[main.ContentType()]; ok && isPresentationContentType(target) {
		pkg.SetContentType(main, target)
	}

	pr, err := OpenPresentation(pkg)
	if err != nil {
		return nil, err
	}
	if pr.SlideCount() == 0 {
		if _, err := pr.AddBlankSlide(); err != nil {
			return nil, err
		}
	}
	return pr, nil
}
