package ooxml

import (
	"fmt"
	"strconv"
	"strings"

	oxml "github.com/benjaminschreck/go-ooxml/pkg/ooxml/xml"
)

const minSlideID = 256

// PlaceholderKind is the role of a slide shape.
type PlaceholderKind int

const (
	PlaceholderNone PlaceholderKind = iota
	PlaceholderTitle
	PlaceholderBody
	PlaceholderOther
)

func (k PlaceholderKind) String() string {
	switch k {
	case PlaceholderTitle:
		return "title"
	case PlaceholderBody:
		return "body"
	case PlaceholderOther:
		return "other"
	default:
		return "none"
	}
}

// placeholderKind classifies a p:ph type attribute. A placeholder without a
// type is a body placeholder.
func placeholderKind(phType string, hasPlaceholder bool) PlaceholderKind {
	if !hasPlaceholder {
		return PlaceholderNone
	}
	switch phType {
	case "title", "ctrTitle":
		return PlaceholderTitle
	case "", "body", "obj":
		return PlaceholderBody
	default:
		return PlaceholderOther
	}
}

// Presentation is the presentation part of a loaded package.
type Presentation struct {
	pkg  *Package
	part *Part
	root *oxml.Node
}

func isPresentationContentType(ct string) bool {
	switch ct {
	case ContentTypePresentationMain, ContentTypePresentationTemplate, ContentTypeSlideshowMain,
		ContentTypePresentationMacro, ContentTypePresentationMacroTmpl:
		return true
	}
	return false
}

// OpenPresentation locates the presentation part of pkg.
func OpenPresentation(pkg *Package) (*Presentation, error) {
	main := pkg.MainPart()
	if main == nil {
		return nil, NewMalformedPackageError("_rels/.rels", "no officeDocument relationship", nil)
	}
	if !isPresentationContentType(main.ContentType()) {
		return nil, NewMalformedPackageError(main.name, fmt.Sprintf("main part has content type %q, not a presentation", main.ContentType()), nil)
	}
	root, err := main.Root()
	if err != nil {
		return nil, err
	}
	if !oxml.Is(root, oxml.NamespaceP, "presentation") {
		return nil, NewMalformedPackageError(main.name, "root element is not p:presentation", nil)
	}
	return &Presentation{pkg: pkg, part: main, root: root}, nil
}

// Part returns the presentation part.
func (pr *Presentation) Part() *Part {
	return pr.part
}

func (pr *Presentation) slideEntries() []*oxml.Node {
	return oxml.Children(oxml.Child(pr.root, oxml.NamespaceP, "sldIdLst"), oxml.NamespaceP, "sldId")
}

// SlideCount returns the length of the slide-id list.
func (pr *Presentation) SlideCount() int {
	if oxml.Child(pr.root, oxml.NamespaceP, "sldIdLst") == nil {
		return 0
	}
	return len(pr.slideEntries())
}

// SlideRef addresses one entry of the slide-id list.
type SlideRef struct {
	Index int
	ID    int
	RelID string
	Part  *Part

	entry *oxml.Node
}

func slideNumericID(entry *oxml.Node) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(oxml.Attr(entry, "", "id")))
	return id, err == nil
}

// ResolveSlideByOrdinal resolves the zero-based position in the slide-id list.
func (pr *Presentation) ResolveSlideByOrdinal(index int) (SlideRef, error) {
	var entries []*oxml.Node
	if oxml.Child(pr.root, oxml.NamespaceP, "sldIdLst") != nil {
		entries = pr.slideEntries()
	}
	if index < 0 || index >= len(entries) {
		return SlideRef{}, NewIndexOutOfRangeError("slide", index, len(entries))
	}
	entry := entries[index]
	id, _ := slideNumericID(entry)
	relID := oxml.Attr(entry, oxml.NamespaceR, "id")
	part := pr.pkg.Target(pr.pkg.Relationship(pr.part, relID))
	if part == nil {
		return SlideRef{}, NewMalformedPackageError(pr.part.name, fmt.Sprintf("slide %d references missing relationship %q", index, relID), nil)
	}
	return SlideRef{Index: index, ID: id, RelID: relID, Part: part, entry: entry}, nil
}

// Slide is a loaded slide part.
type Slide struct {
	Ref    SlideRef
	root   *oxml.Node
	spTree *oxml.Node
}

// Slide resolves and parses the slide at index.
func (pr *Presentation) Slide(index int) (*Slide, error) {
	ref, err := pr.ResolveSlideByOrdinal(index)
	if err != nil {
		return nil, err
	}
	root, err := ref.Part.Root()
	if err != nil {
		return nil, err
	}
	spTree, err := oxml.FindOne(root, "/p:sld/p:cSld/p:spTree")
	if err != nil {
		return nil, err
	}
	return &Slide{Ref: ref, root: root, spTree: spTree}, nil
}

// ShapeRef addresses one shape of a slide's shape tree.
type ShapeRef struct {
	Index           int
	Placeholder     PlaceholderKind
	PlaceholderType string
	Node            *oxml.Node
}

// PlaceholderName returns the reported placeholder: "title", "body", the raw
// type of other placeholders, or "none".
func (s ShapeRef) PlaceholderName() string {
	if s.Placeholder == PlaceholderOther {
		return s.PlaceholderType
	}
	return s.Placeholder.String()
}

// Shapes returns the p:sp children of the shape tree in document order.
func (s *Slide) Shapes() []ShapeRef {
	if s.spTree == nil {
		return nil
	}
	var shapes []ShapeRef
	for i, sp := range oxml.Children(s.spTree, oxml.NamespaceP, "sp") {
		ph := oxml.Child(oxml.Child(oxml.Child(sp, oxml.NamespaceP, "nvSpPr"), oxml.NamespaceP, "nvPr"), oxml.NamespaceP, "ph")
		phType := oxml.Attr(ph, "", "type")
		shapes = append(shapes, ShapeRef{
			Index:           i,
			Placeholder:     placeholderKind(phType, ph != nil),
			PlaceholderType: phType,
			Node:            sp,
		})
	}
	return shapes
}

// ResolvePlaceholderShape returns the first shape with the given kind.
func (s *Slide) ResolvePlaceholderShape(kind PlaceholderKind) (ShapeRef, bool) {
	for _, shape := range s.Shapes() {
		if shape.Placeholder == kind {
			return shape, true
		}
	}
	return ShapeRef{}, false
}

// ResolveShapeByOrdinal returns the shape at the zero-based index.
func (s *Slide) ResolveShapeByOrdinal(index int) (ShapeRef, error) {
	shapes := s.Shapes()
	if index < 0 || index >= len(shapes) {
		return ShapeRef{}, NewIndexOutOfRangeError("shape", index, len(shapes))
	}
	return shapes[index], nil
}

// ResolveTargetShape picks the shape to edit: the explicit index when given,
// otherwise the body placeholder, then the title placeholder, then the first
// shape.
func (s *Slide) ResolveTargetShape(shapeIndex *int) (ShapeRef, error) {
	if shapeIndex != nil {
		return s.ResolveShapeByOrdinal(*shapeIndex)
	}
	for _, kind := range []PlaceholderKind{PlaceholderBody, PlaceholderTitle} {
		if shape, ok := s.ResolvePlaceholderShape(kind); ok {
			return shape, nil
		}
	}
	shapes := s.Shapes()
	if len(shapes) == 0 {
		return ShapeRef{}, &MissingTargetShapeError{Slide: s.Ref.Index}
	}
	return shapes[0], nil
}

// shapeText returns the paragraphs of a shape's text body joined by newlines.
func shapeText(sp *oxml.Node) string {
	var paragraphs []string
	for _, p := range oxml.MustFind(sp, "p:txBody/a:p") {
		var b strings.Builder
		for _, child := range oxml.Elements(p) {
			switch {
			case oxml.Is(child, oxml.NamespaceA, "r"), oxml.Is(child, oxml.NamespaceA, "fld"):
				b.WriteString(oxml.Text(oxml.Child(child, oxml.NamespaceA, "t")))
			case oxml.Is(child, oxml.NamespaceA, "br"):
				b.WriteString("\n")
			}
		}
		paragraphs = append(paragraphs, b.String())
	}
	return strings.Join(paragraphs, "\n")
}
