package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	oxml "github.com/benjaminschreck/go-ooxml/pkg/ooxml/xml"
)

const xmlHeader = oxml.Header

// PartID is a stable handle to a part of a loaded package. Handles stay valid
// for the life of the package, including after the part is deleted.
type PartID int

const noPart PartID = -1

// Part is one named entry of a package.
type Part struct {
	id   PartID
	name string
	pkg  *Package

	file *zip.File // original entry, nil for parts created in memory
	data []byte
	doc  *oxml.Node

	modified bool
	deleted  bool

	rels         []*Relationship
	relsFile     *zip.File
	relsModified bool
}

// ID returns the part's handle.
func (p *Part) ID() PartID { return p.id }

// Name returns the part name without the leading slash.
func (p *Part) Name() string { return p.name }

// ContentType returns the declared content type of the part.
func (p *Part) ContentType() string {
	return p.pkg.contentTypes.Lookup(p.name)
}

// Deleted reports whether the part was removed from the package.
func (p *Part) Deleted() bool { return p.deleted }

// Data returns the raw bytes of the part. A part with a parsed and modified
// XML tree is serialized first.
func (p *Part) Data() ([]byte, error) {
	if p.doc != nil && p.modified {
		return oxml.Marshal(p.doc), nil
	}
	if p.data != nil || p.file == nil {
		return p.data, nil
	}
	data, err := readZipFile(p.file)
	if err != nil {
		return nil, err
	}
	p.data = data
	return data, nil
}

// SetData replaces the content of the part.
func (p *Part) SetData(data []byte) {
	p.data = data
	p.doc = nil
	p.modified = true
}

// XML parses the part on first use and returns its document node. Callers
// that edit the tree must call MarkModified.
func (p *Part) XML() (*oxml.Node, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	data, err := p.Data()
	if err != nil {
		return nil, err
	}
	doc, err := oxml.Parse(data)
	if err != nil {
		return nil, NewMalformedPackageError(p.name, "unparsable XML part", err)
	}
	p.doc = doc
	return doc, nil
}

// Root returns the root element of the part's XML.
func (p *Part) Root() (*oxml.Node, error) {
	doc, err := p.XML()
	if err != nil {
		return nil, err
	}
	return oxml.Root(doc), nil
}

// MarkModified flags the part for re-serialization on save.
func (p *Part) MarkModified() {
	p.modified = true
}

// Package is an opened OOXML container: a part arena indexed by name, the
// content-type manifest and the relationship graph.
type Package struct {
	config *Config
	logger *Logger

	source  *zip.Reader
	entries []*zip.File // original entry order

	parts  []*Part
	byName map[string]PartID

	contentTypes     *ContentTypes
	contentTypesFile *zip.File
	ctModified       bool

	rootRels         []*Relationship
	rootRelsFile     *zip.File
	rootRelsModified bool

	// rels files whose source part does not exist, copied through unchanged
	strayRels map[string]*zip.File
}

// Open loads a package using the global configuration.
func Open(data []byte) (*Package, error) {
	return OpenWithConfig(data, GetGlobalConfig())
}

// OpenWithConfig loads a package from its ZIP bytes.
func OpenWithConfig(data []byte, config *Config) (*Package, error) {
	if config == nil {
		config = GetGlobalConfig()
	}
	if len(data) == 0 {
		return nil, NewMalformedPackageError("", "empty input", nil)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewMalformedPackageError("", "not a ZIP container", err)
	}

	pkg := &Package{
		config:    config,
		logger:    GetLogger().WithField("component", "package"),
		source:    zr,
		byName:    make(map[string]PartID),
		strayRels: make(map[string]*zip.File),
	}

	var total uint64
	relsFiles := make(map[string]*zip.File)
	for _, file := range zr.File {
		if strings.HasSuffix(file.Name, "/") {
			continue
		}
		total += file.UncompressedSize64
		name := strings.TrimPrefix(file.Name, "/")
		pkg.entries = append(pkg.entries, file)

		switch {
		case strings.EqualFold(name, contentTypesPartName):
			pkg.contentTypesFile = file
		case isRelsName(name):
			relsFiles[name] = file
		default:
			pkg.addLoadedPart(name, file)
		}
	}

	if config.MaxPackageSize > 0 && total > uint64(config.MaxPackageSize) {
		return nil, NewMalformedPackageError("", fmt.Sprintf("uncompressed size %d exceeds limit %d", total, config.MaxPackageSize), nil)
	}

	if pkg.contentTypesFile == nil {
		return nil, NewMalformedPackageError(contentTypesPartName, "content types manifest is missing", nil)
	}
	ctData, err := readZipFile(pkg.contentTypesFile)
	if err != nil {
		return nil, NewMalformedPackageError(contentTypesPartName, "unreadable entry", err)
	}
	if pkg.contentTypes, err = parseContentTypes(ctData); err != nil {
		return nil, NewMalformedPackageError(contentTypesPartName, "unparsable manifest", err)
	}

	for name, file := range relsFiles {
		if err := pkg.loadRelationships(name, file); err != nil {
			return nil, err
		}
	}

	pkg.logger.Debug("opened package with %d parts", len(pkg.parts))
	return pkg, nil
}

func (pkg *Package) addLoadedPart(name string, file *zip.File) {
	id := PartID(len(pkg.parts))
	pkg.parts = append(pkg.parts, &Part{id: id, name: name, pkg: pkg, file: file})
	pkg.byName[strings.ToLower(name)] = id
}

func (pkg *Package) loadRelationships(name string, file *zip.File) error {
	source, _ := relsSourceName(name)
	var owner *Part
	if source != "" {
		owner = pkg.Part(source)
		if owner == nil {
			pkg.strayRels[name] = file
			return nil
		}
	}

	data, err := readZipFile(file)
	if err != nil {
		return NewMalformedPackageError(name, "unreadable entry", err)
	}
	rels, err := parseRelationships(data)
	if err != nil {
		return NewMalformedPackageError(name, "unparsable relationships", err)
	}
	for _, rel := range rels {
		if rel.External() {
			continue
		}
		if target := pkg.Part(resolveTarget(source, rel.Target)); target != nil {
			rel.part = target.id
		} else {
			rel.brokenOnLoad = true
		}
	}

	if owner == nil {
		pkg.rootRels = rels
		pkg.rootRelsFile = file
	} else {
		owner.rels = rels
		owner.relsFile = file
	}
	return nil
}

// Config returns the configuration the package was opened with.
func (pkg *Package) Config() *Config {
	return pkg.config
}

// Part returns the live part with the given name, or nil.
func (pkg *Package) Part(name string) *Part {
	id, ok := pkg.byName[strings.ToLower(strings.TrimPrefix(name, "/"))]
	if !ok {
		return nil
	}
	return pkg.PartByID(id)
}

// PartByID returns the live part with the given handle, or nil.
func (pkg *Package) PartByID(id PartID) *Part {
	if id < 0 || int(id) >= len(pkg.parts) {
		return nil
	}
	part := pkg.parts[id]
	if part.deleted {
		return nil
	}
	return part
}

// Parts returns the live parts in load order.
func (pkg *Package) Parts() []*Part {
	out := make([]*Part, 0, len(pkg.parts))
	for _, part := range pkg.parts {
		if !part.deleted {
			out = append(out, part)
		}
	}
	return out
}

// PartCount returns the number of live parts.
func (pkg *Package) PartCount() int {
	return len(pkg.Parts())
}

// AddPart creates a part. When contentType differs from what the manifest
// already implies for the name, an override is added.
func (pkg *Package) AddPart(name, contentType string, data []byte) (*Part, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || isRelsName(name) || strings.EqualFold(name, contentTypesPartName) {
		return nil, NewInvalidArgumentError("name", fmt.Sprintf("%q is not a valid part name", name))
	}
	if pkg.Part(name) != nil {
		return nil, NewInvalidArgumentError("name", fmt.Sprintf("part %s already exists", name))
	}

	id := PartID(len(pkg.parts))
	part := &Part{id: id, name: name, pkg: pkg, data: data, modified: true}
	pkg.parts = append(pkg.parts, part)
	pkg.byName[strings.ToLower(name)] = id

	if contentType != "" && pkg.contentTypes.Lookup(name) != contentType {
		pkg.contentTypes.SetOverride(name, contentType)
		pkg.ctModified = true
	}
	pkg.logger.Debug("added part %s (%s)", name, contentType)
	return part, nil
}

// AddXMLPart creates a part holding an XML tree.
func (pkg *Package) AddXMLPart(name, contentType string, doc *oxml.Node) (*Part, error) {
	part, err := pkg.AddPart(name, contentType, nil)
	if err != nil {
		return nil, err
	}
	part.doc = doc
	return part, nil
}

// DeletePart removes a part together with its override and its own
// relationships. Relationships pointing at it are left to the caller.
func (pkg *Package) DeletePart(part *Part) {
	if part == nil || part.deleted {
		return
	}
	part.deleted = true
	part.rels = nil
	delete(pkg.byName, strings.ToLower(part.name))
	if pkg.contentTypes.RemoveOverride(part.name) {
		pkg.ctModified = true
	}
	pkg.logger.Debug("deleted part %s", part.name)
}

// SetContentType declares the content type of part through an override.
func (pkg *Package) SetContentType(part *Part, contentType string) {
	if part.ContentType() == contentType {
		return
	}
	pkg.contentTypes.SetOverride(part.name, contentType)
	pkg.ctModified = true
}

// EnsureDefaultContentType registers a Default for ext when missing.
func (pkg *Package) EnsureDefaultContentType(ext, contentType string) {
	if pkg.contentTypes.EnsureDefault(ext, contentType) {
		pkg.ctModified = true
	}
}

// Relationships returns the relationship list of source; nil is the
// package root.
func (pkg *Package) Relationships(source *Part) []*Relationship {
	if source == nil {
		return pkg.rootRels
	}
	return source.rels
}

// Relationship looks up id in the relationship list of source.
func (pkg *Package) Relationship(source *Part, id string) *Relationship {
	return findRelationship(pkg.Relationships(source), id)
}

// AddRelationship appends a relationship from source (nil for the root) to
// target and returns it.
func (pkg *Package) AddRelationship(source *Part, relType string, target *Part) *Relationship {
	sourceName := ""
	if source != nil {
		sourceName = source.name
	}
	rels := pkg.Relationships(source)
	rel := &Relationship{
		ID:     nextRelationshipID(rels),
		Type:   relType,
		Target: relativeTarget(sourceName, target.name),
		part:   target.id,
	}
	pkg.setRelationships(source, append(rels, rel))
	return rel
}

// RemoveRelationship drops relationship id from source. It reports whether
// the relationship existed.
func (pkg *Package) RemoveRelationship(source *Part, id string) bool {
	rels := pkg.Relationships(source)
	for i, rel := range rels {
		if rel.ID == id {
			kept := append(append([]*Relationship{}, rels[:i]...), rels[i+1:]...)
			pkg.setRelationships(source, kept)
			return true
		}
	}
	return false
}

func (pkg *Package) setRelationships(source *Part, rels []*Relationship) {
	if source == nil {
		pkg.rootRels = rels
		pkg.rootRelsModified = true
		return
	}
	source.rels = rels
	source.relsModified = true
}

// Target returns the part a relationship points at, or nil for external and
// dangling relationships.
func (pkg *Package) Target(rel *Relationship) *Part {
	if rel == nil || rel.External() {
		return nil
	}
	return pkg.PartByID(rel.part)
}

// RelatedParts returns the targets of the relationships of source with type
// relType, in list order.
func (pkg *Package) RelatedParts(source *Part, relType string) []*Part {
	var out []*Part
	for _, rel := range pkg.Relationships(source) {
		if rel.Type != relType {
			continue
		}
		if target := pkg.Target(rel); target != nil {
			out = append(out, target)
		}
	}
	return out
}

// ReferenceCount returns how many relationships in the package point at part.
func (pkg *Package) ReferenceCount(part *Part) int {
	count := 0
	count += countReferences(pkg.rootRels, part.id)
	for _, p := range pkg.parts {
		if !p.deleted {
			count += countReferences(p.rels, part.id)
		}
	}
	return count
}

func countReferences(rels []*Relationship, id PartID) int {
	n := 0
	for _, rel := range rels {
		if !rel.External() && rel.part == id {
			n++
		}
	}
	return n
}

// MainPart returns the target of the package's officeDocument relationship.
func (pkg *Package) MainPart() *Part {
	for _, rel := range pkg.rootRels {
		if rel.Type == RelTypeOfficeDocument {
			return pkg.Target(rel)
		}
	}
	return nil
}

// NextPartName returns the first name produced by pattern (a format with one
// %d verb) whose number is larger than every existing match.
func (pkg *Package) NextPartName(pattern string) string {
	prefix, suffix, _ := strings.Cut(pattern, "%d")
	highest := 0
	for _, part := range pkg.parts {
		lower := strings.ToLower(part.name)
		if len(lower) < len(prefix)+len(suffix) ||
			!strings.HasPrefix(lower, strings.ToLower(prefix)) || !strings.HasSuffix(lower, strings.ToLower(suffix)) {
			continue
		}
		digits := part.name[len(prefix) : len(part.name)-len(suffix)]
		n := 0
		valid := digits != ""
		for _, r := range digits {
			if r < '0' || r > '9' {
				valid = false
				break
			}
			n = n*10 + int(r-'0')
		}
		if valid && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf(pattern, highest+1)
}

// ContentTypes exposes the manifest for inspection.
func (pkg *Package) ContentTypes() *ContentTypes {
	return pkg.contentTypes
}

// PartNames returns the names of the live parts, sorted.
func (pkg *Package) PartNames() []string {
	var names []string
	for _, part := range pkg.Parts() {
		names = append(names, part.name)
	}
	sort.Strings(names)
	return names
}

func isRelsName(name string) bool {
	_, ok := relsSourceName(name)
	return ok && path.Ext(name) == ".rels"
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	return content, nil
}
