package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	oxml "github.com/benjaminschreck/go-ooxml/pkg/ooxml/xml"
)

// Save validates the package, prunes unreachable parts and writes the ZIP.
// Nothing is written when validation fails.
func (pkg *Package) Save() ([]byte, error) {
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	if !pkg.config.KeepOrphans {
		pkg.pruneOrphans()
	}
	return pkg.write()
}

// Validate checks the invariants every mutation must leave intact. All
// failures are InternalInconsistencyError.
func (pkg *Package) Validate() error {
	issues := NewMultiError()
	pkg.validateSlideIDList(issues)

	for _, part := range pkg.Parts() {
		if part.modified && part.doc != nil {
			pkg.validateRelationshipReferences(part, issues)
		}
		if part.relsModified {
			pkg.validateRelationshipTargets(part.name, part.rels, issues)
		}
	}
	if pkg.rootRelsModified {
		pkg.validateRelationshipTargets("package root", pkg.rootRels, issues)
	}

	if err := issues.Err(); err != nil {
		return &InternalInconsistencyError{Message: "package failed validation", Cause: err}
	}
	return nil
}

func (pkg *Package) validateSlideIDList(issues *MultiError) {
	main := pkg.MainPart()
	if main == nil || !isPresentationContentType(main.ContentType()) {
		return
	}
	doc, err := main.XML()
	if err != nil {
		issues.Add(err)
		return
	}
	entries, err := oxml.Find(doc, "/p:presentation/p:sldIdLst/p:sldId")
	if err != nil {
		issues.Add(err)
		return
	}

	seen := make(map[int]bool, len(entries))
	for _, entry := range entries {
		id, ok := slideNumericID(entry)
		if !ok || id < minSlideID {
			issues.Addf("slide id %q is not a number >= %d", oxml.Attr(entry, "", "id"), minSlideID)
		} else if seen[id] {
			issues.Addf("slide id %d is used twice", id)
		}
		seen[id] = true

		relID := oxml.Attr(entry, oxml.NamespaceR, "id")
		rel := pkg.Relationship(main, relID)
		if rel == nil {
			issues.Addf("slide id %d references missing relationship %q", id, relID)
			continue
		}
		if pkg.Target(rel) == nil {
			issues.Addf("slide id %d relationship %s targets missing part %s", id, relID, rel.Target)
		}
	}
}

// validateRelationshipReferences checks every r:* attribute of a modified
// part against the part's relationship list.
func (pkg *Package) validateRelationshipReferences(part *Part, issues *MultiError) {
	var walk func(n *oxml.Node)
	walk = func(n *oxml.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			for _, attr := range oxml.NamespaceAttrs(child, oxml.NamespaceR) {
				if attr.Value == "" {
					continue
				}
				if findRelationship(part.rels, attr.Value) == nil {
					issues.Addf("%s: <%s> references missing relationship %q", part.name, child.Data, attr.Value)
				}
			}
			walk(child)
		}
	}
	walk(part.doc)
}

func (pkg *Package) validateRelationshipTargets(owner string, rels []*Relationship, issues *MultiError) {
	seen := make(map[string]bool, len(rels))
	for _, rel := range rels {
		if seen[rel.ID] {
			issues.Addf("%s: relationship id %s is used twice", owner, rel.ID)
		}
		seen[rel.ID] = true
		if rel.External() || rel.brokenOnLoad {
			continue
		}
		if pkg.PartByID(rel.part) == nil {
			issues.Addf("%s: relationship %s targets missing part %s", owner, rel.ID, rel.Target)
		}
	}
}

// pruneOrphans deletes every part that cannot be reached from the package
// root through internal relationships.
func (pkg *Package) pruneOrphans() {
	reachable := make(map[PartID]bool)
	queue := append([]*Relationship{}, pkg.rootRels...)
	for len(queue) > 0 {
		rel := queue[0]
		queue = queue[1:]
		target := pkg.Target(rel)
		if target == nil || reachable[target.id] {
			continue
		}
		reachable[target.id] = true
		queue = append(queue, target.rels...)
	}

	for _, part := range pkg.Parts() {
		if !reachable[part.id] {
			pkg.logger.Debug("pruning unreachable part %s", part.name)
			pkg.DeletePart(part)
		}
	}
}

func (pkg *Package) write() ([]byte, error) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	if pkg.ctModified || pkg.contentTypesFile == nil {
		data, err := pkg.contentTypes.marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal content types: %w", err)
		}
		if err := writeEntry(w, contentTypesPartName, data); err != nil {
			return nil, err
		}
	} else if err := w.Copy(pkg.contentTypesFile); err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", contentTypesPartName, err)
	}

	for _, file := range pkg.entries {
		if file == pkg.contentTypesFile {
			continue
		}
		if err := pkg.writeOriginalEntry(w, file); err != nil {
			return nil, err
		}
	}

	if pkg.rootRelsFile == nil && pkg.rootRelsModified {
		if err := writeRelationships(w, relsPartName(""), pkg.rootRels); err != nil {
			return nil, err
		}
	}
	for _, part := range pkg.Parts() {
		if part.file == nil {
			data, err := part.Data()
			if err != nil {
				return nil, err
			}
			if err := writeEntry(w, part.name, data); err != nil {
				return nil, err
			}
		}
		if part.relsFile == nil && part.relsModified && len(part.rels) > 0 {
			if err := writeRelationships(w, relsPartName(part.name), part.rels); err != nil {
				return nil, err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func (pkg *Package) writeOriginalEntry(w *zip.Writer, file *zip.File) error {
	name := strings.TrimPrefix(file.Name, "/")

	if file == pkg.rootRelsFile {
		if pkg.rootRelsModified {
			return writeRelationships(w, name, pkg.rootRels)
		}
		return copyEntry(w, file)
	}
	if _, stray := pkg.strayRels[name]; stray {
		if !pkg.config.KeepOrphans {
			return nil
		}
		return copyEntry(w, file)
	}
	if isRelsName(name) {
		source, _ := relsSourceName(name)
		owner := pkg.Part(source)
		if owner == nil || owner.relsFile != file {
			return nil
		}
		if owner.relsModified {
			return writeRelationships(w, name, owner.rels)
		}
		return copyEntry(w, file)
	}

	part := pkg.Part(name)
	if part == nil || part.file != file {
		return nil
	}
	if !part.modified {
		return copyEntry(w, file)
	}
	data, err := part.Data()
	if err != nil {
		return err
	}
	return writeEntry(w, name, data)
}

func writeRelationships(w *zip.Writer, name string, rels []*Relationship) error {
	data, err := marshalRelationships(rels)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return writeEntry(w, name, data)
}

func writeEntry(w *zip.Writer, name string, data []byte) error {
	fw, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func copyEntry(w *zip.Writer, file *zip.File) error {
	if err := w.Copy(file); err != nil {
		return fmt.Errorf("failed to copy %s: %w", file.Name, err)
	}
	return nil
}
