package ooxml

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Relationship types used by the engine.
const (
	RelTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelTypeSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	RelTypeSlideMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	RelTypeNotesSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	RelTypeSettings       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	RelTypeAFChunk        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/aFChunk"

	relationshipsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
	targetModeExternal     = "External"
)

// Relationship is one entry of a part's relationship list.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`

	// part is the resolved internal target, noPart when external or dangling
	part PartID
	// brokenOnLoad marks internal targets that were already missing in the input
	brokenOnLoad bool
}

// External reports whether the relationship points outside the package.
func (r *Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, targetModeExternal)
}

// Relationships is the XML form of a .rels part.
type Relationships struct {
	XMLName      xml.Name        `xml:"Relationships"`
	Namespace    string          `xml:"xmlns,attr"`
	Relationship []*Relationship `xml:"Relationship"`
}

func parseRelationships(data []byte) ([]*Relationship, error) {
	var rels Relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	for _, rel := range rels.Relationship {
		rel.part = noPart
	}
	return rels.Relationship, nil
}

func marshalRelationships(rels []*Relationship) ([]byte, error) {
	output, err := xml.Marshal(&Relationships{
		Namespace:    relationshipsNamespace,
		Relationship: rels,
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), output...), nil
}

// relsPartName maps a source part to its relationship part,
// e.g. "word/document.xml" -> "word/_rels/document.xml.rels".
// The empty source is the package root.
func relsPartName(source string) string {
	if source == "" {
		return "_rels/.rels"
	}
	dir, base := path.Split(source)
	return dir + "_rels/" + base + ".rels"
}

// relsSourceName is the inverse of relsPartName.
func relsSourceName(relsName string) (string, bool) {
	if !strings.HasSuffix(relsName, ".rels") {
		return "", false
	}
	dir, base := path.Split(relsName)
	if !strings.HasSuffix(dir, "_rels/") {
		return "", false
	}
	parent := strings.TrimSuffix(dir, "_rels/")
	source := strings.TrimSuffix(base, ".rels")
	if parent == "" && source == "" {
		return "", true
	}
	if source == "" {
		return "", false
	}
	return parent + source, true
}

// resolveTarget turns a relationship target into a part name.
func resolveTarget(source, target string) string {
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Join(path.Dir("/"+source), target), "/")
}

// relativeTarget computes the target string a source part uses for name.
func relativeTarget(source, name string) string {
	if source == "" {
		return name
	}
	from := strings.Split(path.Dir(source), "/")
	if from[0] == "." {
		from = nil
	}
	to := strings.Split(name, "/")
	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}
	parts := make([]string, 0, len(from)-common+len(to)-common)
	for range from[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	return strings.Join(parts, "/")
}

// nextRelationshipID returns the next free "rIdN" id of rels.
func nextRelationshipID(rels []*Relationship) string {
	maxID := 0
	for _, rel := range rels {
		if strings.HasPrefix(rel.ID, "rId") {
			if id, err := strconv.Atoi(rel.ID[3:]); err == nil && id > maxID {
				maxID = id
			}
		}
	}
	return fmt.Sprintf("rId%d", maxID+1)
}

func findRelationship(rels []*Relationship, id string) *Relationship {
	for _, rel := range rels {
		if rel.ID == id {
			return rel
		}
	}
	return nil
}
