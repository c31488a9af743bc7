package ooxml

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	oxml "github.com/benjaminschreck/go-ooxml/pkg/ooxml/xml"
	"golang.org/x/text/cases"
)

const revisionDateLayout = "2006-01-02T15:04:05Z"

// Identity supplies the author and time recorded on revisions.
type Identity interface {
	Author() string
	Now() time.Time
}

// StaticIdentity is an Identity with a fixed author. A zero Time reports
// the current time.
type StaticIdentity struct {
	Name string
	Time time.Time
}

func (s StaticIdentity) Author() string { return s.Name }

func (s StaticIdentity) Now() time.Time {
	if s.Time.IsZero() {
		return time.Now()
	}
	return s.Time
}

// settings children that precede w:trackRevisions
var trackRevisionsPredecessors = []string{
	"writeProtection", "view", "zoom", "removePersonalInformation", "removeDateAndTime",
	"doNotDisplayPageBoundaries", "displayBackgroundShape", "printPostScriptOverText",
	"printFractionalCharacterWidth", "printFormsData", "embedTrueTypeFonts", "embedSystemFonts",
	"saveSubsetFonts", "saveFormsData", "mirrorMargins", "alignBordersAndEdges",
	"bordersDoNotSurroundHeader", "bordersDoNotSurroundFooter", "gutterAtTop",
	"hideSpellingErrors", "hideGrammaticalErrors", "activeWritingStyle", "proofState",
	"formsDesign", "attachedTemplate", "linkStyles", "stylePaneFormatFilter",
	"stylePaneSortMethod", "documentType", "mailMerge", "revisionView",
}

// Splice is the outcome of replacing the first match in one paragraph.
type Splice struct {
	Paragraph   int
	Before      string
	Deleted     string
	Inserted    string
	After       string
	RevisionIDs []int
}

// ReplaceWithTracking replaces the first case-insensitive match of search in
// every paragraph with a tracked deletion and insertion. It returns one
// Splice per changed paragraph.
func (d *Document) ReplaceWithTracking(searchText, replacement string, identity Identity) ([]Splice, error) {
	if searchText == "" {
		return nil, NewInvalidArgumentError("search", "search text is empty")
	}
	author := d.pkg.config.DefaultAuthor
	now := time.Now()
	if identity != nil {
		if name := strings.TrimSpace(identity.Author()); name != "" {
			author = name
		}
		now = identity.Now()
	}
	date := now.UTC().Format(revisionDateLayout)

	paragraphs, err := oxml.Find(d.root, "//w:body//w:p")
	if err != nil {
		return nil, err
	}

	pattern := newFoldPattern(searchText)
	nextID := d.maxRevisionID() + 1
	w := d.prefix()

	var splices []Splice
	for i, p := range paragraphs {
		text := paragraphText(p)
		start, end := pattern.index(text)
		if start < 0 {
			continue
		}

		splice := Splice{
			Paragraph: i,
			Before:    text[:start],
			Deleted:   text[start:end],
			Inserted:  replacement,
			After:     text[end:],
		}

		oxml.RemoveChildren(p, func(n *oxml.Node) bool {
			return oxml.Is(n, oxml.NamespaceW, "pPr")
		})
		if splice.Before != "" {
			oxml.AppendChild(p, newRun(w, "t", splice.Before))
		}

		del := newRevision(w, "del", nextID, author, date)
		oxml.AppendChild(del, newRun(w, "delText", splice.Deleted))
		oxml.AppendChild(p, del)
		splice.RevisionIDs = append(splice.RevisionIDs, nextID)
		nextID++

		if replacement != "" {
			ins := newRevision(w, "ins", nextID, author, date)
			oxml.AppendChild(ins, newRun(w, "t", replacement))
			oxml.AppendChild(p, ins)
			splice.RevisionIDs = append(splice.RevisionIDs, nextID)
			nextID++
		}

		if splice.After != "" {
			oxml.AppendChild(p, newRun(w, "t", splice.After))
		}
		splices = append(splices, splice)
	}

	if len(splices) > 0 {
		d.part.MarkModified()
	}
	if err := d.EnsureTrackRevisions(); err != nil {
		return nil, err
	}
	d.pkg.logger.WithField("author", author).Debug("replaced %d of %d paragraphs", len(splices), len(paragraphs))
	return splices, nil
}

// foldPattern matches case-insensitively one rune at a time: a text rune
// matches a pattern rune when both case-fold to the same string. Matches
// therefore cover whole runes, and compatibility forms such as ligatures
// never match their ASCII lookalikes.
type foldPattern struct {
	caser  cases.Caser
	folds  map[rune]string
	needle []string
}

func newFoldPattern(s string) *foldPattern {
	p := &foldPattern{caser: cases.Fold(), folds: make(map[rune]string)}
	for _, r := range s {
		p.needle = append(p.needle, p.fold(r))
	}
	return p
}

func (p *foldPattern) fold(r rune) string {
	if f, ok := p.folds[r]; ok {
		return f
	}
	f := p.caser.String(string(r))
	p.folds[r] = f
	return f
}

// index returns the byte range of the first match in text, or -1, -1.
func (p *foldPattern) index(text string) (int, int) {
	var runes []rune
	var offsets []int
	for i, r := range text {
		runes = append(runes, r)
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	n := len(p.needle)
	for start := 0; start+n <= len(runes); start++ {
		k := 0
		for k < n && p.fold(runes[start+k]) == p.needle[k] {
			k++
		}
		if k == n {
			return offsets[start], offsets[start+n]
		}
	}
	return -1, -1
}

func newRevision(w, local string, id int, author, date string) *oxml.Node {
	rev := oxml.NewElement(w, oxml.NamespaceW, local)
	oxml.SetAttr(rev, w, oxml.NamespaceW, "id", strconv.Itoa(id))
	oxml.SetAttr(rev, w, oxml.NamespaceW, "author", author)
	oxml.SetAttr(rev, w, oxml.NamespaceW, "date", date)
	return rev
}

// maxRevisionID returns the largest numeric w:id in the document.
func (d *Document) maxRevisionID() int {
	highest := 0
	var walk func(n *oxml.Node)
	walk = func(n *oxml.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			if v, ok := oxml.AttrValue(child, oxml.NamespaceW, "id"); ok {
				if id, err := strconv.Atoi(v); err == nil && id > highest {
					highest = id
				}
			}
			walk(child)
		}
	}
	walk(d.root)
	return highest
}

// EnsureTrackRevisions turns on revision tracking in the settings part,
// creating the part when the document has none.
func (d *Document) EnsureTrackRevisions() error {
	var settings *Part
	if parts := d.pkg.RelatedParts(d.part, RelTypeSettings); len(parts) > 0 {
		settings = parts[0]
	}

	if settings == nil {
		doc, err := oxml.Parse([]byte(xmlHeader + `<w:settings xmlns:w="` + oxml.NamespaceW + `"><w:trackRevisions/></w:settings>`))
		if err != nil {
			return &InternalInconsistencyError{Message: "settings template", Cause: err}
		}
		name := path.Join(path.Dir(d.part.name), "settings.xml")
		if d.pkg.Part(name) != nil {
			name = d.pkg.NextPartName(path.Join(path.Dir(d.part.name), "settings%d.xml"))
		}
		if settings, err = d.pkg.AddXMLPart(name, ContentTypeSettings, doc); err != nil {
			return err
		}
		d.pkg.AddRelationship(d.part, RelTypeSettings, settings)
		return nil
	}

	root, err := settings.Root()
	if err != nil {
		return err
	}
	if existing := oxml.Child(root, oxml.NamespaceW, "trackRevisions"); existing != nil {
		if v, ok := oxml.AttrValue(existing, oxml.NamespaceW, "val"); ok && !isOnOff(v) {
			oxml.RemoveAttr(existing, oxml.NamespaceW, "val")
			settings.MarkModified()
		}
		return nil
	}
	track := oxml.NewElement(oxml.PrefixFor(root, oxml.NamespaceW, "w"), oxml.NamespaceW, "trackRevisions")
	insertInSchemaOrder(root, track, oxml.NamespaceW, trackRevisionsPredecessors)
	settings.MarkModified()
	return nil
}

// isOnOff reports whether an ST_OnOff value means on.
func isOnOff(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "off":
		return false
	}
	return true
}
