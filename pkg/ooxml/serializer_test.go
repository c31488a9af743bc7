package ooxml

import (
	"strings"
	"testing"

	"github.com/benjaminschreck/go-ooxml/pkg/ooxml/ooxmltest"
	oxml "github.com/benjaminschreck/go-ooxml/pkg/ooxml/xml"
)

func TestSaveRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"presentation", ooxmltest.NewPresentation().WithTitledSlide("A", "a").WithTitledSlide("B").WithNotes().WithCustomShow().Bytes()},
		{"empty presentation", ooxmltest.NewPresentation().Bytes()},
		{"document", ooxmltest.NewDocument().WithParagraph("Hello", " world").WithSettings(`<w:zoom w:percent="100"/>`).Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := mustOpen(t, tt.data)
			out, err := pkg.Save()
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			reopened := mustOpen(t, out)
			if !equalStrings(reopened.PartNames(), pkg.PartNames()) {
				t.Errorf("parts changed: %v -> %v", pkg.PartNames(), reopened.PartNames())
			}

			in, got := zipEntries(t, tt.data), zipEntries(t, out)
			if !equalStrings(sortedKeys(in), sortedKeys(got)) {
				t.Errorf("entries changed: %v -> %v", sortedKeys(in), sortedKeys(got))
			}
			for name, content := range in {
				if got[name] != content {
					t.Errorf("untouched entry %s was rewritten", name)
				}
			}
		})
	}
}

func TestSaveWritesContentTypesFirst(t *testing.T) {
	out, _, err := testEngine().AddBlankSlide(ooxmltest.NewPresentation().WithTitledSlide("A").Bytes())
	if err != nil {
		t.Fatal(err)
	}
	pkg := mustOpen(t, out)
	if pkg.entries[0] != pkg.contentTypesFile {
		t.Errorf("first entry is %s", pkg.entries[0].Name)
	}
}

func TestValidateSlideIDList(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, pr *Presentation)
	}{
		{
			name: "duplicate id",
			mutate: func(t *testing.T, pr *Presentation) {
				entries := pr.slideEntries()
				oxml.SetAttr(entries[1], "", "", "id", oxml.Attr(entries[0], "", "id"))
			},
		},
		{
			name: "id below 256",
			mutate: func(t *testing.T, pr *Presentation) {
				oxml.SetAttr(pr.slideEntries()[0], "", "", "id", "12")
			},
		},
		{
			name: "non numeric id",
			mutate: func(t *testing.T, pr *Presentation) {
				oxml.SetAttr(pr.slideEntries()[0], "", "", "id", "first")
			},
		},
		{
			name: "missing relationship",
			mutate: func(t *testing.T, pr *Presentation) {
				pr.pkg.RemoveRelationship(pr.part, oxml.Attr(pr.slideEntries()[0], oxml.NamespaceR, "id"))
			},
		},
		{
			name: "relationship to deleted part",
			mutate: func(t *testing.T, pr *Presentation) {
				ref, err := pr.ResolveSlideByOrdinal(1)
				if err != nil {
					t.Fatal(err)
				}
				pr.pkg.DeletePart(ref.Part)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := mustPresentation(t, ooxmltest.NewPresentation().WithTitledSlide("A").WithTitledSlide("B").Bytes())
			tt.mutate(t, pr)
			pr.part.MarkModified()

			out, err := pr.pkg.Save()
			if !IsInternalInconsistency(err) {
				t.Fatalf("Save() error = %v, want InternalInconsistencyError", err)
			}
			if out != nil {
				t.Error("nothing should be written when validation fails")
			}
		})
	}
}

func TestValidateRelationshipReferences(t *testing.T) {
	doc := mustDocument(t, ooxmltest.NewDocument().WithParagraph("x").Bytes())
	chunk := oxml.NewElement("w", oxml.NamespaceW, "altChunk")
	oxml.SetAttr(chunk, "r", oxml.NamespaceR, "id", "rId42")
	doc.appendBlock(chunk)
	doc.part.MarkModified()

	err := doc.pkg.Validate()
	if !IsInternalInconsistency(err) || !strings.Contains(err.Error(), `"rId42"`) {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateDuplicateRelationshipIDs(t *testing.T) {
	pkg := mustOpen(t, ooxmltest.NewDocument().WithParagraph("x").Bytes())
	main := pkg.MainPart()
	target, _ := pkg.AddPart("word/a.txt", "text/plain", []byte("a"))
	rel := pkg.AddRelationship(main, RelTypeAFChunk, target)
	dup := pkg.AddRelationship(main, RelTypeAFChunk, target)
	dup.ID = rel.ID

	if err := pkg.Validate(); !IsInternalInconsistency(err) {
		t.Errorf("Validate() error = %v, want InternalInconsistencyError", err)
	}
}

func TestPruneOrphans(t *testing.T) {
	data := ooxmltest.NewPresentation().WithTitledSlide("A").Bytes()
	pkg := mustOpen(t, data)
	if _, err := pkg.AddPart("ppt/media/orphan.bin", "application/octet-stream", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	loose, _ := pkg.AddPart("ppt/slides/slide9.xml", ContentTypeSlide, []byte("<p:sld/>"))
	layout := pkg.Part("ppt/slideLayouts/slideLayout1.xml")
	pkg.AddRelationship(loose, RelTypeSlideLayout, layout)

	out, err := pkg.Save()
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	entries := zipEntries(t, out)
	for _, gone := range []string{"ppt/media/orphan.bin", "ppt/slides/slide9.xml", "ppt/slides/_rels/slide9.xml.rels"} {
		if _, ok := entries[gone]; ok {
			t.Errorf("unreachable entry %s was written", gone)
		}
	}
	if strings.Contains(entries["[Content_Types].xml"], "slide9") {
		t.Error("override of a pruned part was kept")
	}
	if _, ok := entries["ppt/slideLayouts/slideLayout1.xml"]; !ok {
		t.Error("reachable layout was pruned")
	}
}

func TestPruneOrphansDisabled(t *testing.T) {
	config := testConfig()
	config.KeepOrphans = true
	pkg, err := OpenWithConfig(ooxmltest.NewDocument().WithParagraph("x").Bytes(), config)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pkg.AddPart("word/media/keep.bin", "application/octet-stream", []byte{1}); err != nil {
		t.Fatal(err)
	}
	out, err := pkg.Save()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := zipEntries(t, out)["word/media/keep.bin"]; !ok {
		t.Error("part dropped although pruning is disabled")
	}
}

func TestStrayRelationshipsDropped(t *testing.T) {
	base := zipEntries(t, ooxmltest.NewDocument().WithParagraph("x").Bytes())
	var entries []ooxmltest.Entry
	for _, name := range sortedKeys(base) {
		entries = append(entries, ooxmltest.Entry{Name: name, Body: base[name]})
	}
	entries = append(entries, ooxmltest.Entry{
		Name: "word/_rels/gone.xml.rels",
		Body: `<Relationships xmlns="` + relationshipsNamespace + `"/>`,
	})

	out, err := mustOpen(t, ooxmltest.Zip(entries...)).Save()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := zipEntries(t, out)["word/_rels/gone.xml.rels"]; ok {
		t.Error("relationships of a missing part were written")
	}
}
