package ooxml

import (
	"strings"
	"testing"
)

func TestContentTypesLookup(t *testing.T) {
	ct, err := parseContentTypes([]byte(testContentTypes))
	if err != nil {
		t.Fatalf("parseContentTypes() error = %v", err)
	}
	ct.SetOverride("word/document.xml", ContentTypeDocumentMain)

	tests := []struct {
		name string
		want string
	}{
		{"word/document.xml", ContentTypeDocumentMain},
		{"/WORD/Document.xml", ContentTypeDocumentMain},
		{"word/styles.xml", ContentTypeXML},
		{"_rels/.rels", ContentTypeRelationships},
		{"media/image.PNG", ""},
	}
	for _, tt := range tests {
		if got := ct.Lookup(tt.name); got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestContentTypesEditing(t *testing.T) {
	ct, _ := parseContentTypes([]byte(testContentTypes))

	ct.SetOverride("/ppt/presentation.xml", ContentTypePresentationTemplate)
	ct.SetOverride("ppt/presentation.xml", ContentTypePresentationMain)
	if len(ct.Overrides) != 1 || ct.Overrides[0].ContentType != ContentTypePresentationMain {
		t.Errorf("SetOverride() should update in place: %+v", ct.Overrides)
	}

	if !ct.RemoveOverride("ppt/presentation.xml") || ct.RemoveOverride("ppt/presentation.xml") {
		t.Error("RemoveOverride() should succeed exactly once")
	}

	if !ct.EnsureDefault("png", "image/png") || ct.EnsureDefault("PNG", "image/png") {
		t.Error("EnsureDefault() should add exactly once")
	}
	if ct.Lookup("word/media/a.png") != "image/png" {
		t.Error("new default not used")
	}
}

func TestContentTypesMarshal(t *testing.T) {
	ct, _ := parseContentTypes([]byte(`<Types><Default Extension="xml" ContentType="application/xml"/></Types>`))
	ct.SetOverride("word/document.xml", ContentTypeDocumentMain)

	data, err := ct.marshal()
	if err != nil {
		t.Fatalf("marshal() error = %v", err)
	}
	out := string(data)
	for _, want := range []string{
		xmlHeader,
		`<Types xmlns="` + contentTypesNamespace + `">`,
		`<Override PartName="/word/document.xml" ContentType="` + ContentTypeDocumentMain + `"></Override>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("marshal() missing %q:\n%s", want, out)
		}
	}

	again, err := parseContentTypes(data)
	if err != nil || again.Lookup("word/document.xml") != ContentTypeDocumentMain {
		t.Errorf("marshalled manifest does not round trip: %v", err)
	}
}

func TestContentTypesMarshalSingleNamespace(t *testing.T) {
	ct, err := parseContentTypes([]byte(testContentTypes))
	if err != nil {
		t.Fatal(err)
	}
	data, err := ct.marshal()
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "xmlns="); got != 1 {
		t.Errorf("xmlns written %d times:\n%s", got, data)
	}
}
