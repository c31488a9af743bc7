package ooxml

import (
	"testing"

	"github.com/benjaminschreck/go-ooxml/pkg/ooxml/ooxmltest"
)

func TestOpenPresentationErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"wordprocessing package", ooxmltest.NewDocument().WithParagraph("x").Bytes()},
		{"no main part", ooxmltest.NewDocument().WithoutMainPart().Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenPresentation(mustOpen(t, tt.data)); !IsMalformedPackage(err) {
				t.Errorf("OpenPresentation() error = %v, want MalformedPackageError", err)
			}
		})
	}
}

func TestResolveSlideByOrdinal(t *testing.T) {
	pr := mustPresentation(t, ooxmltest.NewPresentation().WithTitledSlide("A").WithTitledSlide("B").WithTitledSlide("C").Bytes())

	tests := []struct {
		index    int
		wantErr  bool
		wantID   int
		wantPart string
	}{
		{index: 0, wantID: 256, wantPart: "ppt/slides/slide1.xml"},
		{index: 2, wantID: 258, wantPart: "ppt/slides/slide3.xml"},
		{index: -1, wantErr: true},
		{index: 3, wantErr: true},
	}
	for _, tt := range tests {
		ref, err := pr.ResolveSlideByOrdinal(tt.index)
		if tt.wantErr {
			if !IsIndexOutOfRange(err) {
				t.Errorf("ResolveSlideByOrdinal(%d) error = %v, want IndexOutOfRangeError", tt.index, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ResolveSlideByOrdinal(%d) error = %v", tt.index, err)
		}
		if ref.ID != tt.wantID || ref.Part.Name() != tt.wantPart || ref.Index != tt.index {
			t.Errorf("ResolveSlideByOrdinal(%d) = %+v", tt.index, ref)
		}
	}
}

func TestResolveSlideMissingRelationship(t *testing.T) {
	pr := mustPresentation(t, ooxmltest.NewPresentation().WithTitledSlide("A").Bytes())
	pr.pkg.RemoveRelationship(pr.part, "rId2")
	if _, err := pr.ResolveSlideByOrdinal(0); !IsMalformedPackage(err) {
		t.Errorf("error = %v, want MalformedPackageError", err)
	}
}

func TestEmptyPresentation(t *testing.T) {
	pr := mustPresentation(t, ooxmltest.NewPresentation().Bytes())
	if pr.SlideCount() != 0 {
		t.Errorf("SlideCount() = %d", pr.SlideCount())
	}
	_, err := pr.ResolveSlideByOrdinal(0)
	if !IsIndexOutOfRange(err) {
		t.Fatalf("error = %v", err)
	}
	if got := err.Error(); got != "slide index 0 out of range: there are no slides" {
		t.Errorf("Error() = %q", got)
	}
}

func TestPlaceholderClassification(t *testing.T) {
	tests := []struct {
		phType string
		has    bool
		want   PlaceholderKind
	}{
		{"title", true, PlaceholderTitle},
		{"ctrTitle", true, PlaceholderTitle},
		{"body", true, PlaceholderBody},
		{"", true, PlaceholderBody},
		{"obj", true, PlaceholderBody},
		{"dt", true, PlaceholderOther},
		{"sldNum", true, PlaceholderOther},
		{"", false, PlaceholderNone},
	}
	for _, tt := range tests {
		if got := placeholderKind(tt.phType, tt.has); got != tt.want {
			t.Errorf("placeholderKind(%q, %v) = %v, want %v", tt.phType, tt.has, got, tt.want)
		}
	}
}

func TestShapesAndPlaceholders(t *testing.T) {
	pr := mustPresentation(t, ooxmltest.NewPresentation().WithSlide(
		ooxmltest.TextBox("Box", "free"),
		ooxmltest.Shape{Name: "Date", Placeholder: true, PlaceholderType: "dt"},
		ooxmltest.Title("Heading"),
		ooxmltest.Shape{Name: "Untyped", Placeholder: true, Paragraphs: []string{"body text"}},
	).Bytes())

	slide, err := pr.Slide(0)
	if err != nil {
		t.Fatal(err)
	}
	shapes := slide.Shapes()
	want := []string{"none", "dt", "title", "body"}
	if len(shapes) != len(want) {
		t.Fatalf("Shapes() = %d, want %d", len(shapes), len(want))
	}
	for i, shape := range shapes {
		if shape.Index != i || shape.PlaceholderName() != want[i] {
			t.Errorf("shape %d = %d/%s, want %s", i, shape.Index, shape.PlaceholderName(), want[i])
		}
	}

	title, ok := slide.ResolvePlaceholderShape(PlaceholderTitle)
	if !ok || title.Index != 2 || shapeText(title.Node) != "Heading" {
		t.Errorf("ResolvePlaceholderShape(title) = %+v, %v", title, ok)
	}
	if _, err := slide.ResolveShapeByOrdinal(4); !IsIndexOutOfRange(err) {
		t.Errorf("ResolveShapeByOrdinal(4) error = %v", err)
	}
}

func TestResolveTargetShape(t *testing.T) {
	tests := []struct {
		name      string
		shapes    []ooxmltest.Shape
		explicit  *int
		wantIndex int
		wantErr   func(error) bool
	}{
		{
			name:      "body before title",
			shapes:    []ooxmltest.Shape{ooxmltest.Title("T"), ooxmltest.Body("B")},
			wantIndex: 1,
		},
		{
			name:      "title when no body",
			shapes:    []ooxmltest.Shape{ooxmltest.TextBox("Box"), ooxmltest.Title("T")},
			wantIndex: 1,
		},
		{
			name:      "first shape without placeholders",
			shapes:    []ooxmltest.Shape{ooxmltest.TextBox("One"), ooxmltest.TextBox("Two")},
			wantIndex: 0,
		},
		{
			name:      "explicit index wins",
			shapes:    []ooxmltest.Shape{ooxmltest.Title("T"), ooxmltest.Body("B")},
			explicit:  intPtr(0),
			wantIndex: 0,
		},
		{
			name:     "explicit index out of range",
			shapes:   []ooxmltest.Shape{ooxmltest.Title("T")},
			explicit: intPtr(1),
			wantErr:  IsIndexOutOfRange,
		},
		{
			name:    "no shapes",
			wantErr: IsMissingTargetShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := mustPresentation(t, ooxmltest.NewPresentation().WithSlide(tt.shapes...).Bytes())
			slide, err := pr.Slide(0)
			if err != nil {
				t.Fatal(err)
			}
			shape, err := slide.ResolveTargetShape(tt.explicit)
			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Errorf("ResolveTargetShape() error = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if shape.Index != tt.wantIndex {
				t.Errorf("ResolveTargetShape() = %d, want %d", shape.Index, tt.wantIndex)
			}
		})
	}
}

func TestShapeText(t *testing.T) {
	pr := mustPresentation(t, ooxmltest.NewPresentation().WithSlide(ooxmltest.Body("first", "", "third")).Bytes())
	slide, _ := pr.Slide(0)
	if got := shapeText(slide.Shapes()[0].Node); got != "first\n\nthird" {
		t.Errorf("shapeText() = %q", got)
	}
}
