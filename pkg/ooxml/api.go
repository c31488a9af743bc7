package ooxml

import (
	"time"
)

// Engine runs one operation per call: load the package, apply a single
// mutation, validate and serialize. Engines hold no per-document state and
// are safe for concurrent use.
type Engine struct {
	config   *Config
	importer *Importer
	identity Identity
}

// New creates an engine with the global configuration.
func New() *Engine {
	return NewWithConfig(GetGlobalConfig())
}

// NewWithConfig creates an engine with a custom configuration.
func NewWithConfig(config *Config) *Engine {
	config = NewConfigWithDefaults(config)
	return &Engine{
		config:   config,
		importer: NewImporter(nil),
		identity: StaticIdentity{Name: config.DefaultAuthor},
	}
}

// Option configures an engine.
type Option func(*Engine)

// WithMarkdownConverter replaces the goldmark converter.
func WithMarkdownConverter(converter MarkdownConverter) Option {
	return func(e *Engine) {
		e.importer = NewImporter(converter)
	}
}

// WithIdentity sets the author and clock used for tracked changes.
func WithIdentity(identity Identity) Option {
	return func(e *Engine) {
		e.identity = identity
	}
}

// NewWithOptions creates an engine with config and opts. A nil config means
// the defaults.
func NewWithOptions(config *Config, opts ...Option) *Engine {
	engine := NewWithConfig(config)
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Importer returns the engine's content importer.
func (e *Engine) Importer() *Importer {
	return e.importer
}

// run loads src, applies fn and saves. Panics inside fn surface as
// InternalInconsistencyError and nothing is serialized.
func (e *Engine) run(operation string, src []byte, fn func(pkg *Package) error) (out []byte, err error) {
	pkg, err := OpenWithConfig(src, e.config)
	if err != nil {
		return nil, WithContext(err, operation, nil)
	}
	return e.mutate(operation, pkg, fn)
}

func (e *Engine) mutate(operation string, pkg *Package, fn func(pkg *Package) error) (out []byte, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = WithContext(RecoverError(r), operation, nil)
		}
	}()

	if err := fn(pkg); err != nil {
		return nil, WithContext(err, operation, nil)
	}
	out, err = pkg.Save()
	if err != nil {
		return nil, WithContext(err, operation, nil)
	}
	GetLogger().WithField("operation", operation).Debug("completed in %s (%d bytes)", time.Since(start), len(out))
	return out, nil
}

// read loads src for a read-only operation.
func (e *Engine) read(operation string, src []byte, fn func(pkg *Package) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = WithContext(RecoverError(r), operation, nil)
		}
	}()
	pkg, err := OpenWithConfig(src, e.config)
	if err != nil {
		return WithContext(err, operation, nil)
	}
	return WithContext(fn(pkg), operation, nil)
}

// Inspection summarizes a package.
type Inspection struct {
	MainPart    string      `json:"main_part"`
	ContentType string      `json:"content_type"`
	Parts       []string    `json:"parts"`
	Slides      []SlideInfo `json:"slides,omitempty"`
	Paragraphs  []string    `json:"paragraphs,omitempty"`
}

// Inspect lists the parts of a package and its slides or paragraphs.
func (e *Engine) Inspect(src []byte) (*Inspection, error) {
	var result *Inspection
	err := e.read("inspect", src, func(pkg *Package) error {
		result = &Inspection{Parts: pkg.PartNames()}
		main := pkg.MainPart()
		if main == nil {
			return nil
		}
		result.MainPart = main.Name()
		result.ContentType = main.ContentType()
		switch {
		case isPresentationContentType(result.ContentType):
			pr, err := OpenPresentation(pkg)
			if err != nil {
				return err
			}
			result.Slides, err = pr.ListSlides()
			return err
		case isDocumentContentType(result.ContentType):
			doc, err := OpenDocument(pkg)
			if err != nil {
				return err
			}
			result.Paragraphs, err = doc.ListParagraphs()
			return err
		}
		return nil
	})
	return result, err
}

// ListSlides returns the slides of a presentation.
func (e *Engine) ListSlides(src []byte) ([]SlideInfo, error) {
	var slides []SlideInfo
	err := e.read("list slides", src, func(pkg *Package) error {
		pr, err := OpenPresentation(pkg)
		if err != nil {
			return err
		}
		slides, err = pr.ListSlides()
		return err
	})
	return slides, err
}

// ListShapes returns the shapes of one slide.
func (e *Engine) ListShapes(src []byte, slide int) ([]ShapeInfo, error) {
	var shapes []ShapeInfo
	err := e.read("list shapes", src, func(pkg *Package) error {
		pr, err := OpenPresentation(pkg)
		if err != nil {
			return err
		}
		shapes, err = pr.ListShapes(slide)
		return err
	})
	return shapes, err
}

// AddBlankSlide appends a blank title-and-body slide.
func (e *Engine) AddBlankSlide(src []byte) ([]byte, SlideInfo, error) {
	var info SlideInfo
	out, err := e.run("add slide", src, func(pkg *Package) error {
		pr, err := OpenPresentation(pkg)
		if err != nil {
			return err
		}
		info, err = pr.AddBlankSlide()
		return err
	})
	return out, info, err
}

// RemoveSlide removes the slide at index.
func (e *Engine) RemoveSlide(src []byte, index int) ([]byte, SlideInfo, error) {
	var info SlideInfo
	out, err := e.run("remove slide", src, func(pkg *Package) error {
		pr, err := OpenPresentation(pkg)
		if err != nil {
			return err
		}
		info, err = pr.RemoveSlide(index)
		return err
	})
	return out, info, err
}

// ReorderSlide moves the slide at from towards to.
func (e *Engine) ReorderSlide(src []byte, from, to int) ([]byte, error) {
	return e.run("reorder slide", src, func(pkg *Package) error {
		pr, err := OpenPresentation(pkg)
		if err != nil {
			return err
		}
		return pr.ReorderSlide(from, to)
	})
}

// SetShapeText replaces or extends the text of a slide shape.
func (e *Engine) SetShapeText(src []byte, req ShapeTextRequest) ([]byte, ShapeInfo, error) {
	var info ShapeInfo
	out, err := e.run("set shape text", src, func(pkg *Package) error {
		pr, err := OpenPresentation(pkg)
		if err != nil {
			return err
		}
		info, err = pr.SetShapeText(req)
		return err
	})
	return out, info, err
}

// PresentationFromTemplate instantiates a .potx or .pptx template.
func (e *Engine) PresentationFromTemplate(template []byte) ([]byte, error) {
	return e.run("presentation from template", template, func(pkg *Package) error {
		_, err := PresentationFromTemplate(pkg)
		return err
	})
}

// DocumentFromText creates a .docx whose paragraphs are the blank-line
// separated blocks of text.
func (e *Engine) DocumentFromText(text string) ([]byte, error) {
	pkg, err := newDocumentPackage(e.config)
	if err != nil {
		return nil, err
	}
	return e.mutate("document from text", pkg, func(pkg *Package) error {
		doc, err := OpenDocument(pkg)
		if err != nil {
			return err
		}
		_, err = doc.AppendText(text)
		return err
	})
}

// DocumentFromContent creates a .docx holding data as an alt chunk. The
// format comes from mimeType, or from filename when no type is declared.
func (e *Engine) DocumentFromContent(mimeType, filename string, data []byte) ([]byte, error) {
	payload, err := e.preparePayload(mimeType, filename, data, false)
	if err != nil {
		return nil, WithContext(err, "document from content", nil)
	}
	pkg, err := newDocumentPackage(e.config)
	if err != nil {
		return nil, err
	}
	return e.mutate("document from content", pkg, func(pkg *Package) error {
		doc, err := OpenDocument(pkg)
		if err != nil {
			return err
		}
		_, err = doc.AppendAltChunk(payload)
		return err
	})
}

// AppendContent appends data to an existing document as an alt chunk.
// Plain text is imported as HTML paragraphs.
func (e *Engine) AppendContent(src []byte, mimeType, filename string, data []byte) ([]byte, error) {
	payload, err := e.preparePayload(mimeType, filename, data, true)
	if err != nil {
		return nil, WithContext(err, "append content", nil)
	}
	return e.run("append content", src, func(pkg *Package) error {
		doc, err := OpenDocument(pkg)
		if err != nil {
			return err
		}
		_, err = doc.AppendAltChunk(payload)
		return err
	})
}

// DocumentFromTemplate instantiates a .dotx or .docx template, optionally
// injecting content. Empty data leaves the template body as is.
func (e *Engine) DocumentFromTemplate(template []byte, mimeType, filename string, data []byte) ([]byte, error) {
	var payload *ImportPayload
	if len(data) > 0 {
		prepared, err := e.preparePayload(mimeType, filename, data, false)
		if err != nil {
			return nil, WithContext(err, "document from template", nil)
		}
		payload = &prepared
	}
	return e.run("document from template", template, func(pkg *Package) error {
		doc, err := DocumentFromTemplate(pkg)
		if err != nil {
			return err
		}
		if payload != nil {
			_, err = doc.AppendAltChunk(*payload)
		}
		return err
	})
}

// ReplaceWithTracking replaces the first match of search in every paragraph
// as a tracked change and reports how many paragraphs changed.
func (e *Engine) ReplaceWithTracking(src []byte, search, replacement string) ([]byte, int, error) {
	if search == "" {
		return nil, 0, NewInvalidArgumentError("search", "search text is empty")
	}
	var changed int
	out, err := e.run("replace with tracking", src, func(pkg *Package) error {
		doc, err := OpenDocument(pkg)
		if err != nil {
			return err
		}
		splices, err := doc.ReplaceWithTracking(search, replacement, e.identity)
		changed = len(splices)
		return err
	})
	return out, changed, err
}

func (e *Engine) preparePayload(mimeType, filename string, data []byte, forAppend bool) (ImportPayload, error) {
	format, err := DetectSourceFormat(mimeType, filename)
	if err != nil {
		return ImportPayload{}, err
	}
	if forAppend {
		return e.importer.PrepareForAppend(format, data)
	}
	return e.importer.Prepare(format, data)
}
