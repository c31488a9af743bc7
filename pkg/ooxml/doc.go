// Package ooxml provides a mutation engine for Word and PowerPoint packages (DOCX, PPTX).
//
// The engine opens an OOXML package from bytes, applies exactly one structural
// edit and writes a package that still opens in desktop office applications.
// Every call works on its own in-memory copy; nothing is kept between calls.
//
// # Quick Start
//
//	engine := ooxml.New()
//
//	src, err := os.ReadFile("deck.pptx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, slide, err := engine.AddBlankSlide(src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("added slide", slide.Index)
//
//	os.WriteFile("deck.pptx", out, 0644)
//
// # Operations
//
// Presentations:
//
//	AddBlankSlide            - append a title + body slide
//	RemoveSlide              - drop a slide and its exclusively owned parts
//	ReorderSlide             - move a slide within the slide-id list
//	SetShapeText             - replace or append shape paragraphs
//	ListSlides, ListShapes   - read-only traversal
//	PresentationFromTemplate - .potx to .pptx, with at least one slide
//
// Wordprocessing documents:
//
//	DocumentFromText         - paragraphs from plain text
//	DocumentFromContent      - new document holding an alt chunk
//	AppendContent            - alt chunk appended to an existing body
//	DocumentFromTemplate     - .dotx to .docx, optionally with an alt chunk
//	ReplaceWithTracking      - find and replace recorded as w:del / w:ins
//
// # Architecture
//
// The package is organized around the package store:
//
//   - Package (package.go): part arena addressed by PartID, content-type
//     manifest (contenttypes.go) and relationship graph (relationships.go)
//   - Presentation, Slide (resolver.go): slide and shape addressing
//   - Importer (importer.go): turns Markdown, HTML, text, XML, MHT and DOCX
//     input into alt-chunk payloads
//   - presentation.go, document.go, trackchanges.go: the mutators
//   - serializer.go: validation, orphan pruning and ZIP output
//
// XML parts are held as github.com/antchfx/xmlquery trees, see the xml
// sub-package.
//
// # Error Handling
//
// Failures are typed:
//
//   - MalformedPackageError: input is not a usable container
//   - IndexOutOfRangeError: slide or shape ordinal out of bounds
//   - UnsupportedImportTypeError: unknown content type
//   - MissingTargetShapeError: slide has nothing to write into
//   - InvalidArgumentError: empty search text, empty content
//   - InternalInconsistencyError: a mutation left the package inconsistent
//
// Use the Is helpers, which see through wrapping:
//
//	if ooxml.IsIndexOutOfRange(err) {
//	    // report the valid range to the caller
//	}
//
// # Concurrency
//
// Engine is safe for concurrent use because each call loads its own Package.
// A Package itself must not be shared. Two calls that edit the same stored
// file race: the engine does not detect lost updates, the storage layer has
// to (see internal/storage).
package ooxml
