// Package xml provides the XML part model used by the ooxml engine.
//
// OOXML parts (document.xml, presentation.xml, slides, settings) are parsed
// into github.com/antchfx/xmlquery node trees. The package adds what the
// engine needs on top of xmlquery:
//
//   - namespace-URI bound XPath queries (query.go), so a lookup such as
//     "//p:sldId" works no matter which prefix the producing application used
//   - element and attribute helpers that compare namespace URIs, not prefixes
//     (node.go)
//   - tree editing primitives: append, insert before/after, detach
//   - a writer (writer.go) that re-emits a tree with prefixes kept verbatim and
//     character data untouched, including leading and trailing spaces
//
// # Namespaces
//
// The conventional prefixes are bound in Namespaces:
//   - w: WordprocessingML main
//   - r: officeDocument relationships
//   - a: DrawingML main
//   - p: PresentationML main
//   - mc: markup compatibility
//
// New elements are created with the prefix already declared on the part's
// root element for that URI (see PrefixFor), falling back to the conventional
// prefix and declaring it when the root does not bind the URI yet.
package xml
