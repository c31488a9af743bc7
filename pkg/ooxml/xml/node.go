package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Node is an element, text or document node of a parsed part.
type Node = xmlquery.Node

// Parse parses the content of an XML part.
func Parse(data []byte) (*Node, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}
	if Root(doc) == nil {
		return nil, fmt.Errorf("failed to parse xml: no root element")
	}
	return doc, nil
}

// Root returns the root element of a document node. An element is returned
// unchanged.
func Root(doc *Node) *Node {
	if doc == nil {
		return nil
	}
	if doc.Type == xmlquery.ElementNode {
		return doc
	}
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}

// Is reports whether n is the element {space}local.
func Is(n *Node, space, local string) bool {
	return n != nil && n.Type == xmlquery.ElementNode && n.Data == local && n.NamespaceURI == space
}

// Elements returns the element children of n in document order.
func Elements(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			out = append(out, child)
		}
	}
	return out
}

// Children returns the element children of n named {space}local.
func Children(n *Node, space, local string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if Is(child, space, local) {
			out = append(out, child)
		}
	}
	return out
}

// Child returns the first element child of n named {space}local, or nil.
func Child(n *Node, space, local string) *Node {
	if n == nil {
		return nil
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if Is(child, space, local) {
			return child
		}
	}
	return nil
}

// NewElement creates a detached element.
func NewElement(prefix, space, local string) *Node {
	return &Node{
		Type:         xmlquery.ElementNode,
		Data:         local,
		Prefix:       prefix,
		NamespaceURI: space,
	}
}

// NewText creates a detached character data node.
func NewText(text string) *Node {
	return &Node{Type: xmlquery.TextNode, Data: text}
}

// AppendChild adds child as the last child of parent.
func AppendChild(parent, child *Node) {
	Detach(child)
	child.Parent = parent
	if parent.LastChild == nil {
		parent.FirstChild = child
		parent.LastChild = child
		return
	}
	child.PrevSibling = parent.LastChild
	parent.LastChild.NextSibling = child
	parent.LastChild = child
}

// InsertBefore adds child immediately before ref.
func InsertBefore(ref, child *Node) {
	Detach(child)
	parent := ref.Parent
	child.Parent = parent
	child.NextSibling = ref
	child.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = child
	} else if parent != nil {
		parent.FirstChild = child
	}
	ref.PrevSibling = child
}

// InsertAfter adds child immediately after ref.
func InsertAfter(ref, child *Node) {
	if ref.NextSibling != nil {
		InsertBefore(ref.NextSibling, child)
		return
	}
	if ref.Parent != nil {
		AppendChild(ref.Parent, child)
		return
	}
	Detach(child)
	ref.NextSibling = child
	child.PrevSibling = ref
}

// Detach unlinks n from its parent and siblings.
func Detach(n *Node) {
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	} else if n.Parent != nil && n.Parent.FirstChild == n {
		n.Parent.FirstChild = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	} else if n.Parent != nil && n.Parent.LastChild == n {
		n.Parent.LastChild = n.PrevSibling
	}
	n.Parent = nil
	n.PrevSibling = nil
	n.NextSibling = nil
}

// RemoveChildren detaches every child of n for which keep returns false.
// A nil keep removes all children.
func RemoveChildren(n *Node, keep func(*Node) bool) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if keep == nil || !keep(child) {
			Detach(child)
		}
		child = next
	}
}

// AttrValue returns the value of attribute {space}local on n.
func AttrValue(n *Node, space, local string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, attr := range n.Attr {
		if attr.Name.Local == local && attrNamespace(n, attr) == space {
			return attr.Value, true
		}
	}
	return "", false
}

// Attr returns the value of attribute {space}local on n or "".
func Attr(n *Node, space, local string) string {
	v, _ := AttrValue(n, space, local)
	return v
}

// SetAttr sets attribute {space}local on n, adding it with prefix when absent.
func SetAttr(n *Node, prefix, space, local, value string) {
	for i, attr := range n.Attr {
		if attr.Name.Local == local && attrNamespace(n, attr) == space {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xmlquery.Attr{
		Name:         xml.Name{Space: prefix, Local: local},
		Value:        value,
		NamespaceURI: space,
	})
}

// RemoveAttr deletes attribute {space}local from n.
func RemoveAttr(n *Node, space, local string) {
	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		if attr.Name.Local == local && attrNamespace(n, attr) == space {
			continue
		}
		kept = append(kept, attr)
	}
	n.Attr = kept
}

// NamespaceAttrs returns the attributes of n that belong to namespace space,
// excluding namespace declarations.
func NamespaceAttrs(n *Node, space string) []xmlquery.Attr {
	var out []xmlquery.Attr
	for _, attr := range n.Attr {
		if isDeclaration(attr) {
			continue
		}
		if attrNamespace(n, attr) == space {
			out = append(out, attr)
		}
	}
	return out
}

func isDeclaration(attr xmlquery.Attr) bool {
	return attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns")
}

// attrNamespace resolves the namespace URI of attr on n. Unprefixed
// attributes are in no namespace.
func attrNamespace(n *Node, attr xmlquery.Attr) string {
	if attr.NamespaceURI != "" {
		return attr.NamespaceURI
	}
	switch attr.Name.Space {
	case "":
		return ""
	case "xml":
		return NamespaceXML
	case NamespaceXML:
		return NamespaceXML
	}
	if uri := LookupNamespace(n, attr.Name.Space); uri != "" {
		return uri
	}
	return attr.Name.Space
}

// LookupNamespace resolves prefix against the declarations in scope at n.
func LookupNamespace(n *Node, prefix string) string {
	for cur := n; cur != nil; cur = cur.Parent {
		for _, attr := range cur.Attr {
			if prefix == "" && attr.Name.Space == "" && attr.Name.Local == "xmlns" {
				return attr.Value
			}
			if prefix != "" && attr.Name.Space == "xmlns" && attr.Name.Local == prefix {
				return attr.Value
			}
		}
	}
	return ""
}

// PrefixFor returns the prefix root binds to uri. When root has no binding,
// the conventional prefix (or fallback) is declared on root and returned.
func PrefixFor(root *Node, uri, fallback string) string {
	for _, attr := range root.Attr {
		if attr.Value != uri {
			continue
		}
		if attr.Name.Space == "xmlns" {
			return attr.Name.Local
		}
		if attr.Name.Space == "" && attr.Name.Local == "xmlns" {
			return ""
		}
	}
	prefix := conventionalPrefix(uri)
	if prefix == "" {
		prefix = fallback
	}
	root.Attr = append(root.Attr, xmlquery.Attr{
		Name:  xml.Name{Space: "xmlns", Local: prefix},
		Value: uri,
	})
	return prefix
}

// Text returns the character data directly inside n.
func Text(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.TextNode || child.Type == xmlquery.CharDataNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}

// SetText replaces the content of n with a single text node.
func SetText(n *Node, text string) {
	RemoveChildren(n, nil)
	if text != "" {
		AppendChild(n, NewText(text))
	}
}
