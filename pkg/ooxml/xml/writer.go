package xml

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Header is the XML declaration written in front of every part.
const Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Marshal serializes a parsed part. The declaration is replaced by Header,
// prefixes are written as stored and character data is never trimmed.
func Marshal(doc *Node) []byte {
	var buf bytes.Buffer
	buf.WriteString(Header)
	if doc.Type == xmlquery.DocumentNode {
		for child := doc.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case xmlquery.ElementNode, xmlquery.CommentNode:
				writeNode(&buf, child)
			}
		}
	} else {
		writeNode(&buf, doc)
	}
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n *Node) {
	switch n.Type {
	case xmlquery.TextNode:
		writeEscaped(buf, n.Data, false)
	case xmlquery.CharDataNode:
		buf.WriteString("<![CDATA[")
		buf.WriteString(n.Data)
		buf.WriteString("]]>")
	case xmlquery.CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(n.Data)
		buf.WriteString("-->")
	case xmlquery.ElementNode:
		name := qualifiedName(n.Prefix, n.Data)
		buf.WriteByte('<')
		buf.WriteString(name)
		for _, attr := range n.Attr {
			buf.WriteByte(' ')
			buf.WriteString(attrName(n, attr))
			buf.WriteString(`="`)
			writeEscaped(buf, attr.Value, true)
			buf.WriteByte('"')
		}
		if n.FirstChild == nil {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			writeNode(buf, child)
		}
		buf.WriteString("</")
		buf.WriteString(name)
		buf.WriteByte('>')
	}
}

func qualifiedName(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

func attrName(n *Node, attr xmlquery.Attr) string {
	space := attr.Name.Space
	switch {
	case space == "" && attr.Name.Local == "xmlns":
		return "xmlns"
	case space == "":
		return attr.Name.Local
	case space == "xmlns":
		return "xmlns:" + attr.Name.Local
	case space == "xml" || space == NamespaceXML:
		return "xml:" + attr.Name.Local
	case strings.ContainsAny(space, ":/"):
		return qualifiedName(prefixInScope(n, space), attr.Name.Local)
	}
	return space + ":" + attr.Name.Local
}

// prefixInScope finds the prefix declared for uri at n or an ancestor.
func prefixInScope(n *Node, uri string) string {
	for cur := n; cur != nil; cur = cur.Parent {
		for _, attr := range cur.Attr {
			if attr.Name.Space == "xmlns" && attr.Value == uri {
				return attr.Name.Local
			}
		}
	}
	return conventionalPrefix(uri)
}

func writeEscaped(buf *bytes.Buffer, s string, attr bool) {
	last := 0
	for i := 0; i < len(s); i++ {
		var esc string
		switch s[i] {
		case '&':
			esc = "&amp;"
		case '<':
			esc = "&lt;"
		case '>':
			esc = "&gt;"
		case '"':
			if !attr {
				continue
			}
			esc = "&quot;"
		case '\n':
			if !attr {
				continue
			}
			esc = "&#xA;"
		case '\t':
			if !attr {
				continue
			}
			esc = "&#x9;"
		case '\r':
			esc = "&#xD;"
		default:
			continue
		}
		buf.WriteString(s[last:i])
		buf.WriteString(esc)
		last = i + 1
	}
	buf.WriteString(s[last:])
}
