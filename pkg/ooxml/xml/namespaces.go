package xml

// Namespace URIs used by the parts the engine edits.
const (
	NamespaceW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NamespaceR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NamespaceA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NamespaceP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	NamespaceMC  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	NamespaceP14 = "http://schemas.microsoft.com/office/powerpoint/2010/main"
	NamespaceXML = "http://www.w3.org/XML/1998/namespace"
)

// Namespaces binds the prefixes accepted in query expressions.
var Namespaces = map[string]string{
	"w":   NamespaceW,
	"r":   NamespaceR,
	"a":   NamespaceA,
	"p":   NamespaceP,
	"mc":  NamespaceMC,
	"p14": NamespaceP14,
}

// conventionalPrefix returns the prefix Office applications use for uri.
func conventionalPrefix(uri string) string {
	for prefix, ns := range Namespaces {
		if ns == uri {
			return prefix
		}
	}
	return ""
}
