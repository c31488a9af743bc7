package ooxml

import (
	"encoding/xml"
	"path"
	"strings"
)

// Content types of the parts the engine reads or creates.
const (
	ContentTypePresentationMain      = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ContentTypePresentationTemplate  = "application/vnd.openxmlformats-officedocument.presentationml.template.main+xml"
	ContentTypeSlideshowMain         = "application/vnd.openxmlformats-officedocument.presentationml.slideshow.main+xml"
	ContentTypePresentationMacro     = "application/vnd.ms-powerpoint.presentation.macroEnabled.main+xml"
	ContentTypePresentationMacroTmpl = "application/vnd.ms-powerpoint.template.macroEnabled.main+xml"
	ContentTypeSlide                 = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"

	ContentTypeDocumentMain      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ContentTypeDocumentTemplate  = "application/vnd.openxmlformats-officedocument.wordprocessingml.template.main+xml"
	ContentTypeDocumentMacro     = "application/vnd.ms-word.document.macroEnabled.main+xml"
	ContentTypeDocumentMacroTmpl = "application/vnd.ms-word.template.macroEnabledTemplate.main+xml"
	ContentTypeSettings          = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"

	ContentTypeRelationships = "application/vnd.openxmlformats-package.relationships+xml"
	ContentTypeXML           = "application/xml"

	contentTypesNamespace = "http://schemas.openxmlformats.org/package/2006/content-types"
	contentTypesPartName  = "[Content_Types].xml"
)

// templateContentTypes maps template main part types to their document type.
var templateContentTypes = map[string]string{
	ContentTypePresentationTemplate:  ContentTypePresentationMain,
	ContentTypePresentationMacroTmpl: ContentTypePresentationMacro,
	ContentTypeDocumentTemplate:      ContentTypeDocumentMain,
	ContentTypeDocumentMacroTmpl:     ContentTypeDocumentMacro,
}

// ContentTypes is the [Content_Types].xml manifest.
type ContentTypes struct {
	XMLName   xml.Name              `xml:"Types"`
	Namespace string                `xml:"xmlns,attr"`
	Defaults  []ContentTypeDefault  `xml:"Default"`
	Overrides []ContentTypeOverride `xml:"Override"`
}

// ContentTypeDefault declares the content type of every part with an extension.
type ContentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ContentTypeOverride declares the content type of a single part.
type ContentTypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

func parseContentTypes(data []byte) (*ContentTypes, error) {
	ct := &ContentTypes{}
	if err := xml.Unmarshal(data, ct); err != nil {
		return nil, err
	}
	if ct.Namespace == "" {
		ct.Namespace = contentTypesNamespace
	}
	// the namespace is written through the xmlns field alone
	ct.XMLName = xml.Name{}
	return ct, nil
}

func (ct *ContentTypes) marshal() ([]byte, error) {
	output, err := xml.Marshal(ct)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), output...), nil
}

// Lookup returns the content type of the named part: its override, or the
// default for its extension.
func (ct *ContentTypes) Lookup(name string) string {
	partName := "/" + strings.TrimPrefix(name, "/")
	for _, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, partName) {
			return o.ContentType
		}
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType
		}
	}
	return ""
}

// SetOverride sets the override of the named part.
func (ct *ContentTypes) SetOverride(name, contentType string) {
	partName := "/" + strings.TrimPrefix(name, "/")
	for i, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, partName) {
			ct.Overrides[i].ContentType = contentType
			return
		}
	}
	ct.Overrides = append(ct.Overrides, ContentTypeOverride{PartName: partName, ContentType: contentType})
}

// RemoveOverride drops the override of the named part. It reports whether
// one existed.
func (ct *ContentTypes) RemoveOverride(name string) bool {
	partName := "/" + strings.TrimPrefix(name, "/")
	for i, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, partName) {
			ct.Overrides = append(ct.Overrides[:i], ct.Overrides[i+1:]...)
			return true
		}
	}
	return false
}

// EnsureDefault registers a default for ext unless one exists.
func (ct *ContentTypes) EnsureDefault(ext, contentType string) bool {
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return false
		}
	}
	ct.Defaults = append(ct.Defaults, ContentTypeDefault{Extension: ext, ContentType: contentType})
	return true
}
