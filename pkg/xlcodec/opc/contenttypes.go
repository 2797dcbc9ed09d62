package opc

import (
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// Default maps a file extension to a content type.
type Default struct {
	Extension   string
	ContentType string
}

// Override gives one part its own content type.
type Override struct {
	PartName    string
	ContentType string
}

// ContentTypes is the [Content_Types].xml part.
type ContentTypes struct {
	Defaults  []Default
	Overrides []Override
}

// NewContentTypes returns the defaults every spreadsheet package carries.
func NewContentTypes() *ContentTypes {
	return &ContentTypes{
		Defaults: []Default{
			{Extension: "rels", ContentType: TypeRelationships},
			{Extension: "xml", ContentType: TypeXML},
		},
	}
}

// ParseContentTypes reads a [Content_Types].xml part.
func ParseContentTypes(r io.Reader) (*ContentTypes, error) {
	d := xmlstream.NewDecoder(r)
	ct := &ContentTypes{}
	sawRoot := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xlerr.Malformed("content types: %v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "Types":
			sawRoot = true
		case "Default":
			ct.Defaults = append(ct.Defaults, Default{
				Extension:   attrValue(se, "Extension"),
				ContentType: attrValue(se, "ContentType"),
			})
		case "Override":
			ct.Overrides = append(ct.Overrides, Override{
				PartName:    attrValue(se, "PartName"),
				ContentType: attrValue(se, "ContentType"),
			})
		}
	}
	if !sawRoot {
		return nil, xlerr.Malformed("content types: missing Types element")
	}
	return ct, nil
}

// Lookup returns the content type of a zip entry: its override if any,
// otherwise the default for its extension. Part names compare
// case-insensitively.
func (ct *ContentTypes) Lookup(entry string) (string, bool) {
	name := PartName(entry)
	for _, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, name) {
			return o.ContentType, true
		}
	}
	ext := strings.TrimPrefix(path.Ext(entry), ".")
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType, true
		}
	}
	return "", false
}

// AddDefault registers a default unless the extension already has one.
func (ct *ContentTypes) AddDefault(ext, contentType string) {
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return
		}
	}
	ct.Defaults = append(ct.Defaults, Default{Extension: ext, ContentType: contentType})
}

// SetOverride sets the content type of one zip entry.
func (ct *ContentTypes) SetOverride(entry, contentType string) {
	name := PartName(entry)
	for i, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, name) {
			ct.Overrides[i].ContentType = contentType
			return
		}
	}
	ct.Overrides = append(ct.Overrides, Override{PartName: name, ContentType: contentType})
}

// Write emits the part on w.
func (ct *ContentTypes) Write(w xmlstream.Writer) error {
	if err := w.StartDocument(); err != nil {
		return err
	}
	if err := w.StartElement(xmlstream.Local("Types")); err != nil {
		return err
	}
	if err := w.Attr(xmlstream.Local("xmlns"), NamespaceContentTypes); err != nil {
		return err
	}
	for _, d := range ct.Defaults {
		if err := xmlstream.WriteLeaf(w, xmlstream.Local("Default"), "",
			xmlstream.Attr{Name: xmlstream.Local("Extension"), Value: d.Extension},
			xmlstream.Attr{Name: xmlstream.Local("ContentType"), Value: d.ContentType},
		); err != nil {
			return err
		}
	}
	for _, o := range ct.Overrides {
		if err := xmlstream.WriteLeaf(w, xmlstream.Local("Override"), "",
			xmlstream.Attr{Name: xmlstream.Local("PartName"), Value: o.PartName},
			xmlstream.Attr{Name: xmlstream.Local("ContentType"), Value: o.ContentType},
		); err != nil {
			return err
		}
	}
	if err := w.EndElement(); err != nil {
		return err
	}
	return w.EndDocument()
}

func attrValue(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
