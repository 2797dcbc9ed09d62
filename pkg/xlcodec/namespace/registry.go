// Package namespace tracks the namespace declarations of a document element
// so regenerated markup declares exactly what the source declared.
package namespace

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// Well-known namespace URIs.
const (
	SpreadsheetML       = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	SpreadsheetMLStrict = "http://purl.oclc.org/ooxml/spreadsheetml/main"
	Relationships       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	RelationshipsStrict = "http://purl.oclc.org/ooxml/officeDocument/relationships"
	MarkupCompatibility = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	XML                 = "http://www.w3.org/XML/1998/namespace"
)

// IgnorableLocal is the local name of the markup-compatibility attribute
// listing prefixes a consumer may skip.
const IgnorableLocal = "Ignorable"

// Binding maps a prefix to a URI. The empty prefix is the default namespace.
type Binding struct {
	Prefix string
	URI    string
}

// Registry holds the declarations of one document element.
type Registry struct {
	bindings []Binding
	// ignorable is the raw mc:Ignorable value, kept verbatim.
	ignorable       string
	ignorablePrefix string
	hasIgnorable    bool
	// attrs are every other root attribute, in source order.
	attrs []xml.Attr
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// NewWorkbook returns the declarations a freshly generated workbook part
// needs: the spreadsheet namespace as default and r for relationships.
func NewWorkbook() *Registry {
	r := New()
	r.Ensure("", SpreadsheetML)
	r.Ensure("r", Relationships)
	return r
}

// FromAttrs builds a registry from the raw (prefix-preserving) attributes
// of a document element, as returned by xml.Decoder.RawToken.
// A prefix declared twice keeps its first URI.
func FromAttrs(attrs []xml.Attr) *Registry {
	r := New()
	for _, a := range attrs {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			r.declare("", a.Value)
		case a.Name.Space == "xmlns":
			r.declare(a.Name.Local, a.Value)
		}
	}
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		// Ignorable only counts on a prefix bound to markup compatibility. An
		// unbound prefix is kept as the marker so Validate can report it.
		if a.Name.Local == IgnorableLocal && a.Name.Space != "" && !r.hasIgnorable {
			if uri, ok := r.Lookup(a.Name.Space); !ok || uri == MarkupCompatibility {
				r.ignorable = a.Value
				r.ignorablePrefix = a.Name.Space
				r.hasIgnorable = true
				continue
			}
		}
		r.attrs = append(r.attrs, a)
	}
	return r
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	c := *r
	c.bindings = append([]Binding(nil), r.bindings...)
	c.attrs = append([]xml.Attr(nil), r.attrs...)
	return &c
}

// Bindings returns the declarations in declaration order.
func (r *Registry) Bindings() []Binding {
	return append([]Binding(nil), r.bindings...)
}

// Lookup returns the URI bound to prefix.
func (r *Registry) Lookup(prefix string) (string, bool) {
	if prefix == "xml" {
		return XML, true
	}
	for _, b := range r.bindings {
		if b.Prefix == prefix {
			return b.URI, true
		}
	}
	return "", false
}

// PrefixFor returns the first prefix bound to any of uris.
func (r *Registry) PrefixFor(uris ...string) (string, bool) {
	for _, b := range r.bindings {
		for _, uri := range uris {
			if b.URI == uri {
				return b.Prefix, true
			}
		}
	}
	return "", false
}

// Ensure makes sure uri is declared and returns its prefix. If uri is
// already bound, the existing prefix is returned. Otherwise prefix is used,
// or a numbered variant of it when prefix is taken by another URI.
func (r *Registry) Ensure(prefix, uri string) string {
	if p, ok := r.PrefixFor(uri); ok {
		return p
	}
	candidate := prefix
	for n := 1; ; n++ {
		if _, taken := r.Lookup(candidate); !taken {
			break
		}
		candidate = prefix + strings.Repeat("x", n)
		if prefix == "" {
			candidate = "ns" + strings.Repeat("x", n)
		}
	}
	r.declare(candidate, uri)
	return candidate
}

// Ignorable returns the raw mc:Ignorable value.
func (r *Registry) Ignorable() (string, bool) {
	return r.ignorable, r.hasIgnorable
}

// IgnorablePrefixes returns the prefixes listed in mc:Ignorable.
func (r *Registry) IgnorablePrefixes() []string {
	return strings.Fields(r.ignorable)
}

// Attrs returns the preserved non-declaration attributes.
func (r *Registry) Attrs() []xml.Attr {
	return append([]xml.Attr(nil), r.attrs...)
}

// Validate checks that every prefix the document element relies on is
// declared: the element's own prefix, the Ignorable carrier and every
// prefix it lists, and prefixed attributes.
func (r *Registry) Validate(elementPrefix string) error {
	if elementPrefix != "" {
		if _, ok := r.Lookup(elementPrefix); !ok {
			return xlerr.Namespace("element prefix %q is not declared", elementPrefix)
		}
	}
	if r.hasIgnorable {
		if _, ok := r.Lookup(r.ignorablePrefix); !ok {
			return xlerr.Namespace("prefix %q of %s is not declared", r.ignorablePrefix, IgnorableLocal)
		}
		for _, p := range r.IgnorablePrefixes() {
			if _, ok := r.Lookup(p); !ok {
				return xlerr.Namespace("ignorable prefix %q is not declared", p)
			}
		}
	}
	for _, a := range r.attrs {
		if a.Name.Space == "" {
			continue
		}
		if _, ok := r.Lookup(a.Name.Space); !ok {
			return xlerr.Namespace("attribute prefix %q is not declared", a.Name.Space)
		}
	}
	return nil
}

// CheckFragment verifies that every prefix used in the well-formed fragment
// raw is declared either by r or inside the fragment itself.
func (r *Registry) CheckFragment(raw []byte) error {
	d := xml.NewDecoder(bytes.NewReader(raw))
	var scopes [][]string
	inScope := func(prefix string) bool {
		if _, ok := r.Lookup(prefix); ok {
			return true
		}
		for i := len(scopes) - 1; i >= 0; i-- {
			for _, p := range scopes[i] {
				if p == prefix {
					return true
				}
			}
		}
		return false
	}
	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return xlerr.Malformed("opaque fragment: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var declared []string
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					declared = append(declared, a.Name.Local)
				}
			}
			scopes = append(scopes, declared)
			if t.Name.Space != "" && !inScope(t.Name.Space) {
				return xlerr.Namespace("prefix %q used by <%s:%s> is not declared", t.Name.Space, t.Name.Space, t.Name.Local)
			}
			for _, a := range t.Attr {
				if a.Name.Space == "" || a.Name.Space == "xmlns" {
					continue
				}
				if !inScope(a.Name.Space) {
					return xlerr.Namespace("prefix %q used by attribute %s:%s is not declared", a.Name.Space, a.Name.Space, a.Name.Local)
				}
			}
		case xml.EndElement:
			if len(scopes) > 0 {
				scopes = scopes[:len(scopes)-1]
			}
		}
	}
}

// Declare binds prefix to uri when prefix is free and reports whether it
// did.
func (r *Registry) Declare(prefix, uri string) bool {
	if _, ok := r.Lookup(prefix); ok {
		return false
	}
	r.declare(prefix, uri)
	return true
}

// FragmentBindings returns every declaration made inside raw for a prefix r
// does not bind, in document order. A prefix declared twice is listed twice.
func (r *Registry) FragmentBindings(raw []byte) ([]Binding, error) {
	d := xml.NewDecoder(bytes.NewReader(raw))
	var out []Binding
	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, xlerr.Malformed("opaque fragment: %v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, a := range se.Attr {
			prefix, ok := declaredPrefix(a)
			if !ok {
				continue
			}
			if _, bound := r.Lookup(prefix); !bound {
				out = append(out, Binding{Prefix: prefix, URI: a.Value})
			}
		}
	}
}

// StripRedundant removes from raw every declaration that repeats the binding
// already in scope, looking first at the enclosing elements of the fragment
// and then at r. Everything else is kept byte for byte.
func (r *Registry) StripRedundant(raw []byte) ([]byte, error) {
	d := xml.NewDecoder(bytes.NewReader(raw))
	var (
		out    bytes.Buffer
		last   int64
		scopes []map[string]string
	)
	lookup := func(prefix string) (string, bool) {
		for i := len(scopes) - 1; i >= 0; i-- {
			if uri, ok := scopes[i][prefix]; ok {
				return uri, true
			}
		}
		return r.Lookup(prefix)
	}
	for {
		start := d.InputOffset()
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xlerr.Malformed("opaque fragment: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var drop map[string]bool
			declared := make(map[string]string)
			for _, a := range t.Attr {
				prefix, ok := declaredPrefix(a)
				if !ok {
					continue
				}
				if uri, bound := lookup(prefix); bound && uri == a.Value {
					if drop == nil {
						drop = make(map[string]bool)
					}
					drop[prefix] = true
					continue
				}
				declared[prefix] = a.Value
			}
			scopes = append(scopes, declared)
			if drop == nil {
				continue
			}
			end := d.InputOffset()
			out.Write(raw[last:start])
			out.Write(stripDeclarations(raw[start:end], drop))
			last = end
		case xml.EndElement:
			if len(scopes) > 0 {
				scopes = scopes[:len(scopes)-1]
			}
		}
	}
	if last == 0 {
		return raw, nil
	}
	out.Write(raw[last:])
	return out.Bytes(), nil
}

// attrPattern matches one attribute of a start tag, value included, so
// that scanning never stops inside a quoted value.
var attrPattern = regexp.MustCompile(`\s+([^\s=/>]+)\s*=\s*("[^"]*"|'[^']*')`)

// stripDeclarations removes the declarations of the prefixes in drop from
// a single start tag.
func stripDeclarations(tag []byte, drop map[string]bool) []byte {
	var out []byte
	last := 0
	for _, m := range attrPattern.FindAllSubmatchIndex(tag, -1) {
		name := string(tag[m[2]:m[3]])
		prefix, ok := "", name == "xmlns"
		if strings.HasPrefix(name, "xmlns:") {
			prefix, ok = name[len("xmlns:"):], true
		}
		if !ok || !drop[prefix] {
			continue
		}
		out = append(out, tag[last:m[0]]...)
		last = m[1]
	}
	return append(out, tag[last:]...)
}

// declaredPrefix reports the prefix a declares, "" for the default namespace.
func declaredPrefix(a xml.Attr) (string, bool) {
	switch {
	case a.Name.Space == "xmlns":
		return a.Name.Local, true
	case a.Name.Space == "" && a.Name.Local == "xmlns":
		return "", true
	}
	return "", false
}

// WriteAttrs emits every declaration once, then mc:Ignorable, then the other
// preserved attributes, on the element w opened last.
func (r *Registry) WriteAttrs(w xmlstream.Writer) error {
	for _, b := range r.bindings {
		name := xmlstream.Prefixed("xmlns", b.Prefix)
		if b.Prefix == "" {
			name = xmlstream.Local("xmlns")
		}
		if err := w.Attr(name, b.URI); err != nil {
			return err
		}
	}
	if r.hasIgnorable {
		if err := w.Attr(xmlstream.Prefixed(r.ignorablePrefix, IgnorableLocal), r.ignorable); err != nil {
			return err
		}
	}
	for _, a := range r.attrs {
		if err := w.Attr(xmlstream.Name{Prefix: a.Name.Space, Local: a.Name.Local}, a.Value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) declare(prefix, uri string) {
	if _, ok := r.Lookup(prefix); ok {
		return
	}
	r.bindings = append(r.bindings, Binding{Prefix: prefix, URI: uri})
}
