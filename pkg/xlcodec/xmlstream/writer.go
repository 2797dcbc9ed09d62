// Package xmlstream provides an event-based XML writer contract with two
// implementations: a TreeBuilder that materializes an element tree and an
// Emitter that writes events straight to an output sink.
//
// Both follow the same serialization rules:
//
//   - StartDocument writes the declaration followed by a newline.
//   - Elements without content are self-closed.
//   - Text and attribute values are escaped with encoding/xml.EscapeText.
//   - With Format.Pretty, each child element starts on its own line indented by
//     two spaces per depth; elements holding only text stay on one line.
package xmlstream

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
)

// Declaration is the XML declaration written by StartDocument.
const Declaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

const indentUnit = "  "

var (
	// ErrAttrAfterContent is returned when Attr follows text or a child element.
	ErrAttrAfterContent = errors.New("xmlstream: attribute after element content")
	// ErrNoOpenElement is returned by events that need an open element.
	ErrNoOpenElement = errors.New("xmlstream: no open element")
	// ErrUnclosedElements is returned by EndDocument while elements are open.
	ErrUnclosedElements = errors.New("xmlstream: document has unclosed elements")
	// ErrMultipleRoots is returned when a second root element is started.
	ErrMultipleRoots = errors.New("xmlstream: document already has a root element")
)

// Name is a possibly prefixed XML name. Prefixes are written as given;
// declaring them is the caller's job.
type Name struct {
	Prefix string
	Local  string
}

// Local returns an unprefixed name.
func Local(local string) Name { return Name{Local: local} }

// Prefixed returns a prefixed name.
func Prefixed(prefix, local string) Name { return Name{Prefix: prefix, Local: local} }

// String returns the qualified form, prefix:local.
func (n Name) String() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// SpaceAttr is the xml:space attribute name.
var SpaceAttr = Name{Prefix: "xml", Local: "space"}

// Attr is a name/value pair on an element.
type Attr struct {
	Name  Name
	Value string
}

// Format controls serialization layout.
type Format struct {
	Pretty bool
}

// Writer receives XML events in document order.
type Writer interface {
	// StartDocument begins the document with the XML declaration.
	StartDocument() error
	// StartElement opens a child of the current element.
	StartElement(name Name) error
	// Attr adds an attribute to the element opened last. It must come
	// before any text or child of that element.
	Attr(name Name, value string) error
	// Text adds escaped character data. Empty text is ignored.
	Text(s string) error
	// Raw adds a verbatim, already well-formed fragment.
	Raw(b []byte) error
	// EndElement closes the current element.
	EndElement() error
	// EndDocument checks every element is closed and flushes.
	EndDocument() error
	// Flush pushes buffered output to the sink, if any.
	Flush() error
}

// WriteLeaf writes a complete element holding only text, the common shape
// of leaf values.
func WriteLeaf(w Writer, name Name, text string, attrs ...Attr) error {
	if err := w.StartElement(name); err != nil {
		return err
	}
	for _, a := range attrs {
		if err := w.Attr(a.Name, a.Value); err != nil {
			return err
		}
	}
	if err := w.Text(text); err != nil {
		return err
	}
	return w.EndElement()
}

// NeedsPreserve reports whether s has leading or trailing XML whitespace,
// which consumers would otherwise be free to trim.
func NeedsPreserve(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// escape returns s escaped for use in text and attribute values.
func escape(s string) []byte {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.Bytes()
}

func writeIndent(w io.Writer, depth int) error {
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	for i := 0; i < depth; i++ {
		if _, err := io.WriteString(w, indentUnit); err != nil {
			return err
		}
	}
	return nil
}
