package xmlstream

import (
	"bufio"
	"bytes"
	"io"
)

// Node is a child of an Element: *Element, Text or Raw.
type Node interface {
	node()
}

// Text is character data inside an element.
type Text string

// Raw is a verbatim fragment inside an element.
type Raw []byte

// Element is a materialized XML element.
type Element struct {
	Name     Name
	Attrs    []Attr
	Children []Node
}

func (*Element) node() {}
func (Text) node()     {}
func (Raw) node()      {}

// Attr returns the value of the attribute whose qualified name is qname.
func (e *Element) Attr(qname string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.String() == qname {
			return a.Value, true
		}
	}
	return "", false
}

// Elements returns the child elements.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// Find returns the first child element with the given local name.
func (e *Element) Find(local string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && el.Name.Local == local {
			return el
		}
	}
	return nil
}

// FindAll returns every child element with the given local name.
func (e *Element) FindAll(local string) []*Element {
	var out []*Element
	for _, el := range e.Elements() {
		if el.Name.Local == local {
			out = append(out, el)
		}
	}
	return out
}

// Text returns the concatenated direct character data.
func (e *Element) Text() string {
	var buf bytes.Buffer
	for _, c := range e.Children {
		if t, ok := c.(Text); ok {
			buf.WriteString(string(t))
		}
	}
	return buf.String()
}

// Emit replays the element as events on w.
func (e *Element) Emit(w Writer) error {
	if err := w.StartElement(e.Name); err != nil {
		return err
	}
	for _, a := range e.Attrs {
		if err := w.Attr(a.Name, a.Value); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		var err error
		switch c := c.(type) {
		case *Element:
			err = c.Emit(w)
		case Text:
			err = w.Text(string(c))
		case Raw:
			err = w.Raw(c)
		}
		if err != nil {
			return err
		}
	}
	return w.EndElement()
}

// Document is the result of a TreeBuilder run.
type Document struct {
	Declaration bool
	Root        *Element
}

// Serialize writes the document to w.
func (d *Document) Serialize(w io.Writer, f Format) error {
	bw := bufio.NewWriter(w)
	if d.Declaration {
		bw.WriteString(Declaration)
		bw.WriteByte('\n')
	}
	if d.Root != nil {
		d.Root.serialize(bw, 0, f.Pretty)
	}
	return bw.Flush()
}

// Bytes returns the serialized document.
func (d *Document) Bytes(f Format) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer do not fail.
	_ = d.Serialize(&buf, f)
	return buf.Bytes()
}

// serialize relies on bufio.Writer keeping the first error until Flush.
func (e *Element) serialize(w *bufio.Writer, depth int, pretty bool) {
	if pretty && depth > 0 {
		writeIndent(w, depth)
	}
	w.WriteByte('<')
	w.WriteString(e.Name.String())
	for _, a := range e.Attrs {
		w.WriteByte(' ')
		w.WriteString(a.Name.String())
		w.WriteString(`="`)
		w.Write(escape(a.Value))
		w.WriteByte('"')
	}
	if len(e.Children) == 0 {
		w.WriteString("/>")
		return
	}
	w.WriteByte('>')
	nested := false
	for _, c := range e.Children {
		switch c := c.(type) {
		case Text:
			w.Write(escape(string(c)))
		case Raw:
			if pretty {
				writeIndent(w, depth+1)
			}
			w.Write(c)
			nested = true
		case *Element:
			c.serialize(w, depth+1, pretty)
			nested = true
		}
	}
	if pretty && nested {
		writeIndent(w, depth)
	}
	w.WriteString("</")
	w.WriteString(e.Name.String())
	w.WriteByte('>')
}

// TreeBuilder is a Writer that materializes the events into a Document.
type TreeBuilder struct {
	doc   Document
	stack []*Element
}

var _ Writer = (*TreeBuilder)(nil)

// NewTreeBuilder returns an empty builder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{}
}

// Document returns the tree built so far.
func (b *TreeBuilder) Document() *Document {
	return &b.doc
}

// Root returns the root element, or nil if none was started.
func (b *TreeBuilder) Root() *Element {
	return b.doc.Root
}

// StartDocument marks the document as carrying the XML declaration.
func (b *TreeBuilder) StartDocument() error {
	b.doc.Declaration = true
	return nil
}

// StartElement appends a new element to the open one, or makes it the root.
func (b *TreeBuilder) StartElement(name Name) error {
	el := &Element{Name: name}
	if top := b.top(); top != nil {
		top.Children = append(top.Children, el)
	} else if b.doc.Root != nil {
		return ErrMultipleRoots
	} else {
		b.doc.Root = el
	}
	b.stack = append(b.stack, el)
	return nil
}

// Attr adds an attribute to the open element while it has no children.
func (b *TreeBuilder) Attr(name Name, value string) error {
	top := b.top()
	if top == nil {
		return ErrNoOpenElement
	}
	if len(top.Children) > 0 {
		return ErrAttrAfterContent
	}
	top.Attrs = append(top.Attrs, Attr{Name: name, Value: value})
	return nil
}

// Text appends character data, merging it with a preceding text node.
func (b *TreeBuilder) Text(s string) error {
	if s == "" {
		return nil
	}
	top := b.top()
	if top == nil {
		return ErrNoOpenElement
	}
	if n := len(top.Children); n > 0 {
		if prev, ok := top.Children[n-1].(Text); ok {
			top.Children[n-1] = prev + Text(s)
			return nil
		}
	}
	top.Children = append(top.Children, Text(s))
	return nil
}

// Raw appends a copy of p as an opaque node.
func (b *TreeBuilder) Raw(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	top := b.top()
	if top == nil {
		return ErrNoOpenElement
	}
	top.Children = append(top.Children, Raw(append([]byte(nil), p...)))
	return nil
}

// EndElement closes the open element.
func (b *TreeBuilder) EndElement() error {
	if len(b.stack) == 0 {
		return ErrNoOpenElement
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

// EndDocument checks every element is closed.
func (b *TreeBuilder) EndDocument() error {
	if len(b.stack) > 0 {
		return ErrUnclosedElements
	}
	return nil
}

// Flush is a no-op; the tree has no sink.
func (b *TreeBuilder) Flush() error { return nil }

func (b *TreeBuilder) top() *Element {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}
