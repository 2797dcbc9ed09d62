package xmlstream

import (
	"bufio"
	"io"
)

const emitterBufferSize = 32 * 1024

type frame struct {
	name   string
	nested bool
}

// Emitter writes events directly to an io.Writer. It holds only the names
// of the open elements and whether the last start tag is still open.
type Emitter struct {
	w        *bufio.Writer
	format   Format
	stack    []frame
	open     bool
	rootDone bool
}

var _ Writer = (*Emitter)(nil)

// NewEmitter returns an Emitter writing to w.
func NewEmitter(w io.Writer, format Format) *Emitter {
	return &Emitter{
		w:      bufio.NewWriterSize(w, emitterBufferSize),
		format: format,
	}
}

// StartDocument writes the XML declaration.
func (e *Emitter) StartDocument() error {
	if _, err := e.w.WriteString(Declaration); err != nil {
		return err
	}
	return e.w.WriteByte('\n')
}

// StartElement writes the opening of a start tag.
func (e *Emitter) StartElement(name Name) error {
	if len(e.stack) == 0 && e.rootDone {
		return ErrMultipleRoots
	}
	if err := e.closeStart(); err != nil {
		return err
	}
	if depth := len(e.stack); depth > 0 {
		e.stack[depth-1].nested = true
		if e.format.Pretty {
			if err := writeIndent(e.w, depth); err != nil {
				return err
			}
		}
	}
	qname := name.String()
	if err := e.w.WriteByte('<'); err != nil {
		return err
	}
	if _, err := e.w.WriteString(qname); err != nil {
		return err
	}
	e.stack = append(e.stack, frame{name: qname})
	e.open = true
	return nil
}

// Attr writes an attribute into the open start tag.
func (e *Emitter) Attr(name Name, value string) error {
	if !e.open {
		if len(e.stack) == 0 {
			return ErrNoOpenElement
		}
		return ErrAttrAfterContent
	}
	if err := e.w.WriteByte(' '); err != nil {
		return err
	}
	if _, err := e.w.WriteString(name.String()); err != nil {
		return err
	}
	if _, err := e.w.WriteString(`="`); err != nil {
		return err
	}
	if _, err := e.w.Write(escape(value)); err != nil {
		return err
	}
	return e.w.WriteByte('"')
}

// Text writes escaped character data.
func (e *Emitter) Text(s string) error {
	if s == "" {
		return nil
	}
	if len(e.stack) == 0 {
		return ErrNoOpenElement
	}
	if err := e.closeStart(); err != nil {
		return err
	}
	_, err := e.w.Write(escape(s))
	return err
}

// Raw writes b unchanged.
func (e *Emitter) Raw(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	depth := len(e.stack)
	if depth == 0 {
		return ErrNoOpenElement
	}
	if err := e.closeStart(); err != nil {
		return err
	}
	e.stack[depth-1].nested = true
	if e.format.Pretty {
		if err := writeIndent(e.w, depth); err != nil {
			return err
		}
	}
	_, err := e.w.Write(b)
	return err
}

// EndElement closes the current element, self-closing it when empty.
func (e *Emitter) EndElement() error {
	depth := len(e.stack)
	if depth == 0 {
		return ErrNoOpenElement
	}
	top := e.stack[depth-1]
	e.stack = e.stack[:depth-1]
	if depth == 1 {
		e.rootDone = true
	}
	if e.open {
		e.open = false
		_, err := e.w.WriteString("/>")
		return err
	}
	if e.format.Pretty && top.nested {
		if err := writeIndent(e.w, depth-1); err != nil {
			return err
		}
	}
	if _, err := e.w.WriteString("</"); err != nil {
		return err
	}
	if _, err := e.w.WriteString(top.name); err != nil {
		return err
	}
	return e.w.WriteByte('>')
}

// EndDocument verifies every element was closed and flushes.
func (e *Emitter) EndDocument() error {
	if len(e.stack) > 0 {
		return ErrUnclosedElements
	}
	return e.Flush()
}

// Flush writes buffered output to the sink.
func (e *Emitter) Flush() error {
	return e.w.Flush()
}

// Close flushes whatever was written so far. It is safe to call after
// EndDocument and on error paths.
func (e *Emitter) Close() error {
	return e.Flush()
}

func (e *Emitter) closeStart() error {
	if !e.open {
		return nil
	}
	e.open = false
	return e.w.WriteByte('>')
}
