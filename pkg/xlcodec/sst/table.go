// Package sst implements the shared strings table: a deduplicated pool of
// the workbook's text referenced from cells by index.
package sst

import (
	"strconv"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/namespace"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// Table maps unique strings to indices assigned in first-occurrence order.
type Table struct {
	items []string
	index map[string]int
	total int
}

// Empty returns a table with no strings.
func Empty() *Table {
	return &Table{index: make(map[string]int)}
}

// FromWorkbook scans every text cell sheet by sheet in row-major order.
// The total count includes repeats.
func FromWorkbook(wb *models.Workbook) *Table {
	t := Empty()
	for _, s := range wb.Sheets {
		for _, c := range s.Cells() {
			if c.Value.Kind == models.KindText {
				t.add(c.Value.Text)
				t.total++
			}
		}
	}
	return t
}

// FromStrings builds a table from xs; the total count is len(xs).
func FromStrings(xs []string) *Table {
	return FromStringsWithTotal(xs, len(xs))
}

// FromStringsWithTotal builds a table from xs with an explicit total count,
// as when re-serializing a parsed table. TotalCount returns total unless
// total is below the number of unique strings, in which case it returns
// the unique count: the total never drops below UniqueCount.
func FromStringsWithTotal(xs []string, total int) *Table {
	t := Empty()
	for _, s := range xs {
		t.add(s)
	}
	t.total = total
	if t.total < len(t.items) {
		t.total = len(t.items)
	}
	return t
}

func (t *Table) add(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.items)
	t.items = append(t.items, s)
	t.index[s] = i
	return i
}

// Index returns the index assigned to s.
func (t *Table) Index(s string) (int, bool) {
	i, ok := t.index[s]
	return i, ok
}

// At returns the string at index i.
func (t *Table) At(i int) (string, bool) {
	if i < 0 || i >= len(t.items) {
		return "", false
	}
	return t.items[i], true
}

// Strings returns the strings in index order.
func (t *Table) Strings() []string {
	return append([]string(nil), t.items...)
}

// TotalCount is the number of text cell occurrences, repeats included.
func (t *Table) TotalCount() int { return t.total }

// UniqueCount is the number of entries.
func (t *Table) UniqueCount() int { return len(t.items) }

// Write emits the sst document on w.
func (t *Table) Write(w xmlstream.Writer) error {
	if err := w.StartDocument(); err != nil {
		return err
	}
	if err := t.writeElement(w); err != nil {
		return err
	}
	return w.EndDocument()
}

// ToXML returns the table as an element tree.
func (t *Table) ToXML() (*xmlstream.Element, error) {
	b := xmlstream.NewTreeBuilder()
	if err := t.writeElement(b); err != nil {
		return nil, err
	}
	return b.Root(), nil
}

func (t *Table) writeElement(w xmlstream.Writer) error {
	if err := w.StartElement(xmlstream.Local("sst")); err != nil {
		return err
	}
	if err := w.Attr(xmlstream.Local("xmlns"), namespace.SpreadsheetML); err != nil {
		return err
	}
	if err := w.Attr(xmlstream.Local("count"), strconv.Itoa(t.total)); err != nil {
		return err
	}
	if err := w.Attr(xmlstream.Local("uniqueCount"), strconv.Itoa(len(t.items))); err != nil {
		return err
	}
	for _, s := range t.items {
		if err := w.StartElement(xmlstream.Local("si")); err != nil {
			return err
		}
		if err := WriteText(w, s); err != nil {
			return err
		}
		if err := w.EndElement(); err != nil {
			return err
		}
	}
	return w.EndElement()
}

// WriteText emits a <t> element holding s, marking it with
// xml:space="preserve" when its leading or trailing whitespace matters.
func WriteText(w xmlstream.Writer, s string) error {
	if err := w.StartElement(xmlstream.Local("t")); err != nil {
		return err
	}
	if xmlstream.NeedsPreserve(s) {
		if err := w.Attr(xmlstream.SpaceAttr, "preserve"); err != nil {
			return err
		}
	}
	if err := w.Text(EncodeText(s)); err != nil {
		return err
	}
	return w.EndElement()
}
