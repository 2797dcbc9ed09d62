package sheet

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sst"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// rawCell collects one <c> element while it is being read.
type rawCell struct {
	ref      models.Ref
	typ      string
	style    int
	value    strings.Builder
	hasValue bool
	inline   strings.Builder
	isInline bool
}

// Parse reads a worksheet part. Shared string references are resolved
// against table, which may be nil when the package has none. Rows and cells
// without an r attribute take the position after their predecessor.
func Parse(r io.Reader, table *sst.Table) (*Worksheet, error) {
	d := xmlstream.NewDecoder(r)

	var (
		cells    []models.Cell
		sawRoot  bool
		inData   bool
		rowIndex int
		lastCol  int
		cur      *rawCell
		inV      bool
		inIsT    bool
		phonetic int
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xlerr.Malformed("worksheet: %v", err)
		}
		switch e := tok.(type) {
		case xml.StartElement:
			switch e.Name.Local {
			case "worksheet":
				sawRoot = true
			case "sheetData":
				inData = true
			case "row":
				if !inData {
					continue
				}
				next := rowIndex + 1
				if v := attr(e, "r"); v != "" {
					n, err := strconv.Atoi(v)
					if err != nil || n < 1 {
						return nil, xlerr.Malformed("worksheet: bad row index %q", v)
					}
					next = n
				}
				rowIndex = next
				lastCol = 0
			case "c":
				if !inData {
					continue
				}
				c, err := startCell(e, rowIndex, lastCol)
				if err != nil {
					return nil, err
				}
				lastCol = c.ref.Col
				cur = c
			case "v":
				inV = cur != nil
				if inV {
					cur.hasValue = true
				}
			case "is":
				if cur != nil {
					cur.isInline = true
				}
			case "rPh":
				phonetic++
			case "t":
				inIsT = cur != nil && cur.isInline && phonetic == 0
			}
		case xml.EndElement:
			switch e.Name.Local {
			case "sheetData":
				inData = false
			case "c":
				if cur == nil {
					continue
				}
				c, err := finishCell(cur, table)
				if err != nil {
					return nil, err
				}
				if c.Stored() {
					cells = append(cells, c)
				}
				cur = nil
			case "v":
				inV = false
			case "rPh":
				phonetic--
			case "t":
				inIsT = false
			}
		case xml.CharData:
			switch {
			case inV:
				cur.value.Write(e)
			case inIsT:
				cur.inline.Write(e)
			}
		}
	}
	if !sawRoot {
		return nil, xlerr.Malformed("worksheet: missing worksheet element")
	}
	return New(cells)
}

func startCell(e xml.StartElement, row, lastCol int) (*rawCell, error) {
	c := &rawCell{typ: attr(e, "t")}
	if row == 0 {
		row = 1
	}
	if ref := attr(e, "r"); ref != "" {
		parsed, err := models.ParseRef(ref)
		if err != nil {
			return nil, xlerr.Malformed("worksheet: bad cell reference %q", ref)
		}
		c.ref = parsed
	} else {
		c.ref = models.Ref{Col: lastCol + 1, Row: row}
	}
	if s := attr(e, "s"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, xlerr.Malformed("worksheet: bad style index %q on %s", s, c.ref)
		}
		c.style = n
	}
	return c, nil
}

func finishCell(c *rawCell, table *sst.Table) (models.Cell, error) {
	out := models.Cell{Ref: c.ref, Style: c.style}
	raw := c.value.String()
	switch c.typ {
	case "s":
		if !c.hasValue {
			break
		}
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return out, xlerr.Malformed("worksheet: bad shared string index %q at %s", raw, c.ref)
		}
		var s string
		ok := false
		if table != nil {
			s, ok = table.At(idx)
		}
		if !ok {
			return out, xlerr.Malformed("worksheet: shared string %d out of range at %s", idx, c.ref)
		}
		out.Value = models.Text(s)
	case "inlineStr":
		if c.isInline {
			out.Value = models.Text(sst.DecodeText(c.inline.String()))
		}
	case "str", "e", "d":
		if c.hasValue {
			out.Value = models.Text(sst.DecodeText(raw))
		}
	case "b":
		if !c.hasValue {
			break
		}
		switch strings.TrimSpace(raw) {
		case "1", "true":
			out.Value = models.Bool(true)
		case "0", "false":
			out.Value = models.Bool(false)
		default:
			return out, xlerr.Malformed("worksheet: bad boolean %q at %s", raw, c.ref)
		}
	case "", "n":
		if !c.hasValue || strings.TrimSpace(raw) == "" {
			break
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return out, xlerr.Malformed("worksheet: bad number %q at %s", raw, c.ref)
		}
		out.Value = models.Number(f)
	default:
		return out, xlerr.Malformed("worksheet: unknown cell type %q at %s", c.typ, c.ref)
	}
	return out, nil
}

func attr(e xml.StartElement, local string) string {
	for _, a := range e.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}
