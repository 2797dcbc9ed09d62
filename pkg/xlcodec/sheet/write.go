package sheet

import (
	"math"
	"strconv"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/namespace"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sst"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// WriteOptions controls how cell text is stored.
type WriteOptions struct {
	// InlineStrings writes text in the cell instead of referencing the
	// shared strings table.
	InlineStrings bool
}

var (
	nameC   = xmlstream.Local("c")
	nameR   = xmlstream.Local("r")
	nameS   = xmlstream.Local("s")
	nameT   = xmlstream.Local("t")
	nameV   = xmlstream.Local("v")
	nameIs  = xmlstream.Local("is")
	nameRow = xmlstream.Local("row")
)

// Write emits the worksheet part on w. Text cells reference strings unless
// opts.InlineStrings is set; strings must then hold every text value.
func (ws *Worksheet) Write(w xmlstream.Writer, strings *sst.Table, opts WriteOptions) error {
	if !opts.InlineStrings && strings == nil {
		strings = sst.Empty()
	}
	if err := w.StartDocument(); err != nil {
		return err
	}
	if err := w.StartElement(xmlstream.Local("worksheet")); err != nil {
		return err
	}
	if err := w.Attr(xmlstream.Local("xmlns"), namespace.SpreadsheetML); err != nil {
		return err
	}
	if dim := ws.Dimension(); dim != "" {
		if err := xmlstream.WriteLeaf(w, xmlstream.Local("dimension"), "", xmlstream.Attr{Name: xmlstream.Local("ref"), Value: dim}); err != nil {
			return err
		}
	}
	if err := w.StartElement(xmlstream.Local("sheetData")); err != nil {
		return err
	}
	for _, r := range ws.rows {
		if err := w.StartElement(nameRow); err != nil {
			return err
		}
		if err := w.Attr(nameR, strconv.Itoa(r.Index)); err != nil {
			return err
		}
		for _, c := range r.Cells {
			if err := writeCell(w, c, strings, opts); err != nil {
				return err
			}
		}
		if err := w.EndElement(); err != nil {
			return err
		}
	}
	if err := w.EndElement(); err != nil {
		return err
	}
	if err := w.EndElement(); err != nil {
		return err
	}
	return w.EndDocument()
}

func writeCell(w xmlstream.Writer, c models.Cell, strings *sst.Table, opts WriteOptions) error {
	if !c.Value.Representable() {
		return xlerr.Domain("cell %s holds %v", c.Ref, c.Value.Number)
	}
	if err := w.StartElement(nameC); err != nil {
		return err
	}
	if err := w.Attr(nameR, c.Ref.String()); err != nil {
		return err
	}
	if c.Style != 0 {
		if err := w.Attr(nameS, strconv.Itoa(c.Style)); err != nil {
			return err
		}
	}
	var err error
	switch c.Value.Kind {
	case models.KindText:
		if opts.InlineStrings {
			err = writeInline(w, c.Value.Text)
			break
		}
		idx, ok := strings.Index(c.Value.Text)
		if !ok {
			return xlerr.Domain("cell %s text missing from shared strings", c.Ref)
		}
		if err = w.Attr(nameT, "s"); err == nil {
			err = xmlstream.WriteLeaf(w, nameV, strconv.Itoa(idx))
		}
	case models.KindNumber:
		err = xmlstream.WriteLeaf(w, nameV, FormatNumber(c.Value.Number))
	case models.KindBool:
		v := "0"
		if c.Value.Bool {
			v = "1"
		}
		if err = w.Attr(nameT, "b"); err == nil {
			err = xmlstream.WriteLeaf(w, nameV, v)
		}
	}
	if err != nil {
		return err
	}
	return w.EndElement()
}

func writeInline(w xmlstream.Writer, s string) error {
	if err := w.Attr(nameT, "inlineStr"); err != nil {
		return err
	}
	if err := w.StartElement(nameIs); err != nil {
		return err
	}
	if err := sst.WriteText(w, s); err != nil {
		return err
	}
	return w.EndElement()
}

// FormatNumber renders f with the fewest digits that parse back to f,
// switching to exponent form only for very large or small magnitudes.
func FormatNumber(f float64) string {
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-5 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'E', -1, 64)
}
