package xlcodec

import (
	"strconv"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/namespace"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// maxStyle returns the highest style index any cell uses.
func maxStyle(wb *models.Workbook) int {
	highest := 0
	for _, s := range wb.Sheets {
		for _, c := range s.Cells() {
			if c.Style > highest {
				highest = c.Style
			}
		}
	}
	return highest
}

// writeStylesheet emits a minimal stylesheet: one font, the two required
// fills, one border, and xfCount identical cell formats so every style
// index in use resolves.
func writeStylesheet(w xmlstream.Writer, xfCount int) error {
	l := xmlstream.Local
	a := func(name, value string) xmlstream.Attr { return xmlstream.Attr{Name: l(name), Value: value} }
	steps := []func() error{
		w.StartDocument,
		func() error { return w.StartElement(l("styleSheet")) },
		func() error { return w.Attr(l("xmlns"), namespace.SpreadsheetML) },

		func() error { return w.StartElement(l("fonts")) },
		func() error { return w.Attr(l("count"), "1") },
		func() error { return w.StartElement(l("font")) },
		func() error { return xmlstream.WriteLeaf(w, l("sz"), "", a("val", "11")) },
		func() error { return xmlstream.WriteLeaf(w, l("name"), "", a("val", "Calibri")) },
		func() error { return xmlstream.WriteLeaf(w, l("family"), "", a("val", "2")) },
		w.EndElement,
		w.EndElement,

		func() error { return w.StartElement(l("fills")) },
		func() error { return w.Attr(l("count"), "2") },
		func() error { return fill(w, "none") },
		func() error { return fill(w, "gray125") },
		w.EndElement,

		func() error { return w.StartElement(l("borders")) },
		func() error { return w.Attr(l("count"), "1") },
		func() error { return w.StartElement(l("border")) },
		func() error { return xmlstream.WriteLeaf(w, l("left"), "") },
		func() error { return xmlstream.WriteLeaf(w, l("right"), "") },
		func() error { return xmlstream.WriteLeaf(w, l("top"), "") },
		func() error { return xmlstream.WriteLeaf(w, l("bottom"), "") },
		func() error { return xmlstream.WriteLeaf(w, l("diagonal"), "") },
		w.EndElement,
		w.EndElement,

		func() error { return w.StartElement(l("cellStyleXfs")) },
		func() error { return w.Attr(l("count"), "1") },
		func() error {
			return xmlstream.WriteLeaf(w, l("xf"), "", a("numFmtId", "0"), a("fontId", "0"), a("fillId", "0"), a("borderId", "0"))
		},
		w.EndElement,

		func() error { return w.StartElement(l("cellXfs")) },
		func() error { return w.Attr(l("count"), strconv.Itoa(xfCount)) },
		func() error {
			for i := 0; i < xfCount; i++ {
				if err := xmlstream.WriteLeaf(w, l("xf"), "", a("numFmtId", "0"), a("fontId", "0"), a("fillId", "0"), a("borderId", "0"), a("xfId", "0")); err != nil {
					return err
				}
			}
			return nil
		},
		w.EndElement,

		func() error { return w.StartElement(l("cellStyles")) },
		func() error { return w.Attr(l("count"), "1") },
		func() error {
			return xmlstream.WriteLeaf(w, l("cellStyle"), "", a("name", "Normal"), a("xfId", "0"), a("builtinId", "0"))
		},
		w.EndElement,

		w.EndElement,
		w.EndDocument,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func fill(w xmlstream.Writer, pattern string) error {
	if err := w.StartElement(xmlstream.Local("fill")); err != nil {
		return err
	}
	if err := xmlstream.WriteLeaf(w, xmlstream.Local("patternFill"), "", xmlstream.Attr{Name: xmlstream.Local("patternType"), Value: pattern}); err != nil {
		return err
	}
	return w.EndElement()
}
