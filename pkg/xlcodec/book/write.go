package book

import (
	"strconv"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/namespace"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// Write emits the workbook part on w: the root with its preserved
// declarations, then every child in source order with <sheets> and
// <definedNames> regenerated. An empty <definedNames> is omitted.
func (wb *Workbook) Write(w xmlstream.Writer) error {
	rel, ok := wb.ns.PrefixFor(namespace.Relationships, namespace.RelationshipsStrict)
	if !ok {
		ns := wb.ns.Clone()
		rel = ns.Ensure("r", namespace.Relationships)
		return wb.write(w, ns, rel)
	}
	return wb.write(w, wb.ns, rel)
}

func (wb *Workbook) write(w xmlstream.Writer, ns *namespace.Registry, rel string) error {
	if err := w.StartDocument(); err != nil {
		return err
	}
	if err := w.StartElement(wb.root); err != nil {
		return err
	}
	if err := ns.WriteAttrs(w); err != nil {
		return err
	}
	for _, c := range wb.children {
		var err error
		switch c.kind {
		case childOpaque:
			err = w.Raw(c.raw)
		case childSheets:
			err = wb.writeSheets(w, c.name, rel)
		case childDefinedNames:
			if len(wb.DefinedNames) > 0 {
				err = wb.writeDefinedNames(w, c.name)
			}
		}
		if err != nil {
			return err
		}
	}
	if err := w.EndElement(); err != nil {
		return err
	}
	return w.EndDocument()
}

func (wb *Workbook) writeSheets(w xmlstream.Writer, name xmlstream.Name, rel string) error {
	if err := w.StartElement(name); err != nil {
		return err
	}
	sheet := xmlstream.Name{Prefix: name.Prefix, Local: "sheet"}
	for _, s := range wb.Sheets {
		attrs := []xmlstream.Attr{
			{Name: xmlstream.Local("name"), Value: s.Name},
			{Name: xmlstream.Local("sheetId"), Value: strconv.Itoa(s.SheetID)},
		}
		if s.State != "" {
			attrs = append(attrs, xmlstream.Attr{Name: xmlstream.Local("state"), Value: s.State})
		}
		attrs = append(attrs, xmlstream.Attr{Name: xmlstream.Prefixed(rel, "id"), Value: s.RelID})
		for _, a := range s.extra {
			attrs = append(attrs, xmlstream.Attr{Name: xmlstream.Name{Prefix: a.Name.Space, Local: a.Name.Local}, Value: a.Value})
		}
		if err := xmlstream.WriteLeaf(w, sheet, "", attrs...); err != nil {
			return err
		}
	}
	return w.EndElement()
}

func (wb *Workbook) writeDefinedNames(w xmlstream.Writer, name xmlstream.Name) error {
	if err := w.StartElement(name); err != nil {
		return err
	}
	elem := xmlstream.Name{Prefix: name.Prefix, Local: "definedName"}
	for _, dn := range wb.DefinedNames {
		var attrs []xmlstream.Attr
		if dn.attrs != nil {
			for _, a := range dn.attrs {
				attrs = append(attrs, xmlstream.Attr{Name: xmlstream.Name{Prefix: a.Name.Space, Local: a.Name.Local}, Value: a.Value})
			}
		} else {
			attrs = append(attrs, xmlstream.Attr{Name: xmlstream.Local("name"), Value: dn.Name})
			if dn.LocalSheetID != nil {
				attrs = append(attrs, xmlstream.Attr{Name: xmlstream.Local("localSheetId"), Value: strconv.Itoa(*dn.LocalSheetID)})
			}
			if dn.Hidden {
				attrs = append(attrs, xmlstream.Attr{Name: xmlstream.Local("hidden"), Value: "1"})
			}
		}
		if err := xmlstream.WriteLeaf(w, elem, dn.RefersTo, attrs...); err != nil {
			return err
		}
	}
	return w.EndElement()
}
