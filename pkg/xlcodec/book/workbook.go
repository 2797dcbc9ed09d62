// Package book models the workbook part. Parsing keeps the root element's
// namespace declarations and every child the codec does not interpret, so
// regenerating the part changes only the sheet list and defined names.
package book

import (
	"encoding/xml"
	"strings"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/namespace"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// Sheet is one entry of the <sheets> element.
type Sheet struct {
	Name    string
	SheetID int
	State   string
	RelID   string

	// extra holds attributes the codec does not interpret, in source order.
	extra []xml.Attr
}

// DefinedName is one entry of the <definedNames> element.
type DefinedName struct {
	models.DefinedName

	// attrs are the source attributes, written verbatim while the entry is
	// unchanged.
	attrs []xml.Attr
}

type childKind int

const (
	childOpaque childKind = iota
	childSheets
	childDefinedNames
)

// child is one element (or comment) directly below the root.
type child struct {
	kind childKind
	name xmlstream.Name
	raw  []byte
}

// Workbook is the parsed or freshly created workbook part.
type Workbook struct {
	Sheets       []Sheet
	DefinedNames []DefinedName

	root        xmlstream.Name
	ns          *namespace.Registry
	children    []child
	fileVersion []xml.Attr
}

// New returns a workbook part declaring only the spreadsheet and
// relationship namespaces.
func New() *Workbook {
	return &Workbook{
		root: xmlstream.Local("workbook"),
		ns:   namespace.NewWorkbook(),
		children: []child{
			{kind: childSheets, name: xmlstream.Local("sheets")},
			{kind: childDefinedNames, name: xmlstream.Local("definedNames")},
		},
	}
}

// Namespaces returns a copy of the root element's declarations.
func (wb *Workbook) Namespaces() *namespace.Registry {
	return wb.ns.Clone()
}

// RootName returns the root element name with its source prefix.
func (wb *Workbook) RootName() xmlstream.Name {
	return wb.root
}

// FileVersion returns the attributes of the preserved <fileVersion>
// element, or nil when the part has none.
func (wb *Workbook) FileVersion() []xml.Attr {
	return append([]xml.Attr(nil), wb.fileVersion...)
}

// Preserved returns the qualified names of the children kept verbatim, in
// document order.
func (wb *Workbook) Preserved() []string {
	var out []string
	for _, c := range wb.children {
		if c.kind == childOpaque && c.name.Local != "" {
			out = append(out, c.name.String())
		}
	}
	return out
}

// SheetByName finds a sheet entry, comparing names case-insensitively as
// spreadsheet applications do.
func (wb *Workbook) SheetByName(name string) (Sheet, bool) {
	for _, s := range wb.Sheets {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Sheet{}, false
}

// Update replaces the sheet list and defined names with domain values.
// relIDs[i] is the relationship id of sheets[i]. A sheet named like a
// preserved one keeps its sheetId and extra attributes; other sheets get
// the next free id. A defined name equal to a preserved one keeps that
// entry's source attributes.
func (wb *Workbook) Update(sheets []*models.Sheet, relIDs []string, names []models.DefinedName) {
	used := make(map[int]bool)
	keep := make([]*Sheet, len(sheets))
	for i, s := range sheets {
		if old, ok := wb.SheetByName(s.Name); ok && old.SheetID > 0 && !used[old.SheetID] {
			keep[i] = &old
			used[old.SheetID] = true
		}
	}
	next := 1
	out := make([]Sheet, len(sheets))
	for i, s := range sheets {
		entry := Sheet{Name: s.Name, State: s.State, RelID: relIDs[i]}
		if k := keep[i]; k != nil {
			entry.SheetID = k.SheetID
			entry.extra = k.extra
		} else {
			for used[next] {
				next++
			}
			entry.SheetID = next
			used[next] = true
		}
		out[i] = entry
	}
	wb.Sheets = out

	taken := make([]bool, len(wb.DefinedNames))
	defs := make([]DefinedName, len(names))
	for i, n := range names {
		defs[i] = DefinedName{DefinedName: n}
		for j, old := range wb.DefinedNames {
			if !taken[j] && old.attrs != nil && old.DefinedName.Equal(n) {
				defs[i].attrs = old.attrs
				taken[j] = true
				break
			}
		}
	}
	wb.DefinedNames = defs
}

// Domain returns the defined names as domain values.
func (wb *Workbook) Domain() []models.DefinedName {
	out := make([]models.DefinedName, len(wb.DefinedNames))
	for i, d := range wb.DefinedNames {
		out[i] = d.DefinedName
	}
	return out
}

// Clone returns a copy that can be updated without affecting wb.
func (wb *Workbook) Clone() *Workbook {
	c := *wb
	c.Sheets = append([]Sheet(nil), wb.Sheets...)
	c.DefinedNames = append([]DefinedName(nil), wb.DefinedNames...)
	c.children = append([]child(nil), wb.children...)
	c.ns = wb.ns.Clone()
	return &c
}
