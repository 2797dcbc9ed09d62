// Package output renders documents as JSON for inspection.
package output

import (
	"encoding/json"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sheet"
)

// BookView is the JSON shape of a whole document.
type BookView struct {
	// BookName is the file name without its directory.
	BookName string `json:"book_name,omitempty"`
	// Sheets in tab order.
	Sheets       []SheetView          `json:"sheets"`
	DefinedNames []models.DefinedName `json:"defined_names,omitempty"`
	// Namespaces maps prefixes of the workbook part to their URIs.
	Namespaces     map[string]string `json:"namespaces,omitempty"`
	Ignorable      string            `json:"ignorable,omitempty"`
	PreservedXML   []string          `json:"preserved_elements,omitempty"`
	PreservedParts []xlcodec.Part    `json:"preserved_parts,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// SheetView is the JSON shape of one sheet.
type SheetView struct {
	Name      string `json:"name"`
	State     string `json:"state,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	// Rows lists the rows holding at least one stored cell.
	Rows       []CellRow          `json:"rows,omitempty"`
	PrintAreas []models.PrintArea `json:"print_areas,omitempty"`
}

// CellRow is a row of cells keyed by column letter.
type CellRow struct {
	// R is the row index (1-based).
	R int `json:"r"`
	// C maps column letters to values: strings, numbers or booleans.
	C map[string]interface{} `json:"c"`
	// S maps column letters to non-default style indices.
	S map[string]int `json:"s,omitempty"`
}

// PrintAreaView is the part of a sheet inside one print area.
type PrintAreaView struct {
	BookName  string           `json:"book_name,omitempty"`
	SheetName string           `json:"sheet_name"`
	Area      models.PrintArea `json:"area"`
	Rows      []CellRow        `json:"rows,omitempty"`
}

// NewBookView builds the view of doc. path is only used for its base name.
func NewBookView(doc *xlcodec.Document, path string) BookView {
	view := BookView{
		DefinedNames:   doc.Workbook.DefinedNames,
		PreservedXML:   doc.PreservedElements(),
		PreservedParts: doc.PreservedParts(),
		Warnings:       doc.Warnings,
	}
	if path != "" {
		view.BookName = filepath.Base(path)
	}
	ns := doc.Namespaces()
	if bindings := ns.Bindings(); len(bindings) > 0 {
		view.Namespaces = make(map[string]string, len(bindings))
		for _, b := range bindings {
			view.Namespaces[b.Prefix] = b.URI
		}
	}
	view.Ignorable, _ = ns.Ignorable()

	areas := doc.Workbook.PrintAreas()
	for _, s := range doc.Workbook.Sheets {
		sv := NewSheetView(s)
		sv.PrintAreas = areas[s.Name]
		view.Sheets = append(view.Sheets, sv)
	}
	return view
}

// NewSheetView builds the view of one sheet.
func NewSheetView(s *models.Sheet) SheetView {
	return SheetView{
		Name:      s.Name,
		State:     s.State,
		Dimension: sheet.FromDomain(s).Dimension(),
		Rows:      rows(s.Cells(), nil),
	}
}

// NewPrintAreaView keeps the cells of s inside area.
func NewPrintAreaView(bookName string, s *models.Sheet, area models.PrintArea) PrintAreaView {
	return PrintAreaView{
		BookName:  bookName,
		SheetName: s.Name,
		Area:      area,
		Rows: rows(s.Cells(), func(r models.Ref) bool {
			return r.Row >= area.R1 && r.Row <= area.R2 && r.Col >= area.C1 && r.Col <= area.C2
		}),
	}
}

// rows groups row-major cells by row, keeping those keep accepts.
func rows(cells []models.Cell, keep func(models.Ref) bool) []CellRow {
	var out []CellRow
	for _, c := range cells {
		if keep != nil && !keep(c.Ref) {
			continue
		}
		if len(out) == 0 || out[len(out)-1].R != c.Ref.Row {
			out = append(out, CellRow{R: c.Ref.Row, C: make(map[string]interface{})})
		}
		row := &out[len(out)-1]
		col, err := excelize.ColumnNumberToName(c.Ref.Col)
		if err != nil {
			continue
		}
		if v := jsonValue(c.Value); v != nil {
			row.C[col] = v
		}
		if c.Style != 0 {
			if row.S == nil {
				row.S = make(map[string]int)
			}
			row.S[col] = c.Style
		}
	}
	return out
}

func jsonValue(v models.Value) interface{} {
	switch v.Kind {
	case models.KindText:
		return v.Text
	case models.KindNumber:
		return v.Number
	case models.KindBool:
		return v.Bool
	}
	return nil
}

// ToJSON serializes the view of doc.
func ToJSON(doc *xlcodec.Document, path string, pretty bool) ([]byte, error) {
	return marshal(NewBookView(doc, path), pretty)
}

// SheetToJSON serializes the view of one sheet.
func SheetToJSON(s *models.Sheet, pretty bool) ([]byte, error) {
	return marshal(NewSheetView(s), pretty)
}

// PrintAreaViewToJSON serializes a print area view.
func PrintAreaViewToJSON(view *PrintAreaView, pretty bool) ([]byte, error) {
	return marshal(view, pretty)
}

func marshal(v interface{}, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
