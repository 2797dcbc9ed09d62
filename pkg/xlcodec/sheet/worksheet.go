// Package sheet converts between domain sheets and the worksheet part:
// a row-ordered representation, its XML emission and its parsing.
package sheet

import (
	"sort"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
)

// Row is one row of stored cells, ordered by column.
type Row struct {
	Index int
	Cells []models.Cell
}

// Worksheet is the row-ordered form of a sheet. Rows ascend by index and
// no coordinate appears twice. It is not modified after construction.
type Worksheet struct {
	rows  []Row
	count int
}

// New builds a worksheet from cells in any order. Unstored cells (empty and
// unstyled) are skipped; a coordinate given twice is an error.
func New(cells []models.Cell) (*Worksheet, error) {
	stored := make([]models.Cell, 0, len(cells))
	for _, c := range cells {
		if !c.Ref.Valid() {
			return nil, xlerr.Malformed("cell reference %s out of range", c.Ref)
		}
		if c.Stored() {
			stored = append(stored, c)
		}
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Ref.Less(stored[j].Ref) })
	for i := 1; i < len(stored); i++ {
		if stored[i].Ref == stored[i-1].Ref {
			return nil, xlerr.Malformed("duplicate cell %s", stored[i].Ref)
		}
	}
	return fromSorted(stored), nil
}

func fromSorted(cells []models.Cell) *Worksheet {
	ws := &Worksheet{count: len(cells)}
	for _, c := range cells {
		n := len(ws.rows)
		if n == 0 || ws.rows[n-1].Index != c.Ref.Row {
			ws.rows = append(ws.rows, Row{Index: c.Ref.Row})
			n++
		}
		ws.rows[n-1].Cells = append(ws.rows[n-1].Cells, c)
	}
	return ws
}

// FromDomain converts a domain sheet. Empty cells are not represented.
func FromDomain(s *models.Sheet) *Worksheet {
	return fromSorted(s.Cells())
}

// ToDomain rebuilds a domain sheet with the given name and state.
func (ws *Worksheet) ToDomain(name, state string) *models.Sheet {
	s := models.NewSheet(name)
	s.State = state
	for _, r := range ws.rows {
		for _, c := range r.Cells {
			s.SetCell(c)
		}
	}
	return s
}

// Rows returns the rows in ascending order. Callers must not modify them.
func (ws *Worksheet) Rows() []Row {
	return ws.rows
}

// Len returns the number of cells.
func (ws *Worksheet) Len() int {
	return ws.count
}

// Dimension returns the used range, e.g. "A1:D10", "C3" for a single
// cell, or "" for an empty worksheet.
func (ws *Worksheet) Dimension() string {
	minRow, maxRow, minCol, maxCol := ws.bounds()
	if minRow < 0 {
		return ""
	}
	start := models.Ref{Col: minCol, Row: minRow}
	end := models.Ref{Col: maxCol, Row: maxRow}
	if start == end {
		return start.String()
	}
	return start.String() + ":" + end.String()
}

// bounds finds the bounding box of the stored cells.
func (ws *Worksheet) bounds() (minRow, maxRow, minCol, maxCol int) {
	minRow, maxRow = -1, -1
	minCol, maxCol = -1, -1
	if len(ws.rows) == 0 {
		return
	}
	minRow = ws.rows[0].Index
	maxRow = ws.rows[len(ws.rows)-1].Index
	for _, r := range ws.rows {
		first, last := r.Cells[0].Ref.Col, r.Cells[len(r.Cells)-1].Ref.Col
		if minCol < 0 || first < minCol {
			minCol = first
		}
		if maxCol < 0 || last > maxCol {
			maxCol = last
		}
	}
	return
}
