package models

import "sort"

// Sheet states as written in the workbook part.
const (
	StateVisible    = ""
	StateHidden     = "hidden"
	StateVeryHidden = "veryHidden"
)

// Sheet is a sparse grid of cells.
type Sheet struct {
	// Name is the sheet tab name.
	Name string `json:"name"`
	// State is the visibility state (empty for visible).
	State string `json:"state,omitempty"`

	cells map[Ref]Cell
}

// NewSheet returns an empty sheet.
func NewSheet(name string) *Sheet {
	return &Sheet{Name: name, cells: make(map[Ref]Cell)}
}

// Set stores v at ref keeping any existing style.
// Setting an empty value on an unstyled cell removes it.
func (s *Sheet) Set(ref Ref, v Value) {
	c := s.cells[ref]
	c.Ref = ref
	c.Value = v
	s.SetCell(c)
}

// SetCell stores c, replacing any cell at the same coordinate.
func (s *Sheet) SetCell(c Cell) {
	if s.cells == nil {
		s.cells = make(map[Ref]Cell)
	}
	if !c.Stored() {
		delete(s.cells, c.Ref)
		return
	}
	s.cells[c.Ref] = c
}

// Cell returns the cell at ref.
func (s *Sheet) Cell(ref Ref) (Cell, bool) {
	c, ok := s.cells[ref]
	return c, ok
}

// Value returns the value at ref, or the empty value.
func (s *Sheet) Value(ref Ref) Value {
	return s.cells[ref].Value
}

// Len returns the number of stored cells.
func (s *Sheet) Len() int {
	return len(s.cells)
}

// Cells returns the stored cells in row-major order.
func (s *Sheet) Cells() []Cell {
	out := make([]Cell, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.Less(out[j].Ref) })
	return out
}

// Equal reports whether s and o have the same name, state and cells.
func (s *Sheet) Equal(o *Sheet) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Name != o.Name || s.State != o.State || len(s.cells) != len(o.cells) {
		return false
	}
	for ref, c := range s.cells {
		oc, ok := o.cells[ref]
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}
