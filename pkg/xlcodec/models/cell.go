// Package models defines the domain model exchanged with the codec.
package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Ref is a cell coordinate.
type Ref struct {
	// Col is the column index (1-based).
	Col int `json:"col"`
	// Row is the row index (1-based).
	Row int `json:"row"`
}

// String returns the A1-style reference, e.g. "B3".
func (r Ref) String() string {
	name, err := excelize.CoordinatesToCellName(r.Col, r.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", r.Row, r.Col)
	}
	return name
}

// Less reports whether r comes before o in row-major order.
func (r Ref) Less(o Ref) bool {
	if r.Row != o.Row {
		return r.Row < o.Row
	}
	return r.Col < o.Col
}

// Valid reports whether both coordinates are inside the sheet limits.
func (r Ref) Valid() bool {
	return r.Col >= 1 && r.Col <= excelize.MaxColumns && r.Row >= 1 && r.Row <= excelize.TotalRows
}

// ParseRef parses an A1-style reference. Absolute markers ($) are ignored.
func ParseRef(s string) (Ref, error) {
	col, row, err := excelize.CellNameToCoordinates(strings.ReplaceAll(s, "$", ""))
	if err != nil {
		return Ref{}, err
	}
	return Ref{Col: col, Row: row}, nil
}

// MustRef is like ParseRef but panics on error. Intended for literals.
func MustRef(s string) Ref {
	r, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Kind is the type of a cell value.
type Kind int

const (
	// KindEmpty is an absent value.
	KindEmpty Kind = iota
	// KindText is a string value.
	KindText
	// KindNumber is a numeric value.
	KindNumber
	// KindBool is a boolean value.
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "empty"
	}
}

// Value is a typed cell value.
type Value struct {
	Kind   Kind    `json:"kind"`
	Text   string  `json:"text,omitempty"`
	Number float64 `json:"number,omitempty"`
	Bool   bool    `json:"bool,omitempty"`
}

// Text returns a text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Empty returns the empty value.
func Empty() Value { return Value{} }

// IsEmpty reports whether v carries no value.
func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// Representable reports whether v has an encoding in a worksheet.
// NaN and infinities have none.
func (v Value) Representable() bool {
	if v.Kind == KindNumber {
		return !math.IsNaN(v.Number) && !math.IsInf(v.Number, 0)
	}
	return true
}

// Equal reports whether v and o hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindText:
		return v.Text == o.Text
	case KindNumber:
		return v.Number == o.Number
	case KindBool:
		return v.Bool == o.Bool
	}
	return true
}

func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return fmt.Sprint(v.Number)
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	}
	return ""
}

// Cell is a single stored cell.
type Cell struct {
	Ref   Ref   `json:"ref"`
	Value Value `json:"value"`
	// Style is the cell format index; 0 is the default format.
	Style int `json:"style,omitempty"`
}

// Stored reports whether the cell carries anything worth keeping.
func (c Cell) Stored() bool {
	return !c.Value.IsEmpty() || c.Style != 0
}

// Equal reports whether c and o are the same cell.
func (c Cell) Equal(o Cell) bool {
	return c.Ref == o.Ref && c.Style == o.Style && c.Value.Equal(o.Value)
}
