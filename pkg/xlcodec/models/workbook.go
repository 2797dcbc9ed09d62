package models

// Workbook is an ordered collection of sheets plus workbook-level names.
type Workbook struct {
	// Sheets in tab order.
	Sheets []*Sheet `json:"sheets"`
	// DefinedNames lists named ranges and constants.
	DefinedNames []DefinedName `json:"defined_names,omitempty"`
}

// DefinedName is a workbook- or sheet-scoped name.
type DefinedName struct {
	Name string `json:"name"`
	// LocalSheetID is the 0-based sheet position for sheet-scoped names.
	LocalSheetID *int   `json:"local_sheet_id,omitempty"`
	Hidden       bool   `json:"hidden,omitempty"`
	RefersTo     string `json:"refers_to"`
}

// Equal reports whether d and o describe the same name.
func (d DefinedName) Equal(o DefinedName) bool {
	if d.Name != o.Name || d.Hidden != o.Hidden || d.RefersTo != o.RefersTo {
		return false
	}
	if d.LocalSheetID == nil || o.LocalSheetID == nil {
		return d.LocalSheetID == nil && o.LocalSheetID == nil
	}
	return *d.LocalSheetID == *o.LocalSheetID
}

// NewWorkbook returns a workbook with no sheets.
func NewWorkbook() *Workbook {
	return &Workbook{}
}

// AddSheet appends a new empty sheet and returns it.
func (wb *Workbook) AddSheet(name string) *Sheet {
	s := NewSheet(name)
	wb.Sheets = append(wb.Sheets, s)
	return s
}

// Sheet returns the sheet called name, or nil.
func (wb *Workbook) Sheet(name string) *Sheet {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SheetNames returns the sheet names in tab order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		names[i] = s.Name
	}
	return names
}

// Equal reports whether wb and o hold equal sheets in the same order and
// equal defined names.
func (wb *Workbook) Equal(o *Workbook) bool {
	if wb == nil || o == nil {
		return wb == o
	}
	if len(wb.Sheets) != len(o.Sheets) || len(wb.DefinedNames) != len(o.DefinedNames) {
		return false
	}
	for i := range wb.Sheets {
		if !wb.Sheets[i].Equal(o.Sheets[i]) {
			return false
		}
	}
	for i := range wb.DefinedNames {
		if !wb.DefinedNames[i].Equal(o.DefinedNames[i]) {
			return false
		}
	}
	return true
}
