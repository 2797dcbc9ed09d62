package xlcodec

import (
	"encoding/xml"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/book"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/namespace"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/opc"
)

// Part is a package entry carried through unchanged.
type Part struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Document is a workbook together with the package metadata read alongside
// it. Metadata is carried into the next write: namespace declarations and
// uninterpreted content of the workbook part, and parts the codec does not
// model (styles, theme, document properties, ...).
type Document struct {
	// Workbook is the domain content. Callers may modify it freely.
	Workbook *models.Workbook `json:"workbook"`
	// Warnings lists problems found while reading that did not stop it.
	Warnings []string `json:"warnings,omitempty"`

	book         *book.Workbook
	workbookPart string
	workbookType string
	// rootRels and bookRels are the relationships kept from the source.
	rootRels []opc.Relationship
	bookRels []opc.Relationship
	parts    []Part
	defaults []opc.Default
}

// NewDocument wraps a domain workbook for writing. The workbook part gets
// fresh declarations: the spreadsheet namespace and r for relationships.
func NewDocument(wb *models.Workbook) *Document {
	return &Document{
		Workbook:     wb,
		book:         book.New(),
		workbookPart: "xl/workbook.xml",
		workbookType: opc.TypeWorkbook,
	}
}

// Namespaces returns the declarations of the workbook part's root element.
func (d *Document) Namespaces() *namespace.Registry {
	return d.book.Namespaces()
}

// FileVersion returns the preserved fileVersion attributes, if any.
func (d *Document) FileVersion() []xml.Attr {
	return d.book.FileVersion()
}

// PreservedElements lists the workbook-part children kept verbatim.
func (d *Document) PreservedElements() []string {
	return d.book.Preserved()
}

// PreservedParts returns the parts carried through unchanged, in package
// order.
func (d *Document) PreservedParts() []Part {
	return append([]Part(nil), d.parts...)
}

// hasStyles reports whether a preserved stylesheet is wired to the workbook.
func (d *Document) hasStyles() bool {
	for _, r := range d.bookRels {
		if opc.SameType(r.Type, opc.RelStyles) {
			return true
		}
	}
	return false
}
