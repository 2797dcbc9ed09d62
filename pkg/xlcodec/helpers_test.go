package xlcodec

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
)

const (
	ctHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>`
	ctWorkbook  = `<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>`
	ctWorksheet = `<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`
	ctStrings   = `<Override PartName="/xl/sharedStrings.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"/>`
	ctStyles    = `<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>`
	ctApp       = `<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`
	ctCalc      = `<Override PartName="/xl/calcChain.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.calcChain+xml"/>`
	ctTail      = `</Types>`

	relsHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`
	relsTail = `</Relationships>`
	relBase  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"

	mainNS = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

	fixtureWorkbook = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<workbook xmlns="` + mainNS + `" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006" mc:Ignorable="x15 xr" ` +
		`xmlns:x15="http://schemas.microsoft.com/office/spreadsheetml/2010/11/main" ` +
		`xmlns:xr="http://schemas.microsoft.com/office/spreadsheetml/2014/revision">` +
		`<fileVersion appName="xl" lastEdited="7"/>` +
		`<bookViews><workbookView xr:uid="{1}"/></bookViews>` +
		`<sheets><sheet name="Data" sheetId="4" r:id="rId1"/></sheets>` +
		`<definedNames><definedName name="Total">Data!$B$1</definedName></definedNames>` +
		`<calcPr calcId="191029"/>` +
		`<extLst><ext uri="{140A}"><x15:workbookPr chartTrackingRefBase="1"/></ext></extLst>` +
		`</workbook>`

	fixtureSheet = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<worksheet xmlns="` + mainNS + `"><dimension ref="A1:C2"/><sheetData>` +
		`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1"><v>3.5</v></c><c r="C1" t="b"><v>1</v></c></row>` +
		`<row r="2"><c r="A2" t="s" s="1"><v>1</v></c></row>` +
		`</sheetData></worksheet>`

	fixtureStrings = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<sst xmlns="` + mainNS + `" count="2" uniqueCount="2"><si><t>hello</t></si><si><t xml:space="preserve"> world </t></si></sst>`

	fixtureStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<styleSheet xmlns="` + mainNS + `"><cellXfs count="2"><xf numFmtId="0"/><xf numFmtId="14"/></cellXfs></styleSheet>`
)

// entry is one file of a hand-built package.
type entry struct {
	name string
	body string
}

// fixtureEntries is a small package shaped like desktop spreadsheet output.
func fixtureEntries() []entry {
	return []entry{
		{"[Content_Types].xml", ctHead + ctWorkbook + ctWorksheet + ctStrings + ctStyles + ctApp + ctCalc + ctTail},
		{"_rels/.rels", relsHead +
			`<Relationship Id="rId1" Type="` + relBase + `officeDocument" Target="xl/workbook.xml"/>` +
			`<Relationship Id="rId2" Type="` + relBase + `extended-properties" Target="docProps/app.xml"/>` +
			relsTail},
		{"docProps/app.xml", `<Properties><Application>Microsoft Excel</Application></Properties>`},
		{"xl/workbook.xml", fixtureWorkbook},
		{"xl/_rels/workbook.xml.rels", relsHead +
			`<Relationship Id="rId1" Type="` + relBase + `worksheet" Target="worksheets/sheet1.xml"/>` +
			`<Relationship Id="rId2" Type="` + relBase + `sharedStrings" Target="sharedStrings.xml"/>` +
			`<Relationship Id="rId3" Type="` + relBase + `styles" Target="styles.xml"/>` +
			`<Relationship Id="rId4" Type="` + relBase + `calcChain" Target="calcChain.xml"/>` +
			relsTail},
		{"xl/worksheets/sheet1.xml", fixtureSheet},
		{"xl/sharedStrings.xml", fixtureStrings},
		{"xl/styles.xml", fixtureStyles},
		{"xl/calcChain.xml", `<calcChain xmlns="` + mainNS + `"><c r="B1" i="1"/></calcChain>`},
		{"custom/stray.bin", "not referenced"},
	}
}

// zipEntries packs entries in order.
func zipEntries(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = io.WriteString(w, e.body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// replaceEntry returns entries with name's body replaced, or removed when
// body is nil.
func replaceEntry(entries []entry, name string, body *string) []entry {
	var out []entry
	for _, e := range entries {
		if e.name == name {
			if body == nil {
				continue
			}
			e.body = *body
		}
		out = append(out, e)
	}
	return out
}

func strPtr(s string) *string { return &s }

// unzip returns the entries of a package by name, plus their order.
func unzip(t *testing.T, data []byte) (map[string][]byte, []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	files := make(map[string][]byte)
	var order []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = b
		order = append(order, f.Name)
	}
	return files, order
}

// sampleWorkbook holds every value kind, a hidden sheet, styles and names.
func sampleWorkbook() *models.Workbook {
	wb := models.NewWorkbook()
	data := wb.AddSheet("Data")
	data.Set(models.MustRef("A1"), models.Text("name"))
	data.Set(models.MustRef("B1"), models.Text("score"))
	data.Set(models.MustRef("A2"), models.Text("alice & bob"))
	data.Set(models.MustRef("B2"), models.Number(97.25))
	data.Set(models.MustRef("C2"), models.Bool(true))
	data.Set(models.MustRef("A3"), models.Text("  padded  "))
	data.Set(models.MustRef("B3"), models.Number(-1e-7))
	data.SetCell(models.Cell{Ref: models.MustRef("D5"), Value: models.Text("name"), Style: 2})
	data.SetCell(models.Cell{Ref: models.MustRef("E9"), Style: 1})

	notes := wb.AddSheet("Notes & More")
	notes.State = models.StateHidden
	notes.Set(models.MustRef("A1"), models.Text("日本語"))

	zero := 0
	wb.DefinedNames = []models.DefinedName{
		{Name: models.PrintAreaName, LocalSheetID: &zero, RefersTo: "Data!$A$1:$C$3"},
		{Name: "Scores", RefersTo: "Data!$B$2:$B$3"},
	}
	return wb
}

// largeWorkbook has rows of repetitive content.
func largeWorkbook(rows int) *models.Workbook {
	wb := models.NewWorkbook()
	s := wb.AddSheet("Large")
	for r := 1; r <= rows; r++ {
		s.Set(models.Ref{Col: 1, Row: r}, models.Text(fmt.Sprintf("item-%d", r%50)))
		s.Set(models.Ref{Col: 2, Row: r}, models.Number(float64(r)))
		s.Set(models.Ref{Col: 3, Row: r}, models.Bool(r%2 == 0))
	}
	return wb
}

func writeBytes(t *testing.T, doc *Document, cfg Config) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc, cfg))
	return buf.Bytes()
}

// failingWriter accepts limit bytes and then fails.
type failingWriter struct {
	limit int
	err   error
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if len(p) <= f.limit {
		f.limit -= len(p)
		return len(p), nil
	}
	n := f.limit
	f.limit = 0
	return n, f.err
}
