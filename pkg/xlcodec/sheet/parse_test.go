package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sst"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

const wsOpen = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`

func parse(t *testing.T, body string, table *sst.Table) *models.Sheet {
	t.Helper()
	ws, err := Parse(strings.NewReader(wsOpen+body+`</worksheet>`), table)
	require.NoError(t, err)
	return ws.ToDomain("S", "")
}

func TestParseCellTypes(t *testing.T) {
	table := sst.FromStrings([]string{"zero", "one"})
	s := parse(t, `<sheetData><row r="1">`+
		`<c r="A1" t="s"><v>1</v></c>`+
		`<c r="B1"><v>42.5</v></c>`+
		`<c r="C1" t="n"><v>-1</v></c>`+
		`<c r="D1" t="b"><v>1</v></c>`+
		`<c r="E1" t="inlineStr"><is><r><t>in</t></r><r><t>line</t></r></is></c>`+
		`<c r="F1" t="str"><f>A1&amp;""</f><v>formula text</v></c>`+
		`<c r="G1" t="e"><v>#DIV/0!</v></c>`+
		`<c r="H1" s="4"/>`+
		`<c r="I1"/>`+
		`</row></sheetData>`, table)

	assert.Equal(t, models.Text("one"), s.Value(models.MustRef("A1")))
	assert.Equal(t, models.Number(42.5), s.Value(models.MustRef("B1")))
	assert.Equal(t, models.Number(-1), s.Value(models.MustRef("C1")))
	assert.Equal(t, models.Bool(true), s.Value(models.MustRef("D1")))
	assert.Equal(t, models.Text("inline"), s.Value(models.MustRef("E1")))
	assert.Equal(t, models.Text("formula text"), s.Value(models.MustRef("F1")))
	assert.Equal(t, models.Text("#DIV/0!"), s.Value(models.MustRef("G1")))

	c, ok := s.Cell(models.MustRef("H1"))
	require.True(t, ok)
	assert.Equal(t, 4, c.Style)
	assert.True(t, c.Value.IsEmpty())

	_, ok = s.Cell(models.MustRef("I1"))
	assert.False(t, ok)
	assert.Equal(t, 8, s.Len())
}

func TestParseInfersMissingReferences(t *testing.T) {
	s := parse(t, `<sheetData>`+
		`<row><c><v>1</v></c><c><v>2</v></c></row>`+
		`<row r="5"><c r="C5"><v>3</v></c><c><v>4</v></c></row>`+
		`<row><c><v>5</v></c></row>`+
		`</sheetData>`, nil)

	assert.Equal(t, models.Number(1), s.Value(models.MustRef("A1")))
	assert.Equal(t, models.Number(2), s.Value(models.MustRef("B1")))
	assert.Equal(t, models.Number(3), s.Value(models.MustRef("C5")))
	assert.Equal(t, models.Number(4), s.Value(models.MustRef("D5")))
	assert.Equal(t, models.Number(5), s.Value(models.MustRef("A6")))
}

func TestParseNormalizesOrder(t *testing.T) {
	ws, err := Parse(strings.NewReader(wsOpen+`<sheetData>`+
		`<row r="3"><c r="B3"><v>4</v></c><c r="A3"><v>3</v></c></row>`+
		`<row r="1"><c r="A1"><v>1</v></c></row>`+
		`</sheetData></worksheet>`), nil)
	require.NoError(t, err)

	rows := ws.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, "A3", rows[1].Cells[0].Ref.String())
}

func TestParseIgnoresOtherElements(t *testing.T) {
	s := parse(t, `<sheetPr><tabColor rgb="FFFF0000"/></sheetPr>`+
		`<dimension ref="A1"/><sheetViews><sheetView workbookViewId="0"/></sheetViews>`+
		`<cols><col min="1" max="1" width="20"/></cols>`+
		`<sheetData><row r="1"><c r="A1"><v>7</v></c></row></sheetData>`+
		`<mergeCells count="1"><mergeCell ref="A1:B1"/></mergeCells>`, nil)
	assert.Equal(t, 1, s.Len())
}

func TestParseStrictNamespace(t *testing.T) {
	src := `<worksheet xmlns="http://purl.oclc.org/ooxml/spreadsheetml/main"><sheetData><row r="1"><c r="A1"><v>1</v></c></row></sheetData></worksheet>`
	ws, err := Parse(strings.NewReader(src), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ws.Len())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"duplicate cell", `<sheetData><row r="1"><c r="A1"><v>1</v></c><c r="A1"><v>2</v></c></row></sheetData>`},
		{"shared index out of range", `<sheetData><row r="1"><c r="A1" t="s"><v>9</v></c></row></sheetData>`},
		{"bad number", `<sheetData><row r="1"><c r="A1"><v>abc</v></c></row></sheetData>`},
		{"bad boolean", `<sheetData><row r="1"><c r="A1" t="b"><v>2</v></c></row></sheetData>`},
		{"bad reference", `<sheetData><row r="1"><c r="1A"><v>1</v></c></row></sheetData>`},
		{"bad row", `<sheetData><row r="x"/></sheetData>`},
		{"unknown type", `<sheetData><row r="1"><c r="A1" t="zz"><v>1</v></c></row></sheetData>`},
		{"unclosed", `<sheetData><row r="1">`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(wsOpen+tt.body+`</worksheet>`), sst.FromStrings([]string{"only"}))
			assert.ErrorIs(t, err, xlerr.ErrMalformed)
		})
	}
}

func TestParseMissingRoot(t *testing.T) {
	_, err := Parse(strings.NewReader(`<other/>`), nil)
	assert.ErrorIs(t, err, xlerr.ErrMalformed)
}

func TestWriteParseRoundTrip(t *testing.T) {
	src := sampleSheet()
	src.Set(models.MustRef("E5"), models.Text(" spaced\ttext "))
	src.Set(models.MustRef("F5"), models.Text("ctrl\x02"))
	wb := models.NewWorkbook()
	wb.Sheets = append(wb.Sheets, src)
	table := sst.FromWorkbook(wb)

	for _, opts := range []WriteOptions{{}, {InlineStrings: true}} {
		for _, pretty := range []bool{false, true} {
			var buf bytes.Buffer
			require.NoError(t, FromDomain(src).Write(xmlstream.NewEmitter(&buf, xmlstream.Format{Pretty: pretty}), table, opts))

			ws, err := Parse(&buf, table)
			require.NoError(t, err)
			got := ws.ToDomain(src.Name, src.State)
			assert.True(t, src.Equal(got), "inline=%v pretty=%v", opts.InlineStrings, pretty)
		}
	}
}
