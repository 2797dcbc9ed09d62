package opc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"", "xl/workbook.xml", "xl/workbook.xml"},
		{"xl/workbook.xml", "worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/workbook.xml", "/xl/worksheets/sheet2.xml", "xl/worksheets/sheet2.xml"},
		{"xl/worksheets/sheet1.xml", "../drawings/drawing1.xml", "xl/drawings/drawing1.xml"},
		{"xl/workbook.xml", "../../../escape.xml", "escape.xml"},
		{"xl/workbook.xml", "./styles.xml", "xl/styles.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveTarget(tt.source, tt.target), "%s -> %s", tt.source, tt.target)
	}
}

func TestRelativeTarget(t *testing.T) {
	assert.Equal(t, "xl/workbook.xml", RelativeTarget("", "xl/workbook.xml"))
	assert.Equal(t, "worksheets/sheet1.xml", RelativeTarget("xl/workbook.xml", "xl/worksheets/sheet1.xml"))
	assert.Equal(t, "/docProps/app.xml", RelativeTarget("xl/workbook.xml", "docProps/app.xml"))
}

func TestRelsPathFor(t *testing.T) {
	assert.Equal(t, "_rels/.rels", RelsPathFor(""))
	assert.Equal(t, "xl/_rels/workbook.xml.rels", RelsPathFor("xl/workbook.xml"))
	assert.Equal(t, "xl/worksheets/_rels/sheet1.xml.rels", RelsPathFor("xl/worksheets/sheet1.xml"))
}

func TestSameType(t *testing.T) {
	assert.True(t, SameType(RelWorksheet, RelWorksheet))
	assert.True(t, SameType("http://purl.oclc.org/ooxml/officeDocument/relationships/worksheet", RelWorksheet))
	assert.False(t, SameType(RelStyles, RelWorksheet))
	assert.False(t, SameType("http://purl.oclc.org/ooxml/officeDocument/relationships/styles", RelWorksheet))
}

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId9" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/" TargetMode="External"/>
</Relationships>`

func TestParseRelationships(t *testing.T) {
	rels, err := ParseRelationships(strings.NewReader(relsXML))
	require.NoError(t, err)
	require.Len(t, rels.Items, 3)

	r, ok := rels.ByID("rId1")
	require.True(t, ok)
	assert.Equal(t, "worksheets/sheet1.xml", r.Target)

	assert.Len(t, rels.ByType(RelWorksheet), 1)
	styles, ok := rels.First(RelStyles)
	require.True(t, ok)
	assert.Equal(t, "rId3", styles.ID)

	ext, _ := rels.ByID("rId9")
	assert.True(t, ext.External())

	assert.Equal(t, "rId2", rels.NextID())
	assert.Equal(t, "rId2", rels.Add(RelSharedStrings, "sharedStrings.xml"))
	assert.Equal(t, "rId4", rels.NextID())
}

func TestParseRelationshipsErrors(t *testing.T) {
	for name, src := range map[string]string{
		"no root":      `<Other/>`,
		"missing id":   `<Relationships><Relationship Type="x" Target="y"/></Relationships>`,
		"duplicate id": `<Relationships><Relationship Id="a" Type="x" Target="y"/><Relationship Id="a" Type="x" Target="z"/></Relationships>`,
		"broken":       `<Relationships><Relationship`,
	} {
		_, err := ParseRelationships(strings.NewReader(src))
		assert.ErrorIs(t, err, xlerr.ErrMalformed, name)
	}
}

func TestRelationshipsWriteRoundTrip(t *testing.T) {
	rels, err := ParseRelationships(strings.NewReader(relsXML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rels.Write(xmlstream.NewEmitter(&buf, xmlstream.Format{})))
	assert.True(t, strings.HasPrefix(buf.String(), xmlstream.Declaration+"\n<Relationships xmlns=\""+NamespaceRelationships+"\">"))
	assert.Contains(t, buf.String(), `TargetMode="External"/>`)

	again, err := ParseRelationships(&buf)
	require.NoError(t, err)
	assert.Equal(t, rels.Items, again.Items)
}

func TestContentTypes(t *testing.T) {
	ct := NewContentTypes()
	ct.SetOverride("xl/workbook.xml", TypeWorkbook)
	ct.SetOverride("/xl/worksheets/sheet1.xml", TypeWorksheet)
	ct.SetOverride("xl/workbook.xml", TypeWorkbook)
	ct.AddDefault("png", "image/png")
	ct.AddDefault("XML", "text/xml")

	assert.Len(t, ct.Overrides, 2)
	assert.Len(t, ct.Defaults, 3)

	got, ok := ct.Lookup("xl/worksheets/sheet1.xml")
	require.True(t, ok)
	assert.Equal(t, TypeWorksheet, got)

	got, ok = ct.Lookup("xl/media/image1.PNG")
	require.True(t, ok)
	assert.Equal(t, "image/png", got)

	got, ok = ct.Lookup("docProps/core.xml")
	require.True(t, ok)
	assert.Equal(t, TypeXML, got)

	_, ok = ct.Lookup("xl/vbaProject.bin")
	assert.False(t, ok)
}

func TestContentTypesWriteParse(t *testing.T) {
	ct := NewContentTypes()
	ct.SetOverride("xl/workbook.xml", TypeWorkbook)

	b := xmlstream.NewTreeBuilder()
	require.NoError(t, ct.Write(b))
	out := b.Document().Bytes(xmlstream.Format{})
	assert.Contains(t, string(out), `<Override PartName="/xl/workbook.xml" ContentType="`+TypeWorkbook+`"/>`)

	parsed, err := ParseContentTypes(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, ct, parsed)

	_, err = ParseContentTypes(strings.NewReader(`<NotTypes/>`))
	assert.ErrorIs(t, err, xlerr.ErrMalformed)
}
