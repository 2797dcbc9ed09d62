package xmlstream

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script is a sequence of events replayed on any Writer.
type script func(w Writer) error

func run(steps ...func(w Writer) error) script {
	return func(w Writer) error {
		for _, s := range steps {
			if err := s(w); err != nil {
				return err
			}
		}
		return nil
	}
}

func start(local string) func(Writer) error {
	return func(w Writer) error { return w.StartElement(Local(local)) }
}

func attr(local, value string) func(Writer) error {
	return func(w Writer) error { return w.Attr(Local(local), value) }
}

func text(s string) func(Writer) error {
	return func(w Writer) error { return w.Text(s) }
}

func raw(s string) func(Writer) error {
	return func(w Writer) error { return w.Raw([]byte(s)) }
}

func end(w Writer) error      { return w.EndElement() }
func startDoc(w Writer) error { return w.StartDocument() }
func endDoc(w Writer) error   { return w.EndDocument() }

func emit(t *testing.T, s script, f Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	e := NewEmitter(&buf, f)
	require.NoError(t, s(e))
	require.NoError(t, e.Close())
	return buf.Bytes()
}

func build(t *testing.T, s script, f Format) []byte {
	t.Helper()
	b := NewTreeBuilder()
	require.NoError(t, s(b))
	return b.Document().Bytes(f)
}

var scripts = map[string]script{
	"empty root": run(startDoc, start("a"), end, endDoc),
	"attributes": run(startDoc, start("a"), attr("x", "1"), attr("y", `"<&>'`), end, endDoc),
	"text only":  run(startDoc, start("a"), text("hello"), end, endDoc),
	"split text": run(startDoc, start("a"), text("he"), text("llo"), end, endDoc),
	"empty text": run(startDoc, start("a"), text(""), end, endDoc),
	"nested": run(startDoc,
		start("sheetData"),
		start("row"), attr("r", "1"),
		start("c"), attr("r", "A1"), start("v"), text("1"), end, end,
		start("c"), attr("r", "B1"), end,
		end,
		end, endDoc),
	"mixed": run(startDoc, start("a"), text("x"), start("b"), end, text("y"), end, endDoc),
	"raw": run(startDoc, start("workbook"), raw(`<ext uri="{A}"><x:y/></ext>`),
		start("sheets"), end, raw("<!-- note -->"), end, endDoc),
	"escaping": run(startDoc, start("t"), text("a < b & c > d\r\n\t"), end, endDoc),
	"no declaration": run(start("a"), start("b"), text(" padded "), end, end),
	"leaves": run(startDoc, start("row"), leaf("v", "42"), leaf("c", "", Attr{Name: Local("r"), Value: "A1"}), end, endDoc),
}

func leaf(local, s string, attrs ...Attr) func(Writer) error {
	return func(w Writer) error { return WriteLeaf(w, Local(local), s, attrs...) }
}

func TestEmitterMatchesTree(t *testing.T) {
	for name, s := range scripts {
		for _, pretty := range []bool{false, true} {
			f := Format{Pretty: pretty}
			t.Run(name, func(t *testing.T) {
				assert.Equal(t, string(build(t, s, f)), string(emit(t, s, f)), "pretty=%v", pretty)
			})
		}
	}
}

func TestCompactLayout(t *testing.T) {
	got := emit(t, scripts["nested"], Format{})
	want := Declaration + "\n" + `<sheetData><row r="1"><c r="A1"><v>1</v></c><c r="B1"/></row></sheetData>`
	assert.Equal(t, want, string(got))
}

func TestWriteLeaf(t *testing.T) {
	got := emit(t, scripts["leaves"], Format{})
	assert.Equal(t, Declaration+"\n"+`<row><v>42</v><c r="A1"/></row>`, string(got))

	var buf bytes.Buffer
	e := NewEmitter(&buf, Format{})
	require.NoError(t, WriteLeaf(e, Local("v"), "1"))
	assert.ErrorIs(t, WriteLeaf(e, Local("v"), "2"), ErrMultipleRoots)
}

func TestPrettyLayout(t *testing.T) {
	got := emit(t, scripts["nested"], Format{Pretty: true})
	want := Declaration + "\n" +
		"<sheetData>\n" +
		"  <row r=\"1\">\n" +
		"    <c r=\"A1\">\n" +
		"      <v>1</v>\n" +
		"    </c>\n" +
		"    <c r=\"B1\"/>\n" +
		"  </row>\n" +
		"</sheetData>"
	assert.Equal(t, want, string(got))
}

func TestPrettyRaw(t *testing.T) {
	got := emit(t, scripts["raw"], Format{Pretty: true})
	assert.Contains(t, string(got), "\n  <ext uri=\"{A}\"><x:y/></ext>\n  <sheets/>\n  <!-- note -->\n</workbook>")
}

func TestEscaping(t *testing.T) {
	got := string(emit(t, scripts["attributes"], Format{}))
	assert.Contains(t, got, `y="&#34;&lt;&amp;&gt;&#39;"`)

	got = string(emit(t, scripts["escaping"], Format{}))
	assert.Contains(t, got, "<t>a &lt; b &amp; c &gt; d&#xD;&#xA;&#x9;</t>")
}

func TestEventErrors(t *testing.T) {
	tests := []struct {
		name string
		s    script
		want error
	}{
		{"attr after text", run(start("a"), text("x"), attr("k", "v")), ErrAttrAfterContent},
		{"attr after child", run(start("a"), start("b"), end, attr("k", "v")), ErrAttrAfterContent},
		{"attr without element", run(attr("k", "v")), ErrNoOpenElement},
		{"text without element", run(text("x")), ErrNoOpenElement},
		{"raw without element", run(raw("<x/>")), ErrNoOpenElement},
		{"end without element", run(end), ErrNoOpenElement},
		{"second root", run(start("a"), end, start("b")), ErrMultipleRoots},
		{"unclosed", run(startDoc, start("a"), endDoc), ErrUnclosedElements},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.ErrorIs(t, tt.s(NewEmitter(&buf, Format{})), tt.want, "emitter")
			assert.ErrorIs(t, tt.s(NewTreeBuilder()), tt.want, "tree")
		})
	}
}

func TestElementEmitReplaysTree(t *testing.T) {
	b := NewTreeBuilder()
	require.NoError(t, scripts["mixed"](b))

	var buf bytes.Buffer
	e := NewEmitter(&buf, Format{})
	require.NoError(t, e.StartDocument())
	require.NoError(t, b.Root().Emit(e))
	require.NoError(t, e.EndDocument())
	assert.Equal(t, string(b.Document().Bytes(Format{})), buf.String())
}

func TestElementAccessors(t *testing.T) {
	b := NewTreeBuilder()
	require.NoError(t, scripts["nested"](b))
	root := b.Root()

	row := root.Find("row")
	require.NotNil(t, row)
	r, ok := row.Attr("r")
	assert.True(t, ok)
	assert.Equal(t, "1", r)
	assert.Len(t, row.FindAll("c"), 2)
	assert.Equal(t, "1", row.Find("c").Find("v").Text())
	assert.Nil(t, root.Find("missing"))
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestEmitterReportsSinkError(t *testing.T) {
	sink := errors.New("disk full")
	e := NewEmitter(failingWriter{sink}, Format{})
	require.NoError(t, e.StartDocument())
	require.NoError(t, e.StartElement(Local("a")))
	require.NoError(t, e.EndElement())
	assert.ErrorIs(t, e.EndDocument(), sink)

	d := &Document{Declaration: true, Root: &Element{Name: Local("a")}}
	assert.ErrorIs(t, d.Serialize(failingWriter{sink}, Format{}), sink)
}

func TestNeedsPreserve(t *testing.T) {
	assert.False(t, NeedsPreserve(""))
	assert.False(t, NeedsPreserve("a b"))
	assert.True(t, NeedsPreserve(" a"))
	assert.True(t, NeedsPreserve("a\n"))
}

func TestNameString(t *testing.T) {
	assert.Equal(t, "workbook", Local("workbook").String())
	assert.Equal(t, "x:workbook", Prefixed("x", "workbook").String())
	assert.Equal(t, "xml:space", SpaceAttr.String())
}

func TestToUTF8(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		in := []byte(`<?xml version="1.0" encoding="UTF-8"?><a/>`)
		out, err := ToUTF8(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("utf8 bom", func(t *testing.T) {
		out, err := ToUTF8(append([]byte{0xEF, 0xBB, 0xBF}, "<a>é</a>"...))
		require.NoError(t, err)
		assert.Equal(t, "<a>é</a>", string(out))
	})

	t.Run("utf16le bom", func(t *testing.T) {
		in := []byte{0xFF, 0xFE}
		for _, r := range "<a>é</a>" {
			in = append(in, byte(r), byte(r>>8))
		}
		out, err := ToUTF8(in)
		require.NoError(t, err)
		assert.Equal(t, "<a>é</a>", string(out))
	})

	t.Run("declared latin1", func(t *testing.T) {
		in := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><a>`), 0xE9)
		in = append(in, "</a>"...)
		out, err := ToUTF8(in)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(string(out), "<a>é</a>"))

		var got struct {
			Text string `xml:",chardata"`
		}
		require.NoError(t, NewDecoder(bytes.NewReader(out)).Decode(&got))
		assert.Equal(t, "é", got.Text)
	})

	t.Run("unknown charset", func(t *testing.T) {
		_, err := ToUTF8([]byte(`<?xml version="1.0" encoding="x-klingon"?><a/>`))
		var target *UnsupportedCharsetError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "x-klingon", target.Label)
	})
}
