package sst

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// Parse reads a sharedStrings part. Entries keep their source order, and
// duplicates stay so that cell indices remain valid. Rich text runs are
// concatenated and phonetic runs are dropped.
func Parse(r io.Reader) (*Table, error) {
	d := xmlstream.NewDecoder(r)
	t := Empty()
	total := -1
	sawRoot := false

	var (
		inSI     bool
		inT      bool
		phonetic int
		buf      strings.Builder
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xlerr.Malformed("sharedStrings: %v", err)
		}
		switch e := tok.(type) {
		case xml.StartElement:
			switch e.Name.Local {
			case "sst":
				sawRoot = true
				for _, a := range e.Attr {
					if a.Name.Local == "count" {
						n, err := strconv.Atoi(a.Value)
						if err != nil || n < 0 {
							return nil, xlerr.Malformed("sharedStrings: bad count %q", a.Value)
						}
						total = n
					}
				}
			case "si":
				inSI = true
				buf.Reset()
			case "rPh":
				phonetic++
			case "t":
				inT = inSI && phonetic == 0
			}
		case xml.EndElement:
			switch e.Name.Local {
			case "si":
				// Appended directly so duplicates keep their own index.
				s := DecodeText(buf.String())
				t.items = append(t.items, s)
				if _, ok := t.index[s]; !ok {
					t.index[s] = len(t.items) - 1
				}
				inSI = false
			case "rPh":
				phonetic--
			case "t":
				inT = false
			}
		case xml.CharData:
			if inT {
				buf.Write(e)
			}
		}
	}
	if !sawRoot {
		return nil, xlerr.Malformed("sharedStrings: missing sst element")
	}
	if total < len(t.items) {
		total = len(t.items)
	}
	t.total = total
	return t, nil
}
