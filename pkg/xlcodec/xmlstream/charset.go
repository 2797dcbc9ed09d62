package xmlstream

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	declEncoding = regexp.MustCompile(`^<\?xml[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
)

// ToUTF8 returns the part b as UTF-8 without a byte order mark. UTF-16 is
// detected from its BOM; other encodings come from the XML declaration.
// The declaration itself is left in place, so decode the result with
// NewDecoder.
func ToUTF8(b []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		return b[len(bomUTF8):], nil
	case bytes.HasPrefix(b, bomUTF16LE), bytes.HasPrefix(b, bomUTF16BE):
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		return readAllTransformed(b, dec)
	}
	m := declEncoding.FindSubmatch(b)
	if m == nil {
		return b, nil
	}
	label := strings.ToLower(string(m[1]))
	if label == "utf-8" || label == "utf8" {
		return b, nil
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, &UnsupportedCharsetError{Label: string(m[1])}
	}
	if name == "utf-8" {
		return b, nil
	}
	return readAllTransformed(b, enc.NewDecoder())
}

func readAllTransformed(b []byte, t transform.Transformer) ([]byte, error) {
	return io.ReadAll(transform.NewReader(bytes.NewReader(b), t))
}

// UnsupportedCharsetError reports an encoding label with no known decoder.
type UnsupportedCharsetError struct {
	Label string
}

func (e *UnsupportedCharsetError) Error() string {
	return "xmlstream: unsupported charset " + e.Label
}

// NewDecoder returns a decoder for UTF-8 input that has been through
// ToUTF8, accepting whatever encoding its declaration still names.
func NewDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return d
}
