package sst

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// EncodeText escapes s for storage in an ST_Xstring: characters XML 1.0
// cannot carry become _xHHHH_, and a literal _xHHHH_ sequence gets its
// underscore escaped as _x005F_ so DecodeText restores it.
func EncodeText(s string) string {
	if !needsEncoding(s) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '_' && isEscapeAt(s, i) {
			b.WriteString("_x005F_")
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteString("_xFFFD_")
			i++
			continue
		}
		if !isXMLChar(r) {
			fmt.Fprintf(&b, "_x%04X_", r)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// DecodeText reverses EncodeText.
func DecodeText(s string) string {
	if !strings.Contains(s, "_x") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '_' && isEscapeAt(s, i) {
			v, _ := strconv.ParseUint(s[i+2:i+6], 16, 16)
			b.WriteRune(rune(v))
			i += 7
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func needsEncoding(s string) bool {
	for i, r := range s {
		if r == utf8.RuneError || !isXMLChar(r) {
			return true
		}
		if r == '_' && isEscapeAt(s, i) {
			return true
		}
	}
	return false
}

// isEscapeAt reports whether s[i:] starts with _xHHHH_.
func isEscapeAt(s string, i int) bool {
	if i+7 > len(s) || s[i] != '_' || s[i+1] != 'x' || s[i+6] != '_' {
		return false
	}
	for _, c := range s[i+2 : i+6] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
