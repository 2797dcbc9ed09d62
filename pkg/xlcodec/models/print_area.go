package models

import (
	"strings"
)

// PrintAreaName is the reserved defined name holding print areas.
const PrintAreaName = "_xlnm.Print_Area"

// PrintArea represents cell coordinate bounds for a print area.
type PrintArea struct {
	// R1 is the start row (1-based).
	R1 int `json:"r1"`
	// C1 is the start column (1-based).
	C1 int `json:"c1"`
	// R2 is the end row (1-based, inclusive).
	R2 int `json:"r2"`
	// C2 is the end column (1-based, inclusive).
	C2 int `json:"c2"`
}

// PrintAreas returns the print areas per sheet name.
func (wb *Workbook) PrintAreas() map[string][]PrintArea {
	result := make(map[string][]PrintArea)
	for _, dn := range wb.DefinedNames {
		if !strings.EqualFold(dn.Name, PrintAreaName) {
			continue
		}
		sheetName, areas := ParseAreaReference(dn.RefersTo)
		if sheetName == "" && dn.LocalSheetID != nil && *dn.LocalSheetID < len(wb.Sheets) {
			sheetName = wb.Sheets[*dn.LocalSheetID].Name
		}
		if sheetName != "" && len(areas) > 0 {
			result[sheetName] = append(result[sheetName], areas...)
		}
	}
	return result
}

// ParseAreaReference parses a reference list such as
// 'Sheet 1'!$A$1:$D$10,'Sheet 1'!$F$1 and returns the first sheet name
// and every area it could read.
func ParseAreaReference(ref string) (string, []PrintArea) {
	var areas []PrintArea
	var sheetName string
	for _, part := range splitOutsideQuotes(ref, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rangeStr := part
		if idx := strings.LastIndex(part, "!"); idx >= 0 {
			if sheetName == "" {
				sheetName = unquoteSheetName(part[:idx])
			}
			rangeStr = part[idx+1:]
		}
		if area, ok := parseRangeToArea(rangeStr); ok {
			areas = append(areas, area)
		}
	}
	return sheetName, areas
}

// ReferencedSheets returns the sheet names a formula-style reference
// mentions, in order of appearance and without duplicates.
func ReferencedSheets(ref string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	inString := false
	for i := 0; i < len(ref); i++ {
		switch c := ref[i]; {
		case c == '"':
			inString = !inString
		case inString:
		case c == '\'':
			end := closingQuote(ref, i)
			if end < 0 {
				return names
			}
			if end+1 < len(ref) && ref[end+1] == '!' {
				add(unquoteSheetName(ref[i : end+1]))
			}
			i = end
		case c == '!':
			start := i
			for start > 0 && isSheetNameByte(ref[start-1]) {
				start--
			}
			add(ref[start:i])
		}
	}
	return names
}

// parseRangeToArea parses $A$1:$D$10 or a single cell like $B$2.
func parseRangeToArea(rangeStr string) (PrintArea, bool) {
	parts := strings.Split(rangeStr, ":")
	if len(parts) > 2 {
		return PrintArea{}, false
	}
	start, err := ParseRef(parts[0])
	if err != nil {
		return PrintArea{}, false
	}
	end := start
	if len(parts) == 2 {
		if end, err = ParseRef(parts[1]); err != nil {
			return PrintArea{}, false
		}
	}
	return PrintArea{R1: start.Row, C1: start.Col, R2: end.Row, C2: end.Col}, true
}

func unquoteSheetName(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// closingQuote returns the index of the quote closing the quoted sheet name
// opened at i, skipping doubled quotes.
func closingQuote(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != '\'' {
			continue
		}
		if j+1 < len(s) && s[j+1] == '\'' {
			j++
			continue
		}
		return j
	}
	return -1
}

func isSheetNameByte(c byte) bool {
	return c == '_' || c == '.' || c >= 0x80 ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			if end := closingQuote(s, i); end >= 0 {
				i = end
			}
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
