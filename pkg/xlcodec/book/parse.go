package book

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/namespace"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// Children that follow <sheets> and <definedNames> in schema order, used to
// place those elements when the source part lacks them.
var (
	afterSheets = map[string]bool{
		"functionGroups": true, "externalReferences": true, "definedNames": true,
		"calcPr": true, "oleSize": true, "customWorkbookViews": true, "pivotCaches": true,
		"smartTagPr": true, "smartTagTypes": true, "webPublishing": true,
		"fileRecoveryPr": true, "webPublishObjects": true, "extLst": true,
	}
	afterDefinedNames = map[string]bool{
		"calcPr": true, "oleSize": true, "customWorkbookViews": true, "pivotCaches": true,
		"smartTagPr": true, "smartTagTypes": true, "webPublishing": true,
		"fileRecoveryPr": true, "webPublishObjects": true, "extLst": true,
	}
)

// parser walks the raw (prefix-preserving) token stream of the part.
type parser struct {
	data []byte
	d    *xml.Decoder
	ns   *namespace.Registry
	// main is the prefix bound to the spreadsheet namespace on the root.
	main string
}

// Parse reads a workbook part. data must be UTF-8 (see xmlstream.ToUTF8).
func Parse(data []byte) (*Workbook, error) {
	p := &parser{data: data, d: xmlstream.NewDecoder(bytes.NewReader(data))}

	root, err := p.root()
	if err != nil {
		return nil, err
	}
	wb := &Workbook{
		root: xmlstream.Name{Prefix: root.Name.Space, Local: root.Name.Local},
		ns:   p.ns,
	}
	sawSheets, sawNames := false, false
	for {
		start := p.d.InputOffset()
		tok, err := p.d.RawToken()
		if err == io.EOF {
			return nil, xlerr.Malformed("workbook: unexpected end of part")
		}
		if err != nil {
			return nil, xlerr.Malformed("workbook: %v", err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name != root.Name {
				return nil, xlerr.Malformed("workbook: unexpected </%s>", qname(t.Name))
			}
			if !sawSheets {
				return nil, xlerr.Malformed("workbook: missing sheets element")
			}
			if !sawNames {
				wb.insert(child{kind: childDefinedNames, name: p.name("definedNames")}, afterDefinedNames)
			}
			if err := p.expectEOF(); err != nil {
				return nil, err
			}
			if _, ok := wb.ns.PrefixFor(namespace.Relationships, namespace.RelationshipsStrict); !ok {
				wb.ns.Ensure("r", namespace.Relationships)
			}
			if err := wb.dedupe(); err != nil {
				return nil, err
			}
			return wb, nil
		case xml.StartElement:
			switch {
			case p.isMain(t.Name, "sheets") && !sawSheets:
				sawSheets = true
				if wb.Sheets, err = p.sheets(t); err != nil {
					return nil, err
				}
				wb.children = append(wb.children, child{kind: childSheets, name: p.name("sheets")})
			case p.isMain(t.Name, "definedNames") && !sawNames:
				sawNames = true
				if wb.DefinedNames, err = p.definedNames(t); err != nil {
					return nil, err
				}
				wb.children = append(wb.children, child{kind: childDefinedNames, name: p.name("definedNames")})
			default:
				if err := p.skip(t); err != nil {
					return nil, err
				}
				raw := p.data[start:p.d.InputOffset()]
				if err := p.ns.CheckFragment(raw); err != nil {
					return nil, err
				}
				if p.isMain(t.Name, "fileVersion") {
					wb.fileVersion = append([]xml.Attr(nil), t.Attr...)
				}
				wb.children = append(wb.children, child{
					kind: childOpaque,
					name: xmlstream.Name{Prefix: t.Name.Space, Local: t.Name.Local},
					raw:  append([]byte(nil), raw...),
				})
			}
		case xml.Comment:
			raw := p.data[start:p.d.InputOffset()]
			wb.children = append(wb.children, child{kind: childOpaque, raw: append([]byte(nil), raw...)})
		}
	}
}

// root reads up to the document element and validates its namespaces.
func (p *parser) root() (xml.StartElement, error) {
	for {
		tok, err := p.d.RawToken()
		if err == io.EOF {
			return xml.StartElement{}, xlerr.Malformed("workbook: empty part")
		}
		if err != nil {
			return xml.StartElement{}, xlerr.Malformed("workbook: %v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "workbook" {
			return se, xlerr.Malformed("workbook: unexpected root element <%s>", qname(se.Name))
		}
		p.ns = namespace.FromAttrs(se.Attr)
		if err := p.ns.Validate(se.Name.Space); err != nil {
			return se, err
		}
		uri, _ := p.ns.Lookup(se.Name.Space)
		if uri != namespace.SpreadsheetML && uri != namespace.SpreadsheetMLStrict {
			return se, xlerr.Malformed("workbook: root element in namespace %q", uri)
		}
		p.main = se.Name.Space
		return se, nil
	}
}

func (p *parser) isMain(n xml.Name, local string) bool {
	return n.Space == p.main && n.Local == local
}

func (p *parser) name(local string) xmlstream.Name {
	return xmlstream.Name{Prefix: p.main, Local: local}
}

// skip consumes tokens up to the end of start, checking that tags nest.
func (p *parser) skip(start xml.StartElement) error {
	stack := []xml.Name{start.Name}
	for len(stack) > 0 {
		tok, err := p.d.RawToken()
		if err != nil {
			return xlerr.Malformed("workbook: inside <%s>: %v", qname(start.Name), err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
		case xml.EndElement:
			if t.Name != stack[len(stack)-1] {
				return xlerr.Malformed("workbook: <%s> closed by </%s>", qname(stack[len(stack)-1]), qname(t.Name))
			}
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

func (p *parser) expectEOF() error {
	for {
		tok, err := p.d.RawToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return xlerr.Malformed("workbook: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return xlerr.Malformed("workbook: content after root element: <%s>", qname(t.Name))
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xlerr.Malformed("workbook: text after root element")
			}
		}
	}
}

// sheets reads the <sheets> element.
func (p *parser) sheets(start xml.StartElement) ([]Sheet, error) {
	outer := localBindings(start.Attr)
	var out []Sheet
	names := make(map[string]bool)
	for {
		tok, err := p.d.RawToken()
		if err != nil {
			return nil, xlerr.Malformed("workbook: inside sheets: %v", err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name != start.Name {
				return nil, xlerr.Malformed("workbook: sheets closed by </%s>", qname(t.Name))
			}
			return out, nil
		case xml.StartElement:
			if !p.isMain(t.Name, "sheet") {
				if err := p.skip(t); err != nil {
					return nil, err
				}
				continue
			}
			s, err := p.sheet(t, outer)
			if err != nil {
				return nil, err
			}
			key := strings.ToLower(s.Name)
			if names[key] {
				return nil, xlerr.Malformed("workbook: duplicate sheet name %q", s.Name)
			}
			names[key] = true
			out = append(out, s)
			if err := p.skip(t); err != nil {
				return nil, err
			}
		}
	}
}

func (p *parser) sheet(se xml.StartElement, outer map[string]string) (Sheet, error) {
	local := localBindings(se.Attr)
	var s Sheet
	for _, a := range se.Attr {
		if isDeclaration(a) {
			if _, shadowed := outer[a.Name.Local]; !shadowed && p.repeatsRoot(a) {
				continue
			}
			s.extra = append(s.extra, a)
			continue
		}
		if a.Name.Space == "" {
			switch a.Name.Local {
			case "name":
				s.Name = a.Value
				continue
			case "sheetId":
				n, err := strconv.Atoi(a.Value)
				if err != nil || n < 1 {
					return s, xlerr.Malformed("workbook: bad sheetId %q", a.Value)
				}
				s.SheetID = n
				continue
			case "state":
				s.State = a.Value
				continue
			}
		}
		if a.Name.Local == "id" && a.Name.Space != "" && p.isRelationships(a.Name.Space, local, outer) {
			s.RelID = a.Value
			continue
		}
		s.extra = append(s.extra, a)
	}
	if s.Name == "" {
		return s, xlerr.Malformed("workbook: sheet without a name")
	}
	if s.RelID == "" {
		return s, xlerr.Malformed("workbook: sheet %q has no relationship id", s.Name)
	}
	return s, nil
}

// repeatsRoot reports whether the declaration a binds a prefix to the URI
// the root already gives it.
func (p *parser) repeatsRoot(a xml.Attr) bool {
	prefix := a.Name.Local
	if a.Name.Space == "" {
		prefix = ""
	}
	uri, ok := p.ns.Lookup(prefix)
	return ok && uri == a.Value
}

// isRelationships resolves prefix through the sheet element, its parent and
// the root, in that order.
func (p *parser) isRelationships(prefix string, scopes ...map[string]string) bool {
	uri, ok := "", false
	for _, scope := range scopes {
		if uri, ok = scope[prefix]; ok {
			break
		}
	}
	if !ok {
		uri, ok = p.ns.Lookup(prefix)
	}
	return ok && (uri == namespace.Relationships || uri == namespace.RelationshipsStrict)
}

// definedNames reads the <definedNames> element.
func (p *parser) definedNames(start xml.StartElement) ([]DefinedName, error) {
	var out []DefinedName
	for {
		tok, err := p.d.RawToken()
		if err != nil {
			return nil, xlerr.Malformed("workbook: inside definedNames: %v", err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name != start.Name {
				return nil, xlerr.Malformed("workbook: definedNames closed by </%s>", qname(t.Name))
			}
			return out, nil
		case xml.StartElement:
			if !p.isMain(t.Name, "definedName") {
				if err := p.skip(t); err != nil {
					return nil, err
				}
				continue
			}
			dn, err := p.definedName(t)
			if err != nil {
				return nil, err
			}
			out = append(out, dn)
		}
	}
}

func (p *parser) definedName(se xml.StartElement) (DefinedName, error) {
	dn := DefinedName{attrs: append([]xml.Attr{}, se.Attr...)}
	for _, a := range se.Attr {
		if a.Name.Space != "" {
			continue
		}
		switch a.Name.Local {
		case "name":
			dn.Name = a.Value
		case "localSheetId":
			n, err := strconv.Atoi(a.Value)
			if err != nil || n < 0 {
				return dn, xlerr.Malformed("workbook: bad localSheetId %q", a.Value)
			}
			dn.LocalSheetID = &n
		case "hidden":
			dn.Hidden = a.Value == "1" || a.Value == "true"
		}
	}
	if dn.Name == "" {
		return dn, xlerr.Malformed("workbook: defined name without a name")
	}
	var text strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := p.d.RawToken()
		if err != nil {
			return dn, xlerr.Malformed("workbook: inside definedName %q: %v", dn.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				text.Write(t)
			}
		}
	}
	dn.RefersTo = text.String()
	return dn, nil
}

// dedupe drops the declarations inside opaque children that repeat a root
// binding. A prefix the children declare more than once, always with the
// same URI, is moved to the root first. The default namespace never moves.
func (wb *Workbook) dedupe() error {
	uris := make(map[string]string)
	counts := make(map[string]int)
	var order []string
	for _, c := range wb.children {
		if c.kind != childOpaque || c.name.Local == "" {
			continue
		}
		bindings, err := wb.ns.FragmentBindings(c.raw)
		if err != nil {
			return err
		}
		for _, b := range bindings {
			if b.Prefix == "" {
				continue
			}
			uri, seen := uris[b.Prefix]
			switch {
			case !seen:
				uris[b.Prefix] = b.URI
				order = append(order, b.Prefix)
			case uri != b.URI:
				counts[b.Prefix] = -1
				continue
			}
			if counts[b.Prefix] >= 0 {
				counts[b.Prefix]++
			}
		}
	}
	for _, prefix := range order {
		if counts[prefix] > 1 {
			wb.ns.Declare(prefix, uris[prefix])
		}
	}
	for i, c := range wb.children {
		if c.kind != childOpaque || c.name.Local == "" {
			continue
		}
		raw, err := wb.ns.StripRedundant(c.raw)
		if err != nil {
			return err
		}
		wb.children[i].raw = raw
	}
	return nil
}

// insert places c before the first existing child whose local name is in
// after, or at the end.
func (wb *Workbook) insert(c child, after map[string]bool) {
	for i, existing := range wb.children {
		if existing.kind == childOpaque && after[existing.name.Local] {
			wb.children = append(wb.children[:i], append([]child{c}, wb.children[i:]...)...)
			return
		}
	}
	wb.children = append(wb.children, c)
}

func localBindings(attrs []xml.Attr) map[string]string {
	var m map[string]string
	for _, a := range attrs {
		if a.Name.Space == "xmlns" {
			if m == nil {
				m = make(map[string]string)
			}
			m[a.Name.Local] = a.Value
		}
	}
	return m
}

func isDeclaration(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// ValidateReferences checks every sheet-scoped defined name against the
// sheet count and returns the names whose formula mentions a sheet that
// does not exist.
func ValidateReferences(names []models.DefinedName, sheetNames []string) (dangling []string, err error) {
	known := make(map[string]bool, len(sheetNames))
	for _, n := range sheetNames {
		known[strings.ToLower(n)] = true
	}
	for _, dn := range names {
		if dn.LocalSheetID != nil && *dn.LocalSheetID >= len(sheetNames) {
			return nil, xlerr.UnknownSheet("defined name %q is scoped to sheet %d of %d", dn.Name, *dn.LocalSheetID, len(sheetNames))
		}
		for _, ref := range models.ReferencedSheets(dn.RefersTo) {
			if !known[strings.ToLower(ref)] {
				dangling = append(dangling, dn.Name)
				break
			}
		}
	}
	return dangling, nil
}
