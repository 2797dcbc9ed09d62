// Package opc handles the Open Packaging Conventions layer of a
// spreadsheet package: content types, relationship parts and part names.
package opc

import (
	"path"
	"strings"
)

// Fixed part names.
const (
	ContentTypesPart = "[Content_Types].xml"
	RootRelsPart     = "_rels/.rels"
)

// Namespaces of the packaging parts.
const (
	NamespaceContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	NamespaceRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
)

const (
	relBase       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	relBaseStrict = "http://purl.oclc.org/ooxml/officeDocument/relationships/"
)

// Relationship types.
const (
	RelOfficeDocument     = relBase + "officeDocument"
	RelWorksheet          = relBase + "worksheet"
	RelSharedStrings      = relBase + "sharedStrings"
	RelStyles             = relBase + "styles"
	RelTheme              = relBase + "theme"
	RelCalcChain          = relBase + "calcChain"
	RelExtendedProperties = relBase + "extended-properties"
	RelCoreProperties     = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
)

// Content types.
const (
	TypeRelationships = "application/vnd.openxmlformats-package.relationships+xml"
	TypeXML           = "application/xml"
	TypeWorkbook      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	TypeWorksheet     = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	TypeSharedStrings = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	TypeStyles        = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
)

// SameType reports whether relationship type t is kind, accepting the
// strict-conformance spelling of officeDocument relationship types.
func SameType(t, kind string) bool {
	if t == kind {
		return true
	}
	if strings.HasPrefix(kind, relBase) && strings.HasPrefix(t, relBaseStrict) {
		return strings.TrimPrefix(t, relBaseStrict) == strings.TrimPrefix(kind, relBase)
	}
	return false
}

// ResolveTarget turns a relationship target into a zip entry name.
// source is the part owning the relationship ("" for package-level ones);
// relative targets resolve against its directory, and targets starting with
// "/" are package-absolute.
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	dir := path.Dir(source)
	if source == "" {
		dir = "."
	}
	resolved := path.Join(dir, target)
	// Targets climbing above the root stay at the root.
	for strings.HasPrefix(resolved, "../") {
		resolved = strings.TrimPrefix(resolved, "../")
	}
	return resolved
}

// RelativeTarget returns the target under which source refers to part.
// Parts below source's directory are written relative, others absolute.
func RelativeTarget(source, part string) string {
	dir := path.Dir(source)
	if source == "" || dir == "." {
		return part
	}
	if strings.HasPrefix(part, dir+"/") {
		return strings.TrimPrefix(part, dir+"/")
	}
	return "/" + part
}

// RelsPathFor returns the relationship part of part, e.g.
// xl/_rels/workbook.xml.rels for xl/workbook.xml. An empty part names the
// package itself.
func RelsPathFor(part string) string {
	if part == "" {
		return RootRelsPart
	}
	dir, name := path.Split(part)
	return dir + "_rels/" + name + ".rels"
}

// PartName returns the content-type part name of a zip entry, which has a
// leading slash.
func PartName(entry string) string {
	return "/" + strings.TrimPrefix(entry, "/")
}
