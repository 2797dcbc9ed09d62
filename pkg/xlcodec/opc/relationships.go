package opc

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// TargetModeExternal marks a target outside the package.
const TargetModeExternal = "External"

// Relationship is one entry of a relationship part.
type Relationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Target     string `json:"target"`
	TargetMode string `json:"targetMode,omitempty"`
}

// External reports whether the target lies outside the package.
func (r Relationship) External() bool {
	return r.TargetMode == TargetModeExternal
}

// Relationships is the content of a .rels part, in source order.
type Relationships struct {
	Items []Relationship
}

// ParseRelationships reads a relationship part.
func ParseRelationships(r io.Reader) (*Relationships, error) {
	d := xmlstream.NewDecoder(r)
	rels := &Relationships{}
	seen := make(map[string]bool)
	sawRoot := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xlerr.Malformed("relationships: %v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "Relationships":
			sawRoot = true
		case "Relationship":
			var rel Relationship
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "Id":
					rel.ID = a.Value
				case "Type":
					rel.Type = a.Value
				case "Target":
					rel.Target = a.Value
				case "TargetMode":
					rel.TargetMode = a.Value
				}
			}
			if rel.ID == "" || rel.Type == "" {
				return nil, xlerr.Malformed("relationships: entry without Id or Type")
			}
			if seen[rel.ID] {
				return nil, xlerr.Malformed("relationships: duplicate Id %q", rel.ID)
			}
			seen[rel.ID] = true
			rels.Items = append(rels.Items, rel)
		}
	}
	if !sawRoot {
		return nil, xlerr.Malformed("relationships: missing Relationships element")
	}
	return rels, nil
}

// ByID returns the relationship with the given id.
func (rs *Relationships) ByID(id string) (Relationship, bool) {
	for _, r := range rs.Items {
		if r.ID == id {
			return r, true
		}
	}
	return Relationship{}, false
}

// ByType returns every relationship of the given kind.
func (rs *Relationships) ByType(kind string) []Relationship {
	var out []Relationship
	for _, r := range rs.Items {
		if SameType(r.Type, kind) {
			out = append(out, r)
		}
	}
	return out
}

// First returns the first relationship of the given kind.
func (rs *Relationships) First(kind string) (Relationship, bool) {
	for _, r := range rs.Items {
		if SameType(r.Type, kind) {
			return r, true
		}
	}
	return Relationship{}, false
}

// NextID returns the lowest rIdN not in use.
func (rs *Relationships) NextID() string {
	used := make(map[string]bool, len(rs.Items))
	for _, r := range rs.Items {
		used[r.ID] = true
	}
	for n := 1; ; n++ {
		id := "rId" + strconv.Itoa(n)
		if !used[id] {
			return id
		}
	}
}

// Add appends an internal relationship with a fresh id and returns the id.
func (rs *Relationships) Add(kind, target string) string {
	id := rs.NextID()
	rs.Items = append(rs.Items, Relationship{ID: id, Type: kind, Target: target})
	return id
}

// Write emits the relationship part on w.
func (rs *Relationships) Write(w xmlstream.Writer) error {
	if err := w.StartDocument(); err != nil {
		return err
	}
	if err := w.StartElement(xmlstream.Local("Relationships")); err != nil {
		return err
	}
	if err := w.Attr(xmlstream.Local("xmlns"), NamespaceRelationships); err != nil {
		return err
	}
	for _, r := range rs.Items {
		attrs := []xmlstream.Attr{
			{Name: xmlstream.Local("Id"), Value: r.ID},
			{Name: xmlstream.Local("Type"), Value: r.Type},
			{Name: xmlstream.Local("Target"), Value: r.Target},
		}
		if r.TargetMode != "" {
			attrs = append(attrs, xmlstream.Attr{Name: xmlstream.Local("TargetMode"), Value: r.TargetMode})
		}
		if err := xmlstream.WriteLeaf(w, xmlstream.Local("Relationship"), "", attrs...); err != nil {
			return err
		}
	}
	if err := w.EndElement(); err != nil {
		return err
	}
	return w.EndDocument()
}

// String lists the relationships for log output.
func (rs *Relationships) String() string {
	parts := make([]string, 0, len(rs.Items))
	for _, r := range rs.Items {
		parts = append(parts, r.ID+"->"+r.Target)
	}
	return strings.Join(parts, ", ")
}
