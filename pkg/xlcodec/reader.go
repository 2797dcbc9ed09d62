package xlcodec

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/book"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/opc"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sheet"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sst"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// Read reads a package using a Codec without logging.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	return New(nil).Read(r, size)
}

// ReadFile reads the named package using a Codec without logging.
func ReadFile(name string) (*Document, error) {
	return New(nil).ReadFile(name)
}

// ReadBytes reads a package held in memory using a Codec without logging.
func ReadBytes(data []byte) (*Document, error) {
	return New(nil).ReadBytes(data)
}

// ReadFile reads the named package.
func (c *Codec) ReadFile(name string) (*Document, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, xlerr.IO(err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, xlerr.IO(err)
	}
	return c.Read(f, info.Size())
}

// ReadBytes reads a package held in memory.
func (c *Codec) ReadBytes(data []byte) (*Document, error) {
	return c.Read(bytes.NewReader(data), int64(len(data)))
}

// Read reads a package. Either the whole document is returned or an error;
// there is no partial result.
func (c *Codec) Read(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		if isFormatError(err) {
			return nil, xlerr.Malformed("not a zip package: %v", err)
		}
		return nil, xlerr.IO(err)
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	pr := &packageReader{files: make(map[string]*zip.File, len(zr.File)), logger: c.logger}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		pr.order = append(pr.order, f.Name)
		pr.files[strings.ToLower(f.Name)] = f
	}
	doc, err := pr.read()
	if err != nil {
		c.logger.Error("read failed: %v", err)
		return nil, err
	}
	return doc, nil
}

// packageReader holds the state of one Read call.
type packageReader struct {
	files  map[string]*zip.File
	order  []string
	logger Logger
}

func (pr *packageReader) read() (*Document, error) {
	ctData, err := pr.required(opc.ContentTypesPart)
	if err != nil {
		return nil, err
	}
	ct, err := opc.ParseContentTypes(bytes.NewReader(ctData))
	if err != nil {
		return nil, NewPartError(opc.ContentTypesPart, "parse", err)
	}

	rootRels, err := pr.rels(opc.RootRelsPart, true)
	if err != nil {
		return nil, err
	}
	office, ok := rootRels.First(opc.RelOfficeDocument)
	if !ok {
		return nil, xlerr.Malformed("package has no office document relationship")
	}
	wbPart := opc.ResolveTarget("", office.Target)
	wbData, err := pr.required(wbPart)
	if err != nil {
		return nil, err
	}
	wbXML, err := book.Parse(wbData)
	if err != nil {
		return nil, NewPartError(wbPart, "parse", err)
	}
	bookRels, err := pr.rels(opc.RelsPathFor(wbPart), false)
	if err != nil {
		return nil, err
	}

	var table *sst.Table
	if rel, ok := bookRels.First(opc.RelSharedStrings); ok {
		part := opc.ResolveTarget(wbPart, rel.Target)
		data, err := pr.required(part)
		if err != nil {
			return nil, err
		}
		if table, err = sst.Parse(bytes.NewReader(data)); err != nil {
			return nil, NewPartError(part, "parse", err)
		}
		pr.logger.Verbose("read %s: %d strings", part, table.UniqueCount())
	}

	doc := &Document{
		Workbook:     models.NewWorkbook(),
		book:         wbXML,
		workbookPart: wbPart,
		workbookType: opc.TypeWorkbook,
	}
	if t, ok := ct.Lookup(wbPart); ok {
		doc.workbookType = t
	}

	consumed := map[string]bool{
		strings.ToLower(opc.ContentTypesPart):    true,
		strings.ToLower(opc.RootRelsPart):        true,
		strings.ToLower(wbPart):                  true,
		strings.ToLower(opc.RelsPathFor(wbPart)): true,
	}
	for _, s := range wbXML.Sheets {
		rel, ok := bookRels.ByID(s.RelID)
		if !ok {
			return nil, xlerr.UnknownSheet("sheet %q refers to relationship %q, which does not exist", s.Name, s.RelID)
		}
		part := opc.ResolveTarget(wbPart, rel.Target)
		if !opc.SameType(rel.Type, opc.RelWorksheet) {
			doc.warn(pr.logger, "sheet %q is not a worksheet (%s); read as empty", s.Name, rel.Type)
			doc.Workbook.Sheets = append(doc.Workbook.Sheets, sheetWithState(s))
			consumed[strings.ToLower(part)] = true
			consumed[strings.ToLower(opc.RelsPathFor(part))] = true
			continue
		}
		f, ok := pr.files[strings.ToLower(part)]
		if !ok {
			return nil, xlerr.UnknownSheet("sheet %q: part %s is missing", s.Name, part)
		}
		data, err := pr.load(f)
		if err != nil {
			return nil, err
		}
		ws, err := sheet.Parse(bytes.NewReader(data), table)
		if err != nil {
			return nil, NewPartError(part, "parse", err)
		}
		doc.Workbook.Sheets = append(doc.Workbook.Sheets, ws.ToDomain(s.Name, s.State))
		consumed[strings.ToLower(part)] = true
		if _, ok := pr.files[strings.ToLower(opc.RelsPathFor(part))]; ok {
			consumed[strings.ToLower(opc.RelsPathFor(part))] = true
			pr.logger.Info("dropped %s: worksheet relationships are not carried over", opc.RelsPathFor(part))
		}
	}

	doc.Workbook.DefinedNames = wbXML.Domain()
	dangling, err := book.ValidateReferences(doc.Workbook.DefinedNames, doc.Workbook.SheetNames())
	if err != nil {
		return nil, err
	}
	for _, name := range dangling {
		doc.warn(pr.logger, "defined name %q refers to a sheet that does not exist", name)
	}

	if err := pr.preserve(doc, ct, rootRels, bookRels, consumed); err != nil {
		return nil, err
	}
	return doc, nil
}

func sheetWithState(s book.Sheet) *models.Sheet {
	out := models.NewSheet(s.Name)
	out.State = s.State
	return out
}

// preserve keeps every relationship the codec does not regenerate and the
// parts reachable through them, with their own relationship parts.
func (pr *packageReader) preserve(doc *Document, ct *opc.ContentTypes, rootRels, bookRels *opc.Relationships, consumed map[string]bool) error {
	keep := make(map[string]bool)
	var queue []string

	follow := func(source string, rels []opc.Relationship) []opc.Relationship {
		var kept []opc.Relationship
		for _, r := range rels {
			if r.External() {
				kept = append(kept, r)
				continue
			}
			part := opc.ResolveTarget(source, r.Target)
			key := strings.ToLower(part)
			if _, ok := pr.files[key]; !ok {
				doc.warn(pr.logger, "relationship %s of %s points to missing part %s; dropped", r.ID, nameOrPackage(source), part)
				continue
			}
			kept = append(kept, r)
			if !keep[key] && !consumed[key] {
				keep[key] = true
				queue = append(queue, part)
			}
		}
		return kept
	}

	for _, r := range rootRels.Items {
		if opc.SameType(r.Type, opc.RelOfficeDocument) {
			continue
		}
		doc.rootRels = append(doc.rootRels, follow("", []opc.Relationship{r})...)
	}
	for _, r := range bookRels.Items {
		switch {
		case opc.SameType(r.Type, opc.RelWorksheet), opc.SameType(r.Type, opc.RelSharedStrings):
			continue
		case opc.SameType(r.Type, opc.RelCalcChain):
			pr.logger.Info("dropped calculation chain %s", r.Target)
			continue
		}
		if isSheetRel(doc.book, r.ID) {
			continue
		}
		doc.bookRels = append(doc.bookRels, follow(doc.workbookPart, []opc.Relationship{r})...)
	}
	for len(queue) > 0 {
		part := queue[0]
		queue = queue[1:]
		relsPart := opc.RelsPathFor(part)
		if _, ok := pr.files[strings.ToLower(relsPart)]; !ok {
			continue
		}
		rels, err := pr.rels(relsPart, false)
		if err != nil {
			return err
		}
		follow(part, rels.Items)
		keep[strings.ToLower(relsPart)] = true
	}

	for _, name := range pr.order {
		key := strings.ToLower(name)
		if !keep[key] {
			if !consumed[key] {
				pr.logger.Info("dropped unreferenced part %s", name)
			}
			continue
		}
		data, err := pr.load(pr.files[key])
		if err != nil {
			return err
		}
		contentType, _ := ct.Lookup(name)
		doc.parts = append(doc.parts, Part{Name: name, ContentType: contentType, Data: data})
	}
	// Defaults let preserved media keep their extension-based types.
	doc.defaults = append(doc.defaults, ct.Defaults...)
	return nil
}

// isSheetRel reports whether id is the relationship of a sheet entry, such
// as a chartsheet read as an empty sheet.
func isSheetRel(wb *book.Workbook, id string) bool {
	for _, s := range wb.Sheets {
		if s.RelID == id {
			return true
		}
	}
	return false
}

func nameOrPackage(source string) string {
	if source == "" {
		return "the package"
	}
	return source
}

// rels reads a relationship part. A missing optional part reads as empty.
func (pr *packageReader) rels(name string, required bool) (*opc.Relationships, error) {
	f, ok := pr.files[strings.ToLower(name)]
	if !ok {
		if required {
			return nil, xlerr.Malformed("package has no %s", name)
		}
		return &opc.Relationships{}, nil
	}
	data, err := pr.load(f)
	if err != nil {
		return nil, err
	}
	rels, err := opc.ParseRelationships(bytes.NewReader(data))
	if err != nil {
		return nil, NewPartError(name, "parse", err)
	}
	return rels, nil
}

// required loads a part that must exist.
func (pr *packageReader) required(name string) ([]byte, error) {
	f, ok := pr.files[strings.ToLower(name)]
	if !ok {
		return nil, xlerr.Malformed("package has no %s", name)
	}
	return pr.load(f)
}

// load decompresses an entry. XML parts come back as UTF-8.
func (pr *packageReader) load(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, NewPartError(f.Name, "read", classify(err))
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, NewPartError(f.Name, "read", classify(err))
	}
	pr.logger.Verbose("read %s (%d bytes)", f.Name, len(data))
	if !isXMLPart(f.Name) {
		return data, nil
	}
	utf8, err := xmlstream.ToUTF8(data)
	if err != nil {
		return nil, NewPartError(f.Name, "read", xlerr.Malformed("%v", err))
	}
	return utf8, nil
}

func isXMLPart(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".xml") || strings.HasSuffix(lower, ".rels")
}

// classify separates corrupt package data from failures of the source.
func classify(err error) error {
	if isFormatError(err) {
		return xlerr.Malformed("%v", err)
	}
	return xlerr.IO(err)
}

func isFormatError(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, zip.ErrAlgorithm) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &corrupt)
}

func (d *Document) warn(logger Logger, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.Warnings = append(d.Warnings, msg)
	logger.Info("%s", msg)
}
