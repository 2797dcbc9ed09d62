package xlcodec

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/ukaji3/xlcodec-go/internal/logging"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/book"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/models"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/opc"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sheet"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sst"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xmlstream"
)

// maxSheetNameLength is the longest sheet name spreadsheet applications accept.
const maxSheetNameLength = 31

// invalidSheetNameChars may not appear in a sheet name.
const invalidSheetNameChars = `[]:*?/\`

// entryTime is the modification time of every entry, so output depends
// only on the document and the Config.
var entryTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Codec reads and writes packages. It holds no per-call state and is safe
// for concurrent use.
type Codec struct {
	logger Logger
}

// New returns a Codec logging to logger. A nil logger discards messages.
func New(logger Logger) *Codec {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Codec{logger: logger}
}

// Write writes doc as a package to w using a Codec without logging.
func Write(w io.Writer, doc *Document, cfg Config) error {
	return New(nil).Write(w, doc, cfg)
}

// WriteFile writes doc to the named file, replacing it. The file is not
// created when validation fails and is removed when writing fails.
func (c *Codec) WriteFile(name string, doc *Document, cfg Config) error {
	if err := c.check(doc, cfg); err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return xlerr.IO(err)
	}
	err = c.write(f, doc, cfg)
	if cerr := f.Close(); err == nil {
		err = xlerr.IO(cerr)
	}
	if err != nil {
		os.Remove(name)
	}
	return err
}

// Write validates doc against cfg and writes it as a package to w. Nothing
// is written when validation fails.
func (c *Codec) Write(w io.Writer, doc *Document, cfg Config) error {
	if err := c.check(doc, cfg); err != nil {
		return err
	}
	return c.write(w, doc, cfg)
}

func (c *Codec) check(doc *Document, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if doc == nil || doc.Workbook == nil {
		return xlerr.Domain("no workbook")
	}
	if err := validateWorkbook(doc.Workbook); err != nil {
		return err
	}
	dangling, err := book.ValidateReferences(doc.Workbook.DefinedNames, doc.Workbook.SheetNames())
	if err != nil {
		return err
	}
	for _, name := range dangling {
		c.logger.Info("defined name %q refers to a sheet that does not exist", name)
	}
	return nil
}

func (c *Codec) write(w io.Writer, doc *Document, cfg Config) error {
	pw := newPackageWriter(w, doc, cfg, c.logger)
	if err := pw.write(); err != nil {
		c.logger.Error("write failed: %v", err)
		return err
	}
	return nil
}

// validateWorkbook checks everything the package format cannot express.
func validateWorkbook(wb *models.Workbook) error {
	if len(wb.Sheets) == 0 {
		return xlerr.Domain("workbook has no sheets")
	}
	seen := make(map[string]bool, len(wb.Sheets))
	for _, s := range wb.Sheets {
		if s == nil {
			return xlerr.Domain("nil sheet")
		}
		if err := validateSheetName(s.Name); err != nil {
			return err
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			return xlerr.Domain("duplicate sheet name %q", s.Name)
		}
		seen[key] = true
		switch s.State {
		case models.StateVisible, models.StateHidden, models.StateVeryHidden:
		default:
			return xlerr.Domain("sheet %q has unknown state %q", s.Name, s.State)
		}
		for _, cell := range s.Cells() {
			if !cell.Ref.Valid() {
				return xlerr.Domain("sheet %q: cell %s outside the grid", s.Name, cell.Ref)
			}
			if !cell.Value.Representable() {
				return xlerr.Domain("sheet %q: cell %s holds %v", s.Name, cell.Ref, cell.Value.Number)
			}
			if cell.Style < 0 {
				return xlerr.Domain("sheet %q: cell %s has negative style %d", s.Name, cell.Ref, cell.Style)
			}
		}
	}
	for _, dn := range wb.DefinedNames {
		if dn.Name == "" {
			return xlerr.Domain("defined name without a name")
		}
	}
	return nil
}

func validateSheetName(name string) error {
	switch {
	case name == "":
		return xlerr.Domain("empty sheet name")
	case len([]rune(name)) > maxSheetNameLength:
		return xlerr.Domain("sheet name %q longer than %d characters", name, maxSheetNameLength)
	case strings.ContainsAny(name, invalidSheetNameChars):
		return xlerr.Domain("sheet name %q contains one of %s", name, invalidSheetNameChars)
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		return xlerr.Domain("sheet name %q starts or ends with an apostrophe", name)
	}
	return nil
}

// packageWriter holds the state of one Write call.
type packageWriter struct {
	zw     *zip.Writer
	doc    *Document
	cfg    Config
	format xmlstream.Format
	logger Logger
}

func newPackageWriter(w io.Writer, doc *Document, cfg Config, logger Logger) *packageWriter {
	zw := zip.NewWriter(w)
	if cfg.Compressed() {
		level := cfg.level()
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}
	return &packageWriter{
		zw:     zw,
		doc:    doc,
		cfg:    cfg,
		format: xmlstream.Format{Pretty: cfg.Pretty},
		logger: logger,
	}
}

func (pw *packageWriter) write() error {
	doc := pw.doc
	wb := doc.Workbook
	wbPart := doc.workbookPart

	var table *sst.Table
	if !pw.cfg.InlineStrings {
		table = sst.FromWorkbook(wb)
	}
	writeStrings := table != nil && table.UniqueCount() > 0
	writeStyles := !doc.hasStyles()

	// Workbook relationships: preserved ones keep their ids, new ones take
	// the lowest free id.
	bookRels := &opc.Relationships{Items: append([]opc.Relationship(nil), doc.bookRels...)}
	sheetParts := make([]string, len(wb.Sheets))
	relIDs := make([]string, len(wb.Sheets))
	for i := range wb.Sheets {
		sheetParts[i] = path.Join(path.Dir(wbPart), fmt.Sprintf("worksheets/sheet%d.xml", i+1))
		relIDs[i] = bookRels.Add(opc.RelWorksheet, opc.RelativeTarget(wbPart, sheetParts[i]))
	}
	stringsPart := path.Join(path.Dir(wbPart), "sharedStrings.xml")
	if writeStrings {
		bookRels.Add(opc.RelSharedStrings, opc.RelativeTarget(wbPart, stringsPart))
	}
	stylesPart := path.Join(path.Dir(wbPart), "styles.xml")
	if writeStyles {
		bookRels.Add(opc.RelStyles, opc.RelativeTarget(wbPart, stylesPart))
	}

	rootRels := &opc.Relationships{Items: append([]opc.Relationship(nil), doc.rootRels...)}
	rootRels.Items = append([]opc.Relationship{{
		ID:     freeRootID(rootRels),
		Type:   opc.RelOfficeDocument,
		Target: wbPart,
	}}, rootRels.Items...)

	ct := opc.NewContentTypes()
	for _, d := range doc.defaults {
		ct.AddDefault(d.Extension, d.ContentType)
	}
	ct.SetOverride(wbPart, doc.workbookType)
	for _, p := range sheetParts {
		ct.SetOverride(p, opc.TypeWorksheet)
	}
	if writeStrings {
		ct.SetOverride(stringsPart, opc.TypeSharedStrings)
	}
	if writeStyles {
		ct.SetOverride(stylesPart, opc.TypeStyles)
	}
	for _, p := range doc.parts {
		if p.ContentType == "" {
			continue
		}
		if got, ok := ct.Lookup(p.Name); !ok || got != p.ContentType {
			ct.SetOverride(p.Name, p.ContentType)
		}
	}

	wbXML := doc.book.Clone()
	wbXML.Update(wb.Sheets, relIDs, wb.DefinedNames)

	if err := pw.writeXML(opc.ContentTypesPart, false, ct.Write); err != nil {
		return err
	}
	if err := pw.writeXML(opc.RootRelsPart, false, rootRels.Write); err != nil {
		return err
	}
	if err := pw.writeXML(wbPart, false, wbXML.Write); err != nil {
		return err
	}
	if err := pw.writeXML(opc.RelsPathFor(wbPart), false, bookRels.Write); err != nil {
		return err
	}
	opts := sheet.WriteOptions{InlineStrings: pw.cfg.InlineStrings}
	for i, s := range wb.Sheets {
		ws := sheet.FromDomain(s)
		err := pw.writeXML(sheetParts[i], true, func(w xmlstream.Writer) error {
			return ws.Write(w, table, opts)
		})
		if err != nil {
			return err
		}
	}
	if writeStrings {
		if err := pw.writeXML(stringsPart, true, table.Write); err != nil {
			return err
		}
	}
	if writeStyles {
		xfCount := maxStyle(wb) + 1
		err := pw.writeXML(stylesPart, false, func(w xmlstream.Writer) error {
			return writeStylesheet(w, xfCount)
		})
		if err != nil {
			return err
		}
	}
	generated := map[string]bool{strings.ToLower(wbPart): true}
	for _, p := range sheetParts {
		generated[strings.ToLower(p)] = true
	}
	if writeStrings {
		generated[strings.ToLower(stringsPart)] = true
	}
	if writeStyles {
		generated[strings.ToLower(stylesPart)] = true
	}
	for _, p := range doc.parts {
		if generated[strings.ToLower(p.Name)] {
			pw.logger.Info("skipped preserved part %s: name taken by a generated part", p.Name)
			continue
		}
		if err := pw.writeRaw(p.Name, p.Data); err != nil {
			return err
		}
	}
	return xlerr.IO(pw.zw.Close())
}

// freeRootID picks an id for the office document relationship that the
// preserved package relationships do not use.
func freeRootID(rels *opc.Relationships) string {
	if _, taken := rels.ByID("rId1"); !taken {
		return "rId1"
	}
	return rels.NextID()
}

func (pw *packageWriter) create(name string) (io.Writer, error) {
	method := zip.Deflate
	if !pw.cfg.Compressed() {
		method = zip.Store
	}
	fw, err := pw.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: entryTime,
	})
	if err != nil {
		return nil, NewPartError(name, "write", xlerr.IO(err))
	}
	return fw, nil
}

// writeXML writes one XML part. Streamable parts follow Config.Strategy;
// the others are always built as a tree. The emitter is flushed before the
// next entry is created, also when fill fails.
func (pw *packageWriter) writeXML(name string, streamable bool, fill func(xmlstream.Writer) error) (err error) {
	fw, err := pw.create(name)
	if err != nil {
		return err
	}
	cw := &countingWriter{w: fw}
	defer func() {
		if err != nil {
			if cw.err != nil {
				err = xlerr.IO(cw.err)
			}
			err = NewPartError(name, "write", err)
			return
		}
		pw.logger.Verbose("wrote %s (%d bytes)", name, cw.n)
	}()

	if streamable && pw.cfg.Streaming() {
		e := xmlstream.NewEmitter(cw, pw.format)
		defer func() {
			if cerr := e.Close(); err == nil {
				err = cerr
			}
		}()
		return fill(e)
	}
	b := xmlstream.NewTreeBuilder()
	if err := fill(b); err != nil {
		return err
	}
	return b.Document().Serialize(cw, pw.format)
}

func (pw *packageWriter) writeRaw(name string, data []byte) error {
	fw, err := pw.create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, bytes.NewReader(data)); err != nil {
		return NewPartError(name, "write", xlerr.IO(err))
	}
	pw.logger.Verbose("copied %s (%d bytes)", name, len(data))
	return nil
}

// countingWriter remembers the first sink error so it can be reported as
// an I/O failure rather than a content problem.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}
