package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec"
)

// createTestFile writes a workbook with two sheets and a print area.
func createTestFile(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Value"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "alpha"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 10))
	_, err := f.NewSheet("Hidden")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetVisible("Hidden", false))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{
		Name:     "_xlnm.Print_Area",
		RefersTo: "Sheet1!$A$1:$B$2",
		Scope:    "Sheet1",
	}))

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSheetsCommand(t *testing.T) {
	out, _, err := execute(t, "sheets", createTestFile(t))
	require.NoError(t, err)
	assert.Equal(t, "Sheet1\nHidden\thidden\n", out)
}

func TestBoundsCommand(t *testing.T) {
	input := createTestFile(t)

	out, _, err := execute(t, "bounds", input)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1\tA1:B2\nHidden\t\n", out)

	out, _, err = execute(t, "bounds", input, "-s", "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, "A1:B2\n", out)

	_, _, err = execute(t, "bounds", input, "--sheet", "Missing")
	assert.ErrorIs(t, err, xlcodec.ErrUnknownSheet)
}

func TestInspectCommand(t *testing.T) {
	input := createTestFile(t)
	out, _, err := execute(t, "inspect", input)
	require.NoError(t, err)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "input.xlsx", view["book_name"])
	assert.Len(t, view["sheets"], 2)
}

func TestInspectWritesFiles(t *testing.T) {
	input := createTestFile(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "book.json")
	sheetsDir := filepath.Join(dir, "sheets")
	areasDir := filepath.Join(dir, "areas")

	out, _, err := execute(t, "inspect", input, "-o", outPath, "--pretty",
		"--sheets-dir", sheetsDir, "--print-areas-dir", areasDir)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"sheets\"")

	assert.FileExists(t, filepath.Join(sheetsDir, "Sheet1.json"))
	assert.FileExists(t, filepath.Join(sheetsDir, "Hidden.json"))

	area, err := os.ReadFile(filepath.Join(areasDir, "Sheet1_area1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(area), `"alpha"`)
}

func TestRepackCommand(t *testing.T) {
	input := createTestFile(t)
	output := filepath.Join(t.TempDir(), "out.xlsx")

	_, _, err := execute(t, "repack", input, output, "--preset", "debug", "--tree")
	require.NoError(t, err)

	zr, err := zip.OpenReader(output)
	require.NoError(t, err)
	for _, f := range zr.File {
		assert.Equal(t, zip.Store, f.Method, f.Name)
	}
	require.NoError(t, zr.Close())

	before, err := xlcodec.ReadFile(input)
	require.NoError(t, err)
	after, err := xlcodec.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, before.Workbook.Equal(after.Workbook))
}

func TestRepackConfigFile(t *testing.T) {
	input := createTestFile(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, xlcodec.ConfigFileName), []byte("preset: debug\n"), 0o644))
	output := filepath.Join(dir, "out.xlsx")

	_, _, err := execute(t, "repack", input, output, "--config", dir, "--store=false")
	require.NoError(t, err)

	zr, err := zip.OpenReader(output)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method, f.Name)
	}
}

func TestRepackRejectsBadSettings(t *testing.T) {
	input := createTestFile(t)
	output := filepath.Join(t.TempDir(), "out.xlsx")

	_, _, err := execute(t, "repack", input, output, "--preset", "fastest")
	assert.ErrorIs(t, err, xlcodec.ErrInvalidConfig)

	_, _, err = execute(t, "repack", input, output, "--store", "--level", "5")
	assert.ErrorIs(t, err, xlcodec.ErrInvalidConfig)

	_, _, err = execute(t, "repack", input, output, "--preset", "debug", "--config", "x.yaml")
	assert.Error(t, err)
	assert.NoFileExists(t, output)
}

func TestReadErrorsSurface(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("not a package"), 0o644))

	_, _, err := execute(t, "sheets", bad)
	assert.ErrorIs(t, err, xlcodec.ErrMalformed)
}
