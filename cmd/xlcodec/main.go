// Package main provides the CLI entry point for xlcodec.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ukaji3/xlcodec-go/internal/logging"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/output"
	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/sheet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options holds the flag values of one invocation.
type options struct {
	verbose bool

	outputPath    string
	pretty        bool
	sheetsDir     string
	printAreasDir string

	sheetName string

	preset        string
	configPath    string
	store         bool
	tree          bool
	inlineStrings bool
	level         int
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "xlcodec",
		Short: "Read, inspect and rewrite spreadsheet packages",
		Long: `xlcodec reads .xlsx packages into a workbook model and writes them back,
keeping workbook-level markup and the parts it does not interpret.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every part read and written")

	rootCmd.AddCommand(newInspectCmd(opts), newSheetsCmd(opts), newBoundsCmd(opts), newRepackCmd(opts))
	return rootCmd
}

func (o *options) codec() *xlcodec.Codec {
	return xlcodec.New(logging.NewConsoleLogger(o.verbose))
}

func newInspectCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <input.xlsx>",
		Short: "Print the workbook as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().StringVar(&opts.sheetsDir, "sheets-dir", "", "Directory for per-sheet output files")
	cmd.Flags().StringVar(&opts.printAreasDir, "print-areas-dir", "", "Directory for per-print-area output files")
	return cmd
}

func runInspect(stdout io.Writer, opts *options, inputPath string) error {
	doc, err := opts.codec().ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}

	jsonData, err := output.ToJSON(doc, inputPath, opts.pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if opts.outputPath != "" {
		if err := os.WriteFile(opts.outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else if opts.sheetsDir == "" && opts.printAreasDir == "" {
		fmt.Fprintln(stdout, string(jsonData))
	}

	if opts.sheetsDir != "" {
		if err := writeSheetFiles(doc, opts.sheetsDir, opts.pretty); err != nil {
			return fmt.Errorf("failed to write sheet files: %w", err)
		}
	}
	if opts.printAreasDir != "" {
		if err := writePrintAreaFiles(doc, filepath.Base(inputPath), opts.printAreasDir, opts.pretty); err != nil {
			return fmt.Errorf("failed to write print area files: %w", err)
		}
	}
	return nil
}

func writeSheetFiles(doc *xlcodec.Document, dir string, pretty bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, s := range doc.Workbook.Sheets {
		jsonData, err := output.SheetToJSON(s, pretty)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, s.Name+".json"), jsonData, 0644); err != nil {
			return err
		}
	}
	return nil
}

func writePrintAreaFiles(doc *xlcodec.Document, bookName, dir string, pretty bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	areas := doc.Workbook.PrintAreas()
	for _, s := range doc.Workbook.Sheets {
		for i, area := range areas[s.Name] {
			view := output.NewPrintAreaView(bookName, s, area)
			jsonData, err := output.PrintAreaViewToJSON(&view, pretty)
			if err != nil {
				return err
			}
			filename := filepath.Join(dir, fmt.Sprintf("%s_area%d.json", s.Name, i+1))
			if err := os.WriteFile(filename, jsonData, 0644); err != nil {
				return err
			}
		}
	}
	return nil
}

func newSheetsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <input.xlsx>",
		Short: "List sheet names in tab order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := opts.codec().ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read failed: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, s := range doc.Workbook.Sheets {
				if s.State != "" {
					fmt.Fprintf(out, "%s\t%s\n", s.Name, s.State)
					continue
				}
				fmt.Fprintln(out, s.Name)
			}
			for _, w := range doc.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}
}

func newBoundsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bounds <input.xlsx>",
		Short: "Print the used range of each sheet",
		Long: `bounds prints the range covering every stored cell, such as A1:D10.
With --sheet only that sheet's range is printed; an empty sheet prints an empty line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := opts.codec().ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read failed: %w", err)
			}
			out := cmd.OutOrStdout()
			if opts.sheetName != "" {
				s := doc.Workbook.Sheet(opts.sheetName)
				if s == nil {
					return fmt.Errorf("%w: no sheet named %q", xlcodec.ErrUnknownSheet, opts.sheetName)
				}
				fmt.Fprintln(out, sheet.FromDomain(s).Dimension())
				return nil
			}
			for _, s := range doc.Workbook.Sheets {
				fmt.Fprintf(out, "%s\t%s\n", s.Name, sheet.FromDomain(s).Dimension())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.sheetName, "sheet", "s", "", "Only print the range of this sheet")
	return cmd
}

func newRepackCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repack <input.xlsx> <output.xlsx>",
		Short: "Read a package and write it again",
		Long: `repack reads a package and writes it with the chosen output settings.
Settings start from --preset (or the --config file) and individual flags override them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := repackConfig(cmd, opts)
			if err != nil {
				return err
			}
			c := opts.codec()
			doc, err := c.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read failed: %w", err)
			}
			if err := c.WriteFile(args[1], doc, cfg); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Output preset: default, debug, smallest")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML configuration file or directory holding "+xlcodec.ConfigFileName)
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent XML parts")
	cmd.Flags().BoolVar(&opts.store, "store", false, "Store entries without compression")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "Build worksheets in memory instead of streaming them")
	cmd.Flags().BoolVar(&opts.inlineStrings, "inline-strings", false, "Store text in cells instead of a shared strings part")
	cmd.Flags().IntVar(&opts.level, "level", 0, "Deflate level, 1 to 9")
	return cmd
}

// repackConfig resolves the preset or config file, then applies the flags
// the user set explicitly.
func repackConfig(cmd *cobra.Command, opts *options) (xlcodec.Config, error) {
	if opts.preset != "" && opts.configPath != "" {
		return xlcodec.Config{}, fmt.Errorf("--preset and --config are mutually exclusive")
	}
	var (
		cfg xlcodec.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = xlcodec.LoadConfig(opts.configPath)
	} else {
		cfg, err = xlcodec.ConfigForPreset(xlcodec.Preset(opts.preset))
	}
	if err != nil {
		return xlcodec.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("pretty") {
		cfg.Pretty = opts.pretty
	}
	if flags.Changed("store") {
		cfg.Compression = xlcodec.CompressionDeflate
		if opts.store {
			cfg.Compression = xlcodec.CompressionStore
			cfg.Level = 0
		}
	}
	if flags.Changed("tree") {
		cfg.Strategy = xlcodec.StrategyStream
		if opts.tree {
			cfg.Strategy = xlcodec.StrategyTree
		}
	}
	if flags.Changed("inline-strings") {
		cfg.InlineStrings = opts.inlineStrings
	}
	if flags.Changed("level") {
		cfg.Level = opts.level
	}
	return cfg, cfg.Validate()
}
