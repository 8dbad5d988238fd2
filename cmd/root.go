package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fileconvert/converter"
	"fileconvert/converter/failure"
	"fileconvert/converter/format"
	"fileconvert/converter/raster"
	"fileconvert/internal/config"
)

// app carries state shared by every subcommand once the config is loaded
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger

	// interactive reports whether the target picker may be shown
	interactive func() bool
	// newRasterizer builds the PDF backend named in the config
	newRasterizer func(raster.Backend) (raster.Rasterizer, error)
}

type convertOptions struct {
	output string
	to     string
	page   int
	dpi    float64
	all    bool
}

func newApp() *app {
	return &app{
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
		},
		newRasterizer: raster.NewRasterizer,
	}
}

func newRootCmd(a *app) *cobra.Command {
	var opts convertOptions

	rootCmd := &cobra.Command{
		Use:   "fileconvert <input>",
		Short: "Convert files between tabular, text, image and PDF formats",
		Long: `A CLI tool to convert a file to another format.

Supported conversions:
  - tabular: csv, tsv, json, xlsx to each other
  - text:    txt <-> md
  - image:   png, jpg, webp, bmp to each other
  - pdf:     a single page, or every page into a zip archive, as png, jpg, webp or bmp

Run without --to to choose the target format interactively.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./fileconvert.yaml or ~/.config/fileconvert/fileconvert.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: <input stem>.<target>, or <stem>_all_pages.zip with --all)")
	rootCmd.Flags().StringVarP(&opts.to, "to", "t", "", "Target format, e.g. json, png (prompted when omitted)")
	rootCmd.Flags().IntVarP(&opts.page, "page", "p", 1, "PDF page to convert, starting at 1")
	rootCmd.Flags().Float64Var(&opts.dpi, "dpi", 0, "PDF render resolution in dots per inch (default: render.dpi from config)")
	rootCmd.Flags().BoolVar(&opts.all, "all", false, "Convert every PDF page into a zip archive")

	rootCmd.AddCommand(
		newFormatsCmd(),
		newPagesCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// load reads the configuration and installs the logger
func (a *app) load(stderr io.Writer) error {
	cfg, used, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	if used != "" {
		a.logger.Debug("using config file", "path", used)
	}
	return nil
}

// converter builds a dispatcher; the rasterizer is only created for PDF input
// so that a missing poppler install does not affect other conversions.
func (a *app) converter(source format.Extension) (*converter.Converter, error) {
	var rasterizer raster.Rasterizer
	if source == format.PDF {
		r, err := a.newRasterizer(raster.Backend(a.cfg.Render.Backend))
		if err != nil {
			return nil, err
		}
		rasterizer = r
	}
	return converter.New(a.cfg, rasterizer, a.logger), nil
}

func (a *app) runConvert(cmd *cobra.Command, inputFile string, opts convertOptions) error {
	out := cmd.OutOrStdout()

	// Validate input file exists
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	source := format.Detect(inputFile)
	if source == "" {
		return failure.New(failure.UndetectableExtension, "cannot determine the format of %s: it has no extension", filepath.Base(inputFile))
	}
	candidates := format.Candidates(source)
	if len(candidates) == 0 {
		return failure.New(failure.UnsupportedSourceFormat, "no conversions available for .%s files", source)
	}

	target := format.Extension(strings.ToLower(strings.TrimPrefix(opts.to, ".")))
	if target == "" {
		if !a.interactive() {
			return fmt.Errorf("--to is required when not running in a terminal; choose one of: %s", joinExtensions(candidates))
		}
		picked, err := pickTarget(source, candidates, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		target = picked
	}
	if opts.all && source != format.PDF {
		return failure.New(failure.UnsupportedFormat, "--all is only available for PDF files")
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	conv, err := a.converter(source)
	if err != nil {
		return err
	}
	req := converter.Request{
		Source: source,
		Target: target,
		Data:   data,
		DPI:    opts.dpi,
	}
	if cmd.Flags().Changed("page") {
		req.Page = &opts.page
	}

	if opts.all {
		return a.convertAll(out, conv, inputFile, req, opts.output)
	}

	if source == format.PDF {
		pages, err := conv.PageCount(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Page %d of %d", req.PageNumber(), pages)))
	}

	outputFile := opts.output
	if outputFile == "" {
		outputFile = filepath.Join(filepath.Dir(inputFile), format.OutputName(inputFile, target))
	}

	fmt.Fprintf(out, "Converting %s to %s...\n", inputFile, target)
	res, err := conv.Convert(req)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, res.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintln(out, successStyle.Render("Successfully created: "+outputFile))
	a.logger.Debug("output written", "path", outputFile, "mime", res.MIMEType, "bytes", len(res.Data))
	return nil
}

func (a *app) convertAll(out io.Writer, conv *converter.Converter, inputFile string, req converter.Request, outputFile string) error {
	if outputFile == "" {
		outputFile = filepath.Join(filepath.Dir(inputFile), format.BatchOutputName(inputFile))
	}

	fmt.Fprintf(out, "Converting every page of %s to %s...\n", inputFile, req.Target)
	res, err := conv.ConvertAll(req)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, res.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Converted %d pages into %s", res.Converted, outputFile)))
	if len(res.FailedPages) > 0 {
		fmt.Fprintln(out, warnStyle.Render("Some pages failed to convert: "+joinInts(res.FailedPages)))
	}
	return nil
}

func joinExtensions(exts []format.Extension) string {
	parts := make([]string, len(exts))
	for i, e := range exts {
		parts[i] = string(e)
	}
	return strings.Join(parts, ", ")
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
