package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"juku-import/internal/config"
	"juku-import/internal/logger"
	"juku-import/internal/model"
	"juku-import/internal/schema"
	"juku-import/internal/sheet"
	"juku-import/internal/storage"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	logger.Init(os.Getenv("LOG_LEVEL"), "console", "importctl")

	command := flag.Arg(0)
	args := flag.Args()[1:]
	ctx := context.Background()

	var err error
	switch command {
	case "template":
		err = runTemplate(ctx, args, os.Stdout)
	case "preview":
		err = runPreview(ctx, args, os.Stdout)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`importctl - offline tools for bulk CSV imports

Usage: importctl <command> [options]

Commands:
  template   Write a blank import template
  preview    Parse and validate a file without submitting it
  help       Show this help message

Examples:
  importctl template -kind student -year 2025 -period summer -out ./templates
  importctl template -kind score -year 2025 -period 冬期 -format xlsx -config config.yaml
  importctl preview -kind score -file ./scores.csv`)
}

// runTemplate writes through the configured storage when -config is given,
// otherwise into the -out directory.
func runTemplate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	kindFlag := fs.String("kind", "", "Import kind: student or score (required)")
	year := fs.Int("year", 0, "Academic year (required)")
	period := fs.String("period", "", "Period: spring, summer, winter or 春期, 夏期, 冬期 (required)")
	format := fs.String("format", sheet.FormatCSV, "Output format: csv or xlsx")
	outDir := fs.String("out", ".", "Output directory")
	configPath := fs.String("config", "", "Config file; writes to its storage under templates/")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sch, season, err := resolve(*kindFlag, *period)
	if err != nil {
		return err
	}
	if *year < 2000 || *year > 2100 {
		return fmt.Errorf("year must be between 2000 and 2100")
	}
	if *format != sheet.FormatCSV && *format != sheet.FormatXLSX {
		return fmt.Errorf("unknown format: %q", *format)
	}

	saver, location, err := newSaver(*configPath, *outDir)
	if err != nil {
		return err
	}

	data, err := sheet.BuildTemplate(sch, *year, season, *format)
	if err != nil {
		return err
	}
	name := sheet.TemplateFilename(sch, *year, season, *format)
	if err := saver.Save(ctx, name, sheet.ContentType(*format), data); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	fmt.Fprintf(stdout, "Wrote %s to %s\n", name, location)
	return nil
}

func newSaver(configPath, outDir string) (*storage.Saver, string, error) {
	if configPath == "" {
		local, err := storage.NewLocalStorage(outDir)
		if err != nil {
			return nil, "", err
		}
		return storage.NewSaver(local, ""), outDir, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return nil, "", err
	}
	store, err := storage.New(cfg)
	if err != nil {
		return nil, "", err
	}
	return storage.NewSaver(store, "templates"), cfg.Storage.Driver + " storage", nil
}

func runPreview(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	kindFlag := fs.String("kind", "", "Import kind: student or score (required)")
	file := fs.String("file", "", "CSV or xlsx file to check (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	kind, err := model.ParseImportKind(*kindFlag)
	if err != nil {
		return err
	}
	sch, err := schema.ForKind(kind)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	pipeline, err := sheet.NewPipeline(sch, filepath.Base(*file))
	if err != nil {
		return err
	}
	preview, err := pipeline.Run(ctx, data)
	if err != nil {
		return err
	}

	printPreview(stdout, preview)
	if !preview.CanExecute() {
		return fmt.Errorf("file has rows with errors")
	}
	return nil
}

func printPreview(w io.Writer, preview *model.Preview) {
	summary := preview.Summary()
	fmt.Fprintf(w, "rows: %d  valid: %d  errors: %d  warnings: %d\n",
		summary.Total, summary.Valid, summary.Errors, summary.Warnings)

	for _, row := range preview.Rows {
		if len(row.Errors) == 0 && len(row.Warnings) == 0 {
			continue
		}
		fmt.Fprintf(w, "%4d  %-10s %s\n", row.RowIndex, row.StudentID, row.StudentName)
		for _, msg := range row.Errors {
			fmt.Fprintf(w, "      ERROR  %s\n", msg)
		}
		for _, msg := range row.Warnings {
			fmt.Fprintf(w, "      WARN   %s\n", msg)
		}
	}
}

func resolve(kindFlag, period string) (*schema.ImportSchema, model.Season, error) {
	kind, err := model.ParseImportKind(strings.TrimSpace(kindFlag))
	if err != nil {
		return nil, "", err
	}
	sch, err := schema.ForKind(kind)
	if err != nil {
		return nil, "", err
	}
	season, err := model.ParseSeason(period)
	if err != nil {
		return nil, "", err
	}
	return sch, season, nil
}
