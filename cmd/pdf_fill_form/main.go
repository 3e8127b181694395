package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill"
)

var (
	workDir      = flag.String("dir", "", "Working directory all paths must stay under (default: current directory)")
	outputFormat = flag.String("format", "text", "Output format: text, json")
	outPath      = flag.String("out", "", "Output path (file or directory depending on the command)")
	valuesPath   = flag.String("values", "", "Path to a field values JSON file (fill command)")
	specPath     = flag.String("specs", "", "Path to a visual field spec JSON file")
	pagesPath    = flag.String("pages", "", "Path to a page metadata JSON file produced by the images command")
	imagePath    = flag.String("image", "", "Path to a rendered page image (render command)")
	pageNumber   = flag.Int("page", 1, "Page number (render command)")
	dpi          = flag.Float64("dpi", 0, "Rendering resolution in dots per inch (images command, 0 = default)")
	maxDim       = flag.Int("maxdim", 0, "Maximum image dimension in pixels before downscaling (images command, 0 = default)")
	maxFileSize  = flag.Int64("maxfilesize", 100*1024*1024, "Maximum PDF file size in bytes")
	help         = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: command required\n\n")
		printUsage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	dir := *workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = cwd
	}

	svc, err := formfill.NewService(*maxFileSize, dir, *dpi, *maxDim)
	if err != nil {
		return fmt.Errorf("failed to create form fill service: %w", err)
	}

	switch command {
	case "check":
		return runCheck(svc, args)
	case "extract":
		return runExtract(svc, args)
	case "fill":
		return runFill(svc, args)
	case "images":
		return runImages(svc, args)
	case "validate":
		return runValidate(svc)
	case "render":
		return runRender(svc)
	case "annotate":
		return runAnnotate(svc, args)
	default:
		return fmt.Errorf("unknown command: %s (see -help)", command)
	}
}

func pdfArg(command string, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%s: PDF file path required", command)
	}
	return filepath.Clean(args[0]), nil
}

func runCheck(svc *formfill.Service, args []string) error {
	path, err := pdfArg("check", args)
	if err != nil {
		return err
	}

	result, err := svc.CheckFillableFields(formfill.FormCheckRequest{Path: path})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result)
	}

	if result.HasFillableFields {
		fmt.Printf("✅ %s has %d fillable field(s)\n", result.Path, result.FieldCount)
	} else {
		fmt.Printf("⚠️  %s has no fillable fields\n", result.Path)
	}
	fmt.Printf("Fill regime: %s\n", result.Regime)
	return nil
}

func runExtract(svc *formfill.Service, args []string) error {
	path, err := pdfArg("extract", args)
	if err != nil {
		return err
	}

	result, err := svc.ExtractFieldInfo(formfill.FieldInfoRequest{
		Path:       path,
		OutputPath: *outPath,
	})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result)
	}

	fmt.Printf("✅ Found %d field(s) in %s\n", result.FieldCount, result.Path)
	for i, field := range result.Fields {
		fmt.Printf("\n[%d] %s\n", i+1, field.FieldID)
		fmt.Printf("    Type: %s\n", field.Kind)
		fmt.Printf("    Page: %d\n", field.Page)
		fmt.Printf("    Rect: [%.1f, %.1f, %.1f, %.1f]\n",
			field.Rect.Left, field.Rect.Bottom, field.Rect.Right, field.Rect.Top)
		if allowed := field.AllowedValues(); len(allowed) > 0 {
			fmt.Printf("    Allowed values: %v\n", allowed)
		}
	}
	if result.OutputPath != "" {
		fmt.Printf("\nDescriptors written to %s\n", result.OutputPath)
	}
	return nil
}

func runFill(svc *formfill.Service, args []string) error {
	path, err := pdfArg("fill", args)
	if err != nil {
		return err
	}
	if *valuesPath == "" {
		return fmt.Errorf("fill: -values is required")
	}
	if *outPath == "" {
		return fmt.Errorf("fill: -out is required")
	}

	result, err := svc.FillFormFields(formfill.FillFormRequest{
		Path:            path,
		OutputPath:      *outPath,
		FieldValuesPath: *valuesPath,
	})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result)
	}

	fmt.Printf("✅ Filled %d field(s)\n", result.FieldsFilled)
	fmt.Printf("Output written to %s\n", result.OutputPath)
	return nil
}

func runImages(svc *formfill.Service, args []string) error {
	path, err := pdfArg("images", args)
	if err != nil {
		return err
	}
	if *outPath == "" {
		return fmt.Errorf("images: -out directory is required")
	}

	result, err := svc.ConvertToImages(context.Background(), formfill.ConvertToImagesRequest{
		Path:            path,
		OutputDirectory: *outPath,
		DPI:             *dpi,
		MaxDimension:    *maxDim,
	})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result)
	}

	fmt.Printf("✅ Rendered %d page(s) to %s\n", result.PageCount, result.OutputDirectory)
	for _, page := range result.Pages {
		fmt.Printf("  page %d: %s (%dx%d at %.1f DPI)\n",
			page.Metadata.PageNumber, page.ImagePath,
			page.Metadata.ImageWidthPx, page.Metadata.ImageHeightPx, page.Metadata.DPI)
	}
	fmt.Printf("Page metadata written to %s\n", result.MetadataPath)
	return nil
}

func runValidate(svc *formfill.Service) error {
	if *specPath == "" {
		return fmt.Errorf("validate: -specs is required")
	}
	if *pagesPath == "" {
		return fmt.Errorf("validate: -pages is required")
	}

	result, err := svc.ValidateFieldSpecs(formfill.ValidateSpecsRequest{
		SpecPath:         *specPath,
		PageMetadataPath: *pagesPath,
	})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Printf("✅ All %d spec(s) passed validation\n", result.SpecCount)
	} else {
		fmt.Printf("❌ Found %d violation(s) in %d spec(s)\n", len(result.Violations), result.SpecCount)
		for _, violation := range result.Violations {
			fmt.Printf("  %s\n", violation.String())
		}
	}

	// A non-empty report exits non-zero so scripted validation loops can
	// branch on the status code.
	if !result.Valid {
		os.Exit(1)
	}
	return nil
}

func runRender(svc *formfill.Service) error {
	if *imagePath == "" {
		return fmt.Errorf("render: -image is required")
	}
	if *specPath == "" {
		return fmt.Errorf("render: -specs is required")
	}
	if *outPath == "" {
		return fmt.Errorf("render: -out is required")
	}

	result, err := svc.RenderValidationImage(formfill.RenderValidationRequest{
		ImagePath:  *imagePath,
		SpecPath:   *specPath,
		PageNumber: *pageNumber,
		OutputPath: *outPath,
	})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result)
	}

	fmt.Printf("✅ Drew %d spec(s) for page %d\n", result.SpecCount, result.PageNumber)
	fmt.Printf("Validation image written to %s\n", result.OutputPath)
	return nil
}

func runAnnotate(svc *formfill.Service, args []string) error {
	path, err := pdfArg("annotate", args)
	if err != nil {
		return err
	}
	if *specPath == "" {
		return fmt.Errorf("annotate: -specs is required")
	}
	if *pagesPath == "" {
		return fmt.Errorf("annotate: -pages is required")
	}
	if *outPath == "" {
		return fmt.Errorf("annotate: -out is required")
	}

	result, err := svc.WriteAnnotations(formfill.WriteAnnotationsRequest{
		Path:             path,
		OutputPath:       *outPath,
		SpecPath:         *specPath,
		PageMetadataPath: *pagesPath,
	})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result)
	}

	fmt.Printf("✅ Wrote %d annotation(s)\n", result.AnnotationCount)
	fmt.Printf("Output written to %s\n", result.OutputPath)
	return nil
}

func outputJSON(result interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printHelp() {
	fmt.Println("PDF Fill Form - Fill PDF forms natively or via positioned text annotations")
	fmt.Println()
	fmt.Println("Documents with AcroForm fields are filled directly; documents without them")
	fmt.Println("go through the visual workflow: render pages to images, author field specs,")
	fmt.Println("validate their geometry, then commit the text as page annotations.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("COMMANDS:")
	fmt.Println("  check <pdf>      Report whether the document has native fillable fields")
	fmt.Println("  extract <pdf>    Extract field descriptors (-out saves them as JSON)")
	fmt.Println("  fill <pdf>       Fill native fields (-values, -out required)")
	fmt.Println("  images <pdf>     Render pages to PNG images (-out directory required)")
	fmt.Println("  validate         Check visual specs against page metadata (-specs, -pages)")
	fmt.Println("  render           Draw specs over a page image (-image, -specs, -page, -out)")
	fmt.Println("  annotate <pdf>   Commit visual specs as annotations (-specs, -pages, -out)")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -dir           Working directory all paths must stay under")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -out           Output file or directory")
	fmt.Println("  -values        Field values JSON file for the fill command")
	fmt.Println("  -specs         Visual field spec JSON file")
	fmt.Println("  -pages         Page metadata JSON file written by the images command")
	fmt.Println("  -image         Page image for the render command")
	fmt.Println("  -page          Page number for the render command")
	fmt.Println("  -dpi           Rendering resolution (images command)")
	fmt.Println("  -maxdim        Maximum image dimension before downscaling (images command)")
	fmt.Println("  -maxfilesize   Maximum PDF file size in bytes")
	fmt.Println("  -help          Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf_fill_form check application.pdf")
	fmt.Println("  pdf_fill_form extract -out fields.json application.pdf")
	fmt.Println("  pdf_fill_form fill -values answers.json -out filled.pdf application.pdf")
	fmt.Println("  pdf_fill_form images -out pages/ -dpi 200 scanned-form.pdf")
	fmt.Println("  pdf_fill_form validate -specs specs.json -pages pages/pages.json")
	fmt.Println("  pdf_fill_form render -image pages/page_1.png -specs specs.json -page 1 -out check.png")
	fmt.Println("  pdf_fill_form annotate -specs specs.json -pages pages/pages.json -out filled.pdf scanned-form.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  pdf_fill_form [OPTIONS] <command> [<pdf_file>]")
}

func init() {
	flag.Usage = func() {
		printHelp()
	}
}
