// Package formfill is the service layer of the form-filling pipeline. It
// orchestrates field discovery, rasterization, spec validation, rendering,
// and the two write paths behind request/result types the MCP server and the
// CLI both speak.
package formfill

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/fillkit/mcp-pdf-formfill/internal/descriptions"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/discovery"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/fields"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/raster"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/render"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/security"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/validate"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/writer"
)

// PageMetadataFileName is the metadata file written next to the page images.
const PageMetadataFileName = "pages.json"

// Service handles form-filling operations by orchestrating the pipeline
// components. All paths in requests are confined to the configured working
// directory.
type Service struct {
	maxFileSize   int64
	defaultDPI    float64
	maxImageDim   int
	discoverer    *discovery.Discoverer
	native        *writer.Native
	visual        *writer.Visual
	fileValidator *FileValidator
	pathValidator *security.PathValidator
}

// NewService creates a service with all pipeline components.
func NewService(maxFileSize int64, workingDirectory string, defaultDPI float64, maxImageDim int) (*Service, error) {
	pathValidator, err := security.NewPathValidator(workingDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if defaultDPI <= 0 {
		defaultDPI = raster.DefaultDPI
	}
	if maxImageDim == 0 {
		maxImageDim = raster.DefaultMaxDim
	}

	return &Service{
		maxFileSize:   maxFileSize,
		defaultDPI:    defaultDPI,
		maxImageDim:   maxImageDim,
		discoverer:    discovery.NewDiscoverer(false),
		native:        writer.NewNative(),
		visual:        writer.NewVisual(),
		fileValidator: NewFileValidator(maxFileSize),
		pathValidator: pathValidator,
	}, nil
}

// CheckFillableFields reports whether a document has native form fields and
// therefore which fill regime applies. A document without fields is not an
// error; it simply requires the visual regime.
func (s *Service) CheckFillableFields(req FormCheckRequest) (*FormCheckResult, error) {
	if err := s.validateInput(req.Path); err != nil {
		return nil, err
	}

	descriptors, err := s.discoverer.Discover(req.Path)
	if err != nil {
		return nil, err
	}

	result := &FormCheckResult{
		Path:       req.Path,
		FieldCount: len(descriptors),
		Regime:     RegimeVisual,
	}
	if len(descriptors) > 0 {
		result.HasFillableFields = true
		result.Regime = RegimeNative
	}
	return result, nil
}

// ExtractFieldInfo discovers every fillable field and optionally writes the
// descriptor set to an interchange file.
func (s *Service) ExtractFieldInfo(req FieldInfoRequest) (*FieldInfoResult, error) {
	if err := s.validateInput(req.Path); err != nil {
		return nil, err
	}

	descriptors, err := s.discoverer.Discover(req.Path)
	if err != nil {
		return nil, err
	}

	result := &FieldInfoResult{
		Path:       req.Path,
		FieldCount: len(descriptors),
		Fields:     descriptors,
	}
	if req.OutputPath != "" {
		if err := s.pathValidator.ValidatePath(req.OutputPath); err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
		if err := fields.SaveDescriptors(req.OutputPath, descriptors); err != nil {
			return nil, err
		}
		result.OutputPath = req.OutputPath
	}
	return result, nil
}

// FillFormFields commits the assignments in the field values file to a copy
// of the document. Every assignment is validated against the discovered
// descriptor set first; any invalid assignment aborts the whole commit.
func (s *Service) FillFormFields(req FillFormRequest) (*FillFormResult, error) {
	if err := s.validateInput(req.Path); err != nil {
		return nil, err
	}
	if err := s.validateOutput(req.OutputPath); err != nil {
		return nil, err
	}
	if err := s.pathValidator.ValidatePath(req.FieldValuesPath); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	assignments, err := fields.LoadAssignments(req.FieldValuesPath)
	if err != nil {
		return nil, err
	}

	descriptors, err := s.discoverer.Discover(req.Path)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("document has no fillable fields: %s", req.Path)
	}

	if err := s.native.FillFormValues(req.Path, req.OutputPath, descriptors, assignments); err != nil {
		return nil, err
	}

	return &FillFormResult{
		Path:         req.Path,
		OutputPath:   req.OutputPath,
		FieldsFilled: len(assignments),
	}, nil
}

// ConvertToImages rasterizes every page into the output directory and writes
// the page metadata file the rest of the visual pipeline depends on.
func (s *Service) ConvertToImages(ctx context.Context, req ConvertToImagesRequest) (*ConvertToImagesResult, error) {
	if err := s.validateInput(req.Path); err != nil {
		return nil, err
	}
	if err := s.pathValidator.ValidateDirectory(req.OutputDirectory); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := os.MkdirAll(req.OutputDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	dpi := req.DPI
	if dpi <= 0 {
		dpi = s.defaultDPI
	}
	maxDim := req.MaxDimension
	if maxDim == 0 {
		maxDim = s.maxImageDim
	}

	pages, err := raster.NewPoppler(maxDim).Rasterize(ctx, req.Path, dpi)
	if err != nil {
		return nil, err
	}

	result := &ConvertToImagesResult{
		Path:            req.Path,
		OutputDirectory: req.OutputDirectory,
		PageCount:       len(pages),
		Pages:           make([]PageImage, 0, len(pages)),
	}
	metadata := make([]geometry.PageMetadata, 0, len(pages))
	for _, page := range pages {
		imagePath := filepath.Join(req.OutputDirectory, fmt.Sprintf("page_%d.png", page.Meta.PageNumber))
		if err := raster.WritePNG(imagePath, page.Image); err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Meta.PageNumber, err)
		}
		result.Pages = append(result.Pages, PageImage{ImagePath: imagePath, Metadata: page.Meta})
		metadata = append(metadata, page.Meta)
	}

	metadataPath := filepath.Join(req.OutputDirectory, PageMetadataFileName)
	if err := fields.SavePageMetadata(metadataPath, metadata); err != nil {
		return nil, err
	}
	result.MetadataPath = metadataPath

	return result, nil
}

// ValidateFieldSpecs runs the geometric validator over a visual spec file.
// Violations are part of the result, not an error; the caller revises the
// specs and validates again until the report is empty.
func (s *Service) ValidateFieldSpecs(req ValidateSpecsRequest) (*ValidateSpecsResult, error) {
	specFile, pages, err := s.loadSpecSet(req.SpecPath, req.PageMetadataPath)
	if err != nil {
		return nil, err
	}

	violations := validate.Check(specFile.FormFields, pages)
	return &ValidateSpecsResult{
		SpecPath:   req.SpecPath,
		SpecCount:  len(specFile.FormFields),
		Valid:      len(violations) == 0,
		Violations: violations,
	}, nil
}

// RenderValidationImage draws a spec file's boxes over one page image so the
// declared layout can be inspected before committing.
func (s *Service) RenderValidationImage(req RenderValidationRequest) (*RenderValidationResult, error) {
	for _, p := range []string{req.ImagePath, req.SpecPath, req.OutputPath} {
		if err := s.pathValidator.ValidatePath(p); err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
	}
	if req.PageNumber < 1 {
		return nil, fmt.Errorf("page_number must be >= 1, got %d", req.PageNumber)
	}

	specFile, err := fields.LoadVisualSpecs(req.SpecPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open page image: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image: %w", err)
	}

	overlay := render.Overlay(img, specFile.FormFields, req.PageNumber)
	if err := raster.WritePNG(req.OutputPath, overlay); err != nil {
		return nil, err
	}

	drawn := 0
	for _, spec := range specFile.FormFields {
		if spec.PageNumber == req.PageNumber {
			drawn++
		}
	}
	return &RenderValidationResult{
		OutputPath: req.OutputPath,
		PageNumber: req.PageNumber,
		SpecCount:  drawn,
	}, nil
}

// WriteAnnotations commits a validated visual spec set as text drawn onto a
// copy of the document. The writer re-validates the set; a set with any
// remaining violation is rejected without writing.
func (s *Service) WriteAnnotations(req WriteAnnotationsRequest) (*WriteAnnotationsResult, error) {
	if err := s.validateInput(req.Path); err != nil {
		return nil, err
	}
	if err := s.validateOutput(req.OutputPath); err != nil {
		return nil, err
	}

	specFile, pages, err := s.loadSpecSet(req.SpecPath, req.PageMetadataPath)
	if err != nil {
		return nil, err
	}

	if err := s.visual.WriteAnnotations(req.Path, req.OutputPath, specFile.FormFields, pages); err != nil {
		return nil, err
	}

	return &WriteAnnotationsResult{
		Path:            req.Path,
		OutputPath:      req.OutputPath,
		AnnotationCount: len(specFile.FormFields),
	}, nil
}

// ServerInfo returns server capabilities and the intended tool workflow.
func (s *Service) ServerInfo(_ ServerInfoRequest, serverName, version string) (*ServerInfoResult, error) {
	availableTools := []ToolInfo{
		{
			Name:        "pdf_check_fillable_fields",
			Description: descriptions.GetToolDescription("pdf_check_fillable_fields"),
			Usage:       "Use this tool first to decide between the native and visual fill workflows.",
			Parameters:  "path (required): Full absolute path to the PDF file",
		},
		{
			Name:        "pdf_extract_field_info",
			Description: descriptions.GetToolDescription("pdf_extract_field_info"),
			Usage:       "Use this tool on native-regime documents to learn field ids and allowed values before filling.",
			Parameters:  "path (required), output_path (optional): where to write the descriptor JSON",
		},
		{
			Name:        "pdf_fill_form_fields",
			Description: descriptions.GetToolDescription("pdf_fill_form_fields"),
			Usage: "Use this tool to commit values to a native-regime document. " +
				"All assignments are validated first; any invalid assignment aborts the whole write.",
			Parameters: "path (required), output_path (required), field_values_path (required)",
		},
		{
			Name:        "pdf_convert_to_images",
			Description: descriptions.GetToolDescription("pdf_convert_to_images"),
			Usage: "Use this tool to start the visual workflow. The metadata file parameterizes " +
				"all later coordinate conversions; keep it next to the images.",
			Parameters: "path (required), output_directory (required), dpi (optional), max_dimension (optional)",
		},
		{
			Name:        "pdf_validate_field_specs",
			Description: descriptions.GetToolDescription("pdf_validate_field_specs"),
			Usage: "Use this tool after declaring bounding boxes. Fix every reported violation and " +
				"validate again until the report is empty.",
			Parameters: "spec_path (required), page_metadata_path (required)",
		},
		{
			Name:        "pdf_render_validation_image",
			Description: descriptions.GetToolDescription("pdf_render_validation_image"),
			Usage:       "Use this tool between validation rounds to see where declared boxes actually sit.",
			Parameters:  "image_path (required), spec_path (required), page_number (required), output_path (required)",
		},
		{
			Name:        "pdf_write_annotations",
			Description: descriptions.GetToolDescription("pdf_write_annotations"),
			Usage: "Use this tool to commit the visual workflow. The spec set is re-validated; " +
				"a set with violations is rejected without writing.",
			Parameters: "path (required), output_path (required), spec_path (required), page_metadata_path (required)",
		},
		{
			Name:        "pdf_server_info",
			Description: descriptions.GetToolDescription("pdf_server_info"),
			Usage:       "Use this tool to understand the fill workflows and limits.",
			Parameters:  "none",
		},
	}

	usageGuidance := `PDF Form Fill Server Usage Guide:

1. CHECK THE REGIME:
   - Use 'pdf_check_fillable_fields' on the document
   - "native": the PDF has form fields; use the native workflow
   - "visual": no form fields; use the visual workflow

2. NATIVE WORKFLOW:
   - 'pdf_extract_field_info' to get field ids, types, and allowed values
   - Write a field values JSON file: [{"field_id", "page", "value"}, ...]
   - 'pdf_fill_form_fields' to commit; invalid assignments are all reported
     at once and nothing is written

3. VISUAL WORKFLOW:
   - 'pdf_convert_to_images' to get page images and pages.json
   - Declare label and entry bounding boxes in image space (top-left origin)
   - 'pdf_validate_field_specs' and fix every violation; repeat until clean
   - 'pdf_render_validation_image' to inspect the declared boxes
   - 'pdf_write_annotations' to commit; the set is re-validated first

IMPORTANT NOTES:
- Always use absolute file paths inside the working directory
- The server can handle files up to ` + fmt.Sprintf("%d", s.maxFileSize/(1024*1024)) + `MB
- Source documents are never modified; output always goes to a new file
- Bounding boxes are [left, top, right, bottom] pixels; field rects in
  descriptor files are [left, bottom, right, top] PDF points`

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		WorkingDirectory:  s.pathValidator.ConfiguredDirectory(),
		MaxFileSize:       s.maxFileSize,
		DefaultDPI:        s.defaultDPI,
		MaxImageDimension: s.maxImageDim,
		AvailableTools:    availableTools,
		UsageGuidance:     usageGuidance,
	}, nil
}

// GetMaxFileSize returns the maximum file size limit.
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// IsValidPDF performs a quick validation check on a file.
func (s *Service) IsValidPDF(path string) bool {
	return s.fileValidator.IsValidPDF(path)
}

// loadSpecSet loads a visual spec file and its page metadata after confining
// both paths.
func (s *Service) loadSpecSet(specPath, metadataPath string) (*fields.VisualSpecFile, []geometry.PageMetadata, error) {
	for _, p := range []string{specPath, metadataPath} {
		if err := s.pathValidator.ValidatePath(p); err != nil {
			return nil, nil, fmt.Errorf("security validation failed: %w", err)
		}
	}

	specFile, err := fields.LoadVisualSpecs(specPath)
	if err != nil {
		return nil, nil, err
	}
	pages, err := fields.LoadPageMetadata(metadataPath)
	if err != nil {
		return nil, nil, err
	}
	return specFile, pages, nil
}

// validateInput confines and validates an input document path.
func (s *Service) validateInput(path string) error {
	if err := s.pathValidator.ValidatePath(path); err != nil {
		return fmt.Errorf("security validation failed: %w", err)
	}
	return s.fileValidator.ValidateFile(path)
}

// validateOutput confines an output path without requiring it to exist.
func (s *Service) validateOutput(path string) error {
	if path == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if err := s.pathValidator.ValidatePath(path); err != nil {
		return fmt.Errorf("security validation failed: %w", err)
	}
	return nil
}
