package formfill

import (
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/fields"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/validate"
)

// Regime identifiers reported by the fillable-field check.
const (
	RegimeNative = "native"
	RegimeVisual = "visual"
)

// Request Types

// FormCheckRequest asks whether a document has native fillable fields.
type FormCheckRequest struct {
	Path string `json:"path"`
}

// FieldInfoRequest asks for the full field descriptor set of a document.
type FieldInfoRequest struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path,omitempty"`
}

// FillFormRequest asks to commit field values to a copy of a document.
type FillFormRequest struct {
	Path            string `json:"path"`
	OutputPath      string `json:"output_path"`
	FieldValuesPath string `json:"field_values_path"`
}

// ConvertToImagesRequest asks to rasterize a document's pages.
type ConvertToImagesRequest struct {
	Path            string  `json:"path"`
	OutputDirectory string  `json:"output_directory"`
	DPI             float64 `json:"dpi,omitempty"`
	MaxDimension    int     `json:"max_dimension,omitempty"`
}

// ValidateSpecsRequest asks to check a visual spec file for geometric
// violations against previously produced page metadata.
type ValidateSpecsRequest struct {
	SpecPath         string `json:"spec_path"`
	PageMetadataPath string `json:"page_metadata_path"`
}

// RenderValidationRequest asks to draw a spec set over one page image.
type RenderValidationRequest struct {
	ImagePath  string `json:"image_path"`
	SpecPath   string `json:"spec_path"`
	PageNumber int    `json:"page_number"`
	OutputPath string `json:"output_path"`
}

// WriteAnnotationsRequest asks to commit visual field text to a copy of a
// document.
type WriteAnnotationsRequest struct {
	Path             string `json:"path"`
	OutputPath       string `json:"output_path"`
	SpecPath         string `json:"spec_path"`
	PageMetadataPath string `json:"page_metadata_path"`
}

// ServerInfoRequest asks for server capabilities and usage guidance.
type ServerInfoRequest struct {
	// No parameters needed for server info
}

// Response Types

// FormCheckResult reports which fill regime a document requires.
type FormCheckResult struct {
	Path              string `json:"path"`
	HasFillableFields bool   `json:"has_fillable_fields"`
	FieldCount        int    `json:"field_count"`
	Regime            string `json:"regime"`
}

// FieldInfoResult carries the discovered field descriptors.
type FieldInfoResult struct {
	Path       string                   `json:"path"`
	FieldCount int                      `json:"field_count"`
	Fields     []fields.FieldDescriptor `json:"fields"`
	OutputPath string                   `json:"output_path,omitempty"`
}

// FillFormResult reports a committed native fill.
type FillFormResult struct {
	Path         string `json:"path"`
	OutputPath   string `json:"output_path"`
	FieldsFilled int    `json:"fields_filled"`
}

// PageImage pairs one rendered page image with its metadata.
type PageImage struct {
	ImagePath string                `json:"image_path"`
	Metadata  geometry.PageMetadata `json:"metadata"`
}

// ConvertToImagesResult reports the rendered pages and where the page
// metadata file was written.
type ConvertToImagesResult struct {
	Path            string      `json:"path"`
	OutputDirectory string      `json:"output_directory"`
	MetadataPath    string      `json:"metadata_path"`
	PageCount       int         `json:"page_count"`
	Pages           []PageImage `json:"pages"`
}

// ValidateSpecsResult carries the aggregated violation report for a spec
// file. Valid means the set may be committed.
type ValidateSpecsResult struct {
	SpecPath   string               `json:"spec_path"`
	SpecCount  int                  `json:"spec_count"`
	Valid      bool                 `json:"valid"`
	Violations []validate.Violation `json:"violations"`
}

// RenderValidationResult reports a written validation overlay image.
type RenderValidationResult struct {
	OutputPath string `json:"output_path"`
	PageNumber int    `json:"page_number"`
	SpecCount  int    `json:"spec_count"`
}

// WriteAnnotationsResult reports a committed visual fill.
type WriteAnnotationsResult struct {
	Path            string `json:"path"`
	OutputPath      string `json:"output_path"`
	AnnotationCount int    `json:"annotation_count"`
}

// ToolInfo describes one tool the server exposes.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult describes the server's capabilities and workflow.
type ServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	WorkingDirectory  string     `json:"working_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	DefaultDPI        float64    `json:"default_dpi"`
	MaxImageDimension int        `json:"max_image_dimension"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	UsageGuidance     string     `json:"usage_guidance"`
}
