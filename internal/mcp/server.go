package mcp

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fillkit/mcp-pdf-formfill/internal/config"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill"
)

// Server represents the MCP server instance
type Server struct {
	config      *config.Config
	fillService *formfill.Service
	mcpServer   *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, fillService *formfill.Service) (*Server, error) {
	if fillService == nil {
		return nil, fmt.Errorf("fillService cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:      cfg,
		fillService: fillService,
		mcpServer:   mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	checkFillableTool := mcp.NewTool(
		"pdf_check_fillable_fields",
		mcp.WithDescription("Check whether a PDF has native fillable form fields"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(checkFillableTool, s.handleCheckFillableFields)

	extractFieldInfoTool := mcp.NewTool(
		"pdf_extract_field_info",
		mcp.WithDescription("Extract field descriptors (ids, types, positions, allowed values) from a PDF"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("output_path",
			mcp.Description("Optional path to write the field descriptor JSON to"),
		),
	)
	s.mcpServer.AddTool(extractFieldInfoTool, s.handleExtractFieldInfo)

	fillFormFieldsTool := mcp.NewTool(
		"pdf_fill_form_fields",
		mcp.WithDescription("Fill native form fields from a field values JSON file and write a new PDF"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the source PDF file"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Path the filled PDF is written to"),
		),
		mcp.WithString("field_values_path",
			mcp.Required(),
			mcp.Description("Path to the field values JSON file: [{\"field_id\", \"page\", \"value\"}, ...]"),
		),
	)
	s.mcpServer.AddTool(fillFormFieldsTool, s.handleFillFormFields)

	convertToImagesTool := mcp.NewTool(
		"pdf_convert_to_images",
		mcp.WithDescription("Rasterize PDF pages to PNG images plus a page metadata file"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("output_directory",
			mcp.Required(),
			mcp.Description("Directory the page images and pages.json are written to"),
		),
		mcp.WithNumber("dpi",
			mcp.Description("Rasterization density in dots per inch (default 200)"),
		),
		mcp.WithNumber("max_dimension",
			mcp.Description("Maximum page image dimension in pixels (default 1000, 0 disables downscaling)"),
		),
	)
	s.mcpServer.AddTool(convertToImagesTool, s.handleConvertToImages)

	validateFieldSpecsTool := mcp.NewTool(
		"pdf_validate_field_specs",
		mcp.WithDescription("Validate a visual field spec file for geometric violations"),
		mcp.WithString("spec_path",
			mcp.Required(),
			mcp.Description("Path to the visual field spec JSON file"),
		),
		mcp.WithString("page_metadata_path",
			mcp.Required(),
			mcp.Description("Path to the page metadata JSON written by pdf_convert_to_images"),
		),
	)
	s.mcpServer.AddTool(validateFieldSpecsTool, s.handleValidateFieldSpecs)

	renderValidationImageTool := mcp.NewTool(
		"pdf_render_validation_image",
		mcp.WithDescription("Draw declared label and entry boxes over a page image for visual inspection"),
		mcp.WithString("image_path",
			mcp.Required(),
			mcp.Description("Path to the page image PNG"),
		),
		mcp.WithString("spec_path",
			mcp.Required(),
			mcp.Description("Path to the visual field spec JSON file"),
		),
		mcp.WithNumber("page_number",
			mcp.Required(),
			mcp.Description("1-based page number the image shows"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Path the overlay PNG is written to"),
		),
	)
	s.mcpServer.AddTool(renderValidationImageTool, s.handleRenderValidationImage)

	writeAnnotationsTool := mcp.NewTool(
		"pdf_write_annotations",
		mcp.WithDescription("Write validated visual field text onto a copy of the PDF"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the source PDF file"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Path the annotated PDF is written to"),
		),
		mcp.WithString("spec_path",
			mcp.Required(),
			mcp.Description("Path to the validated visual field spec JSON file"),
		),
		mcp.WithString("page_metadata_path",
			mcp.Required(),
			mcp.Description("Path to the page metadata JSON written by pdf_convert_to_images"),
		),
	)
	s.mcpServer.AddTool(writeAnnotationsTool, s.handleWriteAnnotations)

	serverInfoTool := mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription("Get server information, available tools, and usage guidance"),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleCheckFillableFields(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.fillService.CheckFillableFields(formfill.FormCheckRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.HasFillableFields {
		responseText = fmt.Sprintf("PDF %s has %d native fillable field(s).\n", result.Path, result.FieldCount)
		responseText += "Use the native workflow: 'pdf_extract_field_info' then 'pdf_fill_form_fields'."
	} else {
		responseText = fmt.Sprintf("PDF %s has no native fillable fields.\n", result.Path)
		responseText += "Use the visual workflow: 'pdf_convert_to_images', declare bounding boxes, " +
			"'pdf_validate_field_specs', then 'pdf_write_annotations'."
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleExtractFieldInfo(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := formfill.FieldInfoRequest{Path: path}
	if out, ok := request.GetArguments()["output_path"].(string); ok {
		req.OutputPath = out
	}

	result, err := s.fillService.ExtractFieldInfo(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatFieldInfoResult(result)), nil
}

func (s *Server) handleFillFormFields(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	valuesPath, err := request.RequireString("field_values_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.fillService.FillFormFields(formfill.FillFormRequest{
		Path:            path,
		OutputPath:      outputPath,
		FieldValuesPath: valuesPath,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Filled %d field(s) in %s\n", result.FieldsFilled, result.Path)
	responseText += fmt.Sprintf("Output written to: %s\n", result.OutputPath)
	responseText += "The source document was not modified."

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleConvertToImages(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputDirectory, err := request.RequireString("output_directory")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := formfill.ConvertToImagesRequest{
		Path:            path,
		OutputDirectory: outputDirectory,
	}
	args := request.GetArguments()
	if dpi, ok := args["dpi"].(float64); ok {
		req.DPI = dpi
	}
	if maxDim, ok := args["max_dimension"].(float64); ok {
		req.MaxDimension = int(maxDim)
	}

	result, err := s.fillService.ConvertToImages(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatConvertToImagesResult(result)), nil
}

func (s *Server) handleValidateFieldSpecs(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	specPath, err := request.RequireString("spec_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	metadataPath, err := request.RequireString("page_metadata_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.fillService.ValidateFieldSpecs(formfill.ValidateSpecsRequest{
		SpecPath:         specPath,
		PageMetadataPath: metadataPath,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatValidateSpecsResult(result)), nil
}

func (s *Server) handleRenderValidationImage(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	imagePath, err := request.RequireString("image_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	specPath, err := request.RequireString("spec_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pageNumber, err := request.RequireFloat("page_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.fillService.RenderValidationImage(formfill.RenderValidationRequest{
		ImagePath:  imagePath,
		SpecPath:   specPath,
		PageNumber: int(pageNumber),
		OutputPath: outputPath,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Validation image for page %d written to: %s\n", result.PageNumber, result.OutputPath)
	responseText += fmt.Sprintf("Specs drawn: %d (label boxes in blue, entry boxes in red, tagged by spec index)",
		result.SpecCount)

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleWriteAnnotations(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	specPath, err := request.RequireString("spec_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	metadataPath, err := request.RequireString("page_metadata_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.fillService.WriteAnnotations(formfill.WriteAnnotationsRequest{
		Path:             path,
		OutputPath:       outputPath,
		SpecPath:         specPath,
		PageMetadataPath: metadataPath,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Wrote %d annotation(s) to: %s\n", result.AnnotationCount, result.OutputPath)
	responseText += "The source document was not modified."

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.fillService.ServerInfo(formfill.ServerInfoRequest{}, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatFieldInfoResult(result *formfill.FieldInfoResult) string {
	text := fmt.Sprintf("Found %d fillable field(s) in: %s\n", result.FieldCount, result.Path)
	if result.OutputPath != "" {
		text += fmt.Sprintf("Descriptor JSON written to: %s\n", result.OutputPath)
	}

	if result.FieldCount == 0 {
		text += "\nThis document requires the visual workflow."
		return text
	}

	text += "\nFields:\n"
	for i, field := range result.Fields {
		text += fmt.Sprintf("%d. %s (page %d, %s)\n", i+1, field.FieldID, field.Page, field.Kind)
		text += fmt.Sprintf("   Rect: [%.1f, %.1f, %.1f, %.1f] (left, bottom, right, top in points)\n",
			field.Rect.Left, field.Rect.Bottom, field.Rect.Right, field.Rect.Top)
		if allowed := field.AllowedValues(); allowed != nil {
			text += fmt.Sprintf("   Allowed values: %v\n", allowed)
		}
		if i < len(result.Fields)-1 {
			text += "\n"
		}
	}

	return text
}

func (s *Server) formatConvertToImagesResult(result *formfill.ConvertToImagesResult) string {
	text := fmt.Sprintf("Rasterized %d page(s) of: %s\n", result.PageCount, result.Path)
	text += fmt.Sprintf("Page metadata written to: %s\n", result.MetadataPath)
	text += "\nPages:\n"

	for _, page := range result.Pages {
		text += fmt.Sprintf("  Page %d: %s (%dx%d px, %.4g DPI, %.1f pt tall)\n",
			page.Metadata.PageNumber, page.ImagePath,
			page.Metadata.ImageWidthPx, page.Metadata.ImageHeightPx,
			page.Metadata.DPI, page.Metadata.PageHeightPt)
	}

	text += "\nDeclare bounding boxes in image space: [left, top, right, bottom] pixels, origin top-left."
	return text
}

func (s *Server) formatValidateSpecsResult(result *formfill.ValidateSpecsResult) string {
	if result.Valid {
		text := fmt.Sprintf("All %d spec(s) in %s passed validation.\n", result.SpecCount, result.SpecPath)
		text += "The set may be committed with 'pdf_write_annotations'."
		return text
	}

	text := fmt.Sprintf("Found %d violation(s) in %s (%d specs checked):\n\n",
		len(result.Violations), result.SpecPath, result.SpecCount)
	for i, v := range result.Violations {
		text += fmt.Sprintf("%d. %s\n", i+1, v.String())
	}
	text += "\nFix every violation and validate again; the set cannot be committed until the report is empty."

	return text
}

func (s *Server) formatServerInfoResult(result *formfill.ServerInfoResult) string {
	text := fmt.Sprintf("%s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("Working Directory: %s\n", result.WorkingDirectory)
	text += fmt.Sprintf("Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("Default DPI: %g\n", result.DefaultDPI)
	text += fmt.Sprintf("Max Image Dimension: %d px\n\n", result.MaxImageDimension)

	// Available tools
	text += "Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	// Usage guidance
	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	} else {
		return s.runStdioMode(ctx)
	}
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF form fill MCP server in stdio mode")
		log.Printf("Working directory: %s", s.config.WorkDirectory)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// For now, we'll just use stdio mode since the mark3labs library
	// handles the transport differently
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
