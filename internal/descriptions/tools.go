package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	// Discovery Tools
	PDFCheckFillableFieldsDescription = `Determine whether a PDF has native fillable form fields.

**When to use:** First step of any form filling task. The answer decides which fill regime to use for the rest of the workflow.

**Why it's useful:** Documents with AcroForm fields can be filled directly and reliably; documents without them need the visual workflow (render → spec → validate → annotate). Checking first avoids wasted work in the wrong regime.

**Examples:**
• Regime routing: "Check application.pdf before deciding how to fill it"
• Batch triage: "Check every PDF in /intake/ and split native forms from scans"

**Common workflows:**
1. Native Fill: Check → has fields → pdf_extract_field_info → pdf_fill_form_fields
2. Visual Fill: Check → no fields → pdf_convert_to_images → author specs → pdf_validate_field_specs → pdf_write_annotations

**Best practices:** Always run this before extraction or filling; the reported regime tells you which tool chain applies.`

	PDFExtractFieldInfoDescription = `Extract the full descriptor set of a document's fillable fields.

**When to use:** After pdf_check_fillable_fields reports native fields, before preparing values to fill.

**Why it's useful:** Reports each field's id, page, kind, and page-space rectangle, plus the exact allowed values for checkboxes, radio groups, and choice fields. Assignments that use other values are rejected, so this is the authoritative list to fill from.

**Examples:**
• Value preparation: "Extract fields from w9.pdf to see which values the checkboxes accept"
• Field inventory: "Save the descriptor set of application.pdf as JSON for the fill step"

**Common workflows:**
1. Native Fill: Extract descriptors → map answers to field ids → pdf_fill_form_fields
2. Form Review: Extract descriptors → inspect field kinds and positions → plan data entry

**Best practices:** Pass output_path to persist descriptors as JSON; checkbox on-values vary per document and must be read from the descriptors, never guessed.`

	PDFFillFormFieldsDescription = `Fill native form fields and write the result to a new PDF.

**When to use:** Committing values to a document that pdf_check_fillable_fields confirmed has native fields.

**Why it's useful:** Writes values through the document's own field machinery, so the result stays a real interactive form. The original file is never modified and the output appears only if every assignment succeeds.

**Examples:**
• Application filling: "Fill application.pdf with answers.json and write filled.pdf"
• Automated pipelines: "Fill each intake form with its matched record"

**Common workflows:**
1. Native Fill: pdf_extract_field_info → prepare assignments → fill → deliver output
2. Verification: Fill → pdf_check_fillable_fields on output → confirm values committed

**Best practices:** Every assignment must reference an existing field id, and enumerated kinds only accept values the descriptors list. A failed fill leaves no partial output file.`

	// Visual Workflow Tools
	PDFConvertToImagesDescription = `Render PDF pages to PNG images with coordinate metadata.

**When to use:** Starting the visual fill workflow for documents without native fields, or producing page images for inspection.

**Why it's useful:** Produces one PNG per page plus a pages.json metadata file recording each page's pixel size, PDF point height, and effective DPI. That metadata is what makes image-space field specs convertible back to page space later.

**Examples:**
• Visual workflow start: "Render scanned-form.pdf at 200 DPI into pages/"
• Inspection: "Convert contract.pdf to images to review the layout"

**Common workflows:**
1. Visual Fill: Convert to images → author field specs over the images → pdf_validate_field_specs → pdf_write_annotations
2. Review: Convert to images → render validation overlays → adjust specs

**Best practices:** Keep the generated pages.json next to the images; the validate and annotate tools require it. Large pages are downscaled to the configured maximum dimension with the DPI adjusted to match.`

	PDFValidateFieldSpecsDescription = `Check visual field specs for geometric violations before committing them.

**When to use:** After authoring or revising visual field specs, before pdf_write_annotations.

**Why it's useful:** Catches misplaced boxes while they are still cheap to fix: entry boxes outside the page, boxes too short for their font size, overlapping label/entry boxes, and degenerate rectangles. The report aggregates every violation in one pass instead of failing on the first.

**Examples:**
• Spec review: "Validate specs.json against pages/pages.json before annotating"
• Iteration loop: "Re-validate after nudging the overlapping boxes apart"

**Common workflows:**
1. Visual Fill: Validate → fix reported boxes → re-validate until clean → pdf_write_annotations
2. Debugging: Validate → pdf_render_validation_image for the offending page → inspect visually

**Best practices:** A violation report is a result, not an error; iterate until the set is valid. Shared edges between boxes do not count as overlap.`

	PDFRenderValidationImageDescription = `Draw field spec boxes over a rendered page image for visual review.

**When to use:** Reviewing where visual field specs actually land on a page, especially while fixing validation violations.

**Why it's useful:** Seeing label boxes, entry boxes, and the planned text drawn over the real page makes placement mistakes obvious in a way coordinate lists never are.

**Examples:**
• Violation debugging: "Render page 2 of specs.json over pages/page_2.png to see the overlap"
• Final review: "Render every page before committing the annotations"

**Common workflows:**
1. Spec Iteration: Validate → render offending pages → adjust boxes → re-validate
2. Sign-off: Render all pages → confirm placements → pdf_write_annotations

**Best practices:** Use the same page images produced by pdf_convert_to_images so the overlay matches the coordinate space the specs were authored in.`

	PDFWriteAnnotationsDescription = `Commit validated visual field specs as text annotations on a new PDF.

**When to use:** Final step of the visual workflow, after pdf_validate_field_specs reports a clean set.

**Why it's useful:** Converts each spec's image-space entry box back to page space using the page metadata and stamps the entry text onto the page. The original file is never modified and the output appears only if every annotation succeeds.

**Examples:**
• Scanned form filling: "Annotate scanned-form.pdf with specs.json and write filled.pdf"
• Archive workflows: "Commit the approved spec set for each document in the batch"

**Common workflows:**
1. Visual Fill: Validate until clean → write annotations → deliver output
2. Audit: Write annotations → convert output to images → compare against the validation overlays

**Best practices:** Always validate first; committing an invalid set places text outside pages or over labels. Use the same pages.json the specs were validated against.`

	// Utility Tools
	PDFServerInfoDescription = `Get real-time server status, available tools, and system capabilities.

**When to use:** Starting work with the form fill server, troubleshooting issues, or checking available functionality.

**Why it's useful:** Provides a complete overview of server capabilities, current configuration, and the recommended tool ordering for both fill regimes.

**Examples:**
• System check: "Verify the server is ready before batch filling"
• Capability discovery: "See all available tools and their parameters"

**Common workflows:**
1. Session Startup: Check server info → verify working directory and limits → plan the fill workflow
2. Debugging: Review server status → check configured DPI and size limits → verify tool availability

**Best practices:** Run at the start of sessions; the usage guidance describes the native and visual workflows end to end.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"pdf_check_fillable_fields":   PDFCheckFillableFieldsDescription,
	"pdf_extract_field_info":      PDFExtractFieldInfoDescription,
	"pdf_fill_form_fields":        PDFFillFormFieldsDescription,
	"pdf_convert_to_images":       PDFConvertToImagesDescription,
	"pdf_validate_field_specs":    PDFValidateFieldSpecsDescription,
	"pdf_render_validation_image": PDFRenderValidationImageDescription,
	"pdf_write_annotations":       PDFWriteAnnotationsDescription,
	"pdf_server_info":             PDFServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
