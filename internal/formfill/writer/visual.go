package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/fields"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/validate"
)

// baselineFactor is the fraction of the font size the text baseline is
// raised above the entry box's bottom edge, so glyphs sit inside the box
// instead of straddling its boundary.
const baselineFactor = 0.2

// Visual commits declared field values as text drawn onto the page, for
// documents without native form fields.
type Visual struct {
	conf *model.Configuration
}

// NewVisual creates a visual annotation writer.
func NewVisual() *Visual {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Visual{conf: conf}
}

// WriteAnnotations draws every spec's entry text onto a copy of the document
// at inPath and commits the copy to outPath. Specs are mutable until this
// point, so the writer re-validates the whole set and fails with
// NotValidatedError when any geometric violation remains. The source file is
// never modified.
func (v *Visual) WriteAnnotations(inPath, outPath string, specs []fields.VisualFieldSpec,
	pages []geometry.PageMetadata,
) error {
	if violations := validate.Check(specs, pages); len(violations) > 0 {
		return &NotValidatedError{Violations: violations}
	}
	if len(specs) == 0 {
		return fmt.Errorf("no visual field specs to write")
	}

	marks, err := buildMarks(specs, pages)
	if err != nil {
		return err
	}

	return commitWatermarks(inPath, outPath, marks, v.conf)
}

// buildMarks converts every spec's entry box back to PDF space and groups the
// resulting text marks per page. A page may carry any number of marks.
func buildMarks(specs []fields.VisualFieldSpec, pages []geometry.PageMetadata,
) (map[int][]*model.Watermark, error) {
	byNumber := make(map[int]geometry.PageMetadata, len(pages))
	for _, p := range pages {
		byNumber[p.PageNumber] = p
	}

	marks := make(map[int][]*model.Watermark)
	for i, spec := range specs {
		page := byNumber[spec.PageNumber]

		rect, err := geometry.ToPDFSpace(spec.EntryBoundingBox, page)
		if err != nil {
			return nil, fmt.Errorf("spec %d: %w", i, err)
		}

		wm, err := textMark(spec.EntryText, rect)
		if err != nil {
			return nil, fmt.Errorf("spec %d: %w", i, err)
		}
		marks[spec.PageNumber] = append(marks[spec.PageNumber], wm)
	}
	return marks, nil
}

// textMark builds the on-top text mark for one entry box. The anchor is the
// box's lower-left corner raised by the baseline margin.
func textMark(entry fields.EntryText, rect geometry.PDFRect) (*model.Watermark, error) {
	fontSize := entry.FontSize
	if fontSize <= 0 {
		fontSize = fields.DefaultFontSize
	}
	color := entry.FontColor
	if color == "" {
		color = fields.DefaultFontColor
	}

	x := rect.Left
	y := rect.Bottom + baselineFactor*fontSize

	desc := fmt.Sprintf(
		"fontname:Helvetica, points:%g, position:bl, offset:%.2f %.2f, scalefactor:1 abs, fillcolor:%s, rotation:0, opacity:1",
		fontSize, x, y, color)

	wm, err := api.TextWatermark(entry.Text, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build text mark: %w", err)
	}
	return wm, nil
}

// commitWatermarks stages the stamped document in a temporary file and
// renames it into place.
func commitWatermarks(inPath, outPath string, marks map[int][]*model.Watermark,
	conf *model.Configuration,
) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".formfill-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := api.AddWatermarksSliceMapFile(inPath, tmpPath, marks, conf); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write annotations: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit output document: %w", err)
	}
	return nil
}
