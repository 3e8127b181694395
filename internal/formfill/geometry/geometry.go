// Package geometry converts rectangles between PDF user space and raster
// image space. The two spaces use distinct types so a wrong-space rectangle
// is a compile error rather than a silent layout bug.
package geometry

import (
	"errors"
	"fmt"
)

// PointsPerInch is the PDF user space unit density (1 pt = 1/72 inch).
const PointsPerInch = 72.0

// ErrInvalidPage is returned when page metadata cannot support a conversion.
var ErrInvalidPage = errors.New("invalid page metadata")

// PageMetadata describes one rasterized page. It is produced once during
// rasterization and never mutated afterwards.
type PageMetadata struct {
	PageNumber    int     `json:"page_number"` // 1-based
	ImageWidthPx  int     `json:"image_width"`
	ImageHeightPx int     `json:"image_height"`
	PageHeightPt  float64 `json:"page_height_pt"`
	DPI           float64 `json:"dpi"`
}

// Validate checks that the metadata can parameterize a conversion.
func (p PageMetadata) Validate() error {
	if p.PageHeightPt <= 0 {
		return fmt.Errorf("%w: page %d has non-positive height %.2fpt", ErrInvalidPage, p.PageNumber, p.PageHeightPt)
	}
	if p.DPI <= 0 {
		return fmt.Errorf("%w: page %d has non-positive DPI %.2f", ErrInvalidPage, p.PageNumber, p.DPI)
	}
	return nil
}

// Scale returns the points-to-pixels scale factor for the page.
func (p PageMetadata) Scale() float64 {
	return p.DPI / PointsPerInch
}

// PDFRect is an axis-aligned rectangle in PDF user space: origin at the
// bottom-left of the page, y increasing upward, unit = point.
type PDFRect struct {
	Left   float64
	Bottom float64
	Right  float64
	Top    float64
}

// Width returns the horizontal extent in points.
func (r PDFRect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent in points.
func (r PDFRect) Height() float64 { return r.Top - r.Bottom }

// Degenerate reports whether the rectangle has no positive area.
func (r PDFRect) Degenerate() bool {
	return r.Left >= r.Right || r.Bottom >= r.Top
}

// Intersects reports whether r and other share any interior area. Edge
// contact does not count as intersection. The test is symmetric.
func (r PDFRect) Intersects(other PDFRect) bool {
	disjoint := r.Right <= other.Left || other.Right <= r.Left ||
		r.Top <= other.Bottom || other.Top <= r.Bottom
	return !disjoint
}

// ImageRect is an axis-aligned rectangle in raster image space: origin at
// the top-left of the image, y increasing downward, unit = pixel.
type ImageRect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Width returns the horizontal extent in pixels.
func (r ImageRect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent in pixels.
func (r ImageRect) Height() float64 { return r.Bottom - r.Top }

// Degenerate reports whether the rectangle has no positive area.
func (r ImageRect) Degenerate() bool {
	return r.Left >= r.Right || r.Top >= r.Bottom
}

// Intersects reports whether r and other share any interior area. Edge
// contact does not count as intersection. The test is symmetric.
func (r ImageRect) Intersects(other ImageRect) bool {
	disjoint := r.Right <= other.Left || other.Right <= r.Left ||
		r.Bottom <= other.Top || other.Bottom <= r.Top
	return !disjoint
}

// Within reports whether the rectangle lies entirely inside the page image.
func (r ImageRect) Within(page PageMetadata) bool {
	return r.Left >= 0 && r.Top >= 0 &&
		r.Right <= float64(page.ImageWidthPx) &&
		r.Bottom <= float64(page.ImageHeightPx)
}

// ToImageSpace converts a PDF-space rectangle to image space. The y-axis is
// flipped around the page height and both axes are scaled by DPI/72.
func ToImageSpace(r PDFRect, page PageMetadata) (ImageRect, error) {
	if err := page.Validate(); err != nil {
		return ImageRect{}, err
	}
	s := page.Scale()
	return ImageRect{
		Left:   r.Left * s,
		Top:    (page.PageHeightPt - r.Top) * s,
		Right:  r.Right * s,
		Bottom: (page.PageHeightPt - r.Bottom) * s,
	}, nil
}

// ToPDFSpace converts an image-space rectangle back to PDF space. It is the
// inverse of ToImageSpace: ToPDFSpace(ToImageSpace(r, p), p) reproduces r
// within a tolerance of 1/DPI points.
func ToPDFSpace(r ImageRect, page PageMetadata) (PDFRect, error) {
	if err := page.Validate(); err != nil {
		return PDFRect{}, err
	}
	s := page.Scale()
	return PDFRect{
		Left:   r.Left / s,
		Bottom: page.PageHeightPt - r.Bottom/s,
		Right:  r.Right / s,
		Top:    page.PageHeightPt - r.Top/s,
	}, nil
}
