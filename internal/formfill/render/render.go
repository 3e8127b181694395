// Package render produces review images: the declared boxes of a spec set
// drawn over a rasterized page. The output is for human or agent inspection
// between validation rounds only; it has no effect on what gets committed
// and is never a validation authority.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/fields"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
)

// Box styles: labels and entries must be visually distinct at a glance.
var (
	labelColor = color.RGBA{R: 0x1e, G: 0x63, B: 0xd0, A: 0xff} // blue
	entryColor = color.RGBA{R: 0xd0, G: 0x2e, B: 0x2e, A: 0xff} // red
)

const outlineWidth = 2

// Overlay draws the label and entry boxes of every spec for the given page
// onto a copy of the page image. Each entry box is tagged with its spec
// index so violation reports can be matched to the picture.
func Overlay(pageImage image.Image, specs []fields.VisualFieldSpec, pageNumber int) *image.RGBA {
	bounds := pageImage.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, pageImage, bounds.Min, draw.Src)

	for i, spec := range specs {
		if spec.PageNumber != pageNumber {
			continue
		}
		drawOutline(out, spec.LabelBoundingBox, labelColor)
		drawOutline(out, spec.EntryBoundingBox, entryColor)
		drawTag(out, spec.EntryBoundingBox, fmt.Sprintf("%d", i), entryColor)
	}

	return out
}

// drawOutline strokes the rectangle's border without filling its interior,
// so the underlying page stays readable.
func drawOutline(img *image.RGBA, rect geometry.ImageRect, c color.RGBA) {
	r := image.Rect(int(rect.Left), int(rect.Top), int(rect.Right), int(rect.Bottom))
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+outlineWidth), // top
		image.Rect(r.Min.X, r.Max.Y-outlineWidth, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+outlineWidth, r.Max.Y), // left
		image.Rect(r.Max.X-outlineWidth, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, edge := range edges {
		draw.Draw(img, edge.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
	}
}

// drawTag writes a short marker just inside the rectangle's top-left corner.
func drawTag(img *image.RGBA, rect geometry.ImageRect, text string, c color.RGBA) {
	face := basicfont.Face7x13
	x := int(rect.Left) + outlineWidth + 2
	y := int(rect.Top) + outlineWidth + face.Ascent + 1

	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: c},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
