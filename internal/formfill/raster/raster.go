// Package raster converts PDF pages to page images and produces the page
// metadata that parameterizes all coordinate conversions. Rendering is
// delegated to poppler's pdftoppm; page heights in points come from the
// document itself via pdfcpu.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	xdraw "golang.org/x/image/draw"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
)

// DefaultDPI matches the density the declaration workflow expects.
const DefaultDPI = 200.0

// DefaultMaxDim caps page images at a size an agent can inspect whole.
const DefaultMaxDim = 1000

// Page is one rasterized page together with its immutable metadata.
type Page struct {
	Meta  geometry.PageMetadata
	Image image.Image
}

// Rasterizer renders every page of a document to an image. Implementations
// must have no partial side effects on failure.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, dpi float64) ([]Page, error)
}

// Poppler renders pages by invoking pdftoppm. Images wider or taller than
// maxDim are downscaled, and the reported DPI is scaled with them so the
// metadata keeps describing the actual pixels.
type Poppler struct {
	toolPath string
	maxDim   int
}

// NewPoppler creates a pdftoppm-backed rasterizer. maxDim <= 0 disables
// downscaling.
func NewPoppler(maxDim int) *Poppler {
	return &Poppler{
		toolPath: "pdftoppm",
		maxDim:   maxDim,
	}
}

// Rasterize renders every page of the document at the requested DPI.
func (p *Poppler) Rasterize(ctx context.Context, path string, dpi float64) ([]Page, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("%w: dpi must be positive, got %g", geometry.ErrInvalidPage, dpi)
	}

	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	// pdftoppm writes its output files before exiting, so staging in a
	// private temp dir keeps failures free of side effects.
	tmpDir, err := os.MkdirTemp("", "formfill-raster-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, p.toolPath, "-png", "-r", strconv.FormatFloat(dpi, 'f', -1, 64), path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	files, err := pageFiles(tmpDir)
	if err != nil {
		return nil, err
	}
	if len(files) != len(dims) {
		return nil, fmt.Errorf("rendered %d page image(s) for a %d-page document", len(files), len(dims))
	}

	pages := make([]Page, 0, len(files))
	for i, file := range files {
		img, err := loadPNG(file)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		img, effectiveDPI := p.downscale(img, dpi)
		bounds := img.Bounds()
		pages = append(pages, Page{
			Image: img,
			Meta: geometry.PageMetadata{
				PageNumber:    i + 1,
				ImageWidthPx:  bounds.Dx(),
				ImageHeightPx: bounds.Dy(),
				PageHeightPt:  dims[i].Height,
				DPI:           effectiveDPI,
			},
		})
	}

	return pages, nil
}

// downscale shrinks the image to fit maxDim, returning the image and the
// DPI that now describes it.
func (p *Poppler) downscale(img image.Image, dpi float64) (image.Image, float64) {
	if p.maxDim <= 0 {
		return img, dpi
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= p.maxDim && h <= p.maxDim {
		return img, dpi
	}

	scale := float64(p.maxDim) / float64(w)
	if s := float64(p.maxDim) / float64(h); s < scale {
		scale = s
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)

	// The metadata DPI follows the pixels so coordinate mapping stays exact.
	return dst, dpi * float64(dst.Bounds().Dx()) / float64(w)
}

// pageFiles lists the rendered page images in page order. pdftoppm pads
// page numbers to a fixed width, so a lexical sort is not enough.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	type numbered struct {
		n    int
		path string
	}
	var files []numbered
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".png") {
			continue
		}
		base := strings.TrimSuffix(name, ".png")
		idx := strings.LastIndex(base, "-")
		if idx < 0 {
			continue
		}
		n, err := strconv.Atoi(base[idx+1:])
		if err != nil {
			continue
		}
		files = append(files, numbered{n: n, path: filepath.Join(dir, name)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page image: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image: %w", err)
	}
	return img, nil
}

// WritePNG encodes an image to path, staging through a temp file so readers
// never observe a partially written image.
func WritePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".formfill-*.png")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush image: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit image: %w", err)
	}
	return nil
}
