package raster

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownscale_KeepsSmallImages(t *testing.T) {
	p := NewPoppler(1000)
	src := image.NewRGBA(image.Rect(0, 0, 800, 600))

	out, dpi := p.downscale(src, 200)
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, 200.0, dpi)
}

func TestDownscale_ShrinksToMaxDimAndScalesDPI(t *testing.T) {
	p := NewPoppler(1000)
	src := image.NewRGBA(image.Rect(0, 0, 1700, 2200))

	out, dpi := p.downscale(src, 200)
	bounds := out.Bounds()

	// The long edge lands on maxDim, the short edge keeps the aspect ratio.
	assert.Equal(t, 1000, bounds.Dy())
	assert.Equal(t, 772, bounds.Dx()) // 1700 * 1000/2200, truncated

	// DPI follows the pixels: 200 * 772/1700.
	assert.InDelta(t, 200.0*772.0/1700.0, dpi, 1e-9)
}

func TestDownscale_DisabledWhenMaxDimZero(t *testing.T) {
	p := NewPoppler(0)
	src := image.NewRGBA(image.Rect(0, 0, 5000, 5000))

	out, dpi := p.downscale(src, 200)
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, 200.0, dpi)
}

func TestPageFiles_SortsNumerically(t *testing.T) {
	dir := t.TempDir()
	// With 10+ pages pdftoppm zero-pads, but mixed widths still have to sort
	// by page number, not lexically.
	for _, name := range []string{"page-10.png", "page-2.png", "page-1.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := pageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "page-1.png"), files[0])
	assert.Equal(t, filepath.Join(dir, "page-2.png"), files[1])
	assert.Equal(t, filepath.Join(dir, "page-10.png"), files[2])
}

func TestRasterize_RejectsNonPositiveDPI(t *testing.T) {
	p := NewPoppler(DefaultMaxDim)
	_, err := p.Rasterize(t.Context(), "whatever.pdf", 0)
	assert.Error(t, err)
}

func TestWritePNG_CommitsAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page_1.png")

	require.NoError(t, WritePNG(path, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no staging file may remain after commit")
	assert.Equal(t, "page_1.png", entries[0].Name())
}
