package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/fields"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
)

func testPage(n int) geometry.PageMetadata {
	return geometry.PageMetadata{
		PageNumber:    n,
		ImageWidthPx:  1700,
		ImageHeightPx: 2200,
		PageHeightPt:  792,
		DPI:           200,
	}
}

func spec(page int, label, entry geometry.ImageRect) fields.VisualFieldSpec {
	return fields.VisualFieldSpec{
		PageNumber:       page,
		FieldLabel:       "label",
		LabelBoundingBox: label,
		EntryBoundingBox: entry,
		EntryText:        fields.EntryText{Text: "value", FontSize: 14, FontColor: "#000000"},
	}
}

func TestCheckPage_CleanSet(t *testing.T) {
	specs := []fields.VisualFieldSpec{
		spec(1,
			geometry.ImageRect{Left: 100, Top: 200, Right: 180, Bottom: 240},
			geometry.ImageRect{Left: 200, Top: 200, Right: 600, Bottom: 260}),
		spec(1,
			geometry.ImageRect{Left: 100, Top: 300, Right: 180, Bottom: 340},
			geometry.ImageRect{Left: 200, Top: 300, Right: 600, Bottom: 360}),
	}

	assert.Empty(t, CheckPage(specs, testPage(1)))
}

func TestCheckPage_EntryOverlap(t *testing.T) {
	// Neither disjointness condition holds for these two boxes.
	specs := []fields.VisualFieldSpec{
		spec(1,
			geometry.ImageRect{Left: 500, Top: 500, Right: 560, Bottom: 560},
			geometry.ImageRect{Left: 0, Top: 0, Right: 50, Bottom: 50}),
		spec(1,
			geometry.ImageRect{Left: 700, Top: 700, Right: 760, Bottom: 760},
			geometry.ImageRect{Left: 40, Top: 40, Right: 90, Bottom: 90}),
	}

	violations := CheckPage(specs, testPage(1))
	require.Len(t, violations, 1)
	assert.Equal(t, KindOverlap, violations[0].Kind)
	assert.Equal(t, 0, violations[0].SpecIndex)
	assert.Equal(t, 1, violations[0].OtherIndex)
}

func TestCheckPage_OverlapCompleteness(t *testing.T) {
	// Three independently-overlapping pairs: (0,1), (2,3), (4,5).
	// Exactly three overlap violations, not fewer.
	pair := func(x float64) []fields.VisualFieldSpec {
		return []fields.VisualFieldSpec{
			spec(1,
				geometry.ImageRect{Left: x, Top: 900, Right: x + 40, Bottom: 940},
				geometry.ImageRect{Left: x, Top: 1000, Right: x + 100, Bottom: 1050}),
			spec(1,
				geometry.ImageRect{Left: x, Top: 1200, Right: x + 40, Bottom: 1240},
				geometry.ImageRect{Left: x + 50, Top: 1020, Right: x + 150, Bottom: 1070}),
		}
	}

	var specs []fields.VisualFieldSpec
	specs = append(specs, pair(0)...)
	specs = append(specs, pair(400)...)
	specs = append(specs, pair(800)...)

	violations := CheckPage(specs, testPage(1))
	require.Len(t, violations, 3)
	for _, v := range violations {
		assert.Equal(t, KindOverlap, v.Kind)
	}
	assert.Equal(t, [2]int{0, 1}, [2]int{violations[0].SpecIndex, violations[0].OtherIndex})
	assert.Equal(t, [2]int{2, 3}, [2]int{violations[1].SpecIndex, violations[1].OtherIndex})
	assert.Equal(t, [2]int{4, 5}, [2]int{violations[2].SpecIndex, violations[2].OtherIndex})
}

func TestCheckPage_LabelEntryOverlapSameSpec(t *testing.T) {
	specs := []fields.VisualFieldSpec{
		spec(1,
			geometry.ImageRect{Left: 100, Top: 100, Right: 300, Bottom: 160},
			geometry.ImageRect{Left: 250, Top: 120, Right: 600, Bottom: 180}),
	}

	violations := CheckPage(specs, testPage(1))
	require.Len(t, violations, 1)
	assert.Equal(t, KindOverlap, violations[0].Kind)
	assert.Equal(t, 0, violations[0].SpecIndex)
	assert.Equal(t, 0, violations[0].OtherIndex)
}

func TestCheckPage_HeightThreshold(t *testing.T) {
	page := testPage(1)
	// font 14 at 200 DPI: minimum = 14 * 1.2 * 200/72 pixels.
	minHeight := MinEntryHeightPx(14, page)

	atThreshold := spec(1,
		geometry.ImageRect{Left: 100, Top: 100, Right: 180, Bottom: 140},
		geometry.ImageRect{Left: 200, Top: 100, Right: 600, Bottom: 100 + minHeight})
	assert.Empty(t, CheckPage([]fields.VisualFieldSpec{atThreshold}, page),
		"entry box exactly at the threshold must not be flagged")

	// A fractional top edge makes Height() accumulate rounding relative to
	// the computed minimum; the comparison must still treat it as exact.
	atThresholdRounded := spec(1,
		geometry.ImageRect{Left: 100, Top: 100, Right: 180, Bottom: 140},
		geometry.ImageRect{Left: 200, Top: 33.3, Right: 600, Bottom: 33.3 + minHeight})
	assert.Empty(t, CheckPage([]fields.VisualFieldSpec{atThresholdRounded}, page),
		"rounding in the height arithmetic must not flag an at-threshold box")

	belowThreshold := spec(1,
		geometry.ImageRect{Left: 100, Top: 100, Right: 180, Bottom: 140},
		geometry.ImageRect{Left: 200, Top: 100, Right: 600, Bottom: 100 + minHeight - 1})
	violations := CheckPage([]fields.VisualFieldSpec{belowThreshold}, page)
	require.Len(t, violations, 1)
	assert.Equal(t, KindTooShort, violations[0].Kind)
}

func TestCheckPage_OutOfBounds(t *testing.T) {
	specs := []fields.VisualFieldSpec{
		spec(1,
			geometry.ImageRect{Left: -5, Top: 100, Right: 80, Bottom: 140},
			geometry.ImageRect{Left: 1600, Top: 100, Right: 1800, Bottom: 160}),
	}

	violations := CheckPage(specs, testPage(1))
	require.Len(t, violations, 2)
	assert.Equal(t, KindOutOfBounds, violations[0].Kind)
	assert.Equal(t, KindOutOfBounds, violations[1].Kind)
}

func TestCheckPage_DegenerateShortCircuitsSpec(t *testing.T) {
	// Zero-width entry box: reported as degenerate only, despite also being
	// shorter than the minimum and overlapping the other spec's entry box.
	specs := []fields.VisualFieldSpec{
		spec(1,
			geometry.ImageRect{Left: 700, Top: 10, Right: 780, Bottom: 50},
			geometry.ImageRect{Left: 10, Top: 10, Right: 10, Bottom: 80}),
		spec(1,
			geometry.ImageRect{Left: 700, Top: 110, Right: 780, Bottom: 150},
			geometry.ImageRect{Left: 0, Top: 0, Right: 200, Bottom: 100}),
	}

	violations := CheckPage(specs, testPage(1))
	require.Len(t, violations, 1)
	assert.Equal(t, KindDegenerate, violations[0].Kind)
	assert.Equal(t, 0, violations[0].SpecIndex)
}

func TestCheck_MergesPagesDeterministically(t *testing.T) {
	pages := []geometry.PageMetadata{testPage(2), testPage(1)}

	specs := []fields.VisualFieldSpec{
		// Index 0 on page 2: too short.
		spec(2,
			geometry.ImageRect{Left: 100, Top: 100, Right: 180, Bottom: 140},
			geometry.ImageRect{Left: 200, Top: 100, Right: 600, Bottom: 110}),
		// Index 1 on page 1: out of bounds.
		spec(1,
			geometry.ImageRect{Left: 100, Top: 100, Right: 180, Bottom: 140},
			geometry.ImageRect{Left: 1600, Top: 100, Right: 1800, Bottom: 160}),
		// Index 2 on page 3: no metadata.
		spec(3,
			geometry.ImageRect{Left: 100, Top: 100, Right: 180, Bottom: 140},
			geometry.ImageRect{Left: 200, Top: 100, Right: 600, Bottom: 160}),
	}

	for i := 0; i < 10; i++ {
		violations := Check(specs, pages)
		require.Len(t, violations, 3)
		assert.Equal(t, 1, violations[0].Page)
		assert.Equal(t, 1, violations[0].SpecIndex)
		assert.Equal(t, 2, violations[1].Page)
		assert.Equal(t, 0, violations[1].SpecIndex)
		assert.Equal(t, 3, violations[2].Page)
		assert.Equal(t, 2, violations[2].SpecIndex)
	}
}

func TestCheck_EmptySpecSet(t *testing.T) {
	assert.Empty(t, Check(nil, []geometry.PageMetadata{testPage(1)}))
}
