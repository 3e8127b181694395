// Package validate checks a declared set of visual field specs for
// geometric soundness before anything is written to a document. Ordinary
// geometric problems are never errors; they are aggregated into a violation
// report so one revision round can address all of them.
package validate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/fields"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
)

// ViolationKind classifies a geometric violation.
type ViolationKind string

const (
	// KindDegenerate flags a box with zero or negative area. A degenerate
	// spec is excluded from the overlap and height checks.
	KindDegenerate ViolationKind = "degenerate"
	// KindOutOfBounds flags a box extending past the page image.
	KindOutOfBounds ViolationKind = "out_of_bounds"
	// KindTooShort flags an entry box shorter than the legibility minimum
	// derived from its font size.
	KindTooShort ViolationKind = "too_short"
	// KindOverlap flags two boxes that intersect: either the label and entry
	// of one spec, or the entry boxes of two specs.
	KindOverlap ViolationKind = "overlap"
)

// checkOrder fixes the report order of kinds within one spec index.
var checkOrder = map[ViolationKind]int{
	KindDegenerate:  0,
	KindOutOfBounds: 1,
	KindTooShort:    2,
	KindOverlap:     3,
}

// Violation describes one geometric problem found in a spec set. SpecIndex
// (and OtherIndex for overlaps) are positions in the declared spec slice.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Page       int           `json:"page"`
	SpecIndex  int           `json:"spec_index"`
	OtherIndex int           `json:"other_index,omitempty"`
	Detail     string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("page %d spec %d: %s: %s", v.Page, v.SpecIndex, v.Kind, v.Detail)
}

// MinEntryHeightPx returns the minimum legible entry box height in pixels
// for the given font size at the page's DPI.
func MinEntryHeightPx(fontSize float64, page geometry.PageMetadata) float64 {
	return fontSize * 1.2 * page.Scale()
}

// indexedSpec carries a spec together with its position in the declared set,
// so per-page reports keep declaration order.
type indexedSpec struct {
	index int
	spec  fields.VisualFieldSpec
}

// CheckPage validates every spec belonging to one page against that page's
// metadata. All violations are collected in a single pass; the function
// never fails on a geometric problem.
func CheckPage(specs []fields.VisualFieldSpec, page geometry.PageMetadata) []Violation {
	indexed := make([]indexedSpec, 0, len(specs))
	for i, s := range specs {
		if s.PageNumber == page.PageNumber {
			indexed = append(indexed, indexedSpec{index: i, spec: s})
		}
	}
	return checkIndexed(indexed, page)
}

func checkIndexed(specs []indexedSpec, page geometry.PageMetadata) []Violation {
	var violations []Violation

	// Degenerate boxes first; a spec with one is excluded from the
	// remaining checks so it produces exactly one actionable report.
	sound := make([]indexedSpec, 0, len(specs))
	for _, is := range specs {
		if v, ok := degenerate(is, page); ok {
			violations = append(violations, v)
			continue
		}
		sound = append(sound, is)
	}

	for _, is := range sound {
		violations = append(violations, checkBounds(is, page)...)
		if v, ok := checkHeight(is, page); ok {
			violations = append(violations, v)
		}
		if is.spec.LabelBoundingBox.Intersects(is.spec.EntryBoundingBox) {
			violations = append(violations, Violation{
				Kind:       KindOverlap,
				Page:       page.PageNumber,
				SpecIndex:  is.index,
				OtherIndex: is.index,
				Detail: fmt.Sprintf("label box %v intersects entry box %v of the same spec",
					is.spec.LabelBoundingBox, is.spec.EntryBoundingBox),
			})
		}
	}

	// Entry boxes of distinct specs must not intersect. Every overlapping
	// pair is reported once, lower index first.
	for i := 0; i < len(sound); i++ {
		for j := i + 1; j < len(sound); j++ {
			a, b := sound[i], sound[j]
			if a.spec.EntryBoundingBox.Intersects(b.spec.EntryBoundingBox) {
				violations = append(violations, Violation{
					Kind:       KindOverlap,
					Page:       page.PageNumber,
					SpecIndex:  a.index,
					OtherIndex: b.index,
					Detail: fmt.Sprintf("entry box %v intersects entry box of spec %d",
						a.spec.EntryBoundingBox, b.index),
				})
			}
		}
	}

	sortViolations(violations)
	return violations
}

func degenerate(is indexedSpec, page geometry.PageMetadata) (Violation, bool) {
	var box string
	switch {
	case is.spec.EntryBoundingBox.Degenerate():
		box = fmt.Sprintf("entry box %v", is.spec.EntryBoundingBox)
	case is.spec.LabelBoundingBox.Degenerate():
		box = fmt.Sprintf("label box %v", is.spec.LabelBoundingBox)
	default:
		return Violation{}, false
	}
	return Violation{
		Kind:      KindDegenerate,
		Page:      page.PageNumber,
		SpecIndex: is.index,
		Detail:    box + " has no area",
	}, true
}

func checkBounds(is indexedSpec, page geometry.PageMetadata) []Violation {
	var violations []Violation
	boxes := []struct {
		name string
		rect geometry.ImageRect
	}{
		{"label box", is.spec.LabelBoundingBox},
		{"entry box", is.spec.EntryBoundingBox},
	}
	for _, b := range boxes {
		if !b.rect.Within(page) {
			violations = append(violations, Violation{
				Kind:      KindOutOfBounds,
				Page:      page.PageNumber,
				SpecIndex: is.index,
				Detail: fmt.Sprintf("%s %v exceeds page image %dx%d",
					b.name, b.rect, page.ImageWidthPx, page.ImageHeightPx),
			})
		}
	}
	return violations
}

// heightTolerance absorbs float rounding in the threshold arithmetic so a
// box whose height is exactly at the minimum is never flagged.
const heightTolerance = 1e-9

func checkHeight(is indexedSpec, page geometry.PageMetadata) (Violation, bool) {
	required := MinEntryHeightPx(is.spec.EntryText.FontSize, page)
	actual := is.spec.EntryBoundingBox.Height()
	if actual >= required-heightTolerance {
		return Violation{}, false
	}
	return Violation{
		Kind:      KindTooShort,
		Page:      page.PageNumber,
		SpecIndex: is.index,
		Detail: fmt.Sprintf("entry box height %.2fpx is below the %.2fpx minimum for font size %g",
			actual, required, is.spec.EntryText.FontSize),
	}, true
}

// Check validates the full spec set against all pages. Pages are checked
// concurrently; the merged report is deterministic regardless of scheduling:
// page ascending, then spec declaration order, then check order. Specs
// referencing a page with no metadata are reported as out of bounds.
func Check(specs []fields.VisualFieldSpec, pages []geometry.PageMetadata) []Violation {
	byNumber := make(map[int]geometry.PageMetadata, len(pages))
	for _, p := range pages {
		byNumber[p.PageNumber] = p
	}

	var violations []Violation
	perPage := make([][]Violation, len(pages))

	var wg sync.WaitGroup
	for i, page := range pages {
		wg.Add(1)
		go func(i int, page geometry.PageMetadata) {
			defer wg.Done()
			perPage[i] = CheckPage(specs, page)
		}(i, page)
	}
	wg.Wait()

	for i, s := range specs {
		if _, ok := byNumber[s.PageNumber]; !ok {
			violations = append(violations, Violation{
				Kind:      KindOutOfBounds,
				Page:      s.PageNumber,
				SpecIndex: i,
				Detail:    fmt.Sprintf("page %d has no rasterized image", s.PageNumber),
			})
		}
	}
	for _, pv := range perPage {
		violations = append(violations, pv...)
	}

	sortViolations(violations)
	return violations
}

func sortViolations(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.SpecIndex != b.SpecIndex {
			return a.SpecIndex < b.SpecIndex
		}
		if checkOrder[a.Kind] != checkOrder[b.Kind] {
			return checkOrder[a.Kind] < checkOrder[b.Kind]
		}
		return a.OtherIndex < b.OtherIndex
	})
}
