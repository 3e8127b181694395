package geometry

import (
	"encoding/json"
	"fmt"
)

// Interchange files carry rectangles as 4-element arrays. PDF-space rects
// serialize as [left, bottom, right, top] (the PDF /Rect convention);
// image-space rects as [left, top, right, bottom].

// MarshalJSON encodes the rectangle as [left, bottom, right, top].
func (r PDFRect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.Left, r.Bottom, r.Right, r.Top})
}

// UnmarshalJSON decodes a [left, bottom, right, top] array.
func (r *PDFRect) UnmarshalJSON(data []byte) error {
	var edges [4]float64
	if err := json.Unmarshal(data, &edges); err != nil {
		return fmt.Errorf("pdf rect must be a [left, bottom, right, top] array: %w", err)
	}
	r.Left, r.Bottom, r.Right, r.Top = edges[0], edges[1], edges[2], edges[3]
	return nil
}

// MarshalJSON encodes the rectangle as [left, top, right, bottom].
func (r ImageRect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.Left, r.Top, r.Right, r.Bottom})
}

// UnmarshalJSON decodes a [left, top, right, bottom] array.
func (r *ImageRect) UnmarshalJSON(data []byte) error {
	var edges [4]float64
	if err := json.Unmarshal(data, &edges); err != nil {
		return fmt.Errorf("image rect must be a [left, top, right, bottom] array: %w", err)
	}
	r.Left, r.Top, r.Right, r.Bottom = edges[0], edges[1], edges[2], edges[3]
	return nil
}
