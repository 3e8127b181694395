// Package fields holds the field layout model shared by the native and
// visual fill regimes, plus the JSON interchange formats the pipeline reads
// and produces.
package fields

import (
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
)

// FieldKind identifies the kind of a native form field. The set is closed;
// anything else a document contains is rejected during discovery.
type FieldKind string

const (
	KindText       FieldKind = "text"
	KindCheckbox   FieldKind = "checkbox"
	KindRadioGroup FieldKind = "radio_group"
	KindChoice     FieldKind = "choice"
)

// Valid reports whether k is one of the supported field kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindCheckbox, KindRadioGroup, KindChoice:
		return true
	}
	return false
}

// RadioOption is one selectable option of a radio group. Each option has its
// own widget rectangle on the page.
type RadioOption struct {
	Value string           `json:"value"`
	Rect  geometry.PDFRect `json:"rect"`
}

// ChoiceOption is one entry of a choice (dropdown/list) field.
type ChoiceOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// FieldDescriptor describes one fillable field found in a document. It is
// produced by discovery and read-only afterwards. The kind-specific fields
// are only populated for their kind; the descriptor owns its option slices.
type FieldDescriptor struct {
	FieldID string           `json:"field_id"`
	Page    int              `json:"page"`
	Kind    FieldKind        `json:"type"`
	Rect    geometry.PDFRect `json:"rect"`

	// Checkbox
	CheckedValue   string `json:"checked_value,omitempty"`
	UncheckedValue string `json:"unchecked_value,omitempty"`

	// Radio group
	RadioOptions []RadioOption `json:"radio_options,omitempty"`

	// Choice
	ChoiceOptions []ChoiceOption `json:"choice_options,omitempty"`
}

// AllowedValues returns the enumerated values an assignment may use for this
// field, or nil for free-form text fields.
func (d *FieldDescriptor) AllowedValues() []string {
	switch d.Kind {
	case KindCheckbox:
		return []string{d.CheckedValue, d.UncheckedValue}
	case KindRadioGroup:
		values := make([]string, 0, len(d.RadioOptions))
		for _, opt := range d.RadioOptions {
			values = append(values, opt.Value)
		}
		return values
	case KindChoice:
		values := make([]string, 0, len(d.ChoiceOptions))
		for _, opt := range d.ChoiceOptions {
			values = append(values, opt.Value)
		}
		return values
	}
	return nil
}

// FieldAssignment pairs a field id with the value to commit. The field must
// exist in the descriptor set and, for enumerated kinds, the value must be
// one of the descriptor's allowed values.
type FieldAssignment struct {
	FieldID string `json:"field_id"`
	Page    int    `json:"page"`
	Value   string `json:"value"`
}

// Default entry text styling for visual specs.
const (
	DefaultFontSize  = 14.0
	DefaultFontColor = "#000000"
)

// EntryText is the text drawn into a visual field's entry box.
type EntryText struct {
	Text      string  `json:"text"`
	FontSize  float64 `json:"font_size,omitempty"`
	FontColor string  `json:"font_color,omitempty"`
}

// VisualFieldSpec declares where a value should be placed on a page that has
// no native fields. Boxes are in image space; specs are revised between
// validation rounds and frozen once the validator reports no violations.
type VisualFieldSpec struct {
	PageNumber       int                `json:"page_number"`
	Description      string             `json:"description"`
	FieldLabel       string             `json:"field_label"`
	LabelBoundingBox geometry.ImageRect `json:"label_bounding_box"`
	EntryBoundingBox geometry.ImageRect `json:"entry_bounding_box"`
	EntryText        EntryText          `json:"entry_text"`
}

// applyDefaults fills unset entry text styling.
func (s *VisualFieldSpec) applyDefaults() {
	if s.EntryText.FontSize == 0 {
		s.EntryText.FontSize = DefaultFontSize
	}
	if s.EntryText.FontColor == "" {
		s.EntryText.FontColor = DefaultFontColor
	}
}

// SpecPage is the page inventory entry of a visual spec file.
type SpecPage struct {
	PageNumber  int `json:"page_number"`
	ImageWidth  int `json:"image_width"`
	ImageHeight int `json:"image_height"`
}

// VisualSpecFile is the persisted shape of a set of visual field specs.
type VisualSpecFile struct {
	Pages      []SpecPage        `json:"pages"`
	FormFields []VisualFieldSpec `json:"form_fields"`
}
