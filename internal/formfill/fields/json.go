package fields

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
)

// SchemaError reports a malformed interchange file. Path names the offending
// field so the caller can fix the file without re-deriving context. Schema
// errors abort processing of the file; there is nothing to aggregate.
type SchemaError struct {
	File string
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, e.Path, e.Msg)
}

func schemaErr(file, path, format string, args ...interface{}) error {
	return &SchemaError{File: file, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// LoadDescriptors reads a field descriptor list produced by discovery.
func LoadDescriptors(path string) ([]FieldDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor file: %w", err)
	}

	var descriptors []FieldDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, schemaErr(path, "(document)", "not a valid field descriptor array: %v", err)
	}

	seen := make(map[string]bool, len(descriptors))
	for i, d := range descriptors {
		loc := fmt.Sprintf("[%d]", i)
		if d.FieldID == "" {
			return nil, schemaErr(path, loc+".field_id", "must not be empty")
		}
		if seen[d.FieldID] {
			return nil, schemaErr(path, loc+".field_id", "duplicate field id %q", d.FieldID)
		}
		seen[d.FieldID] = true
		if d.Page < 1 {
			return nil, schemaErr(path, loc+".page", "must be >= 1, got %d", d.Page)
		}
		if !d.Kind.Valid() {
			return nil, schemaErr(path, loc+".type", "unknown field kind %q", d.Kind)
		}
		switch d.Kind {
		case KindCheckbox:
			if d.CheckedValue == "" {
				return nil, schemaErr(path, loc+".checked_value", "required for checkbox fields")
			}
		case KindRadioGroup:
			if len(d.RadioOptions) == 0 {
				return nil, schemaErr(path, loc+".radio_options", "required for radio_group fields")
			}
		case KindChoice:
			if len(d.ChoiceOptions) == 0 {
				return nil, schemaErr(path, loc+".choice_options", "required for choice fields")
			}
		}
	}

	return descriptors, nil
}

// SaveDescriptors writes a descriptor list in the interchange format.
func SaveDescriptors(path string, descriptors []FieldDescriptor) error {
	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode descriptors: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write descriptor file: %w", err)
	}
	return nil
}

// LoadAssignments reads a field assignment list.
func LoadAssignments(path string) ([]FieldAssignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assignment file: %w", err)
	}

	var assignments []FieldAssignment
	if err := json.Unmarshal(data, &assignments); err != nil {
		return nil, schemaErr(path, "(document)", "not a valid assignment array: %v", err)
	}

	for i, a := range assignments {
		loc := fmt.Sprintf("[%d]", i)
		if a.FieldID == "" {
			return nil, schemaErr(path, loc+".field_id", "must not be empty")
		}
		if a.Page < 1 {
			return nil, schemaErr(path, loc+".page", "must be >= 1, got %d", a.Page)
		}
	}

	return assignments, nil
}

// LoadVisualSpecs reads a visual spec file, applying entry text defaults
// (font size 14, black) to every spec.
func LoadVisualSpecs(path string) (*VisualSpecFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read visual spec file: %w", err)
	}

	var file VisualSpecFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, schemaErr(path, "(document)", "not a valid visual spec file: %v", err)
	}

	pages := make(map[int]bool, len(file.Pages))
	for i, p := range file.Pages {
		loc := fmt.Sprintf("pages[%d]", i)
		if p.PageNumber < 1 {
			return nil, schemaErr(path, loc+".page_number", "must be >= 1, got %d", p.PageNumber)
		}
		if pages[p.PageNumber] {
			return nil, schemaErr(path, loc+".page_number", "duplicate page %d", p.PageNumber)
		}
		pages[p.PageNumber] = true
		if p.ImageWidth < 1 || p.ImageHeight < 1 {
			return nil, schemaErr(path, loc, "image dimensions must be positive, got %dx%d", p.ImageWidth, p.ImageHeight)
		}
	}

	for i := range file.FormFields {
		spec := &file.FormFields[i]
		loc := fmt.Sprintf("form_fields[%d]", i)
		if spec.PageNumber < 1 {
			return nil, schemaErr(path, loc+".page_number", "must be >= 1, got %d", spec.PageNumber)
		}
		if len(file.Pages) > 0 && !pages[spec.PageNumber] {
			return nil, schemaErr(path, loc+".page_number", "page %d not listed in pages", spec.PageNumber)
		}
		if spec.EntryText.Text == "" {
			return nil, schemaErr(path, loc+".entry_text.text", "must not be empty")
		}
		if spec.EntryText.FontSize < 0 {
			return nil, schemaErr(path, loc+".entry_text.font_size", "must not be negative, got %g", spec.EntryText.FontSize)
		}
		spec.applyDefaults()
	}

	return &file, nil
}

// LoadPageMetadata reads the page metadata list written during rasterization.
// Every conversion between spaces is parameterized by these entries, so a
// metadata file that cannot support a conversion is a schema error.
func LoadPageMetadata(path string) ([]geometry.PageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page metadata file: %w", err)
	}

	var pages []geometry.PageMetadata
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, schemaErr(path, "(document)", "not a valid page metadata array: %v", err)
	}

	seen := make(map[int]bool, len(pages))
	for i, p := range pages {
		loc := fmt.Sprintf("[%d]", i)
		if p.PageNumber < 1 {
			return nil, schemaErr(path, loc+".page_number", "must be >= 1, got %d", p.PageNumber)
		}
		if seen[p.PageNumber] {
			return nil, schemaErr(path, loc+".page_number", "duplicate page %d", p.PageNumber)
		}
		seen[p.PageNumber] = true
		if p.ImageWidthPx < 1 || p.ImageHeightPx < 1 {
			return nil, schemaErr(path, loc, "image dimensions must be positive, got %dx%d", p.ImageWidthPx, p.ImageHeightPx)
		}
		if err := p.Validate(); err != nil {
			return nil, schemaErr(path, loc, "%v", err)
		}
	}

	return pages, nil
}

// SavePageMetadata writes the page metadata list in the interchange format.
func SavePageMetadata(path string, pages []geometry.PageMetadata) error {
	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode page metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write page metadata file: %w", err)
	}
	return nil
}

// SaveVisualSpecs writes a visual spec file in the interchange format.
func SaveVisualSpecs(path string, file *VisualSpecFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode visual specs: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write visual spec file: %w", err)
	}
	return nil
}
