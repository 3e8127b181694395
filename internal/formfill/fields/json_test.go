package fields

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDescriptors(t *testing.T) {
	path := writeTemp(t, "fields.json", `[
		{"field_id": "name", "page": 1, "type": "text", "rect": [100, 650, 300, 680]},
		{"field_id": "subscribe", "page": 1, "type": "checkbox",
		 "rect": [100, 600, 120, 620],
		 "checked_value": "/Yes", "unchecked_value": "/Off"},
		{"field_id": "color", "page": 2, "type": "radio_group", "rect": [0, 0, 0, 0],
		 "radio_options": [
			{"value": "/Red", "rect": [100, 500, 120, 520]},
			{"value": "/Blue", "rect": [150, 500, 170, 520]}
		 ]},
		{"field_id": "state", "page": 2, "type": "choice", "rect": [100, 400, 300, 420],
		 "choice_options": [{"value": "CA", "text": "California"}]}
	]`)

	descriptors, err := LoadDescriptors(path)
	require.NoError(t, err)
	require.Len(t, descriptors, 4)

	name := descriptors[0]
	assert.Equal(t, "name", name.FieldID)
	assert.Equal(t, KindText, name.Kind)
	assert.Equal(t, 100.0, name.Rect.Left)
	assert.Equal(t, 650.0, name.Rect.Bottom)
	assert.Equal(t, 300.0, name.Rect.Right)
	assert.Equal(t, 680.0, name.Rect.Top)

	assert.Equal(t, []string{"/Yes", "/Off"}, descriptors[1].AllowedValues())
	assert.Equal(t, []string{"/Red", "/Blue"}, descriptors[2].AllowedValues())
	assert.Equal(t, 100.0, descriptors[2].RadioOptions[0].Rect.Left)
	assert.Equal(t, []string{"CA"}, descriptors[3].AllowedValues())
	assert.Nil(t, descriptors[0].AllowedValues())
}

func TestLoadDescriptors_SchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantPath string
	}{
		{
			name:     "not json",
			content:  `{broken`,
			wantPath: "(document)",
		},
		{
			name:     "missing field id",
			content:  `[{"page": 1, "type": "text", "rect": [0,0,1,1]}]`,
			wantPath: "[0].field_id",
		},
		{
			name: "duplicate field id",
			content: `[{"field_id": "a", "page": 1, "type": "text", "rect": [0,0,1,1]},
				{"field_id": "a", "page": 1, "type": "text", "rect": [0,0,1,1]}]`,
			wantPath: "[1].field_id",
		},
		{
			name:     "bad page",
			content:  `[{"field_id": "a", "page": 0, "type": "text", "rect": [0,0,1,1]}]`,
			wantPath: "[0].page",
		},
		{
			name:     "unknown kind",
			content:  `[{"field_id": "a", "page": 1, "type": "signature", "rect": [0,0,1,1]}]`,
			wantPath: "[0].type",
		},
		{
			name:     "checkbox without states",
			content:  `[{"field_id": "a", "page": 1, "type": "checkbox", "rect": [0,0,1,1]}]`,
			wantPath: "[0].checked_value",
		},
		{
			name:     "radio group without options",
			content:  `[{"field_id": "a", "page": 1, "type": "radio_group", "rect": [0,0,1,1]}]`,
			wantPath: "[0].radio_options",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "bad.json", tt.content)
			_, err := LoadDescriptors(path)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "error should be a SchemaError, got %v", err)
			assert.Equal(t, tt.wantPath, schemaErr.Path)
			assert.True(t, strings.Contains(err.Error(), tt.wantPath))
		})
	}
}

func TestDescriptors_RoundTripFile(t *testing.T) {
	descriptors := []FieldDescriptor{
		{FieldID: "name", Page: 1, Kind: KindText},
		{FieldID: "agree", Page: 1, Kind: KindCheckbox, CheckedValue: "/Yes", UncheckedValue: "/Off"},
	}
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, SaveDescriptors(path, descriptors))

	loaded, err := LoadDescriptors(path)
	require.NoError(t, err)
	assert.Equal(t, descriptors, loaded)
}

func TestLoadVisualSpecs(t *testing.T) {
	path := writeTemp(t, "specs.json", `{
		"pages": [{"page_number": 1, "image_width": 1700, "image_height": 2200}],
		"form_fields": [
			{
				"page_number": 1,
				"description": "Full legal name of the applicant",
				"field_label": "Name",
				"label_bounding_box": [100, 200, 180, 230],
				"entry_bounding_box": [200, 200, 600, 240],
				"entry_text": {"text": "Jane Doe"}
			},
			{
				"page_number": 1,
				"description": "Date signed",
				"field_label": "Date",
				"label_bounding_box": [100, 300, 180, 330],
				"entry_bounding_box": [200, 300, 400, 340],
				"entry_text": {"text": "2026-01-15", "font_size": 10, "font_color": "#333333"}
			}
		]
	}`)

	file, err := LoadVisualSpecs(path)
	require.NoError(t, err)
	require.Len(t, file.FormFields, 2)

	first := file.FormFields[0]
	assert.Equal(t, 200.0, first.EntryBoundingBox.Left)
	assert.Equal(t, 200.0, first.EntryBoundingBox.Top)
	assert.Equal(t, 600.0, first.EntryBoundingBox.Right)
	assert.Equal(t, 240.0, first.EntryBoundingBox.Bottom)

	// Defaults applied when omitted, preserved when present.
	assert.Equal(t, DefaultFontSize, first.EntryText.FontSize)
	assert.Equal(t, DefaultFontColor, first.EntryText.FontColor)
	assert.Equal(t, 10.0, file.FormFields[1].EntryText.FontSize)
	assert.Equal(t, "#333333", file.FormFields[1].EntryText.FontColor)
}

func TestLoadVisualSpecs_SchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantPath string
	}{
		{
			name:     "malformed document",
			content:  `[]`,
			wantPath: "(document)",
		},
		{
			name: "spec on unlisted page",
			content: `{
				"pages": [{"page_number": 1, "image_width": 100, "image_height": 100}],
				"form_fields": [{
					"page_number": 2, "description": "d", "field_label": "l",
					"label_bounding_box": [0,0,1,1], "entry_bounding_box": [2,2,3,3],
					"entry_text": {"text": "x"}
				}]
			}`,
			wantPath: "form_fields[0].page_number",
		},
		{
			name: "missing entry text",
			content: `{
				"pages": [{"page_number": 1, "image_width": 100, "image_height": 100}],
				"form_fields": [{
					"page_number": 1, "description": "d", "field_label": "l",
					"label_bounding_box": [0,0,1,1], "entry_bounding_box": [2,2,3,3],
					"entry_text": {"text": ""}
				}]
			}`,
			wantPath: "form_fields[0].entry_text.text",
		},
		{
			name: "zero image dimensions",
			content: `{
				"pages": [{"page_number": 1, "image_width": 0, "image_height": 100}],
				"form_fields": []
			}`,
			wantPath: "pages[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "bad.json", tt.content)
			_, err := LoadVisualSpecs(path)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "error should be a SchemaError, got %v", err)
			assert.Equal(t, tt.wantPath, schemaErr.Path)
		})
	}
}

func TestLoadAssignments(t *testing.T) {
	path := writeTemp(t, "assignments.json", `[
		{"field_id": "name", "page": 1, "value": "Jane Doe"},
		{"field_id": "subscribe", "page": 1, "value": "/Yes"}
	]`)

	assignments, err := LoadAssignments(path)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "Jane Doe", assignments[0].Value)

	bad := writeTemp(t, "bad.json", `[{"field_id": "", "page": 1, "value": "x"}]`)
	_, err = LoadAssignments(bad)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "[0].field_id", schemaErr.Path)
}
