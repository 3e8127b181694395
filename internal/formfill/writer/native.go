// Package writer commits validated input sets to a new output document. The
// source document is never mutated; both variants stage their output in a
// temporary file and rename it into place, so callers never observe a
// half-written document.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/discovery"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/fields"
)

// Native commits values into a document's AcroForm fields.
type Native struct {
	conf *model.Configuration
}

// NewNative creates a native form writer.
func NewNative() *Native {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Native{conf: conf}
}

// FillFormValues writes the assignments into a copy of the document at
// inPath and commits the copy to outPath. Every assignment is validated
// against its descriptor before the document is touched; if any are invalid
// the whole operation fails with an AssignmentError listing all of them and
// no output file is produced.
func (n *Native) FillFormValues(inPath, outPath string, descriptors []fields.FieldDescriptor,
	assignments []fields.FieldAssignment,
) error {
	if err := ValidateAssignments(descriptors, assignments); err != nil {
		return err
	}

	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, n.conf)
	if err != nil {
		return fmt.Errorf("%w: %v", discovery.ErrUnsupportedDocument, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("%w: %v", discovery.ErrUnsupportedDocument, err)
	}

	byID := descriptorIndex(descriptors)
	for _, a := range assignments {
		if err := n.applyAssignment(ctx, byID[a.FieldID], a); err != nil {
			return err
		}
	}

	if err := n.setNeedAppearances(ctx); err != nil {
		return err
	}

	return commitContext(ctx, outPath)
}

// ValidateAssignments checks every assignment against its descriptor:
// the field must exist, the page must match, and enumerated kinds accept
// only their enumerated values. All failures are collected.
func ValidateAssignments(descriptors []fields.FieldDescriptor, assignments []fields.FieldAssignment) error {
	byID := descriptorIndex(descriptors)

	var invalid []InvalidAssignment
	flag := func(i int, a fields.FieldAssignment, format string, args ...interface{}) {
		invalid = append(invalid, InvalidAssignment{
			Index:   i,
			FieldID: a.FieldID,
			Page:    a.Page,
			Reason:  fmt.Sprintf(format, args...),
		})
	}

	for i, a := range assignments {
		d, ok := byID[a.FieldID]
		if !ok {
			flag(i, a, "no such field in document")
			continue
		}
		if a.Page != d.Page {
			flag(i, a, "field is on page %d, not page %d", d.Page, a.Page)
			continue
		}
		if allowed := d.AllowedValues(); allowed != nil && !contains(allowed, a.Value) {
			flag(i, a, "value %q is not one of the allowed values %v", a.Value, allowed)
		}
	}

	if len(invalid) > 0 {
		return &AssignmentError{Invalid: invalid}
	}
	return nil
}

func descriptorIndex(descriptors []fields.FieldDescriptor) map[string]*fields.FieldDescriptor {
	byID := make(map[string]*fields.FieldDescriptor, len(descriptors))
	for i := range descriptors {
		byID[descriptors[i].FieldID] = &descriptors[i]
	}
	return byID
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// applyAssignment sets the field's value entry (and appearance state for
// button fields) on the in-memory document context.
func (n *Native) applyAssignment(ctx *model.Context, d *fields.FieldDescriptor, a fields.FieldAssignment) error {
	fieldDict, kids, err := n.findField(ctx, a.FieldID)
	if err != nil {
		return err
	}
	if fieldDict == nil {
		return fmt.Errorf("internal: field %q validated but not found in document", a.FieldID)
	}

	switch d.Kind {
	case fields.KindText, fields.KindChoice:
		fieldDict["V"] = types.StringLiteral(a.Value)
	case fields.KindCheckbox:
		fieldDict["V"] = types.Name(a.Value)
		fieldDict["AS"] = types.Name(a.Value)
	case fields.KindRadioGroup:
		fieldDict["V"] = types.Name(a.Value)
		// Each option widget shows its on-state appearance only when its AS
		// matches; all others are switched off.
		for _, kid := range kids {
			state := offStateFor(ctx, kid, a.Value)
			kid["AS"] = types.Name(state)
		}
	}
	return nil
}

// offStateFor returns the appearance state a radio option widget should
// display for the selected value: the value itself when this widget owns it,
// Off otherwise.
func offStateFor(ctx *model.Context, widget types.Dict, selected string) string {
	apObj, found := widget.Find("AP")
	if !found {
		return "Off"
	}
	apDict, err := ctx.DereferenceDict(apObj)
	if err != nil || apDict == nil {
		return "Off"
	}
	nObj, found := apDict.Find("N")
	if !found {
		return "Off"
	}
	nDict, err := ctx.DereferenceDict(nObj)
	if err != nil || nDict == nil {
		return "Off"
	}
	for state := range nDict {
		if state == selected {
			return selected
		}
	}
	return "Off"
}

// findField locates a field dict by fully qualified id, returning the dict
// and, for container fields, its kid widget dicts.
func (n *Native) findField(ctx *model.Context, fieldID string) (types.Dict, []types.Dict, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return nil, nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil, nil
	}
	fieldArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	for _, ref := range fieldArray {
		if dict, kids := n.searchField(ctx, ref, "", fieldID, 0); dict != nil {
			return dict, kids, nil
		}
	}
	return nil, nil, nil
}

func (n *Native) searchField(ctx *model.Context, obj types.Object, prefix, target string, depth int,
) (types.Dict, []types.Dict) {
	if depth > 32 {
		return nil, nil
	}
	dict, err := ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return nil, nil
	}

	name := ""
	if nameObj, found := dict.Find("T"); found {
		if s, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			name = s
		}
	}
	id := prefix
	if name != "" {
		if id == "" {
			id = name
		} else {
			id = id + "." + name
		}
	}

	var kidDicts []types.Dict
	var kids types.Array
	if kidsObj, found := dict.Find("Kids"); found {
		if arr, err := ctx.DereferenceArray(kidsObj); err == nil {
			kids = arr
			for _, kid := range arr {
				if kd, err := ctx.DereferenceDict(kid); err == nil && kd != nil {
					kidDicts = append(kidDicts, kd)
				}
			}
		}
	}

	if id == target {
		return dict, kidDicts
	}

	for _, kid := range kids {
		if found, foundKids := n.searchField(ctx, kid, id, target, depth+1); found != nil {
			return found, foundKids
		}
	}
	return nil, nil
}

// setNeedAppearances asks viewers to regenerate field appearance streams so
// the committed values are rendered.
func (n *Native) setNeedAppearances(ctx *model.Context) error {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return nil
	}
	acroFormDict["NeedAppearances"] = types.Boolean(true)
	return nil
}

// commitContext writes the context to a temporary file next to outPath and
// renames it into place, so a failed write never leaves a partial document.
func commitContext(ctx *model.Context, outPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".formfill-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := api.WriteContext(ctx, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write output document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush output document: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit output document: %w", err)
	}
	return nil
}
