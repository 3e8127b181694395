// Package discovery queries a document's native AcroForm fields and
// produces the normalized field descriptor list consumed by the native fill
// path. An empty result is not an error: it signals that the document has no
// fillable fields and values must be placed as visual annotations instead.
package discovery

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/fields"
	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/geometry"
)

// ErrUnsupportedDocument marks a document that cannot be parsed at all
// (corrupt, or encrypted without credentials). It is fatal for the pipeline.
var ErrUnsupportedDocument = errors.New("unsupported document")

// offState is the conventional unchecked appearance state of button fields.
const offState = "Off"

// Acroform button field flags (PDF 32000-1, table 226).
const (
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
)

// Discoverer extracts field descriptors from PDF documents using pdfcpu.
type Discoverer struct {
	conf      *model.Configuration
	debugMode bool
}

// NewDiscoverer creates a field discoverer. Validation is relaxed so that
// mildly out-of-spec documents still yield their fields.
func NewDiscoverer(debugMode bool) *Discoverer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Discoverer{
		conf:      conf,
		debugMode: debugMode,
	}
}

// Discover extracts all fillable form fields from a PDF file. A nil, empty
// result means the document has no native fields.
func (d *Discoverer) Discover(path string) ([]fields.FieldDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	return d.DiscoverFromReader(f)
}

// DiscoverFromReader extracts fillable form fields from a seekable reader.
func (d *Discoverer) DiscoverFromReader(rs io.ReadSeeker) ([]fields.FieldDescriptor, error) {
	ctx, err := api.ReadContext(rs, d.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDocument, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDocument, err)
	}

	return d.discoverFromContext(ctx)
}

// partialField is a descriptor whose location has not been resolved yet.
// Rects and pages come from the widget annotations found on the page dicts.
type partialField struct {
	descriptor fields.FieldDescriptor
	located    bool
}

func (d *Discoverer) discoverFromContext(ctx *model.Context) ([]fields.FieldDescriptor, error) {
	fieldArray, err := d.acroFormFields(ctx)
	if err != nil {
		return nil, err
	}
	if len(fieldArray) == 0 {
		if d.debugMode {
			fmt.Println("No AcroForm fields found in document")
		}
		return nil, nil
	}

	terminals := make(map[string]*partialField)
	radios := make(map[string]*fields.FieldDescriptor)

	for i, fieldRef := range fieldArray {
		if err := d.walkField(ctx, fieldRef, "", "", 0, i, terminals, radios); err != nil {
			return nil, err
		}
	}

	if err := d.locateFields(ctx, terminals, radios); err != nil {
		return nil, err
	}

	var descriptors []fields.FieldDescriptor
	for id, pf := range terminals {
		if !pf.located {
			// Field definitions without a widget annotation have no page
			// position; skip them like the interchange consumers expect.
			if d.debugMode {
				fmt.Printf("Could not determine location for field %q, ignoring\n", id)
			}
			continue
		}
		descriptors = append(descriptors, pf.descriptor)
	}
	for _, r := range radios {
		if len(r.RadioOptions) == 0 {
			if d.debugMode {
				fmt.Printf("Radio group %q has no resolvable options, ignoring\n", r.FieldID)
			}
			continue
		}
		// The group itself has no single widget; its rect is the first
		// option's so sorting has a stable anchor.
		r.Rect = r.RadioOptions[0].Rect
		descriptors = append(descriptors, *r)
	}

	sortDescriptors(descriptors)
	return descriptors, nil
}

// acroFormFields returns the top-level Fields array of the AcroForm
// dictionary, or nil when the document carries no interactive form.
func (d *Discoverer) acroFormFields(ctx *model.Context) (types.Array, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get catalog: %v", ErrUnsupportedDocument, err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}
	return fieldArray, nil
}

// walkField descends the field tree building descriptor skeletons. Kind and
// flags inherit through Parent links, so they are passed down explicitly.
func (d *Discoverer) walkField(ctx *model.Context, fieldObj types.Object, prefix, inheritedFT string,
	inheritedFlags int, index int, terminals map[string]*partialField, radios map[string]*fields.FieldDescriptor,
) error {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil {
		return fmt.Errorf("failed to dereference field: %w", err)
	}
	if fieldDict == nil {
		return nil
	}

	id := joinFieldID(prefix, d.fieldName(ctx, fieldDict))
	if id == "" {
		id = fmt.Sprintf("field_%d", index)
	}

	ft := inheritedFT
	if ftObj, found := fieldDict.Find("FT"); found {
		if name, err := ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			ft = string(name)
		}
	}
	flags := inheritedFlags
	if flagsObj, found := fieldDict.Find("Ff"); found {
		if v, err := ctx.DereferenceInteger(flagsObj); err == nil && v != nil {
			flags = int(*v)
		}
	}

	kids, _ := d.childFields(ctx, fieldDict)

	// Button containers with kids are radio groups: every kid is one option
	// widget sharing the group's field id.
	if ft == "Btn" && (len(kids) > 0 || flags&flagRadio != 0) && flags&flagPushbutton == 0 {
		if _, dup := radios[id]; dup {
			return fmt.Errorf("internal: duplicate field id %q in document field tree", id)
		}
		radios[id] = &fields.FieldDescriptor{
			FieldID: id,
			Kind:    fields.KindRadioGroup,
		}
		return nil
	}

	if len(kids) > 0 && d.kidsAreFields(ctx, kids) {
		for i, kid := range kids {
			if err := d.walkField(ctx, kid, id, ft, flags, i, terminals, radios); err != nil {
				return err
			}
		}
		return nil
	}

	descriptor, ok := d.makeDescriptor(ctx, fieldDict, id, ft, flags)
	if !ok {
		if d.debugMode {
			fmt.Printf("Skipping field %q with unsupported type %q\n", id, ft)
		}
		return nil
	}
	if _, dup := terminals[id]; dup {
		return fmt.Errorf("internal: duplicate field id %q in document field tree", id)
	}
	terminals[id] = &partialField{descriptor: descriptor}
	return nil
}

// makeDescriptor builds the kind-specific descriptor skeleton for a terminal
// field. Location is filled in later from the widget annotations.
func (d *Discoverer) makeDescriptor(ctx *model.Context, fieldDict types.Dict, id, ft string, flags int,
) (fields.FieldDescriptor, bool) {
	descriptor := fields.FieldDescriptor{FieldID: id}

	switch ft {
	case "Tx":
		descriptor.Kind = fields.KindText
	case "Btn":
		if flags&flagPushbutton != 0 {
			return fields.FieldDescriptor{}, false
		}
		descriptor.Kind = fields.KindCheckbox
		// States are refined from the widget's appearance dictionary during
		// location; these are the conventional defaults.
		descriptor.CheckedValue = "Yes"
		descriptor.UncheckedValue = offState
	case "Ch":
		descriptor.Kind = fields.KindChoice
		descriptor.ChoiceOptions = d.choiceOptions(ctx, fieldDict)
	default:
		return fields.FieldDescriptor{}, false
	}
	return descriptor, true
}

// choiceOptions reads the Opt array of a choice field. Entries are either a
// plain string or an [export, display] pair.
func (d *Discoverer) choiceOptions(ctx *model.Context, fieldDict types.Dict) []fields.ChoiceOption {
	optObj, found := fieldDict.Find("Opt")
	if !found {
		return nil
	}
	optArray, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	options := make([]fields.ChoiceOption, 0, len(optArray))
	for _, opt := range optArray {
		if str, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, fields.ChoiceOption{Value: str, Text: str})
			continue
		}
		if pair, err := ctx.DereferenceArray(opt); err == nil && len(pair) >= 2 {
			value, err1 := ctx.DereferenceStringOrHexLiteral(pair[0], model.V10, nil)
			text, err2 := ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil)
			if err1 == nil && err2 == nil {
				options = append(options, fields.ChoiceOption{Value: value, Text: text})
			}
		}
	}
	return options
}

// locateFields walks every page's annotations, resolving page number, rect,
// checkbox states and radio options for the collected field skeletons.
func (d *Discoverer) locateFields(ctx *model.Context, terminals map[string]*partialField,
	radios map[string]*fields.FieldDescriptor,
) error {
	pages, err := d.pageDicts(ctx)
	if err != nil {
		return err
	}

	for pageIndex, pageDict := range pages {
		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := ctx.DereferenceArray(annotsObj)
		if err != nil {
			continue
		}

		for _, annotRef := range annots {
			annotDict, err := ctx.DereferenceDict(annotRef)
			if err != nil || annotDict == nil {
				continue
			}

			id := d.annotationFieldID(ctx, annotDict)
			if id == "" {
				continue
			}

			if pf, ok := terminals[id]; ok && !pf.located {
				rect, ok := d.annotationRect(ctx, annotDict)
				if !ok {
					continue
				}
				pf.descriptor.Page = pageIndex + 1
				pf.descriptor.Rect = rect
				pf.located = true
				if pf.descriptor.Kind == fields.KindCheckbox {
					d.refineCheckboxStates(ctx, annotDict, &pf.descriptor)
				}
				continue
			}

			if group, ok := radios[id]; ok {
				rect, ok := d.annotationRect(ctx, annotDict)
				if !ok {
					continue
				}
				if group.Page == 0 {
					group.Page = pageIndex + 1
				}
				if value, ok := d.onState(ctx, annotDict); ok {
					group.RadioOptions = append(group.RadioOptions, fields.RadioOption{
						Value: value,
						Rect:  rect,
					})
				}
			}
		}
	}
	return nil
}

// refineCheckboxStates replaces the default checkbox states with the widget's
// actual appearance states when they can be read.
func (d *Discoverer) refineCheckboxStates(ctx *model.Context, annotDict types.Dict,
	descriptor *fields.FieldDescriptor,
) {
	states := d.appearanceStates(ctx, annotDict)
	if len(states) == 0 {
		return
	}

	hasOff := false
	for _, s := range states {
		if s == offState {
			hasOff = true
			break
		}
	}
	if hasOff {
		for _, s := range states {
			if s != offState {
				descriptor.CheckedValue = s
				descriptor.UncheckedValue = offState
				return
			}
		}
		return
	}

	if len(states) >= 2 {
		if d.debugMode {
			fmt.Printf("Unexpected appearance states for checkbox %q: %v\n", descriptor.FieldID, states)
		}
		descriptor.CheckedValue = states[0]
		descriptor.UncheckedValue = states[1]
	}
}

// onState returns the single non-Off appearance state of a radio option
// widget, which doubles as the option's export value.
func (d *Discoverer) onState(ctx *model.Context, annotDict types.Dict) (string, bool) {
	var on []string
	for _, s := range d.appearanceStates(ctx, annotDict) {
		if s != offState {
			on = append(on, s)
		}
	}
	if len(on) != 1 {
		return "", false
	}
	return on[0], true
}

// appearanceStates lists the keys of the widget's normal appearance
// sub-dictionary (AP/N), sorted for determinism.
func (d *Discoverer) appearanceStates(ctx *model.Context, annotDict types.Dict) []string {
	apObj, found := annotDict.Find("AP")
	if !found {
		return nil
	}
	apDict, err := ctx.DereferenceDict(apObj)
	if err != nil || apDict == nil {
		return nil
	}
	nObj, found := apDict.Find("N")
	if !found {
		return nil
	}
	nDict, err := ctx.DereferenceDict(nObj)
	if err != nil || nDict == nil {
		return nil
	}

	states := make([]string, 0, len(nDict))
	for key := range nDict {
		states = append(states, key)
	}
	sort.Strings(states)
	return states
}

// annotationRect reads the widget's /Rect, normalized so left < right and
// bottom < top.
func (d *Discoverer) annotationRect(ctx *model.Context, annotDict types.Dict) (geometry.PDFRect, bool) {
	rectObj, found := annotDict.Find("Rect")
	if !found {
		return geometry.PDFRect{}, false
	}
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return geometry.PDFRect{}, false
	}

	coords := make([]float64, 4)
	for i, coord := range rectArray {
		f, err := ctx.DereferenceNumber(coord)
		if err != nil {
			return geometry.PDFRect{}, false
		}
		coords[i] = f
	}

	rect := geometry.PDFRect{
		Left:   coords[0],
		Bottom: coords[1],
		Right:  coords[2],
		Top:    coords[3],
	}
	if rect.Left > rect.Right {
		rect.Left, rect.Right = rect.Right, rect.Left
	}
	if rect.Bottom > rect.Top {
		rect.Bottom, rect.Top = rect.Top, rect.Bottom
	}
	return rect, true
}

// annotationFieldID reconstructs the fully qualified field id of a widget by
// joining the T entries up its Parent chain.
func (d *Discoverer) annotationFieldID(ctx *model.Context, annotDict types.Dict) string {
	var components []string
	dict := annotDict
	for depth := 0; dict != nil && depth < 32; depth++ {
		if name := d.fieldName(ctx, dict); name != "" {
			components = append(components, name)
		}
		parentObj, found := dict.Find("Parent")
		if !found {
			break
		}
		parent, err := ctx.DereferenceDict(parentObj)
		if err != nil {
			break
		}
		dict = parent
	}

	for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
		components[i], components[j] = components[j], components[i]
	}
	return strings.Join(components, ".")
}

func (d *Discoverer) fieldName(ctx *model.Context, dict types.Dict) string {
	nameObj, found := dict.Find("T")
	if !found {
		return ""
	}
	name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil)
	if err != nil {
		return ""
	}
	return name
}

// childFields returns the Kids array of a field dict, if any.
func (d *Discoverer) childFields(ctx *model.Context, fieldDict types.Dict) (types.Array, bool) {
	kidsObj, found := fieldDict.Find("Kids")
	if !found {
		return nil, false
	}
	kids, err := ctx.DereferenceArray(kidsObj)
	if err != nil || len(kids) == 0 {
		return nil, false
	}
	return kids, true
}

// kidsAreFields reports whether the kids carry their own partial names,
// i.e. they are child fields rather than bare widget annotations.
func (d *Discoverer) kidsAreFields(ctx *model.Context, kids types.Array) bool {
	for _, kid := range kids {
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		if d.fieldName(ctx, kidDict) != "" {
			return true
		}
	}
	return false
}

// pageDicts returns the document's page dictionaries in page order by
// walking the page tree.
func (d *Discoverer) pageDicts(ctx *model.Context) ([]types.Dict, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get catalog: %v", ErrUnsupportedDocument, err)
	}
	pagesObj, found := rootDict.Find("Pages")
	if !found {
		return nil, fmt.Errorf("%w: document has no page tree", ErrUnsupportedDocument)
	}

	var pages []types.Dict
	if err := d.collectPages(ctx, pagesObj, 0, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func (d *Discoverer) collectPages(ctx *model.Context, obj types.Object, depth int, pages *[]types.Dict) error {
	if depth > 64 {
		return fmt.Errorf("%w: page tree too deep", ErrUnsupportedDocument)
	}
	dict, err := ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return nil
	}

	nodeType := ""
	if typeObj, found := dict.Find("Type"); found {
		if name, err := ctx.DereferenceName(typeObj, model.V10, nil); err == nil {
			nodeType = string(name)
		}
	}

	if nodeType == "Page" {
		*pages = append(*pages, dict)
		return nil
	}

	kidsObj, found := dict.Find("Kids")
	if !found {
		return nil
	}
	kids, err := ctx.DereferenceArray(kidsObj)
	if err != nil {
		return nil
	}
	for _, kid := range kids {
		if err := d.collectPages(ctx, kid, depth+1, pages); err != nil {
			return err
		}
	}
	return nil
}

// joinFieldID builds a fully qualified field id from a parent prefix and a
// partial name, matching the dotted ids widget annotations resolve to.
func joinFieldID(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}

// sortDescriptors orders fields the way a reader scans a form: page
// ascending, then top of page first (descending PDF y), then left to right.
func sortDescriptors(descriptors []fields.FieldDescriptor) {
	sort.SliceStable(descriptors, func(i, j int) bool {
		a, b := descriptors[i], descriptors[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Rect.Bottom != b.Rect.Bottom {
			return a.Rect.Bottom > b.Rect.Bottom
		}
		return a.Rect.Left < b.Rect.Left
	})
}
