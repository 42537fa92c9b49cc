// internal/scanner/scanner.go

// Package scanner discovers the fillable surface of a page: it walks a
// document for form controls, derives a human label for each, infers the
// field kind, and maps what it can onto profile dot-paths. The output is a
// ScanReport whose descriptors are created fresh per pass and consumed by
// the fill engine; a later pass supersedes them wholesale.
package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/dom"
)

// candidateSelector matches every control kind the filler knows how to
// drive. Buttons and submits are interaction, not data entry.
const candidateSelector = "input, textarea, select, [contenteditable], [role=combobox]"

// queryable is satisfied by both dom.Document and dom.Element, letting the
// collector scope itself to a form or to the whole page.
type queryable interface {
	QuerySelectorAll(ctx context.Context, selector string) ([]dom.Element, error)
}

// Scanner builds FieldDescriptors from a live or in-memory document.
type Scanner struct {
	log *zap.Logger
}

func NewScanner(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log.Named("scanner")}
}

// Scan surveys doc and returns the descriptor set for its most form-like
// region. When the page carries <form> elements the best-scoring one wins;
// otherwise the whole document is treated as a single region.
func (s *Scanner) Scan(ctx context.Context, doc dom.Document) (*schemas.ScanReport, error) {
	report := &schemas.ScanReport{
		ScanID:   uuid.NewString(),
		Target:   doc.URL(),
		Platform: s.platformOf(ctx, doc),
	}
	title, _ := doc.Title(ctx)

	forms, err := doc.QuerySelectorAll(ctx, "form")
	if err != nil {
		return nil, fmt.Errorf("scanner: enumerating forms: %w", err)
	}

	if len(forms) == 0 {
		fields, err := s.collect(ctx, doc, doc)
		if err != nil {
			return nil, err
		}
		report.Fields = fields
		report.FormScore = formScore(len(fields), keywordHits(ctx, nil, title))
		s.logScan(report)
		return report, nil
	}

	best := -1.0
	for _, form := range forms {
		fields, err := s.collect(ctx, doc, form)
		if err != nil {
			return nil, err
		}
		score := formScore(len(fields), keywordHits(ctx, form, title))
		if score > best {
			best = score
			report.Fields = fields
			report.FormScore = score
		}
	}
	s.logScan(report)
	return report, nil
}

func (s *Scanner) logScan(report *schemas.ScanReport) {
	mapped := 0
	for _, f := range report.Fields {
		if f.MappedProfileField != "" {
			mapped++
		}
	}
	s.log.Info("scan complete",
		zap.String("scanID", report.ScanID),
		zap.String("platform", string(report.Platform)),
		zap.Int("fields", len(report.Fields)),
		zap.Int("mapped", mapped),
		zap.Float64("formScore", report.FormScore))
}

// collect walks root's candidate controls and describes the usable ones.
// Per-element failures are logged and skipped; one odd node should never
// sink a scan.
func (s *Scanner) collect(ctx context.Context, doc dom.Document, root queryable) ([]schemas.FieldDescriptor, error) {
	candidates, err := root.QuerySelectorAll(ctx, candidateSelector)
	if err != nil {
		return nil, fmt.Errorf("scanner: enumerating controls: %w", err)
	}

	fields := make([]schemas.FieldDescriptor, 0, len(candidates))
	seenRadios := make(map[string]bool)
	for _, el := range candidates {
		desc, ok, err := s.describe(ctx, doc, el, seenRadios)
		if err != nil {
			s.log.Debug("skipping undescribable control",
				zap.String("selector", el.Selector()),
				zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		fields = append(fields, desc)
	}
	return fields, nil
}

// describe turns one candidate element into a descriptor, or reports it
// unusable. Radio groups collapse to one descriptor on their first member.
func (s *Scanner) describe(ctx context.Context, doc dom.Document, el dom.Element, seenRadios map[string]bool) (schemas.FieldDescriptor, bool, error) {
	var zero schemas.FieldDescriptor

	tag, err := el.TagName(ctx)
	if err != nil {
		return zero, false, err
	}
	tag = strings.ToLower(tag)
	typAttr, _, err := el.Attr(ctx, "type")
	if err != nil {
		return zero, false, err
	}
	typAttr = strings.ToLower(typAttr)

	if tag == "input" {
		switch typAttr {
		case "hidden", "submit", "button", "image", "reset", "password":
			return zero, false, nil
		}
	}
	if unusable, err := s.unusable(ctx, el, tag); err != nil || unusable {
		return zero, false, err
	}

	// File inputs are routinely display:none behind styled upload buttons;
	// every other invisible control is noise.
	if !(tag == "input" && typAttr == "file") {
		vis, err := el.IsVisible(ctx)
		if err != nil {
			return zero, false, err
		}
		if !vis {
			return zero, false, nil
		}
	}

	// Inner inputs of combobox widgets belong to the widget, which is its
	// own candidate and fills through the dropdown protocol.
	if tag == "input" || tag == "textarea" {
		inside, err := insideComboboxWidget(ctx, el)
		if err != nil {
			return zero, false, err
		}
		if inside {
			return zero, false, nil
		}
	}

	if tag == "input" && typAttr == "radio" {
		if name, ok, _ := el.Attr(ctx, "name"); ok && name != "" {
			if seenRadios[name] {
				return zero, false, nil
			}
			seenRadios[name] = true
		}
	}

	var label string
	var required bool
	if tag == "input" && typAttr == "radio" {
		label, required = cleanLabel(s.legendLabel(ctx, el))
	}
	if label == "" {
		label, required = s.labelFor(ctx, doc, el)
	}
	if !required {
		required = requiredOf(ctx, el)
	}

	typ := s.inferType(ctx, el, tag, typAttr, label)

	name, _, _ := el.Attr(ctx, "name")
	id, _, _ := el.Attr(ctx, "id")
	placeholder, _, _ := el.Attr(ctx, "placeholder")

	desc := schemas.FieldDescriptor{
		ID:                 uuid.NewString(),
		Type:               typ,
		Label:              label,
		Selector:           el.Selector(),
		Required:           required,
		MappedProfileField: mapField(label, name, id, placeholder, typ),
		Placeholder:        placeholder,
	}

	if tag == "select" {
		if opts, err := el.Options(ctx); err == nil {
			for _, o := range opts {
				if t := strings.TrimSpace(o.Label); t != "" {
					desc.Options = append(desc.Options, t)
				}
			}
		}
	}
	return desc, true, nil
}

// unusable filters out controls that cannot accept input: disabled
// anything, readonly text entry, and contenteditable regions that were
// explicitly switched off.
func (s *Scanner) unusable(ctx context.Context, el dom.Element, tag string) (bool, error) {
	if _, ok, err := el.Attr(ctx, "disabled"); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	if tag == "input" || tag == "textarea" {
		if _, ok, err := el.Attr(ctx, "readonly"); err != nil {
			return false, err
		} else if ok {
			return true, nil
		}
	}
	if v, ok, _ := el.Attr(ctx, "contenteditable"); ok && strings.EqualFold(v, "false") {
		if tag != "input" && tag != "textarea" && tag != "select" {
			if role, rok, _ := el.Attr(ctx, "role"); !rok || !strings.EqualFold(role, "combobox") {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Scanner) inferType(ctx context.Context, el dom.Element, tag, typAttr, label string) schemas.FieldType {
	switch tag {
	case "select":
		return schemas.FieldSelect
	case "textarea":
		return schemas.FieldTextarea
	}
	if tag != "input" {
		if role, ok, _ := el.Attr(ctx, "role"); ok && strings.EqualFold(role, "combobox") {
			return schemas.FieldSelect
		}
		return schemas.FieldTextarea
	}
	switch typAttr {
	case "email":
		return schemas.FieldEmail
	case "tel":
		return schemas.FieldPhone
	case "file":
		return schemas.FieldFile
	case "date", "month":
		return schemas.FieldDate
	case "number":
		return schemas.FieldNumber
	case "url":
		return schemas.FieldURL
	case "checkbox":
		return schemas.FieldCheckbox
	case "radio":
		return schemas.FieldRadio
	}

	// Untyped inputs: let the label sharpen the kind.
	n := normalizeLabel(label)
	switch {
	case containsWord(n, "email"):
		return schemas.FieldEmail
	case containsWord(n, "phone") || containsWord(n, "mobile"):
		return schemas.FieldPhone
	}
	return schemas.FieldText
}

func requiredOf(ctx context.Context, el dom.Element) bool {
	if _, ok, _ := el.Attr(ctx, "required"); ok {
		return true
	}
	if v, ok, _ := el.Attr(ctx, "aria-required"); ok && strings.EqualFold(v, "true") {
		return true
	}
	return false
}

func insideComboboxWidget(ctx context.Context, el dom.Element) (bool, error) {
	node := el
	for depth := 0; depth < 4; depth++ {
		parent, err := node.Parent(ctx)
		if err != nil {
			return false, err
		}
		if parent == nil {
			return false, nil
		}
		if role, ok, _ := parent.Attr(ctx, "role"); ok && strings.EqualFold(role, "combobox") {
			return true, nil
		}
		node = parent
	}
	return false, nil
}

// Application vocabulary used to recognize job forms among arbitrary ones.
var formKeywords = []string{"apply", "application", "job", "candidate", "career", "position", "resume"}

func keywordHits(ctx context.Context, form dom.Element, title string) int {
	hay := strings.ToLower(title)
	if form != nil {
		for _, attr := range []string{"id", "class", "action", "name"} {
			if v, ok, _ := form.Attr(ctx, attr); ok {
				hay += " " + strings.ToLower(v)
			}
		}
	}
	hits := 0
	for _, kw := range formKeywords {
		if strings.Contains(hay, kw) {
			hits++
		}
	}
	return hits
}

// formScore blends field density with application vocabulary. Eight fields
// or three keyword hits saturate their respective share.
func formScore(fields, hits int) float64 {
	density := float64(fields) / 8
	if density > 1 {
		density = 1
	}
	vocab := float64(hits) / 3
	if vocab > 1 {
		vocab = 1
	}
	return 0.7*density + 0.3*vocab
}
