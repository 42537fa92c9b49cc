// internal/scanner/labels.go
package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

// labelFor derives the human label of a control, trying sources in
// descending order of author intent: an explicit label[for], a wrapping
// label, ARIA naming, the placeholder, short surrounding text, and finally
// a humanized name or id attribute. The second return reports a trailing
// asterisk, the informal required marker.
func (s *Scanner) labelFor(ctx context.Context, doc dom.Document, el dom.Element) (string, bool) {
	return cleanLabel(s.rawLabel(ctx, doc, el))
}

func (s *Scanner) rawLabel(ctx context.Context, doc dom.Document, el dom.Element) string {
	if id, ok, _ := el.Attr(ctx, "id"); ok && id != "" {
		if lab, err := doc.QuerySelector(ctx, fmt.Sprintf("label[for=%q]", id)); err == nil && lab != nil {
			if txt := textOf(ctx, lab); txt != "" {
				return txt
			}
		}
	}

	node := el
	for depth := 0; depth < 3; depth++ {
		parent, err := node.Parent(ctx)
		if err != nil || parent == nil {
			break
		}
		if tag, err := parent.TagName(ctx); err == nil && strings.EqualFold(tag, "label") {
			if txt := textOf(ctx, parent); txt != "" {
				return txt
			}
		}
		node = parent
	}

	if v, ok, _ := el.Attr(ctx, "aria-label"); ok && strings.TrimSpace(v) != "" {
		return v
	}
	if refs, ok, _ := el.Attr(ctx, "aria-labelledby"); ok {
		var parts []string
		for _, ref := range strings.Fields(refs) {
			if lab, err := doc.QuerySelector(ctx, fmt.Sprintf("[id=%q]", ref)); err == nil && lab != nil {
				if txt := textOf(ctx, lab); txt != "" {
					parts = append(parts, txt)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	if v, ok, _ := el.Attr(ctx, "placeholder"); ok && strings.TrimSpace(v) != "" {
		return v
	}

	// Short surrounding text: a compact wrapping container often doubles
	// as the label ("Years of experience <input>"). Anything long is the
	// page, not the label.
	if parent, err := el.Parent(ctx); err == nil && parent != nil {
		if txt := collapseSpace(textOf(ctx, parent)); txt != "" && len(txt) <= 80 {
			return txt
		}
	}

	for _, attr := range []string{"name", "id"} {
		if v, ok, _ := el.Attr(ctx, attr); ok && v != "" {
			return normalizeLabel(v)
		}
	}
	return ""
}

// legendLabel resolves a radio's group caption: the legend of the nearest
// fieldset. Group members carry their own option labels ("Yes", "No"),
// which would otherwise shadow the question being asked.
func (s *Scanner) legendLabel(ctx context.Context, el dom.Element) string {
	node := el
	for depth := 0; depth < 4; depth++ {
		parent, err := node.Parent(ctx)
		if err != nil || parent == nil {
			return ""
		}
		if tag, err := parent.TagName(ctx); err == nil && strings.EqualFold(tag, "fieldset") {
			if legend, err := parent.QuerySelector(ctx, "legend"); err == nil && legend != nil {
				return textOf(ctx, legend)
			}
			return ""
		}
		node = parent
	}
	return ""
}

// cleanLabel collapses whitespace and strips the trailing asterisk marker,
// reporting whether one was present.
func cleanLabel(raw string) (string, bool) {
	label := collapseSpace(raw)
	if strings.HasSuffix(label, "*") {
		return strings.TrimSpace(strings.TrimSuffix(label, "*")), true
	}
	return label, false
}

func textOf(ctx context.Context, el dom.Element) string {
	txt, err := el.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(txt)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
