// internal/fill/verify.go
package fill

import (
	"context"
	"errors"
	"strings"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

// verified reports whether the element already presents the wanted value.
// It is the correctness oracle of the chain: strategies fire events into a
// page that never answers back, so resulting state is the only evidence a
// write took effect. Fill also calls it before doing anything, which is
// what makes repeated fills of a correct field no-ops.
func (f *Filler) verified(ctx context.Context, t *Target) (bool, error) {
	kind, err := controlKindOf(ctx, t.Element)
	if err != nil {
		return false, err
	}
	switch kind {
	case kindSelect:
		return selectVerified(ctx, t.Element, t.Value)
	case kindCheckbox:
		got, err := t.Element.Checked(ctx)
		if err != nil {
			return false, err
		}
		return got == parseAffirmative(t.Value), nil
	case kindRadio:
		return f.radioVerified(ctx, t)
	case kindText:
		got, err := t.Element.Value(ctx)
		if err != nil {
			return false, err
		}
		return textMatches(got, t.Value), nil
	case kindEditable:
		got, err := t.Element.Text(ctx)
		if err != nil {
			return false, err
		}
		return textMatches(got, t.Value), nil
	default:
		// Composite widget: judge by what it displays.
		return f.widgetShows(ctx, t, t.Value), nil
	}
}

// textMatches compares a read-back value against the wanted one, tolerant
// of the whitespace and casing liberties widgets take when echoing input.
func textMatches(got, want string) bool {
	if got == want {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

// selectVerified checks that the select's current option matches the
// wanted value by underlying value or by visible label.
func selectVerified(ctx context.Context, el dom.Element, want string) (bool, error) {
	opts, err := el.Options(ctx)
	if err != nil {
		return false, err
	}
	for _, opt := range opts {
		if !opt.Selected {
			continue
		}
		return opt.Value == want || strings.EqualFold(strings.TrimSpace(opt.Label), strings.TrimSpace(want)), nil
	}
	return false, nil
}

// radioVerified checks the group member matching the wanted value; with
// no group or no matching member, the element's own checked state is
// judged against the value instead.
func (f *Filler) radioVerified(ctx context.Context, t *Target) (bool, error) {
	best, err := f.bestRadio(ctx, t)
	if err != nil && !errors.Is(err, dom.ErrNotSupported) {
		return false, err
	}
	if best == nil {
		got, err := t.Element.Checked(ctx)
		if err != nil {
			return false, err
		}
		return got == parseAffirmative(t.Value), nil
	}
	return best.Checked(ctx)
}

// widgetShows reports whether a composite widget visibly presents the
// value: in its rendered display text, in the inner input detection
// resolved, or in a hidden input carrying the committed form value.
func (f *Filler) widgetShows(ctx context.Context, t *Target, want string) bool {
	control := t.Element
	if t.Detection != nil && t.Detection.Control != nil {
		control = t.Detection.Control
	}
	if txt, err := f.displayText(ctx, control); err == nil {
		if containsFold(txt, want) || f.scorer.qualifies(f.scorer.score(want, txt)) {
			return true
		}
	}
	if t.Detection != nil && t.Detection.Input != nil {
		if v, err := t.Detection.Input.Value(ctx); err == nil && v != "" && textMatches(v, want) {
			return true
		}
	}
	if hidden, err := t.Element.QuerySelector(ctx, "input[type=hidden]"); err == nil && hidden != nil {
		if v, err := hidden.Value(ctx); err == nil && v != "" && textMatches(v, want) {
			return true
		}
	}
	return false
}

// displayText reads the control's rendered text with the text of any
// still-open popup options removed. While a popup is showing, the raw
// control text contains every rendered option, which would let any value
// on the list "verify" without being selected.
func (f *Filler) displayText(ctx context.Context, control dom.Element) (string, error) {
	txt, err := control.Text(ctx)
	if err != nil {
		return "", err
	}
	opts, err := control.QuerySelectorAll(ctx, optionSelector)
	if err != nil {
		return txt, nil
	}
	for _, opt := range opts {
		if vis, err := opt.IsVisible(ctx); err != nil || !vis {
			continue
		}
		if ot, err := opt.Text(ctx); err == nil {
			if ot = strings.TrimSpace(ot); ot != "" {
				txt = strings.Replace(txt, ot, "", 1)
			}
		}
	}
	return txt, nil
}
