// internal/fill/strategies.go
package fill

import (
	"context"
	"fmt"
	"strings"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

// controlKind collapses tag/type combinations into the shapes the
// strategies actually distinguish.
type controlKind int

const (
	kindOther controlKind = iota
	kindText
	kindCheckbox
	kindRadio
	kindSelect
	kindEditable
)

func controlKindOf(ctx context.Context, el dom.Element) (controlKind, error) {
	tag, err := el.TagName(ctx)
	if err != nil {
		return kindOther, err
	}
	switch strings.ToLower(tag) {
	case "select":
		return kindSelect, nil
	case "textarea":
		return kindText, nil
	case "input":
		typ, _, err := el.Attr(ctx, "type")
		if err != nil {
			return kindOther, err
		}
		switch strings.ToLower(typ) {
		case "checkbox":
			return kindCheckbox, nil
		case "radio":
			return kindRadio, nil
		default:
			return kindText, nil
		}
	}
	if _, editable, err := el.Attr(ctx, "contenteditable"); err != nil {
		return kindOther, err
	} else if editable {
		return kindEditable, nil
	}
	return kindOther, nil
}

// parseAffirmative maps a resolved value onto checkbox intent.
func parseAffirmative(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "no", "n", "false", "0", "off", "unchecked":
		return false
	}
	return true
}

// assign writes the value through the conventional, framework-visible
// route for the element's kind. It returns the element that actually
// received the write, which differs from the target only for radio
// groups, where the matching group member gets checked.
func (f *Filler) assign(ctx context.Context, t *Target) (dom.Element, error) {
	kind, err := controlKindOf(ctx, t.Element)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindSelect:
		return t.Element, t.Element.SelectOption(ctx, t.Value)
	case kindCheckbox:
		return t.Element, t.Element.SetChecked(ctx, parseAffirmative(t.Value))
	case kindRadio:
		return f.checkRadio(ctx, t)
	case kindEditable:
		return t.Element, t.Element.SetText(ctx, t.Value)
	case kindText:
		return t.Element, t.Element.SetValue(ctx, t.Value)
	default:
		return nil, dom.ErrNotSupported
	}
}

// notify fires the event sequence frameworks listen for after a
// programmatic write: input, change, then blur to flush any pending
// commit-on-blur handler.
func (f *Filler) notify(ctx context.Context, el dom.Element) error {
	if err := el.DispatchEvent(ctx, dom.EventInput); err != nil {
		return err
	}
	if err := el.DispatchEvent(ctx, dom.EventChange); err != nil {
		return err
	}
	return el.Blur(ctx)
}

// typeKey sends one key and waits out the inter-key delay.
func (f *Filler) typeKey(ctx context.Context, el dom.Element, key string) error {
	if err := el.SendKeys(ctx, key); err != nil {
		return err
	}
	return f.pause(ctx, f.cfg.Timing.InterKey)
}

// checkRadio picks the member of the element's radio group whose value or
// label best matches the wanted value and checks it. A radio without a
// name attribute has no group; its own checked state follows the value.
func (f *Filler) checkRadio(ctx context.Context, t *Target) (dom.Element, error) {
	best, err := f.bestRadio(ctx, t)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return t.Element, t.Element.SetChecked(ctx, parseAffirmative(t.Value))
	}
	return best, best.SetChecked(ctx, true)
}

// bestRadio resolves the group member matching the wanted value. It
// returns nil with no error when the element has no group, and an error
// wrapping dom.ErrNotSupported when a group exists but no member
// qualifies.
func (f *Filler) bestRadio(ctx context.Context, t *Target) (dom.Element, error) {
	name, ok, err := t.Element.Attr(ctx, "name")
	if err != nil {
		return nil, err
	}
	if !ok || name == "" {
		return nil, nil
	}
	peers, err := t.Doc.QuerySelectorAll(ctx, fmt.Sprintf("input[type=radio][name=%q]", name))
	if err != nil {
		return nil, err
	}
	var best dom.Element
	bestScore := 0
	for _, peer := range peers {
		label, err := radioLabel(ctx, t.Doc, peer)
		if err != nil || label == "" {
			continue
		}
		if sc := f.scorer.score(t.Value, label); sc > bestScore {
			best, bestScore = peer, sc
		}
	}
	if best == nil || !f.scorer.qualifies(bestScore) {
		return nil, fmt.Errorf("radio group %q has no member matching %q: %w", name, t.Value, dom.ErrNotSupported)
	}
	return best, nil
}

// radioLabel derives the text a user would read next to one radio button:
// its value attribute, aria-label, a label[for] reference, or a wrapping
// label element, in that order.
func radioLabel(ctx context.Context, doc dom.Document, el dom.Element) (string, error) {
	if v, ok, err := el.Attr(ctx, "value"); err != nil {
		return "", err
	} else if ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if v, ok, _ := el.Attr(ctx, "aria-label"); ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if id, ok, _ := el.Attr(ctx, "id"); ok && id != "" {
		if lab, err := doc.QuerySelector(ctx, fmt.Sprintf("label[for=%q]", id)); err == nil && lab != nil {
			if txt, err := lab.Text(ctx); err == nil && strings.TrimSpace(txt) != "" {
				return strings.TrimSpace(txt), nil
			}
		}
	}
	if parent, err := el.Parent(ctx); err == nil && parent != nil {
		if tag, err := parent.TagName(ctx); err == nil && strings.EqualFold(tag, "label") {
			if txt, err := parent.Text(ctx); err == nil {
				return strings.TrimSpace(txt), nil
			}
		}
	}
	return "", nil
}

// innerTextInput finds the literal text input a composite widget wraps:
// the one detection resolved, or the first visible non-hidden input or
// textarea under the control shell.
func innerTextInput(ctx context.Context, t *Target) dom.Element {
	if t.Detection != nil && t.Detection.Input != nil {
		return t.Detection.Input
	}
	scopes := []dom.Element{t.Element}
	if t.Detection != nil && t.Detection.Control != nil {
		scopes = []dom.Element{t.Detection.Control, t.Element}
	}
	for _, scope := range scopes {
		els, err := scope.QuerySelectorAll(ctx, "input, textarea")
		if err != nil {
			continue
		}
		for _, el := range els {
			if typ, _, err := el.Attr(ctx, "type"); err != nil || strings.EqualFold(typ, "hidden") {
				continue
			}
			if vis, err := el.IsVisible(ctx); err == nil && vis {
				return el
			}
		}
	}
	return nil
}

// -- Direct Input --

// directInput assigns through the conventional setter appropriate to the
// element's kind and announces the change. Assignment replaces the whole
// value, so leftovers from an earlier failed strategy are wiped, not
// appended to.
type directInput struct{ f *Filler }

func (s *directInput) Name() string { return StrategyDirectInput }

func (s *directInput) Execute(ctx context.Context, t *Target) (bool, error) {
	f := s.f
	if err := t.Element.Focus(ctx); err != nil {
		return false, err
	}
	recipient, err := f.assign(ctx, t)
	if err != nil {
		return false, err
	}
	if err := f.notify(ctx, recipient); err != nil {
		return false, err
	}
	if err := f.pause(ctx, f.cfg.Timing.Settle); err != nil {
		return false, err
	}
	return f.verified(ctx, t)
}

// -- Click Events --

// clickEvents wakes the widget with a real focus/click before assigning,
// for widgets that only wire their handlers on first interaction. Text
// fields get an explicit clear-and-announce first, so a controlled input
// re-renders to empty before the real value lands instead of merging the
// two writes.
type clickEvents struct{ f *Filler }

func (s *clickEvents) Name() string { return StrategyClickEvents }

func (s *clickEvents) Execute(ctx context.Context, t *Target) (bool, error) {
	f := s.f
	if err := t.Element.Focus(ctx); err != nil {
		return false, err
	}
	if err := t.Element.Click(ctx); err != nil {
		return false, err
	}
	if err := f.pause(ctx, f.cfg.Timing.PostClick); err != nil {
		return false, err
	}

	kind, err := controlKindOf(ctx, t.Element)
	if err != nil {
		return false, err
	}
	if kind == kindText {
		if err := t.Element.SetValue(ctx, ""); err != nil {
			return false, err
		}
		if err := t.Element.DispatchEvent(ctx, dom.EventInput); err != nil {
			return false, err
		}
	}

	recipient, err := f.assign(ctx, t)
	if err != nil {
		return false, err
	}
	if err := f.notify(ctx, recipient); err != nil {
		return false, err
	}
	if err := f.pause(ctx, f.cfg.Timing.Settle); err != nil {
		return false, err
	}
	return f.verified(ctx, t)
}

// -- Keyboard Simulation --

// keyboardSim types the value keystroke by keystroke, erasing any
// leftover text with backspaces first. Some frameworks only honor value
// changes accompanied by matching key events and reject bulk assignment
// outright; this is the strategy that satisfies them.
type keyboardSim struct{ f *Filler }

func (s *keyboardSim) Name() string { return StrategyKeyboard }

func (s *keyboardSim) Execute(ctx context.Context, t *Target) (bool, error) {
	f := s.f
	kind, err := controlKindOf(ctx, t.Element)
	if err != nil {
		return false, err
	}
	if kind != kindText {
		return false, dom.ErrNotSupported
	}
	if err := t.Element.Focus(ctx); err != nil {
		return false, err
	}
	current, err := t.Element.Value(ctx)
	if err != nil {
		return false, err
	}
	for range current {
		if err := f.typeKey(ctx, t.Element, dom.KeyBackspace); err != nil {
			return false, err
		}
	}
	for _, r := range t.Value {
		if err := f.typeKey(ctx, t.Element, string(r)); err != nil {
			return false, err
		}
	}
	if err := t.Element.DispatchEvent(ctx, dom.EventChange); err != nil {
		return false, err
	}
	if err := t.Element.Blur(ctx); err != nil {
		return false, err
	}
	if err := f.pause(ctx, f.cfg.Timing.Settle); err != nil {
		return false, err
	}
	return f.verified(ctx, t)
}

// -- DOM Manipulation --

// domManipulation writes through the underlying platform setter, past any
// framework interception of the conventional one. The framework's value
// tracker is left stale, so the following input event reads as a genuine
// external change instead of being deduplicated away.
type domManipulation struct{ f *Filler }

func (s *domManipulation) Name() string { return StrategyDOMManipulation }

func (s *domManipulation) Execute(ctx context.Context, t *Target) (bool, error) {
	f := s.f
	kind, err := controlKindOf(ctx, t.Element)
	if err != nil {
		return false, err
	}
	if kind != kindText {
		return false, dom.ErrNotSupported
	}
	if err := t.Element.Focus(ctx); err != nil {
		return false, err
	}
	if err := t.Element.SetValueNative(ctx, t.Value); err != nil {
		return false, err
	}
	if err := f.notify(ctx, t.Element); err != nil {
		return false, err
	}
	if err := f.pause(ctx, f.cfg.Timing.Settle); err != nil {
		return false, err
	}
	return f.verified(ctx, t)
}

// -- Component Fallback --

// componentFallback digs inside a composite widget for the literal input
// it wraps and types the value there, committing with Enter. When no
// input is rendered yet, clicking the control shell first sometimes
// mounts one.
type componentFallback struct{ f *Filler }

func (s *componentFallback) Name() string { return StrategyComponent }

func (s *componentFallback) Execute(ctx context.Context, t *Target) (bool, error) {
	f := s.f
	input := innerTextInput(ctx, t)
	if input == nil {
		shell := t.Element
		if t.Detection != nil && t.Detection.Control != nil {
			shell = t.Detection.Control
		}
		if err := shell.Click(ctx); err != nil {
			return false, err
		}
		if err := f.pause(ctx, f.cfg.Timing.PostClick); err != nil {
			return false, err
		}
		input = innerTextInput(ctx, t)
	}
	if input == nil {
		return false, fmt.Errorf("widget exposes no inner input: %w", dom.ErrNotSupported)
	}

	if err := input.Focus(ctx); err != nil {
		return false, err
	}
	_ = input.SetValueNative(ctx, "")
	for _, r := range t.Value {
		if err := f.typeKey(ctx, input, string(r)); err != nil {
			return false, err
		}
	}
	if err := f.pause(ctx, f.cfg.Timing.Settle); err != nil {
		return false, err
	}
	if err := input.SendKeys(ctx, dom.KeyEnter); err != nil {
		return false, err
	}
	if err := f.pause(ctx, f.cfg.Timing.PostClick); err != nil {
		return false, err
	}
	return f.verified(ctx, t)
}

// -- Standard HTML Fallback --

// htmlFallback is the last, maximally conservative attempt: treat the
// element strictly by its tag semantics and ignore whatever the detector
// thought it was.
type htmlFallback struct{ f *Filler }

func (s *htmlFallback) Name() string { return StrategyHTMLFallback }

func (s *htmlFallback) Execute(ctx context.Context, t *Target) (bool, error) {
	f := s.f
	kind, err := controlKindOf(ctx, t.Element)
	if err != nil {
		return false, err
	}
	switch kind {
	case kindSelect:
		if err := t.Element.SelectOption(ctx, t.Value); err != nil {
			return false, err
		}
		if err := t.Element.DispatchEvent(ctx, dom.EventChange); err != nil {
			return false, err
		}
	case kindCheckbox:
		if err := t.Element.SetChecked(ctx, parseAffirmative(t.Value)); err != nil {
			return false, err
		}
		if err := t.Element.DispatchEvent(ctx, dom.EventChange); err != nil {
			return false, err
		}
	case kindRadio:
		recipient, err := f.checkRadio(ctx, t)
		if err != nil {
			return false, err
		}
		if err := recipient.DispatchEvent(ctx, dom.EventChange); err != nil {
			return false, err
		}
	case kindText:
		if err := t.Element.SetValue(ctx, t.Value); err != nil {
			return false, err
		}
		if err := t.Element.DispatchEvent(ctx, dom.EventChange); err != nil {
			return false, err
		}
	case kindEditable:
		if err := t.Element.SetText(ctx, t.Value); err != nil {
			return false, err
		}
		if err := t.Element.DispatchEvent(ctx, dom.EventInput); err != nil {
			return false, err
		}
	default:
		return false, dom.ErrNotSupported
	}
	if err := f.pause(ctx, f.cfg.Timing.Settle); err != nil {
		return false, err
	}
	return f.verified(ctx, t)
}
