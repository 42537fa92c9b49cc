// internal/fill/dropdown.go
package fill

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

// errNoQualifyingOption marks a dropdown that opened fine but contains no
// applicable choice. The caller reports it as a skip, not a failure: a
// mandatory list that simply lacks "Prefer not to say" is a fact about
// the form, not a bug in the fill.
var errNoQualifyingOption = errors.New("fill: no dropdown option qualified")

// optionSelector matches rendered popup options across the component
// libraries the detector recognizes: explicit option roles plus the
// option class fragments react-select, select2, vue-select and friends
// generate.
const optionSelector = "[role=option], [class*=option]"

// fillDropdown drives a synthetic select widget through its popup: open,
// enumerate, score, click, verify. It is the highest-variance interaction
// in the system, so every step checks resulting state instead of trusting
// the widget.
func (f *Filler) fillDropdown(ctx context.Context, t *Target) (bool, error) {
	control := t.Element
	if t.Detection != nil && t.Detection.Control != nil {
		control = t.Detection.Control
	}

	if err := control.Click(ctx); err != nil {
		return false, err
	}
	if err := f.pause(ctx, f.cfg.Timing.PostOpen); err != nil {
		return false, err
	}

	options, err := f.visibleOptions(ctx)
	if err != nil {
		return false, err
	}
	if len(options) == 0 {
		f.closePopup(ctx, t, control)
		return false, errNoQualifyingOption
	}

	var best dom.Element
	bestText, bestScore := "", 0
	for _, opt := range options {
		txt, err := opt.Text(ctx)
		if err != nil {
			continue
		}
		txt = strings.TrimSpace(txt)
		if txt == "" {
			continue
		}
		if sc := f.scorer.score(t.Value, txt); sc > bestScore {
			best, bestText, bestScore = opt, txt, sc
		}
	}
	if best == nil || !f.scorer.qualifies(bestScore) {
		f.log.Debug("no dropdown option qualified",
			zap.String("value", t.Value),
			zap.Int("candidates", len(options)),
			zap.Int("bestScore", bestScore))
		f.closePopup(ctx, t, control)
		return false, errNoQualifyingOption
	}

	f.log.Debug("selecting dropdown option",
		zap.String("value", t.Value),
		zap.String("option", bestText),
		zap.Int("score", bestScore))
	if err := best.Click(ctx); err != nil {
		return false, err
	}
	if err := f.pause(ctx, f.cfg.Timing.PostClick); err != nil {
		return false, err
	}

	if ok, err := f.dropdownVerified(ctx, t, bestText); err != nil || ok {
		return ok, err
	}

	// Secondary path for widgets whose option nodes are inert to clicks:
	// type the value into the widget's own input and commit with Enter.
	if ok, err := f.typeAndCommit(ctx, t); err != nil || ok {
		return ok, err
	}
	return false, fmt.Errorf("dropdown selection of %q did not verify", bestText)
}

// visibleOptions enumerates the currently rendered popup options. The
// query runs document-wide on purpose: several libraries portal the
// popup to the end of <body>, outside the widget's subtree.
func (f *Filler) visibleOptions(ctx context.Context) ([]dom.Element, error) {
	candidates, err := f.doc.QuerySelectorAll(ctx, optionSelector)
	if err != nil {
		return nil, err
	}
	limit := f.cfg.MaxOptions
	if limit <= 0 {
		limit = len(candidates)
	}
	var out []dom.Element
	for _, c := range candidates {
		if len(out) >= limit {
			break
		}
		if vis, err := c.IsVisible(ctx); err == nil && vis {
			out = append(out, c)
		}
	}
	return out, nil
}

// dropdownVerified confirms a selection took effect: the popup closed on
// its own, or the widget now displays the chosen option's text or the
// requested value.
func (f *Filler) dropdownVerified(ctx context.Context, t *Target, optionText string) (bool, error) {
	remaining, err := f.visibleOptions(ctx)
	if err == nil && len(remaining) == 0 {
		return true, nil
	}
	if f.widgetShows(ctx, t, optionText) || f.widgetShows(ctx, t, t.Value) {
		return true, nil
	}
	return false, nil
}

// typeAndCommit types the value into the widget's internal text input and
// presses Enter, letting the widget's own filter-and-commit machinery
// make the selection.
func (f *Filler) typeAndCommit(ctx context.Context, t *Target) (bool, error) {
	input := innerTextInput(ctx, t)
	if input == nil {
		return false, nil
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
	return f.dropdownVerified(ctx, t, t.Value)
}

// closePopup abandons an open popup without selecting anything: Escape
// through the widget's input when it has one, then a second toggle click
// if options are still showing.
func (f *Filler) closePopup(ctx context.Context, t *Target, control dom.Element) {
	if input := innerTextInput(ctx, t); input != nil {
		_ = input.SendKeys(ctx, dom.KeyEscape)
	}
	if opts, err := f.visibleOptions(ctx); err == nil && len(opts) > 0 {
		_ = control.Click(ctx)
	}
}
