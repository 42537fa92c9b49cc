// internal/browser/element.go

package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

// Element is a selector-addressed handle to one node in a Page. Reads and
// property writes evaluate scripts; pointer and keyboard interaction goes
// through chromedp's input actions so the page sees real events.
type Element struct {
	page     *Page
	selector string
}

var _ dom.Element = (*Element)(nil)

func (e *Element) Selector() string {
	return e.selector
}

// eval applies fn to this element inside the page. See Page.evalOn.
func (e *Element) eval(ctx context.Context, fn string, out interface{}, args ...interface{}) error {
	return e.page.evalOn(ctx, e.selector, fn, out, args...)
}

// ensureAttached verifies the selector still resolves before an action-based
// op. chromedp's query actions would otherwise block on a vanished node
// until the operation timeout instead of reporting staleness.
func (e *Element) ensureAttached(ctx context.Context) error {
	return e.eval(ctx, `(el) => ({ v: true })`, nil)
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	var tag string
	err := e.eval(ctx, `(el) => ({ v: el.tagName.toLowerCase() })`, &tag)
	return tag, err
}

func (e *Element) Attr(ctx context.Context, name string) (string, bool, error) {
	var val *string
	err := e.eval(ctx, `(el, name) => ({ v: el.getAttribute(name) })`, &val, name)
	if err != nil || val == nil {
		return "", false, err
	}
	return *val, true, nil
}

func (e *Element) ClassList(ctx context.Context) ([]string, error) {
	var classes []string
	err := e.eval(ctx, `(el) => ({ v: Array.from(el.classList) })`, &classes)
	return classes, err
}

func (e *Element) Parent(ctx context.Context) (dom.Element, error) {
	var sel *string
	err := e.eval(ctx, `(el) => {
		`+describeJS+`
		const parent = el.parentElement;
		return { v: parent ? describe(parent) : null };
	}`, &sel)
	if err != nil || sel == nil {
		return nil, err
	}
	return &Element{page: e.page, selector: *sel}, nil
}

func (e *Element) QuerySelector(ctx context.Context, selector string) (dom.Element, error) {
	els, err := e.QuerySelectorAll(ctx, selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

func (e *Element) QuerySelectorAll(ctx context.Context, selector string) ([]dom.Element, error) {
	var selectors []string
	err := e.eval(ctx, `(el, sel) => {
		`+describeJS+`
		return { v: Array.from(el.querySelectorAll(sel)).map(describe) };
	}`, &selectors, selector)
	if err != nil {
		return nil, err
	}
	if len(selectors) == 0 {
		return nil, nil
	}
	els := make([]dom.Element, len(selectors))
	for i, sel := range selectors {
		els[i] = &Element{page: e.page, selector: sel}
	}
	return els, nil
}

func (e *Element) Value(ctx context.Context) (string, error) {
	var val string
	err := e.eval(ctx, `(el) => {
		const tag = el.tagName.toLowerCase();
		if (tag === 'input' || tag === 'textarea' || tag === 'select') {
			return { v: String(el.value ?? '') };
		}
		if (el.isContentEditable) { return { v: el.innerText ?? el.textContent ?? '' }; }
		return { ns: true };
	}`, &val)
	return val, err
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.eval(ctx, `(el) => ({ v: el.innerText ?? el.textContent ?? '' })`, &text)
	return text, err
}

func (e *Element) Checked(ctx context.Context) (bool, error) {
	var checked bool
	err := e.eval(ctx, `(el) => ({ v: !!el.checked })`, &checked)
	return checked, err
}

func (e *Element) IsVisible(ctx context.Context) (bool, error) {
	var visible bool
	err := e.eval(ctx, `(el) => {
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		return { v: rect.width > 0 && rect.height > 0 &&
			style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0' };
	}`, &visible)
	return visible, err
}

func (e *Element) Options(ctx context.Context) ([]dom.OptionInfo, error) {
	var options []dom.OptionInfo
	err := e.eval(ctx, `(el) => {
		if (el.tagName.toLowerCase() !== 'select') { return { ns: true }; }
		return { v: Array.from(el.options).map((o) => ({
			value: o.value,
			label: (o.label || o.text || '').trim(),
			selected: o.selected,
		})) };
	}`, &options)
	return options, err
}

func (e *Element) SetAttr(ctx context.Context, name, value string) error {
	return e.eval(ctx, `(el, name, value) => { el.setAttribute(name, value); return { v: true }; }`, nil, name, value)
}

func (e *Element) RemoveAttr(ctx context.Context, name string) error {
	return e.eval(ctx, `(el, name) => { el.removeAttribute(name); return { v: true }; }`, nil, name)
}

func (e *Element) SetValue(ctx context.Context, value string) error {
	return e.eval(ctx, `(el, value) => {
		const tag = el.tagName.toLowerCase();
		if (tag === 'input') {
			if ((el.getAttribute('type') || '').toLowerCase() === 'file') { return { ns: true }; }
			el.value = value;
			return { v: true };
		}
		if (tag === 'textarea') { el.value = value; return { v: true }; }
		if (tag === 'select') {
			for (const o of el.options) {
				if (o.value === value) { el.value = value; break; }
			}
			return { v: true };
		}
		return { ns: true };
	}`, nil, value)
}

func (e *Element) SetValueNative(ctx context.Context, value string) error {
	return e.eval(ctx, `(el, value) => {
		const tag = el.tagName.toLowerCase();
		let proto = null;
		if (tag === 'input') {
			if ((el.getAttribute('type') || '').toLowerCase() === 'file') { return { ns: true }; }
			proto = window.HTMLInputElement.prototype;
		} else if (tag === 'textarea') { proto = window.HTMLTextAreaElement.prototype; }
		else if (tag === 'select') { proto = window.HTMLSelectElement.prototype; }
		else { return { ns: true }; }
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
		return { v: true };
	}`, nil, value)
}

func (e *Element) SetChecked(ctx context.Context, checked bool) error {
	return e.eval(ctx, `(el, checked) => {
		const type = (el.getAttribute('type') || '').toLowerCase();
		if (el.tagName.toLowerCase() !== 'input' || (type !== 'checkbox' && type !== 'radio')) {
			return { ns: true };
		}
		el.checked = checked;
		return { v: true };
	}`, nil, checked)
}

func (e *Element) SetText(ctx context.Context, text string) error {
	return e.eval(ctx, `(el, text) => { el.textContent = text; return { v: true }; }`, nil, text)
}

func (e *Element) SelectOption(ctx context.Context, value string) error {
	var matched bool
	err := e.eval(ctx, `(el, value) => {
		if (el.tagName.toLowerCase() !== 'select') { return { ns: true }; }
		const want = value.trim().toLowerCase();
		for (const o of el.options) {
			const label = (o.label || o.text || '').trim().toLowerCase();
			if (o.value === value || label === want) {
				el.value = o.value;
				return { v: true };
			}
		}
		return { v: false };
	}`, &matched, value)
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("select has no option matching %q: %w", value, dom.ErrNotSupported)
	}
	return nil
}

func (e *Element) Click(ctx context.Context) error {
	visible, err := e.IsVisible(ctx)
	if err != nil {
		return err
	}
	if !visible {
		// Visually hidden controls, like sr-only checkboxes behind styled
		// labels, cannot take a pointer click. el.click() still runs the
		// activation behavior and fires the click event.
		return e.eval(ctx, `(el) => { el.click(); return { v: true }; }`, nil)
	}

	opCtx, cancel := e.page.opContext(ctx)
	defer cancel()
	err = e.page.runActions(opCtx,
		chromedp.ScrollIntoView(e.selector, chromedp.ByQuery),
		chromedp.WaitVisible(e.selector, chromedp.ByQuery),
		chromedp.Click(e.selector, chromedp.ByQuery),
	)
	if err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("click on %s timed out: %w", e.selector, err)
		}
		return translateCDPError(err)
	}
	return nil
}

func (e *Element) Focus(ctx context.Context) error {
	if err := e.ensureAttached(ctx); err != nil {
		return err
	}
	opCtx, cancel := e.page.opContext(ctx)
	defer cancel()
	if err := e.page.runActions(opCtx, chromedp.Focus(e.selector, chromedp.ByQuery)); err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("focus on %s timed out: %w", e.selector, err)
		}
		// DOM.focus refuses unfocusable targets; the JS path is lenient.
		return e.eval(ctx, `(el) => { el.focus(); return { v: true }; }`, nil)
	}
	return nil
}

func (e *Element) Blur(ctx context.Context) error {
	if err := e.ensureAttached(ctx); err != nil {
		return err
	}
	opCtx, cancel := e.page.opContext(ctx)
	defer cancel()
	if err := e.page.runActions(opCtx, chromedp.Blur(e.selector, chromedp.ByQuery)); err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("blur on %s timed out: %w", e.selector, err)
		}
		return translateCDPError(err)
	}
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := e.ensureAttached(ctx); err != nil {
		return err
	}
	opCtx, cancel := e.page.opContext(ctx)
	defer cancel()
	err := e.page.runActions(opCtx,
		chromedp.ScrollIntoView(e.selector, chromedp.ByQuery),
		chromedp.WaitVisible(e.selector, chromedp.ByQuery),
		chromedp.SendKeys(e.selector, text, chromedp.ByQuery),
	)
	if err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("typing into %s timed out: %w", e.selector, err)
		}
		return translateCDPError(err)
	}
	return nil
}

func (e *Element) DispatchEvent(ctx context.Context, eventType string) error {
	return e.eval(ctx, `(el, type) => {
		const bubbles = type !== 'focus' && type !== 'blur';
		let ev;
		if (type === 'click') { ev = new MouseEvent(type, { bubbles: bubbles, cancelable: true, view: window }); }
		else if (type === 'keydown' || type === 'keyup') { ev = new KeyboardEvent(type, { bubbles: bubbles, cancelable: true }); }
		else if (type === 'input') { ev = new InputEvent(type, { bubbles: bubbles }); }
		else { ev = new Event(type, { bubbles: bubbles }); }
		el.dispatchEvent(ev);
		return { v: true };
	}`, nil, eventType)
}
