// internal/dom/memdom/element.go
package memdom

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

// Element is a handle to one node of a Document.
type Element struct {
	doc  *Document
	node *html.Node

	selOnce string // cached Selector() result
}

var _ dom.Element = (*Element)(nil)

// Selector returns a reference that re-resolves to this node. Elements
// carrying data-fp-id or id are addressed through those; anything else gets
// tagged with a generated data-fp-ref on first use, the same trick the
// browser binding plays to keep handles re-locatable.
func (e *Element) Selector() string {
	if e.selOnce != "" {
		return e.selOnce
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if v, ok := nodeAttr(e.node, "data-fp-id"); ok {
		e.selOnce = fmt.Sprintf("[data-fp-id=%q]", v)
	} else if v, ok := nodeAttr(e.node, "id"); ok && isName(strings.ToLower(v)) {
		e.selOnce = "#" + v
	} else {
		ref, ok := nodeAttr(e.node, "data-fp-ref")
		if !ok {
			e.doc.nextRef++
			ref = fmt.Sprintf("e%d", e.doc.nextRef)
			setNodeAttr(e.node, "data-fp-ref", ref)
		}
		e.selOnce = fmt.Sprintf("[data-fp-ref=%q]", ref)
	}
	return e.selOnce
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return "", dom.ErrStaleElement
	}
	return e.node.Data, nil
}

func (e *Element) Attr(ctx context.Context, name string) (string, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return "", false, dom.ErrStaleElement
	}
	v, ok := nodeAttr(e.node, strings.ToLower(name))
	return v, ok, nil
}

func (e *Element) ClassList(ctx context.Context) ([]string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return nil, dom.ErrStaleElement
	}
	raw, _ := nodeAttr(e.node, "class")
	return strings.Fields(raw), nil
}

func (e *Element) Parent(ctx context.Context) (dom.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return nil, dom.ErrStaleElement
	}
	for n := e.node.Parent; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			return e.doc.wrap(n), nil
		}
	}
	return nil, nil
}

func (e *Element) QuerySelector(ctx context.Context, selector string) (dom.Element, error) {
	els, err := e.QuerySelectorAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (e *Element) QuerySelectorAll(ctx context.Context, selector string) ([]dom.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return nil, dom.ErrStaleElement
	}
	nodes, err := e.doc.queryNodes(e.node, selector)
	if err != nil {
		return nil, err
	}
	return e.doc.wrapAll(nodes), nil
}

// -- state reads --

func (e *Element) Value(ctx context.Context) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return "", dom.ErrStaleElement
	}
	return e.doc.valueOf(e.node)
}

// Text returns the element's rendered text, like innerText: subtrees
// hidden by attribute or inline style contribute nothing. A widget's
// collapsed popup therefore does not leak its option labels into the
// control's display text.
func (e *Element) Text(ctx context.Context) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return "", dom.ErrStaleElement
	}
	return renderedText(e.node), nil
}

func (e *Element) Checked(ctx context.Context) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return false, dom.ErrStaleElement
	}
	st := e.doc.stateOf(e.node)
	if !st.checkedInit {
		_, st.checked = nodeAttr(e.node, "checked")
		st.checkedInit = true
	}
	return st.checked, nil
}

// IsVisible approximates rendering without a layout engine: an element is
// visible unless it or an ancestor is hidden by attribute, aria-hidden,
// inline display:none / visibility:hidden, or it is an input[type=hidden].
func (e *Element) IsVisible(ctx context.Context) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return false, dom.ErrStaleElement
	}
	if typ, _ := nodeAttr(e.node, "type"); e.node.Data == "input" && strings.EqualFold(typ, "hidden") {
		return false, nil
	}
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if hiddenInline(n) {
			return false, nil
		}
		if v, _ := nodeAttr(n, "aria-hidden"); v == "true" {
			return false, nil
		}
	}
	return true, nil
}

// hiddenInline reports whether the node removes itself from rendering via
// the hidden attribute or inline display/visibility styles.
func hiddenInline(n *html.Node) bool {
	if _, hidden := nodeAttr(n, "hidden"); hidden {
		return true
	}
	style, _ := nodeAttr(n, "style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// renderedText collects the text of every non-hidden descendant.
func renderedText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			if hiddenInline(n) {
				return
			}
			switch n.Data {
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}

func (e *Element) Options(ctx context.Context) ([]dom.OptionInfo, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return nil, dom.ErrStaleElement
	}
	if e.node.Data != "select" {
		return nil, dom.ErrNotSupported
	}
	selected, _ := e.doc.valueOf(e.node)
	var opts []dom.OptionInfo
	for _, n := range optionNodes(e.node) {
		value, label := optionValue(n)
		opts = append(opts, dom.OptionInfo{
			Value:    value,
			Label:    label,
			Selected: value == selected,
		})
	}
	return opts, nil
}

// -- mutations --

func (e *Element) SetAttr(ctx context.Context, name, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return dom.ErrStaleElement
	}
	setNodeAttr(e.node, strings.ToLower(name), value)
	return nil
}

func (e *Element) RemoveAttr(ctx context.Context, name string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return dom.ErrStaleElement
	}
	removeNodeAttr(e.node, strings.ToLower(name))
	return nil
}

// SetValue writes through the conventional setter and records the value in
// the element's tracker, which is what lets controlled-input behaviors
// detect and suppress non-native writes.
func (e *Element) SetValue(ctx context.Context, value string) error {
	return e.setValue(value, true)
}

// SetValueNative writes through the platform setter; the tracker is left
// untouched, so a following input event reads as a genuine change.
func (e *Element) SetValueNative(ctx context.Context, value string) error {
	return e.setValue(value, false)
}

func (e *Element) setValue(value string, viaTracker bool) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return dom.ErrStaleElement
	}
	switch e.node.Data {
	case "input":
		if typ, _ := nodeAttr(e.node, "type"); strings.EqualFold(typ, "file") {
			// Browsers forbid scripting file input values.
			return dom.ErrNotSupported
		}
		fallthrough
	case "textarea":
		st := e.doc.stateOf(e.node)
		st.value = value
		st.valueInit = true
		if viaTracker {
			st.tracker = value
			st.trackerSet = true
		}
		return nil
	case "select":
		// Assignment selects by option value; an unknown value leaves the
		// selection unchanged.
		return e.doc.selectByValue(e.node, value, false)
	default:
		return dom.ErrNotSupported
	}
}

func (e *Element) SetChecked(ctx context.Context, checked bool) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return dom.ErrStaleElement
	}
	typ, _ := nodeAttr(e.node, "type")
	if e.node.Data != "input" || (!strings.EqualFold(typ, "checkbox") && !strings.EqualFold(typ, "radio")) {
		return dom.ErrNotSupported
	}
	st := e.doc.stateOf(e.node)
	st.checked = checked
	st.checkedInit = true

	// Checking a radio unchecks the rest of its group.
	if checked && strings.EqualFold(typ, "radio") {
		if name, ok := nodeAttr(e.node, "name"); ok {
			peers, err := e.doc.queryNodes(e.doc.root, fmt.Sprintf("input[type=radio][name=%q]", name))
			if err == nil {
				for _, p := range peers {
					if p != e.node {
						ps := e.doc.stateOf(p)
						ps.checked = false
						ps.checkedInit = true
					}
				}
			}
		}
	}
	return nil
}

func (e *Element) SetText(ctx context.Context, text string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return dom.ErrStaleElement
	}
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

func (e *Element) SelectOption(ctx context.Context, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return dom.ErrStaleElement
	}
	if e.node.Data != "select" {
		return dom.ErrNotSupported
	}
	return e.doc.selectByValue(e.node, value, true)
}

func (e *Element) Click(ctx context.Context) error {
	e.doc.mu.Lock()
	if !e.doc.attached(e.node) {
		e.doc.mu.Unlock()
		return dom.ErrStaleElement
	}
	e.doc.mu.Unlock()
	e.doc.dispatch(&Event{Type: dom.EventClick, Target: e})
	return nil
}

func (e *Element) Focus(ctx context.Context) error {
	e.doc.mu.Lock()
	if !e.doc.attached(e.node) {
		e.doc.mu.Unlock()
		return dom.ErrStaleElement
	}
	e.doc.active = e.node
	e.doc.mu.Unlock()
	e.doc.dispatch(&Event{Type: dom.EventFocus, Target: e})
	return nil
}

func (e *Element) Blur(ctx context.Context) error {
	e.doc.mu.Lock()
	if !e.doc.attached(e.node) {
		e.doc.mu.Unlock()
		return dom.ErrStaleElement
	}
	if e.doc.active == e.node {
		e.doc.active = nil
	}
	e.doc.mu.Unlock()
	e.doc.dispatch(&Event{Type: dom.EventBlur, Target: e})
	return nil
}

// SendKeys types character by character: keydown, value mutation, input,
// keyup per rune. Control characters from the fill package map to named
// keys: \r Enter, \t Tab, \b Backspace, \x1b Escape. Named keys dispatch
// key events without mutating the value.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	for _, r := range text {
		if err := ctx.Err(); err != nil {
			return err
		}

		key, isControl := controlKeyName(r)
		e.doc.dispatch(&Event{Type: dom.EventKeyDown, Target: e, Key: key})

		switch {
		case isControl && key == "Backspace":
			if err := e.mutateKeystroke(func(v string) string {
				runes := []rune(v)
				if len(runes) == 0 {
					return v
				}
				return string(runes[:len(runes)-1])
			}); err != nil {
				return err
			}
			e.doc.dispatch(&Event{Type: dom.EventInput, Target: e, Key: key, FromKeyboard: true})
		case isControl:
			// Named keys carry no text.
		default:
			if err := e.mutateKeystroke(func(v string) string { return v + string(r) }); err != nil {
				return err
			}
			e.doc.dispatch(&Event{Type: dom.EventInput, Target: e, Key: key, FromKeyboard: true})
		}

		e.doc.dispatch(&Event{Type: dom.EventKeyUp, Target: e, Key: key})
	}
	return nil
}

// mutateKeystroke applies fn to the element's value the way real typing
// does: directly on the platform value, leaving the tracker alone.
func (e *Element) mutateKeystroke(fn func(string) string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return dom.ErrStaleElement
	}
	switch e.node.Data {
	case "input", "textarea":
		cur, err := e.doc.valueOf(e.node)
		if err != nil {
			return err
		}
		st := e.doc.stateOf(e.node)
		st.value = fn(cur)
		st.valueInit = true
		return nil
	default:
		// Typing into non-text elements dispatches key events only.
		return nil
	}
}

func (e *Element) DispatchEvent(ctx context.Context, eventType string) error {
	e.doc.mu.Lock()
	if !e.doc.attached(e.node) {
		e.doc.mu.Unlock()
		return dom.ErrStaleElement
	}
	e.doc.mu.Unlock()
	e.doc.dispatch(&Event{Type: eventType, Target: e})
	return nil
}

func controlKeyName(r rune) (string, bool) {
	switch r {
	case '\r', '\n':
		return "Enter", true
	case '\t':
		return "Tab", true
	case '\b':
		return "Backspace", true
	case '\x1b':
		return "Escape", true
	default:
		return string(r), false
	}
}

// -- document-side value helpers (called with d.mu held) --

func (d *Document) valueOf(node *html.Node) (string, error) {
	switch node.Data {
	case "input":
		st := d.stateOf(node)
		if !st.valueInit {
			st.value, _ = nodeAttr(node, "value")
			st.valueInit = true
		}
		return st.value, nil
	case "textarea":
		st := d.stateOf(node)
		if !st.valueInit {
			st.value = htmlquery.InnerText(node)
			st.valueInit = true
		}
		return st.value, nil
	case "select":
		for _, n := range optionNodes(node) {
			if _, ok := nodeAttr(n, "selected"); ok {
				v, _ := optionValue(n)
				return v, nil
			}
		}
		// No explicit selection: the first option is selected per HTML.
		if opts := optionNodes(node); len(opts) > 0 {
			v, _ := optionValue(opts[0])
			return v, nil
		}
		return "", nil
	default:
		if _, ok := nodeAttr(node, "contenteditable"); ok {
			return htmlquery.InnerText(node), nil
		}
		return "", dom.ErrNotSupported
	}
}

// selectByValue marks the option matching value. With matchLabel set, the
// option label is compared too (trimmed, case-insensitive), the way a user
// picking an entry would.
func (d *Document) selectByValue(node *html.Node, value string, matchLabel bool) error {
	var target *html.Node
	for _, n := range optionNodes(node) {
		v, label := optionValue(n)
		if v == value || (matchLabel && strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(value))) {
			target = n
			break
		}
	}
	if target == nil {
		if matchLabel {
			return fmt.Errorf("select has no option matching %q: %w", value, dom.ErrNotSupported)
		}
		return nil
	}
	for _, n := range optionNodes(node) {
		removeNodeAttr(n, "selected")
	}
	setNodeAttr(target, "selected", "selected")
	return nil
}

func optionNodes(selectNode *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "option" {
				out = append(out, c)
				continue
			}
			if c.Type == html.ElementNode && c.Data == "optgroup" {
				walk(c)
			}
		}
	}
	walk(selectNode)
	return out
}

func optionValue(option *html.Node) (value, label string) {
	label = strings.TrimSpace(htmlquery.InnerText(option))
	if v, ok := nodeAttr(option, "value"); ok {
		return v, label
	}
	return label, label
}

// -- raw node attribute helpers --

func nodeAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setNodeAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeNodeAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
