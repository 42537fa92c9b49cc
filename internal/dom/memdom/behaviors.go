// internal/dom/memdom/behaviors.go
package memdom

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

// Scripted page behaviors. Each Script* call wires listeners that make part
// of a parsed document behave like a framework-rendered widget: reverting
// writes it did not observe through its own machinery, mounting popups on
// demand, gating input behind initialization clicks. Fill strategy tests
// run against these to prove the chain escalates for the right reasons.

// ControlledInputScript tunes ScriptControlledInput.
type ControlledInputScript struct {
	// AcceptKeystrokes mirrors pages that honor synthetic key events. When
	// false, only writes through the platform setter take.
	AcceptKeystrokes bool
}

// ScriptControlledInput makes input behave like a framework-controlled text
// field: writes through the conventional setter are deduplicated against
// the value tracker and undone on the next event, and the framework's own
// state is re-rendered on blur. Writes through the platform setter, being
// invisible to the tracker, are accepted as genuine changes.
func ScriptControlledInput(d *Document, input dom.Element, opts ControlledInputScript) error {
	el, ok := input.(*Element)
	if !ok {
		return fmt.Errorf("memdom: element from another implementation")
	}
	ctx := context.Background()
	state, _ := el.Value(ctx)

	// The framework re-renders through its instrumented setter, which keeps
	// the tracker in sync; only outside writes leave it stale.
	rerender := func() { _ = el.SetValue(ctx, state) }

	d.On(input, dom.EventInput, func(ev *Event) {
		cur, err := el.Value(ctx)
		if err != nil {
			return
		}
		if ev.FromKeyboard {
			if opts.AcceptKeystrokes {
				state = cur
			} else {
				rerender()
			}
			return
		}
		if tracker, set := d.trackerOf(el); set && tracker == cur {
			// The tracker already saw this value, so the event is a phantom
			// and the framework restores its own state.
			rerender()
			return
		}
		state = cur
	})
	d.On(input, dom.EventBlur, func(*Event) { rerender() })
	return nil
}

// ScriptMaskedInput makes input accept keystroke-built values only, the way
// input-masking libraries reformat or discard wholesale assignments.
func ScriptMaskedInput(d *Document, input dom.Element) error {
	el, ok := input.(*Element)
	if !ok {
		return fmt.Errorf("memdom: element from another implementation")
	}
	ctx := context.Background()
	state, _ := el.Value(ctx)

	d.On(input, dom.EventInput, func(ev *Event) {
		cur, err := el.Value(ctx)
		if err != nil {
			return
		}
		if ev.FromKeyboard {
			state = cur
			return
		}
		_ = el.SetValueNative(ctx, state)
	})
	d.On(input, dom.EventBlur, func(*Event) {
		_ = el.SetValueNative(ctx, state)
	})
	return nil
}

// ScriptLazyInput makes input ignore value changes until it has been
// clicked once, like widgets that hydrate their event wiring on first
// interaction.
func ScriptLazyInput(d *Document, input dom.Element) error {
	el, ok := input.(*Element)
	if !ok {
		return fmt.Errorf("memdom: element from another implementation")
	}
	ctx := context.Background()
	pristine, _ := el.Value(ctx)
	ready := false

	d.On(input, dom.EventClick, func(*Event) { ready = true })
	d.On(input, dom.EventInput, func(ev *Event) {
		if !ready {
			_ = el.SetValueNative(ctx, pristine)
		}
	})
	return nil
}

// DropdownScript describes the moving parts of a synthetic select widget.
type DropdownScript struct {
	// Control is the clickable shell that toggles the popup.
	Control dom.Element
	// Input is the widget's internal text entry; optional.
	Input dom.Element
	// Menu is the popup containing the options.
	Menu dom.Element
	// Display is where the chosen label is rendered.
	Display dom.Element
	// OptionSelector locates option nodes inside Menu; defaults to
	// [role=option].
	OptionSelector string
	// MountLazily detaches the menu from the document until the widget
	// opens, like portal-rendered popups that do not exist in the tree
	// while closed.
	MountLazily bool
}

// DropdownState exposes the scripted widget's internal state to tests.
type DropdownState struct {
	Selected string
	Opens    int
}

// ScriptDropdown wires a synthetic select: clicking the control toggles the
// popup, clicking an option commits it to the display and closes, typing
// into the internal input filters options, Enter commits the first visible
// option, Escape closes.
func ScriptDropdown(d *Document, s DropdownScript) (*DropdownState, error) {
	if _, ok := s.Control.(*Element); !ok {
		return nil, fmt.Errorf("memdom: control from another implementation")
	}
	menu, ok := s.Menu.(*Element)
	if !ok {
		return nil, fmt.Errorf("memdom: menu from another implementation")
	}
	display, ok := s.Display.(*Element)
	if !ok {
		return nil, fmt.Errorf("memdom: display from another implementation")
	}
	if s.OptionSelector == "" {
		s.OptionSelector = "[role=option]"
	}

	ctx := context.Background()
	state := &DropdownState{}
	menuParent := menu.node.Parent
	open := false

	// Option labels are captured while everything is still rendered;
	// reading them later would find hidden options blank.
	labels := map[*html.Node]string{}
	if options, err := menu.QuerySelectorAll(ctx, s.OptionSelector); err == nil {
		for _, opt := range options {
			oe := opt.(*Element)
			if txt, err := oe.Text(ctx); err == nil {
				labels[oe.node] = strings.TrimSpace(txt)
			}
		}
	}
	labelOf := func(option *Element) string {
		if l, ok := labels[option.node]; ok {
			return l
		}
		txt, err := option.Text(ctx)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(txt)
	}

	hide := func(el *Element) { _ = el.SetAttr(ctx, "style", "display:none") }
	show := func(el *Element) { _ = el.RemoveAttr(ctx, "style") }

	openMenu := func() {
		if open {
			return
		}
		open = true
		state.Opens++
		if s.MountLazily {
			d.mu.Lock()
			if menu.node.Parent == nil {
				menuParent.AppendChild(menu.node)
			}
			d.mu.Unlock()
		}
		// Opening resets any filtering left over from the last session.
		if options, err := menu.QuerySelectorAll(ctx, s.OptionSelector); err == nil {
			for _, opt := range options {
				show(opt.(*Element))
			}
		}
		show(menu)
	}
	closeMenu := func() {
		if !open {
			return
		}
		open = false
		hide(menu)
		if s.MountLazily {
			d.mu.Lock()
			d.detach(menu.node)
			d.mu.Unlock()
		}
	}

	commit := func(option *Element) {
		label := labelOf(option)
		if label == "" {
			return
		}
		state.Selected = label
		_ = display.SetText(ctx, label)
		if s.Input != nil {
			_ = s.Input.SetValueNative(ctx, "")
		}
		closeMenu()
	}

	// One listener on the control covers clicks on the shell and, by
	// bubbling, on its descendants.
	d.On(s.Control, dom.EventClick, func(ev *Event) {
		// Clicks inside the menu are handled below, not by the toggle.
		if d.contains(menu.node, ev.Target.node) {
			return
		}
		if open {
			closeMenu()
		} else {
			openMenu()
		}
	})

	d.On(s.Menu, dom.EventClick, func(ev *Event) {
		options, err := menu.QuerySelectorAll(ctx, s.OptionSelector)
		if err != nil {
			return
		}
		for _, opt := range options {
			oe := opt.(*Element)
			if oe.node == ev.Target.node || d.contains(oe.node, ev.Target.node) {
				commit(oe)
				return
			}
		}
	})

	if s.Input != nil {
		d.On(s.Input, dom.EventInput, func(ev *Event) {
			if !ev.FromKeyboard {
				return
			}
			needle, err := s.Input.Value(ctx)
			if err != nil {
				return
			}
			needle = strings.ToLower(strings.TrimSpace(needle))
			options, err := menu.QuerySelectorAll(ctx, s.OptionSelector)
			if err != nil {
				return
			}
			for _, opt := range options {
				label := labelOf(opt.(*Element))
				if needle == "" || strings.Contains(strings.ToLower(label), needle) {
					show(opt.(*Element))
				} else {
					hide(opt.(*Element))
				}
			}
		})
		d.On(s.Input, dom.EventKeyDown, func(ev *Event) {
			switch ev.Key {
			case "Enter":
				options, err := menu.QuerySelectorAll(ctx, s.OptionSelector)
				if err != nil {
					return
				}
				for _, opt := range options {
					if vis, _ := opt.IsVisible(ctx); vis {
						commit(opt.(*Element))
						return
					}
				}
			case "Escape":
				closeMenu()
			}
		})
	}

	if !open {
		if s.MountLazily {
			d.mu.Lock()
			d.detach(menu.node)
			d.mu.Unlock()
		} else {
			hide(menu)
		}
	}
	return state, nil
}

// trackerOf reports the element's conventional-setter tracker.
func (d *Document) trackerOf(el *Element) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.stateOf(el.node)
	return st.tracker, st.trackerSet
}

// contains reports whether inner is a descendant of (or equal to) outer.
func (d *Document) contains(outer, inner *html.Node) bool {
	for n := inner; n != nil; n = n.Parent {
		if n == outer {
			return true
		}
	}
	return false
}
