// internal/dom/dom.go

// Package dom defines the narrow capability surface the detection and fill
// logic runs against. Two implementations exist: memdom, an in-memory
// document used by the scanner on static HTML and by tests, and the browser
// package, which drives a live Chrome tab over CDP. Engine code never
// touches a concrete DOM technology directly.
package dom

import (
	"context"
	"errors"
)

var (
	// ErrStaleElement indicates an element reference that no longer resolves,
	// usually because the page re-rendered underneath us.
	ErrStaleElement = errors.New("dom: stale element reference")
	// ErrNotSupported indicates an operation that does not apply to the
	// element's kind, e.g. selecting an option on a text input.
	ErrNotSupported = errors.New("dom: operation not supported by element")
)

// Standard event names dispatched during fills. Frameworks frequently bind
// to synthetic event systems fed by these natives.
const (
	EventInput   = "input"
	EventChange  = "change"
	EventBlur    = "blur"
	EventFocus   = "focus"
	EventClick   = "click"
	EventKeyDown = "keydown"
	EventKeyUp   = "keyup"
)

// Control characters recognized by SendKeys. Any other rune types literally.
const (
	KeyEnter     = "\r"
	KeyTab       = "\t"
	KeyBackspace = "\b"
	KeyEscape    = "\x1b"
)

// OptionInfo describes one entry of a native select.
type OptionInfo struct {
	Value    string
	Label    string
	Selected bool
}

// Element is a handle to a single live DOM node. Handles may go stale when
// the page mutates; operations on a stale handle return ErrStaleElement.
//
// Lookup methods return a nil Element (and nil error) when nothing matches;
// errors are reserved for transport and staleness failures.
type Element interface {
	// Selector returns a re-locatable reference to this element, valid at
	// the moment the handle was created. It requires no page round-trip.
	Selector() string

	TagName(ctx context.Context) (string, error)
	// Attr returns the attribute value and whether the attribute is present.
	Attr(ctx context.Context, name string) (string, bool, error)
	ClassList(ctx context.Context) ([]string, error)
	Parent(ctx context.Context) (Element, error)
	QuerySelector(ctx context.Context, selector string) (Element, error)
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)

	Value(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
	Checked(ctx context.Context) (bool, error)
	IsVisible(ctx context.Context) (bool, error)
	Options(ctx context.Context) ([]OptionInfo, error)

	SetAttr(ctx context.Context, name, value string) error
	RemoveAttr(ctx context.Context, name string) error
	// SetValue assigns through the conventional value setter, the one a
	// framework may have intercepted.
	SetValue(ctx context.Context, value string) error
	// SetValueNative assigns through the underlying platform setter,
	// bypassing any framework interception of the conventional one.
	SetValueNative(ctx context.Context, value string) error
	SetChecked(ctx context.Context, checked bool) error
	// SetText replaces the element's text content; used for
	// content-editable regions.
	SetText(ctx context.Context, text string) error
	// SelectOption marks the native select option matching the given value
	// or label. ErrNotSupported on non-select elements.
	SelectOption(ctx context.Context, value string) error

	Click(ctx context.Context) error
	Focus(ctx context.Context) error
	Blur(ctx context.Context) error
	// SendKeys types text character by character: keydown, incremental
	// value mutation, input, keyup per character.
	SendKeys(ctx context.Context, text string) error
	DispatchEvent(ctx context.Context, eventType string) error
}

// Document is a handle to one loaded page.
type Document interface {
	QuerySelector(ctx context.Context, selector string) (Element, error)
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
	ActiveElement(ctx context.Context) (Element, error)
	Title(ctx context.Context) (string, error)
	URL() string
}
