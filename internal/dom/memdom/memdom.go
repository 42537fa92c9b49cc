// internal/dom/memdom/memdom.go

// Package memdom implements the dom interfaces over an in-memory
// golang.org/x/net/html tree. The scanner uses it for static HTML targets;
// tests use it to emulate the hostile widget behaviors the interaction
// chain exists to defeat (framework-intercepted value setters, lazily
// initialized widgets, keystroke-gated inputs, synthetic dropdown popups).
//
// Operations are synchronous and never block; only SendKeys observes
// context cancellation between keystrokes. Queries are CSS-subset selectors
// compiled to XPath and evaluated with htmlquery.
package memdom

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

// Event is delivered to listeners registered with Document.On. Input events
// produced by per-character typing carry FromKeyboard; scripted page
// behaviors use that to model frameworks that only honor value changes
// accompanied by key events.
type Event struct {
	Type         string
	Target       *Element
	Key          string
	FromKeyboard bool
}

// Listener handles one dispatched event.
type Listener func(*Event)

// nodeState holds the dynamic DOM properties html.Node cannot express.
// Values live here, not in attributes, mirroring the property/attribute
// split of a real DOM.
type nodeState struct {
	value       string
	valueInit   bool
	checked     bool
	checkedInit bool
	// tracker is the last value written through the conventional setter.
	// Behaviors emulating controlled inputs compare against it to suppress
	// non-native updates, the way framework value trackers do.
	tracker    string
	trackerSet bool
}

// Document is an in-memory page.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	url       string
	active    *html.Node
	nextRef   int
	states    map[*html.Node]*nodeState
	listeners map[*html.Node]map[string][]Listener
}

// Parse builds a Document from raw HTML.
func Parse(content, url string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{
		root:      root,
		url:       url,
		states:    make(map[*html.Node]*nodeState),
		listeners: make(map[*html.Node]map[string][]Listener),
	}, nil
}

// URL returns the document location given at parse time.
func (d *Document) URL() string { return d.url }

// Title returns the text of the first <title>.
func (d *Document) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	node := htmlquery.FindOne(d.root, "//title")
	if node == nil {
		return "", nil
	}
	return htmlquery.InnerText(node), nil
}

// QuerySelector returns the first match, or nil when nothing matches.
func (d *Document) QuerySelector(ctx context.Context, selector string) (dom.Element, error) {
	els, err := d.QuerySelectorAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

// QuerySelectorAll returns all matches in document order.
func (d *Document) QuerySelectorAll(ctx context.Context, selector string) ([]dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := d.queryNodes(d.root, selector)
	if err != nil {
		return nil, err
	}
	return d.wrapAll(nodes), nil
}

// ActiveElement returns the currently focused element, or nil.
func (d *Document) ActiveElement(ctx context.Context) (dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil, nil
	}
	return d.wrap(d.active), nil
}

// On registers a listener for events of the given type on el. Listeners run
// synchronously during dispatch, target first, then up the ancestor chain
// for bubbling event types.
func (d *Document) On(el dom.Element, eventType string, fn Listener) {
	me, ok := el.(*Element)
	if !ok || me == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	byType := d.listeners[me.node]
	if byType == nil {
		byType = make(map[string][]Listener)
		d.listeners[me.node] = byType
	}
	byType[eventType] = append(byType[eventType], fn)
}

// -- internals --

func (d *Document) queryNodes(scope *html.Node, selector string) ([]*html.Node, error) {
	expr, err := compileSelector(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	nodes, err := htmlquery.QueryAll(scope, expr)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", selector, err)
	}
	return docOrder(scope, nodes), nil
}

// docOrder normalizes a match set into document order with duplicates
// removed. htmlquery evaluates union expressions branch by branch, so a
// union like "input, select" would otherwise come back grouped by branch.
func docOrder(scope *html.Node, nodes []*html.Node) []*html.Node {
	if len(nodes) < 2 {
		return nodes
	}
	want := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		want[n] = true
	}
	ordered := make([]*html.Node, 0, len(nodes))
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if want[n] {
			delete(want, n)
			ordered = append(ordered, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(scope)
	return ordered
}

func (d *Document) wrap(node *html.Node) *Element {
	return &Element{doc: d, node: node}
}

func (d *Document) wrapAll(nodes []*html.Node) []dom.Element {
	els := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, d.wrap(n))
	}
	return els
}

func (d *Document) stateOf(node *html.Node) *nodeState {
	st := d.states[node]
	if st == nil {
		st = &nodeState{}
		d.states[node] = st
	}
	return st
}

// bubbling event types; blur and focus fire on the target only.
func bubbles(eventType string) bool {
	return eventType != dom.EventBlur && eventType != dom.EventFocus
}

// dispatch delivers ev to listeners while d.mu is NOT held; listeners
// re-enter the document through the public API.
func (d *Document) dispatch(ev *Event) {
	d.mu.Lock()
	var chain []*html.Node
	for n := ev.Target.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			chain = append(chain, n)
		}
		if !bubbles(ev.Type) {
			break
		}
	}
	var fns []Listener
	for _, n := range chain {
		fns = append(fns, d.listeners[n][ev.Type]...)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// attached reports whether node is still reachable from the document root.
func (d *Document) attached(node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// detach removes node from the tree; subsequent operations on handles to it
// return dom.ErrStaleElement. Used by scripted behaviors that unmount parts
// of the page.
func (d *Document) detach(node *html.Node) {
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
}

// Render serializes the current tree, mostly for debugging assertions.
func (d *Document) Render() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if err := html.Render(&b, d.root); err != nil {
		return "", err
	}
	return b.String(), nil
}
