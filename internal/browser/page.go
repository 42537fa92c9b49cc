// internal/browser/page.go

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/dom"
)

// describeJS builds a durable selector for a node, mirroring the memdom
// cascade: an explicit data-fp-id wins, then a clean id, then a generated
// data-fp-ref tag written onto the node on first use.
const describeJS = `function describe(el) {
	const fid = el.getAttribute('data-fp-id');
	if (fid) { return '[data-fp-id=' + JSON.stringify(fid) + ']'; }
	const id = el.getAttribute('id');
	if (id && /^[a-z0-9_:-]+$/.test(id.toLowerCase())) { return '#' + id; }
	let ref = el.getAttribute('data-fp-ref');
	if (!ref) {
		window.__fpRef = (window.__fpRef || 0) + 1;
		ref = 'e' + window.__fpRef;
		el.setAttribute('data-fp-ref', ref);
	}
	return '[data-fp-ref=' + JSON.stringify(ref) + ']';
}`

// Page is one live tab, exposed to the engine as a dom.Document.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
	cfg    config.BrowserConfig
	log    *zap.Logger
}

var _ dom.Document = (*Page)(nil)

func newPage(ctx context.Context, cancel context.CancelFunc, url string, cfg config.BrowserConfig, log *zap.Logger) *Page {
	return &Page{ctx: ctx, cancel: cancel, url: url, cfg: cfg, log: log.Named("page")}
}

// close tears down the tab. Handed to the engine as the document closer.
func (p *Page) close() error {
	p.cancel()
	return nil
}

// opContext caps a single CDP operation at the configured timeout.
func (p *Page) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := p.cfg.OperationTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// runActions executes chromedp actions against this tab while honoring the
// caller's deadline. chromedp resolves its target from context values, so
// the combined context must inherit from the tab side.
func (p *Page) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// evaluate runs script in the page and decodes its JSON value into out.
// Promises are awaited, so async page code can be driven with the same call.
func (p *Page) evaluate(ctx context.Context, script string, out interface{}) error {
	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	action := chromedp.Evaluate(script, out, func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
		return params.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	})
	if err := p.runActions(opCtx, action); err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("script evaluation timed out: %w", err)
		}
		return err
	}
	return nil
}

// evalResult is the envelope element scripts reply with. Exactly one of
// stale, ns, or v is meaningful.
type evalResult struct {
	Stale bool            `json:"stale"`
	NS    bool            `json:"ns"`
	V     json.RawMessage `json:"v"`
}

// evalOn resolves the element behind selector and applies fn to it. fn
// receives (el, ...args) and returns {v: result} or {ns: true}; a selector
// that no longer matches anything reports {stale: true}. A null v leaves
// out untouched, so pointer targets stay nil for absent values.
func (p *Page) evalOn(ctx context.Context, selector, fn string, out interface{}, args ...interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	script := fmt.Sprintf(`(function(sel, args) {
	const el = document.querySelector(sel);
	if (!el) { return { stale: true }; }
	return (%s)(el, ...args);
})(%s, %s)`, fn, jsonEncode(selector), jsonEncode(args))

	var res evalResult
	if err := p.evaluate(ctx, script, &res); err != nil {
		return translateCDPError(err)
	}
	switch {
	case res.Stale:
		return fmt.Errorf("%s: %w", selector, dom.ErrStaleElement)
	case res.NS:
		return dom.ErrNotSupported
	}
	if out == nil || len(res.V) == 0 || string(res.V) == "null" {
		return nil
	}
	if err := json.Unmarshal(res.V, out); err != nil {
		return fmt.Errorf("decoding script result: %w", err)
	}
	return nil
}

func (p *Page) QuerySelector(ctx context.Context, selector string) (dom.Element, error) {
	els, err := p.QuerySelectorAll(ctx, selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

func (p *Page) QuerySelectorAll(ctx context.Context, selector string) ([]dom.Element, error) {
	script := fmt.Sprintf(`(function(sel) {
	%s
	return Array.from(document.querySelectorAll(sel)).map(describe);
})(%s)`, describeJS, jsonEncode(selector))

	var selectors []string
	if err := p.evaluate(ctx, script, &selectors); err != nil {
		return nil, translateCDPError(err)
	}
	if len(selectors) == 0 {
		return nil, nil
	}
	els := make([]dom.Element, len(selectors))
	for i, sel := range selectors {
		els[i] = &Element{page: p, selector: sel}
	}
	return els, nil
}

func (p *Page) ActiveElement(ctx context.Context) (dom.Element, error) {
	script := fmt.Sprintf(`(function() {
	%s
	const el = document.activeElement;
	if (!el || el === document.body || el === document.documentElement) { return null; }
	return describe(el);
})()`, describeJS)

	var raw json.RawMessage
	if err := p.evaluate(ctx, script, &raw); err != nil {
		return nil, translateCDPError(err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var sel string
	if err := json.Unmarshal(raw, &sel); err != nil {
		return nil, fmt.Errorf("decoding active element: %w", err)
	}
	return &Element{page: p, selector: sel}, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.evaluate(ctx, "document.title", &title); err != nil {
		return "", translateCDPError(err)
	}
	return title, nil
}

// URL reports the address the page resolved to after navigation.
func (p *Page) URL() string {
	return p.url
}

// jsonEncode marshals v for injection into a script as a literal. Values
// that cannot marshal become null, which the scripts treat as absent.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// translateCDPError maps protocol-level failures onto the dom sentinels.
// Chrome reports vanished backend nodes with "Could not find node" or a
// bare -32000 code depending on the command.
func translateCDPError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "Could not find node") || strings.Contains(msg, "-32000") {
		return fmt.Errorf("%v: %w", err, dom.ErrStaleElement)
	}
	return err
}
