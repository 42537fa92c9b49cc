// internal/browser/browser_test.go

package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/dom"
)

// fixturePage is a small application form exercising every element kind the
// binding handles: plain inputs, a tagged input, a select, a visually
// hidden checkbox, a textarea, and a content-editable region.
const fixturePage = `<!DOCTYPE html>
<html>
<head>
<title>Apply - FormPilot Test</title>
<style>.visually-hidden { position: absolute; width: 1px; height: 1px; opacity: 0; }</style>
</head>
<body>
  <form id="apply">
    <label for="first-name">First Name</label>
    <input id="first-name" name="first_name" type="text">

    <label for="email">Email</label>
    <input id="email" name="email" type="email" data-fp-id="email-field">

    <label for="country">Country</label>
    <select id="country" name="country">
      <option value="">Select...</option>
      <option value="us">United States</option>
      <option value="de">Germany</option>
    </select>

    <input id="remote" name="remote" type="checkbox" class="visually-hidden">

    <label for="cover">Cover Letter</label>
    <textarea id="cover" name="cover_letter"></textarea>

    <div id="pitch" contenteditable="true">initial pitch</div>

    <button id="addrow" type="button" onclick="this.textContent = 'clicked'">Add</button>
    <div class="anon-row"><span class="hint">We never share your email.</span></div>
  </form>
  <script>
    document.getElementById('email').addEventListener('input', () => {
      document.title = 'dirty';
    });
  </script>
</body>
</html>`

var (
	testBrowserOnce sync.Once
	testBrowser     *Browser
)

func TestMain(m *testing.M) {
	code := m.Run()
	if testBrowser != nil {
		_ = testBrowser.Close()
	}
	os.Exit(code)
}

// requireChrome skips the test when no Chrome-family binary is installed.
func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no chrome binary on PATH; skipping browser integration test")
}

// sharedBrowser lazily starts one headless Chrome for the whole package.
// TestMain shuts it down after the run.
func sharedBrowser(t *testing.T) *Browser {
	t.Helper()
	requireChrome(t)
	testBrowserOnce.Do(func() {
		testBrowser = New(config.BrowserConfig{
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
			OperationTimeout:  10 * time.Second,
		}, zap.NewNop())
	})
	return testBrowser
}

// newTestPage serves html from a local server and opens it in a fresh tab.
func newTestPage(t *testing.T, html string) dom.Document {
	t.Helper()
	b := sharedBrowser(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)

	doc, closer, err := b.Open(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })
	return doc
}

func mustQuery(t *testing.T, doc dom.Document, selector string) dom.Element {
	t.Helper()
	el, err := doc.QuerySelector(context.Background(), selector)
	require.NoError(t, err)
	require.NotNil(t, el, "selector %s matched nothing", selector)
	return el
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("should load the page and report title and url", func(t *testing.T) {
		doc := newTestPage(t, fixturePage)

		title, err := doc.Title(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Apply - FormPilot Test", title)
		assert.Contains(t, doc.URL(), "http://127.0.0.1")
	})

	t.Run("should fail fast on an unreachable target", func(t *testing.T) {
		b := sharedBrowser(t)
		_, _, err := b.Open(ctx, "http://127.0.0.1:1/")
		require.Error(t, err)
	})
}

func TestDocumentQueries(t *testing.T) {
	ctx := context.Background()
	doc := newTestPage(t, fixturePage)

	t.Run("should find single elements and miss cleanly", func(t *testing.T) {
		el := mustQuery(t, doc, "#first-name")
		tag, err := el.TagName(ctx)
		require.NoError(t, err)
		assert.Equal(t, "input", tag)

		missing, err := doc.QuerySelector(ctx, ".does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("should enumerate all matches", func(t *testing.T) {
		els, err := doc.QuerySelectorAll(ctx, "input")
		require.NoError(t, err)
		assert.Len(t, els, 3)
	})

	t.Run("should scope queries under an element", func(t *testing.T) {
		form := mustQuery(t, doc, "#apply")
		els, err := form.QuerySelectorAll(ctx, "input")
		require.NoError(t, err)
		assert.Len(t, els, 3)

		hint, err := form.QuerySelector(ctx, ".hint")
		require.NoError(t, err)
		require.NotNil(t, hint)
		text, err := hint.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "We never share your email.", text)
	})
}

func TestSelectorCascade(t *testing.T) {
	ctx := context.Background()
	doc := newTestPage(t, fixturePage)

	t.Run("should prefer an explicit data-fp-id", func(t *testing.T) {
		el := mustQuery(t, doc, "#email")
		assert.Equal(t, `[data-fp-id="email-field"]`, el.Selector())
	})

	t.Run("should use a clean id", func(t *testing.T) {
		el := mustQuery(t, doc, "input[name=first_name]")
		assert.Equal(t, "#first-name", el.Selector())
	})

	t.Run("should tag anonymous elements and resolve the tag back", func(t *testing.T) {
		el := mustQuery(t, doc, ".hint")
		ref := el.Selector()
		assert.Contains(t, ref, "data-fp-ref")

		again := mustQuery(t, doc, ref)
		tag, err := again.TagName(ctx)
		require.NoError(t, err)
		assert.Equal(t, "span", tag)
	})
}

func TestElementReads(t *testing.T) {
	ctx := context.Background()
	doc := newTestPage(t, fixturePage)

	t.Run("should read attributes and report absence", func(t *testing.T) {
		el := mustQuery(t, doc, "#email")
		v, ok, err := el.Attr(ctx, "name")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "email", v)

		_, ok, err = el.Attr(ctx, "placeholder")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should read class lists and parents", func(t *testing.T) {
		hint := mustQuery(t, doc, ".hint")
		classes, err := hint.ClassList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"hint"}, classes)

		parent, err := hint.Parent(ctx)
		require.NoError(t, err)
		require.NotNil(t, parent)
		parentClasses, err := parent.ClassList(ctx)
		require.NoError(t, err)
		assert.Contains(t, parentClasses, "anon-row")
	})

	t.Run("should report visibility from computed style", func(t *testing.T) {
		visible, err := mustQuery(t, doc, "#first-name").IsVisible(ctx)
		require.NoError(t, err)
		assert.True(t, visible)

		hidden, err := mustQuery(t, doc, "#remote").IsVisible(ctx)
		require.NoError(t, err)
		assert.False(t, hidden)
	})

	t.Run("should enumerate select options", func(t *testing.T) {
		opts, err := mustQuery(t, doc, "#country").Options(ctx)
		require.NoError(t, err)
		require.Len(t, opts, 3)
		assert.Equal(t, dom.OptionInfo{Value: "us", Label: "United States"}, opts[1])
		assert.True(t, opts[0].Selected)

		_, err = mustQuery(t, doc, "#email").Options(ctx)
		assert.ErrorIs(t, err, dom.ErrNotSupported)
	})

	t.Run("should read content editable values", func(t *testing.T) {
		v, err := mustQuery(t, doc, "#pitch").Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, "initial pitch", v)

		_, err = mustQuery(t, doc, ".hint").Value(ctx)
		assert.ErrorIs(t, err, dom.ErrNotSupported)
	})
}

func TestElementWrites(t *testing.T) {
	ctx := context.Background()
	doc := newTestPage(t, fixturePage)

	t.Run("should set values through both setters", func(t *testing.T) {
		first := mustQuery(t, doc, "#first-name")
		require.NoError(t, first.SetValue(ctx, "Avery"))
		v, err := first.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Avery", v)

		require.NoError(t, first.SetValueNative(ctx, "Quinn"))
		v, err = first.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Quinn", v)

		assert.ErrorIs(t, mustQuery(t, doc, ".hint").SetValue(ctx, "x"), dom.ErrNotSupported)
	})

	t.Run("should select options by value or label", func(t *testing.T) {
		country := mustQuery(t, doc, "#country")
		require.NoError(t, country.SelectOption(ctx, "us"))
		v, err := country.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, "us", v)

		require.NoError(t, country.SelectOption(ctx, "Germany"))
		v, err = country.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, "de", v)

		err = country.SelectOption(ctx, "Atlantis")
		assert.ErrorIs(t, err, dom.ErrNotSupported)
		assert.Contains(t, err.Error(), "no option matching")
	})

	t.Run("should toggle checkboxes", func(t *testing.T) {
		remote := mustQuery(t, doc, "#remote")
		require.NoError(t, remote.SetChecked(ctx, true))
		checked, err := remote.Checked(ctx)
		require.NoError(t, err)
		assert.True(t, checked)

		assert.ErrorIs(t, mustQuery(t, doc, "#cover").SetChecked(ctx, true), dom.ErrNotSupported)
	})

	t.Run("should replace text in content editable regions", func(t *testing.T) {
		pitch := mustQuery(t, doc, "#pitch")
		require.NoError(t, pitch.SetText(ctx, "rewritten"))
		v, err := pitch.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, "rewritten", v)
	})

	t.Run("should manage attributes", func(t *testing.T) {
		el := mustQuery(t, doc, "#cover")
		require.NoError(t, el.SetAttr(ctx, "data-filled", "yes"))
		v, ok, err := el.Attr(ctx, "data-filled")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "yes", v)

		require.NoError(t, el.RemoveAttr(ctx, "data-filled"))
		_, ok, err = el.Attr(ctx, "data-filled")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestInteractions(t *testing.T) {
	ctx := context.Background()

	t.Run("should click visible elements", func(t *testing.T) {
		doc := newTestPage(t, fixturePage)
		button := mustQuery(t, doc, "#addrow")
		require.NoError(t, button.Click(ctx))
		text, err := button.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "clicked", text)
	})

	t.Run("should click visually hidden controls through the js path", func(t *testing.T) {
		doc := newTestPage(t, fixturePage)
		remote := mustQuery(t, doc, "#remote")
		require.NoError(t, remote.Click(ctx))
		checked, err := remote.Checked(ctx)
		require.NoError(t, err)
		assert.True(t, checked)
	})

	t.Run("should type into fields key by key", func(t *testing.T) {
		doc := newTestPage(t, fixturePage)
		cover := mustQuery(t, doc, "#cover")
		require.NoError(t, cover.SendKeys(ctx, "Dear team"))
		v, err := cover.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Dear team", v)
	})

	t.Run("should track focus through ActiveElement", func(t *testing.T) {
		doc := newTestPage(t, fixturePage)

		active, err := doc.ActiveElement(ctx)
		require.NoError(t, err)
		assert.Nil(t, active)

		email := mustQuery(t, doc, "#email")
		require.NoError(t, email.Focus(ctx))
		active, err = doc.ActiveElement(ctx)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, `[data-fp-id="email-field"]`, active.Selector())

		require.NoError(t, email.Blur(ctx))
		active, err = doc.ActiveElement(ctx)
		require.NoError(t, err)
		assert.Nil(t, active)
	})

	t.Run("should reach page listeners through dispatched events", func(t *testing.T) {
		doc := newTestPage(t, fixturePage)
		email := mustQuery(t, doc, "#email")
		require.NoError(t, email.DispatchEvent(ctx, dom.EventInput))

		title, err := doc.Title(ctx)
		require.NoError(t, err)
		assert.Equal(t, "dirty", title)
	})
}

func TestStaleHandles(t *testing.T) {
	ctx := context.Background()
	doc := newTestPage(t, fixturePage)

	el := mustQuery(t, doc, "#first-name")
	require.NoError(t, el.(*Element).eval(ctx, `(el) => { el.remove(); return { v: true }; }`, nil))

	_, err := el.TagName(ctx)
	assert.ErrorIs(t, err, dom.ErrStaleElement)

	err = el.SendKeys(ctx, "late")
	assert.ErrorIs(t, err, dom.ErrStaleElement)
}
