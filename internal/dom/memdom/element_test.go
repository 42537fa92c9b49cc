// internal/dom/memdom/element_test.go
package memdom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

func mustQuery(t *testing.T, doc *Document, selector string) *Element {
	t.Helper()
	el, err := doc.QuerySelector(context.Background(), selector)
	require.NoError(t, err)
	require.NotNil(t, el, "selector %q matched nothing", selector)
	return el.(*Element)
}

func TestValueReads(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body>
		<input id="seeded" value="hello">
		<input id="blank">
		<textarea id="ta">preset text</textarea>
		<select id="explicit"><option value="a">A</option><option value="b" selected>B</option></select>
		<select id="implicit"><option value="x">X</option><option value="y">Y</option></select>
		<div id="ce" contenteditable>editable body</div>
		<div id="plain">nope</div>
	</body>`)
	ctx := context.Background()

	tests := []struct {
		sel  string
		want string
	}{
		{"#seeded", "hello"},
		{"#blank", ""},
		{"#ta", "preset text"},
		{"#explicit", "b"},
		{"#implicit", "x"},
		{"#ce", "editable body"},
	}
	for _, tt := range tests {
		got, err := mustQuery(t, doc, tt.sel).Value(ctx)
		require.NoError(t, err, tt.sel)
		assert.Equal(t, tt.want, got, tt.sel)
	}

	_, err := mustQuery(t, doc, "#plain").Value(ctx)
	assert.ErrorIs(t, err, dom.ErrNotSupported)
}

func TestSetValueAndTracker(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><input id="f"></body>`)
	ctx := context.Background()
	el := mustQuery(t, doc, "#f")

	require.NoError(t, el.SetValue(ctx, "tracked"))
	got, err := el.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tracked", got)
	tracker, set := doc.trackerOf(el)
	assert.True(t, set)
	assert.Equal(t, "tracked", tracker)

	// The platform setter changes the value without touching the tracker.
	require.NoError(t, el.SetValueNative(ctx, "native"))
	got, err = el.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "native", got)
	tracker, _ = doc.trackerOf(el)
	assert.Equal(t, "tracked", tracker)
}

func TestSetValueOnSelect(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><select id="s">
		<option value="">Choose</option>
		<option value="eng">Engineering</option>
		<option value="mkt">Marketing</option>
	</select></body>`)
	ctx := context.Background()
	el := mustQuery(t, doc, "#s")

	require.NoError(t, el.SetValue(ctx, "eng"))
	got, err := el.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "eng", got)

	// Assigning an unknown value is a no-op, as in browsers it would clear
	// the selection rather than error.
	require.NoError(t, el.SetValue(ctx, "bogus"))
	got, err = el.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "eng", got)
}

func TestSelectOptionByLabel(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><select id="s">
		<option value="">Choose</option>
		<optgroup label="Teams">
			<option value="eng"> Engineering </option>
		</optgroup>
	</select></body>`)
	ctx := context.Background()
	el := mustQuery(t, doc, "#s")

	require.NoError(t, el.SelectOption(ctx, "engineering"))
	got, err := el.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "eng", got, "label match is trimmed and case-insensitive")

	err = el.SelectOption(ctx, "Astronautics")
	assert.ErrorIs(t, err, dom.ErrNotSupported)
}

func TestFileInputRejectsValue(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><input id="f" type="file"></body>`)
	err := mustQuery(t, doc, "#f").SetValue(context.Background(), "/tmp/resume.pdf")
	assert.ErrorIs(t, err, dom.ErrNotSupported)
}

func TestCheckedAndRadioGroups(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body>
		<input id="cb" type="checkbox">
		<input id="r1" type="radio" name="remote" value="yes" checked>
		<input id="r2" type="radio" name="remote" value="no">
		<input id="other" type="radio" name="color" value="red" checked>
	</body>`)
	ctx := context.Background()

	cb := mustQuery(t, doc, "#cb")
	checked, err := cb.Checked(ctx)
	require.NoError(t, err)
	assert.False(t, checked)
	require.NoError(t, cb.SetChecked(ctx, true))
	checked, err = cb.Checked(ctx)
	require.NoError(t, err)
	assert.True(t, checked)

	// Checking a radio unchecks its group but leaves other groups alone.
	r1, r2, other := mustQuery(t, doc, "#r1"), mustQuery(t, doc, "#r2"), mustQuery(t, doc, "#other")
	require.NoError(t, r2.SetChecked(ctx, true))
	c1, _ := r1.Checked(ctx)
	c2, _ := r2.Checked(ctx)
	co, _ := other.Checked(ctx)
	assert.False(t, c1)
	assert.True(t, c2)
	assert.True(t, co)

	text := mustParse(t, `<body><input id="t" type="text"></body>`)
	err = mustQuery(t, text, "#t").SetChecked(ctx, true)
	assert.ErrorIs(t, err, dom.ErrNotSupported)
}

func TestVisibility(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body>
		<input id="shown" type="text">
		<input id="ghost" type="hidden">
		<div hidden><input id="attr-hidden" type="text"></div>
		<div aria-hidden="true"><input id="aria" type="text"></div>
		<div style="display: none"><input id="display" type="text"></div>
		<div style="visibility:hidden"><input id="vis" type="text"></div>
		<div style="display:block"><input id="styled-ok" type="text"></div>
	</body>`)
	ctx := context.Background()

	tests := []struct {
		sel  string
		want bool
	}{
		{"#shown", true},
		{"#ghost", false},
		{"#attr-hidden", false},
		{"#aria", false},
		{"#display", false},
		{"#vis", false},
		{"#styled-ok", true},
	}
	for _, tt := range tests {
		got, err := mustQuery(t, doc, tt.sel).IsVisible(ctx)
		require.NoError(t, err, tt.sel)
		assert.Equal(t, tt.want, got, tt.sel)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><select id="s">
		<option value="">Choose one</option>
		<option value="eng" selected>Engineering</option>
		<option>Marketing</option>
	</select><div id="d"></div></body>`)
	ctx := context.Background()

	opts, err := mustQuery(t, doc, "#s").Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, []dom.OptionInfo{
		{Value: "", Label: "Choose one", Selected: false},
		{Value: "eng", Label: "Engineering", Selected: true},
		{Value: "Marketing", Label: "Marketing", Selected: false},
	}, opts)

	_, err = mustQuery(t, doc, "#d").Options(ctx)
	assert.ErrorIs(t, err, dom.ErrNotSupported)
}

func TestSelectorRoundTrip(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body>
		<input data-fp-id="first-name">
		<input id="email">
		<div class="anon"><span class="anon"></span></div>
	</body>`)
	ctx := context.Background()

	tests := []struct {
		name string
		sel  string
	}{
		{"data attribute", "[data-fp-id=first-name]"},
		{"plain id", "#email"},
		{"tagged on demand", "div.anon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := mustQuery(t, doc, tt.sel)
			ref := el.Selector()
			require.NotEmpty(t, ref)
			again := mustQuery(t, doc, ref)
			assert.Same(t, el.node, again.node, "selector must resolve back to the same node")
			assert.Equal(t, ref, again.Selector(), "re-tagging must be stable")
		})
	}
}

func TestStaleElement(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><div id="wrap"><input id="f" value="x"></div></body>`)
	ctx := context.Background()
	wrap := mustQuery(t, doc, "#wrap")
	el := mustQuery(t, doc, "#f")

	doc.mu.Lock()
	doc.detach(wrap.node)
	doc.mu.Unlock()

	_, err := el.Value(ctx)
	assert.ErrorIs(t, err, dom.ErrStaleElement)
	assert.ErrorIs(t, el.SetValue(ctx, "y"), dom.ErrStaleElement)
	assert.ErrorIs(t, el.Click(ctx), dom.ErrStaleElement)
	_, _, err = el.Attr(ctx, "id")
	assert.ErrorIs(t, err, dom.ErrStaleElement)
	_, err = el.IsVisible(ctx)
	assert.ErrorIs(t, err, dom.ErrStaleElement)
}

func TestSendKeysTypesAndEdits(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><input id="f"></body>`)
	ctx := context.Background()
	el := mustQuery(t, doc, "#f")

	var events []string
	record := func(ev *Event) {
		suffix := ""
		if ev.FromKeyboard {
			suffix = "*"
		}
		events = append(events, ev.Type+":"+ev.Key+suffix)
	}
	doc.On(el, dom.EventKeyDown, record)
	doc.On(el, dom.EventInput, record)
	doc.On(el, dom.EventKeyUp, record)

	require.NoError(t, el.SendKeys(ctx, "ab"))
	got, err := el.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
	assert.Equal(t, []string{
		"keydown:a", "input:a*", "keyup:a",
		"keydown:b", "input:b*", "keyup:b",
	}, events)

	// Typing never touches the tracker; that is what distinguishes real
	// keystrokes from conventional-setter writes.
	_, set := doc.trackerOf(el)
	assert.False(t, set)

	events = nil
	require.NoError(t, el.SendKeys(ctx, "\b"))
	got, _ = el.Value(ctx)
	assert.Equal(t, "a", got)
	assert.Equal(t, []string{"keydown:Backspace", "input:Backspace*", "keyup:Backspace"}, events)

	events = nil
	require.NoError(t, el.SendKeys(ctx, "\r"))
	got, _ = el.Value(ctx)
	assert.Equal(t, "a", got, "Enter carries no text")
	assert.Equal(t, []string{"keydown:Enter", "keyup:Enter"}, events)
}

func TestSendKeysHonorsContext(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><input id="f"></body>`)
	el := mustQuery(t, doc, "#f")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := el.SendKeys(ctx, "never")
	assert.ErrorIs(t, err, context.Canceled)
	got, verr := el.Value(context.Background())
	require.NoError(t, verr)
	assert.Equal(t, "", got)
}

func TestFocusBlurAndActiveElement(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><div id="wrap"><input id="f"></div></body>`)
	ctx := context.Background()
	el := mustQuery(t, doc, "#f")

	var onTarget, onAncestor int
	doc.On(el, dom.EventFocus, func(*Event) { onTarget++ })
	doc.On(mustQuery(t, doc, "#wrap"), dom.EventFocus, func(*Event) { onAncestor++ })

	require.NoError(t, el.Focus(ctx))
	active, err := doc.ActiveElement(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Same(t, el.node, active.(*Element).node)
	assert.Equal(t, 1, onTarget)
	assert.Zero(t, onAncestor, "focus must not bubble")

	require.NoError(t, el.Blur(ctx))
	active, err = doc.ActiveElement(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestClickBubblesInOrder(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><div id="outer"><div id="inner"><button id="b">Go</button></div></div></body>`)
	ctx := context.Background()
	btn := mustQuery(t, doc, "#b")

	var order []string
	listen := func(name string, el *Element) {
		doc.On(el, dom.EventClick, func(ev *Event) {
			order = append(order, name)
			assert.Same(t, btn.node, ev.Target.node, "target stays the clicked node while bubbling")
		})
	}
	listen("target", btn)
	listen("inner", mustQuery(t, doc, "#inner"))
	listen("outer", mustQuery(t, doc, "#outer"))

	require.NoError(t, btn.Click(ctx))
	assert.Equal(t, []string{"target", "inner", "outer"}, order)
}

func TestSetTextReplacesContent(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><div id="d"><b>old</b> content</div></body>`)
	ctx := context.Background()
	el := mustQuery(t, doc, "#d")

	require.NoError(t, el.SetText(ctx, "Engineering"))
	text, err := el.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", text)
}
