// internal/dom/memdom/selector_test.go
package memdom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/internal/dom"
)

const selectorFixture = `<html><head><title>Apply</title></head><body>
<div id="root">
  <form id="apply">
    <input id="first" type="text" class="fancy input-lg" name="first_name" placeholder="First name">
    <input id="mail" type="email" name="email">
    <div class="shell" id="shell">
      <div id="ctl" class="pick__control" role="combobox">
        <input id="inner" type="text">
      </div>
      <div id="menu" class="pick__menu">
        <div id="opt-a" class="pick__option" role="option">Engineering</div>
        <div id="opt-b" class="pick__option" role="option">Marketing</div>
      </div>
    </div>
    <select id="dept" name="department">
      <option value="">Choose</option>
      <option value="eng">Engineering</option>
    </select>
  </form>
</div>
</body></html>`

func mustParse(t *testing.T, content string) *Document {
	t.Helper()
	doc, err := Parse(content, "https://jobs.example.com/apply")
	require.NoError(t, err)
	return doc
}

func idsOf(t *testing.T, els []dom.Element) []string {
	t.Helper()
	var ids []string
	for _, el := range els {
		id, _, err := el.Attr(context.Background(), "id")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestSelectorMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		selector string
		want     []string
	}{
		{"tag", "select", []string{"dept"}},
		{"tag multiple", "input", []string{"first", "mail", "inner"}},
		{"id", "#mail", []string{"mail"}},
		{"class", ".pick__option", []string{"opt-a", "opt-b"}},
		{"multi class compound", ".fancy.input-lg", []string{"first"}},
		{"attr present", "[role]", []string{"ctl", "opt-a", "opt-b"}},
		{"attr equals", "input[type=email]", []string{"mail"}},
		{"attr equals quoted", `[role="option"]`, []string{"opt-a", "opt-b"}},
		{"attr prefix", "input[name^=first]", []string{"first"}},
		{"attr suffix", "[name$=_name]", []string{"first"}},
		{"attr contains", "[name*=mail]", []string{"mail"}},
		{"descendant", ".shell .pick__option", []string{"opt-a", "opt-b"}},
		{"child", "#shell > #menu", []string{"menu"}},
		{"child chain", "#menu > [role=option]", []string{"opt-a", "opt-b"}},
		{"child excludes grandchildren", "#shell > input", nil},
		{"star", "#ctl *", []string{"inner"}},
		{"no match", ".missing", nil},
	}

	doc := mustParse(t, selectorFixture)
	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			els, err := doc.QuerySelectorAll(ctx, tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, idsOf(t, els))
		})
	}
}

func TestSelectorUnion(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, selectorFixture)
	ctx := context.Background()

	els, err := doc.QuerySelectorAll(ctx, "select, input[type=email]")
	require.NoError(t, err)
	assert.Equal(t, []string{"mail", "dept"}, idsOf(t, els), "union results come back in document order")

	els, err = doc.QuerySelectorAll(ctx, "input, [type=email]")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "mail", "inner"}, idsOf(t, els), "overlapping branches must not duplicate matches")
}

func TestSelectorScopedToElement(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, selectorFixture)
	ctx := context.Background()

	shell, err := doc.QuerySelector(ctx, "#shell")
	require.NoError(t, err)
	require.NotNil(t, shell)

	els, err := shell.QuerySelectorAll(ctx, "input")
	require.NoError(t, err)
	assert.Equal(t, []string{"inner"}, idsOf(t, els), "scoped query must not escape the subtree")
}

func TestSelectorErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		selector string
	}{
		{"empty", ""},
		{"blank union member", "div, "},
		{"trailing child combinator", "div >"},
		{"unterminated attr", "div[foo"},
		{"bad tag", "di$v"},
		{"empty class", "div."},
		{"empty id", "#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSelector(tt.selector)
			assert.Error(t, err)
		})
	}
}

func TestXPathLiteralEscaping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"it's", `"it's"`},
		{`say "hi"`, `'say "hi"'`},
		{`both ' and "`, `concat('both ', "'", ' and "')`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, xpathLiteral(tt.in))
	}
}
