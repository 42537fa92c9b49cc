// internal/dom/memdom/selector.go
package memdom

import (
	"fmt"
	"strings"
)

// compileSelector translates the CSS subset the engine uses into a relative
// XPath expression evaluated with htmlquery. Supported: tag, *, #id,
// .class, [attr], [attr=v], [attr^=v], [attr$=v], [attr*=v], compound
// selectors, descendant and > combinators, and comma-separated unions.
//
// html.Parse lowercases element and attribute names, so the compiler does
// the same.
func compileSelector(selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", fmt.Errorf("empty selector")
	}

	var exprs []string
	for _, alt := range splitTopLevel(selector, ',') {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			return "", fmt.Errorf("empty selector in union %q", selector)
		}
		expr, err := compileComplex(alt)
		if err != nil {
			return "", err
		}
		exprs = append(exprs, expr)
	}
	return strings.Join(exprs, " | "), nil
}

// compileComplex handles one selector with combinators.
func compileComplex(selector string) (string, error) {
	// Normalize child combinators so fields split cleanly on whitespace.
	selector = strings.ReplaceAll(selector, ">", " > ")

	var b strings.Builder
	b.WriteString(".")
	child := false
	for _, part := range strings.Fields(selector) {
		if part == ">" {
			if child {
				return "", fmt.Errorf("dangling > in selector %q", selector)
			}
			child = true
			continue
		}
		step, err := compileCompound(part)
		if err != nil {
			return "", err
		}
		if child {
			b.WriteString("/")
		} else {
			b.WriteString("//")
		}
		b.WriteString(step)
		child = false
	}
	if child {
		return "", fmt.Errorf("trailing > in selector %q", selector)
	}
	return b.String(), nil
}

// compileCompound handles one simple selector like input.foo[type=text]#bar.
func compileCompound(sel string) (string, error) {
	tag := "*"
	var preds []string

	i := 0
	// Leading element test.
	if i < len(sel) && sel[i] != '.' && sel[i] != '#' && sel[i] != '[' {
		j := i
		for j < len(sel) && sel[j] != '.' && sel[j] != '#' && sel[j] != '[' {
			j++
		}
		tag = strings.ToLower(sel[i:j])
		if tag != "*" && !isName(tag) {
			return "", fmt.Errorf("bad tag %q in selector %q", tag, sel)
		}
		i = j
	}

	for i < len(sel) {
		switch sel[i] {
		case '.':
			j := i + 1
			for j < len(sel) && sel[j] != '.' && sel[j] != '#' && sel[j] != '[' {
				j++
			}
			class := sel[i+1 : j]
			if class == "" {
				return "", fmt.Errorf("empty class in selector %q", sel)
			}
			preds = append(preds, fmt.Sprintf(
				"contains(concat(' ', normalize-space(@class), ' '), %s)",
				xpathLiteral(" "+class+" ")))
			i = j
		case '#':
			j := i + 1
			for j < len(sel) && sel[j] != '.' && sel[j] != '#' && sel[j] != '[' {
				j++
			}
			id := sel[i+1 : j]
			if id == "" {
				return "", fmt.Errorf("empty id in selector %q", sel)
			}
			preds = append(preds, fmt.Sprintf("@id=%s", xpathLiteral(id)))
			i = j
		case '[':
			j := strings.IndexByte(sel[i:], ']')
			if j < 0 {
				return "", fmt.Errorf("unterminated [ in selector %q", sel)
			}
			pred, err := compileAttr(sel[i+1 : i+j])
			if err != nil {
				return "", err
			}
			preds = append(preds, pred)
			i += j + 1
		default:
			return "", fmt.Errorf("unexpected %q in selector %q", sel[i], sel)
		}
	}

	step := tag
	for _, p := range preds {
		step += "[" + p + "]"
	}
	return step, nil
}

// compileAttr handles the inside of an [attr...] selector.
func compileAttr(body string) (string, error) {
	body = strings.TrimSpace(body)
	op := ""
	idx := -1
	for _, candidate := range []string{"^=", "$=", "*=", "="} {
		if k := strings.Index(body, candidate); k >= 0 {
			op, idx = candidate, k
			break
		}
	}

	if op == "" {
		name := strings.ToLower(body)
		if !isName(name) {
			return "", fmt.Errorf("bad attribute name %q", body)
		}
		return "@" + name, nil
	}

	name := strings.ToLower(strings.TrimSpace(body[:idx]))
	if !isName(name) {
		return "", fmt.Errorf("bad attribute name %q", body[:idx])
	}
	val := strings.TrimSpace(body[idx+len(op):])
	val = strings.Trim(val, `"'`)

	switch op {
	case "=":
		return fmt.Sprintf("@%s=%s", name, xpathLiteral(val)), nil
	case "^=":
		return fmt.Sprintf("starts-with(@%s, %s)", name, xpathLiteral(val)), nil
	case "$=":
		return fmt.Sprintf("ends-with(@%s, %s)", name, xpathLiteral(val)), nil
	default: // *=
		return fmt.Sprintf("contains(@%s, %s)", name, xpathLiteral(val)), nil
	}
}

// xpathLiteral renders s as an XPath 1.0 string literal. Values containing
// both quote kinds need the concat() form.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	var parts []string
	for i, chunk := range strings.Split(s, "'") {
		if i > 0 {
			parts = append(parts, `"'"`)
		}
		if chunk != "" {
			parts = append(parts, "'"+chunk+"'")
		}
	}
	return "concat(" + strings.Join(parts, ", ") + ")"
}

// splitTopLevel splits on sep outside of [] brackets and quotes.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == ':':
		default:
			return false
		}
	}
	return true
}
