// internal/detect/strategies.go
package detect

import (
	"context"
	"strings"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/dom"
)

func match(t schemas.ComponentType, confidence float64, marker string) *schemas.ComponentMatch {
	return &schemas.ComponentMatch{
		Type:       t,
		Confidence: confidence,
		Metadata:   map[string]string{"marker": marker},
	}
}

// nativeSelectStrategy reports a real <select> at full confidence. Nothing
// outranks it: whatever a framework wrapped around the element, the native
// control is still the reliable way to drive it.
type nativeSelectStrategy struct{}

func (nativeSelectStrategy) Name() string { return "native-select" }

func (nativeSelectStrategy) Detect(ctx context.Context, el dom.Element) (*schemas.ComponentMatch, error) {
	tag, err := el.TagName(ctx)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(tag, "select") {
		return nil, nil
	}
	return match(schemas.ComponentStandardSelect, 1.0, "select-tag"), nil
}

// classNameStrategy reads widget identity out of class naming conventions.
// Explicit library prefixes score highest, bare BEM shapes lower.
type classNameStrategy struct{}

func (classNameStrategy) Name() string { return "class-name" }

func (classNameStrategy) Detect(ctx context.Context, el dom.Element) (*schemas.ComponentMatch, error) {
	classes, err := el.ClassList(ctx)
	if err != nil {
		return nil, err
	}
	joined := " " + strings.ToLower(strings.Join(classes, " ")) + " "

	switch {
	case strings.Contains(joined, " react-select"):
		return match(schemas.ComponentReactSelect, 0.95, "react-select-prefix"), nil
	case strings.Contains(joined, "select__control"),
		strings.Contains(joined, "select__value-container"),
		strings.Contains(joined, "select__input"):
		return match(schemas.ComponentReactSelect, 0.9, "select-bem"), nil
	case hasClassPrefix(classes, "Select-"):
		// Classic react-select v1 used capitalized Select- classes.
		return match(schemas.ComponentReactSelect, 0.85, "select-v1"), nil
	case emotionContainer(classes):
		return match(schemas.ComponentReactSelect, 0.85, "emotion-container"), nil
	case strings.Contains(joined, " select2"), strings.Contains(joined, " select2-container "):
		return match(schemas.ComponentCustomSelect, 0.85, "select2"), nil
	case strings.Contains(joined, " chosen-container "):
		return match(schemas.ComponentCustomSelect, 0.85, "chosen"), nil
	}
	return nil, nil
}

func hasClassPrefix(classes []string, prefix string) bool {
	for _, c := range classes {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// emotionContainer spots react-select's generated emotion class, e.g.
// css-b62m3t-container.
func emotionContainer(classes []string) bool {
	for _, c := range classes {
		if strings.HasPrefix(c, "css-") && strings.HasSuffix(c, "-container") {
			return true
		}
	}
	return false
}

// vueSelectStrategy fingerprints vue-select and Element UI widgets.
type vueSelectStrategy struct{}

func (vueSelectStrategy) Name() string { return "vue-select" }

func (vueSelectStrategy) Detect(ctx context.Context, el dom.Element) (*schemas.ComponentMatch, error) {
	classes, err := el.ClassList(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		lc := strings.ToLower(c)
		switch {
		case lc == "v-select", strings.HasPrefix(lc, "vs__"):
			return match(schemas.ComponentVueSelect, 0.9, c), nil
		case lc == "el-select", strings.HasPrefix(lc, "el-select"):
			return match(schemas.ComponentVueSelect, 0.85, c), nil
		}
	}
	return nil, nil
}

// angularSelectStrategy fingerprints Angular Material and ng-select.
type angularSelectStrategy struct{}

func (angularSelectStrategy) Name() string { return "angular-select" }

func (angularSelectStrategy) Detect(ctx context.Context, el dom.Element) (*schemas.ComponentMatch, error) {
	tag, err := el.TagName(ctx)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(tag) {
	case "mat-select", "ng-select":
		return match(schemas.ComponentAngularSelect, 0.9, strings.ToLower(tag)), nil
	}

	classes, err := el.ClassList(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		lc := strings.ToLower(c)
		if strings.HasPrefix(lc, "mat-select") || strings.HasPrefix(lc, "mat-mdc-select") || lc == "ng-select" {
			return match(schemas.ComponentAngularSelect, 0.85, c), nil
		}
	}

	if _, ok, err := el.Attr(ctx, "formcontrolname"); err != nil {
		return nil, err
	} else if ok {
		if role, _, _ := el.Attr(ctx, "role"); role == "listbox" || role == "combobox" {
			return match(schemas.ComponentAngularSelect, 0.8, "formcontrolname"), nil
		}
	}
	return nil, nil
}

// ariaStrategy reads the ARIA contract. It can prove the element behaves
// like a dropdown but not which library built it, so it reports
// custom-select and lets class and tag evidence outrank it.
type ariaStrategy struct{}

func (ariaStrategy) Name() string { return "aria-role" }

func (ariaStrategy) Detect(ctx context.Context, el dom.Element) (*schemas.ComponentMatch, error) {
	role, ok, err := el.Attr(ctx, "role")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	switch strings.ToLower(role) {
	case "combobox":
		popup, _, _ := el.Attr(ctx, "aria-haspopup")
		_, expanded, _ := el.Attr(ctx, "aria-expanded")
		_, autocomplete, _ := el.Attr(ctx, "aria-autocomplete")
		hasPopup := strings.EqualFold(popup, "listbox") || popup == "true" || expanded
		switch {
		case hasPopup && autocomplete:
			return match(schemas.ComponentCustomSelect, 0.85, "combobox-autocomplete"), nil
		case hasPopup:
			return match(schemas.ComponentCustomSelect, 0.8, "combobox-popup"), nil
		default:
			return match(schemas.ComponentCustomSelect, 0.75, "combobox"), nil
		}
	case "listbox":
		return match(schemas.ComponentCustomSelect, 0.75, "listbox"), nil
	}
	return nil, nil
}

// structuralStrategy recognizes dropdown shells by shape rather than by
// naming: an inner input wired for autocomplete, an option-bearing popup,
// or the hidden-input-plus-clickable-shell pattern.
type structuralStrategy struct{}

func (structuralStrategy) Name() string { return "structural" }

func (structuralStrategy) Detect(ctx context.Context, el dom.Element) (*schemas.ComponentMatch, error) {
	if id, ok, err := el.Attr(ctx, "id"); err != nil {
		return nil, err
	} else if ok && strings.HasPrefix(id, "react-select-") {
		return match(schemas.ComponentReactSelect, 0.75, "react-select-id"), nil
	}
	if inner, err := el.QuerySelector(ctx, "input[id^=react-select-]"); err != nil {
		return nil, err
	} else if inner != nil {
		return match(schemas.ComponentReactSelect, 0.75, "react-select-input"), nil
	}

	if opt, err := el.QuerySelector(ctx, "[role=option]"); err != nil {
		return nil, err
	} else if opt != nil {
		return match(schemas.ComponentCustomSelect, 0.7, "option-descendants"), nil
	}

	hidden, err := el.QuerySelector(ctx, "input[type=hidden][name]")
	if err != nil {
		return nil, err
	}
	if hidden != nil {
		if shell, err := el.QuerySelector(ctx, "[tabindex]"); err == nil && shell != nil {
			return match(schemas.ComponentCustomSelect, 0.65, "hidden-input-shell"), nil
		}
	}
	return nil, nil
}

// customAttributeStrategy is the weakest signal: dropdown-flavored hooks
// like aria-haspopup or toggle classes on an otherwise anonymous element.
type customAttributeStrategy struct{}

func (customAttributeStrategy) Name() string { return "custom-attributes" }

func (customAttributeStrategy) Detect(ctx context.Context, el dom.Element) (*schemas.ComponentMatch, error) {
	tag, err := el.TagName(ctx)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(tag, "select") {
		return nil, nil
	}

	if _, ok, err := el.Attr(ctx, "aria-haspopup"); err != nil {
		return nil, err
	} else if ok {
		return match(schemas.ComponentCustomSelect, 0.6, "aria-haspopup"), nil
	}
	if v, ok, _ := el.Attr(ctx, "data-toggle"); ok && strings.EqualFold(v, "dropdown") {
		return match(schemas.ComponentCustomSelect, 0.6, "data-toggle"), nil
	}

	classes, err := el.ClassList(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		lc := strings.ToLower(c)
		if lc == "dropdown-toggle" || lc == "custom-select" || lc == "selectized" || lc == "dropdown" {
			return match(schemas.ComponentCustomSelect, 0.6, c), nil
		}
	}
	return nil, nil
}
