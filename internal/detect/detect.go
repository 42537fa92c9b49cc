// internal/detect/detect.go

// Package detect classifies form controls as native selects, framework
// dropdown widgets, or plain inputs. A detector runs an ordered list of
// strategies against an element, each contributing a typed match with its
// own confidence, and aggregates them into a ranked result. A native
// <select> is always reported at full confidence and outranks every
// framework signal.
package detect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/dom"
)

// ErrNilElement is returned when detection is asked about a nil element;
// callers passing one have lost track of the page and need to hear it.
var ErrNilElement = errors.New("detect: nil element")

// Strategy inspects one element for evidence of a component family. A nil
// match means the strategy saw nothing; errors are tolerated per strategy
// and only surface when no strategy produced a usable signal.
type Strategy interface {
	Name() string
	Detect(ctx context.Context, el dom.Element) (*schemas.ComponentMatch, error)
}

// Result is a detection outcome plus the widget anatomy the filler needs:
// the clickable shell and, when present, the inner text input.
type Result struct {
	schemas.DetectionResult

	Control dom.Element
	Input   dom.Element
}

type entry struct {
	strategy Strategy
	priority int
	seq      int
}

// Detector runs registered strategies in priority order.
type Detector struct {
	log     *zap.Logger
	entries []entry
	nextSeq int
}

// Built-in strategy priorities, spaced so callers can interleave their own.
const (
	priNativeSelect = 10
	priClassName    = 20
	priVueSelect    = 30
	priAngular      = 40
	priARIA         = 50
	priStructural   = 60
	priCustom       = 70
)

// NewDetector returns a detector with the built-in strategies registered.
func NewDetector(log *zap.Logger) *Detector {
	d := &Detector{log: log}
	d.Register(nativeSelectStrategy{}, priNativeSelect)
	d.Register(classNameStrategy{}, priClassName)
	d.Register(vueSelectStrategy{}, priVueSelect)
	d.Register(angularSelectStrategy{}, priAngular)
	d.Register(ariaStrategy{}, priARIA)
	d.Register(structuralStrategy{}, priStructural)
	d.Register(customAttributeStrategy{}, priCustom)
	return d
}

// Register adds a strategy. Lower priorities run earlier and win confidence
// ties; equal priorities keep registration order.
func (d *Detector) Register(s Strategy, priority int) {
	d.entries = append(d.entries, entry{strategy: s, priority: priority, seq: d.nextSeq})
	d.nextSeq++
	sort.SliceStable(d.entries, func(i, j int) bool {
		if d.entries[i].priority != d.entries[j].priority {
			return d.entries[i].priority < d.entries[j].priority
		}
		return d.entries[i].seq < d.entries[j].seq
	})
}

// Detect runs every strategy against el and aggregates their matches,
// ranked by confidence with strategy order breaking ties. Strategies run
// concurrently; per-strategy failures are logged and skipped unless nothing
// produced a match, in which case the first failure is returned.
func (d *Detector) Detect(ctx context.Context, el dom.Element) (*Result, error) {
	if el == nil {
		return nil, ErrNilElement
	}

	matches := make([]*schemas.ComponentMatch, len(d.entries))
	errs := make([]error, len(d.entries))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range d.entries {
		i, e := i, e
		g.Go(func() error {
			m, err := e.strategy.Detect(gctx, el)
			if err != nil {
				d.log.Debug("detection strategy failed",
					zap.String("strategy", e.strategy.Name()),
					zap.Error(err))
				errs[i] = err
				return nil
			}
			matches[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, m := range matches {
		if m == nil {
			continue
		}
		if m.DetectionMethod == "" {
			m.DetectionMethod = d.entries[i].strategy.Name()
		}
		result.Matches = append(result.Matches, *m)
	}
	if len(result.Matches) == 0 {
		for _, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("all detection strategies failed: %w", err)
			}
		}
		result.Control = el
		return result, nil
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Confidence > result.Matches[j].Confidence
	})
	result.Detected = true
	result.BestMatch = &result.Matches[0]
	result.Control, result.Input = d.resolveAnatomy(ctx, el, result.BestMatch)

	d.log.Debug("component detected",
		zap.String("type", string(result.BestMatch.Type)),
		zap.Float64("confidence", result.BestMatch.Confidence),
		zap.String("method", result.BestMatch.DetectionMethod),
		zap.Int("matches", len(result.Matches)))
	return result, nil
}

// resolveAnatomy locates the clickable shell and inner input of a complex
// widget. Detection may have been pointed at the container, the shell, or
// the inner input itself; the filler needs the distinction.
func (d *Detector) resolveAnatomy(ctx context.Context, el dom.Element, best *schemas.ComponentMatch) (control, input dom.Element) {
	control = el
	if best == nil || !best.Type.IsComplex() {
		return control, nil
	}

	tag, err := el.TagName(ctx)
	if err != nil {
		return control, nil
	}
	if strings.EqualFold(tag, "input") {
		// Pointed at the inner input: the shell is the nearest ancestor
		// that looks like a widget boundary.
		input = el
		node := el
		for depth := 0; depth < 4; depth++ {
			parent, err := node.Parent(ctx)
			if err != nil || parent == nil {
				break
			}
			if isWidgetShell(ctx, parent) {
				return parent, input
			}
			node = parent
		}
		if parent, err := el.Parent(ctx); err == nil && parent != nil {
			return parent, input
		}
		return control, input
	}

	if shell, err := el.QuerySelector(ctx, "[role=combobox], [class*=__control]"); err == nil && shell != nil {
		control = shell
	}
	input = visibleInnerInput(ctx, control)
	if input == nil {
		input = visibleInnerInput(ctx, el)
	}
	return control, input
}

func isWidgetShell(ctx context.Context, el dom.Element) bool {
	if role, ok, _ := el.Attr(ctx, "role"); ok && strings.EqualFold(role, "combobox") {
		return true
	}
	classes, err := el.ClassList(ctx)
	if err != nil {
		return false
	}
	for _, c := range classes {
		lc := strings.ToLower(c)
		if strings.Contains(lc, "__control") || strings.Contains(lc, "select") || strings.Contains(lc, "dropdown") {
			return true
		}
	}
	return false
}

func visibleInnerInput(ctx context.Context, scope dom.Element) dom.Element {
	inputs, err := scope.QuerySelectorAll(ctx, "input")
	if err != nil {
		return nil
	}
	for _, in := range inputs {
		if typ, _, _ := in.Attr(ctx, "type"); strings.EqualFold(typ, "hidden") {
			continue
		}
		if vis, err := in.IsVisible(ctx); err == nil && vis {
			return in
		}
	}
	return nil
}
