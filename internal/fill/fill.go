// internal/fill/fill.go

// Package fill sets values on form controls whose framework, event wiring,
// and internal state cannot be introspected. Each field gets one pass
// through an ordered chain of interaction strategies; the chain stops at
// the first strategy whose own verification confirms the value took
// effect. Synthetic select widgets take a detour through the dropdown
// protocol before the chain runs.
//
// Strategies never roll back the side effects of a failed predecessor
// (partially typed text, moved focus); each one starts from a dirty state
// and clears before it writes. A failed field is reported in the result,
// never raised: one stubborn widget must not abort the rest of the form.
package fill

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/detect"
	"github.com/formpilot/formpilot-cli/internal/dom"
)

// Strategy names recorded in field results.
const (
	StrategyDirectInput     = "direct-input"
	StrategyClickEvents     = "click-events"
	StrategyKeyboard        = "keyboard-simulation"
	StrategyDOMManipulation = "dom-manipulation"
	StrategyComponent       = "component-fallback"
	StrategyHTMLFallback    = "html-fallback"
	StrategyDropdown        = "synthetic-dropdown"
	// StrategyAlreadySet marks fields whose pre-fill verification found the
	// wanted value already in place, so no strategy ran at all.
	StrategyAlreadySet = "already-set"
)

// Target carries everything one strategy attempt needs. Detection may be
// nil when the detector errored; strategies treat that as "not complex".
type Target struct {
	Doc       dom.Document
	Element   dom.Element
	Field     *schemas.FieldDescriptor
	Value     string
	Detection *detect.Result
}

// Strategy is one technique for setting a value. Execute returns true only
// after the strategy's own verification confirmed the value took effect; a
// false return or an error moves the chain to the next strategy.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, t *Target) (bool, error)
}

// Filler runs the strategy chain against the fields of one page.
type Filler struct {
	doc      dom.Document
	detector *detect.Detector
	cfg      config.FillerConfig
	scorer   *scorer
	log      *zap.Logger
}

// NewFiller builds a filler bound to one document. The detector decides
// which fields take the dropdown detour; timing and scoring knobs come
// from cfg.
func NewFiller(doc dom.Document, detector *detect.Detector, cfg config.FillerConfig, log *zap.Logger) *Filler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Filler{
		doc:      doc,
		detector: detector,
		cfg:      cfg,
		scorer:   newScorer(cfg.OptionScoreThreshold, DefaultSynonymGroups()),
		log:      log.Named("fill"),
	}
}

// Fill makes one best-effort attempt to set value on the field. The result
// is always populated; failures are classified, never raised.
func (f *Filler) Fill(ctx context.Context, field *schemas.FieldDescriptor, value string) (result schemas.FieldResult) {
	start := time.Now()
	result = schemas.FieldResult{
		FieldID:  field.ID,
		Label:    field.Label,
		Selector: field.Selector,
		Value:    value,
	}
	defer func() {
		result.DurationMS = time.Since(start).Milliseconds()
	}()

	if field.Type == schemas.FieldFile {
		// Browsers forbid scripting file inputs; uploads go through the
		// browser layer's file chooser interception instead.
		result.Outcome = schemas.OutcomeSkipped
		result.Reason = schemas.ReasonUnsupportedType
		return result
	}

	el, err := f.doc.QuerySelector(ctx, field.Selector)
	if err != nil || el == nil {
		f.log.Debug("field selector no longer resolves",
			zap.String("field", field.ID),
			zap.String("selector", field.Selector),
			zap.Error(err))
		result.Outcome = schemas.OutcomeError
		result.Reason = schemas.ReasonStaleElement
		return result
	}

	t := &Target{Doc: f.doc, Element: el, Field: field, Value: value}

	// Re-filling an already-correct field must change nothing: no second
	// popup open, no checkbox toggle, no duplicated text.
	if ok, _ := f.verified(ctx, t); ok {
		result.Outcome = schemas.OutcomeFilled
		result.Strategy = StrategyAlreadySet
		return result
	}

	detection, err := f.detector.Detect(ctx, el)
	if err != nil {
		// Detection trouble downgrades the element to "plain"; the chain
		// still gets its chance.
		f.log.Debug("component detection failed", zap.String("field", field.ID), zap.Error(err))
		detection = &detect.Result{Control: el}
	}
	t.Detection = detection

	if detection.IsComplex() {
		switch ok, err := f.fillDropdown(ctx, t); {
		case ok:
			result.Outcome = schemas.OutcomeFilled
			result.Strategy = StrategyDropdown
			return result
		case errors.Is(err, errNoQualifyingOption):
			// The widget simply does not contain an applicable choice.
			result.Outcome = schemas.OutcomeSkipped
			result.Reason = schemas.ReasonNoMatchingOption
			return result
		default:
			f.log.Debug("dropdown protocol failed, falling back to strategy chain",
				zap.String("field", field.ID), zap.Error(err))
		}
	}

	for i, s := range f.strategiesFor(field, detection) {
		if i > 0 {
			if err := f.pause(ctx, f.cfg.Timing.InterStrategy); err != nil {
				break
			}
		}
		ok, err := s.Execute(ctx, t)
		if err != nil {
			f.log.Debug("strategy failed",
				zap.String("field", field.ID),
				zap.String("strategy", s.Name()),
				zap.Error(err))
			continue
		}
		if ok {
			result.Outcome = schemas.OutcomeFilled
			result.Strategy = s.Name()
			return result
		}
	}

	result.Outcome = schemas.OutcomeError
	result.Reason = schemas.ReasonFillFailed
	return result
}

// strategiesFor returns the chain for one field in execution order. The
// component fallback participates only for elements classified as complex
// widgets; everything else runs the fixed four-plus-fallback sequence.
func (f *Filler) strategiesFor(field *schemas.FieldDescriptor, detection *detect.Result) []Strategy {
	chain := []Strategy{
		&directInput{f},
		&clickEvents{f},
		&keyboardSim{f},
		&domManipulation{f},
	}
	if detection != nil && detection.IsComplex() {
		chain = append(chain, &componentFallback{f})
	}
	return append(chain, &htmlFallback{f})
}

// pause is the cooperative yield between DOM mutations, giving the host
// page's own handlers and re-renders time to settle. Zero durations return
// immediately, which is how tests run the chain flat out.
func (f *Filler) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
