// internal/engine/engine.go

// Package engine drives the scan → resolve → fill pipeline. FillForm is
// the per-document unit of work: every scanned field is resolved against
// the profile and handed to the strategy chain, outcomes aggregate into a
// FillReport and a failed field never aborts the form. Run fans the same
// pipeline out across targets with bounded concurrency, pacing page loads
// through a shared rate limiter.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/detect"
	"github.com/formpilot/formpilot-cli/internal/dom"
	"github.com/formpilot/formpilot-cli/internal/fill"
	"github.com/formpilot/formpilot-cli/internal/profile"
	"github.com/formpilot/formpilot-cli/internal/scanner"
)

// StrategyPlanned marks dry-run results: the value was resolved and the
// field would have been attempted, but the page was never touched.
const StrategyPlanned = "planned"

// ErrNoOpener is returned by Run when the engine was built without a
// document opener.
var ErrNoOpener = errors.New("engine: no opener configured")

// persistTimeout caps the detached history write after a fill pass.
const persistTimeout = 30 * time.Second

// -- Collaborator interfaces --

// Opener turns a target reference (URL, file path) into a live document.
// The returned closer releases whatever backs the document; openers for
// in-memory documents return a no-op. Accepting the interface here keeps
// the engine ignorant of whether a browser is involved at all.
type Opener interface {
	Open(ctx context.Context, target string) (dom.Document, func() error, error)
}

// OpenerFunc adapts a plain function to the Opener interface.
type OpenerFunc func(ctx context.Context, target string) (dom.Document, func() error, error)

func (f OpenerFunc) Open(ctx context.Context, target string) (dom.Document, func() error, error) {
	return f(ctx, target)
}

// History receives every completed fill report. The concrete stores live
// in internal/store; the engine only needs the write half.
type History interface {
	SaveReport(ctx context.Context, report *schemas.FillReport) error
}

// Deps carries the engine's external collaborators. Opener is required
// for Run (not for FillForm); History may be nil to disable persistence.
type Deps struct {
	Opener  Opener
	History History
}

// TargetResult pairs one target with its report, or with the failure that
// prevented one. A target can carry both: a run cancelled mid-form keeps
// its partial report alongside the context error.
type TargetResult struct {
	Target string
	Report *schemas.FillReport
	Err    error
}

// Engine owns the orchestration state shared across targets. The scanner,
// detector and resolver are stateless and reused; a Filler is bound per
// document.
type Engine struct {
	cfg      config.EngineConfig
	fillCfg  config.FillerConfig
	opener   Opener
	history  History
	scanner  *scanner.Scanner
	detector *detect.Detector
	resolver *profile.Resolver
	limiter  *rate.Limiter
	log      *zap.Logger
}

func New(cfg *config.Config, deps Deps, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("engine")
	return &Engine{
		cfg:      cfg.Engine,
		fillCfg:  cfg.Filler,
		opener:   deps.Opener,
		history:  deps.History,
		scanner:  scanner.NewScanner(log),
		detector: detect.NewDetector(log),
		resolver: profile.NewResolver(log, cfg.Resolver),
		limiter:  rate.NewLimiter(rate.Limit(cfg.Engine.PageLoadsPerMinute/60), 1),
		log:      log,
	}
}

// Run executes the pipeline against every target. Targets fan out up to
// MaxConcurrentTargets wide; page loads across all of them share one rate
// limiter. A target that fails records the error in its own slot and never
// disturbs the others — only caller cancellation stops the run early.
func (e *Engine) Run(ctx context.Context, targets []string, prof *schemas.UserProfile) ([]TargetResult, error) {
	if e.opener == nil {
		return nil, ErrNoOpener
	}

	results := make([]TargetResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrentTargets)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = e.runTarget(gctx, target, prof)
			if errors.Is(results[i].Err, context.Canceled) || errors.Is(results[i].Err, context.DeadlineExceeded) {
				return results[i].Err
			}
			return nil
		})
	}
	return results, g.Wait()
}

func (e *Engine) runTarget(ctx context.Context, target string, prof *schemas.UserProfile) TargetResult {
	res := TargetResult{Target: target}

	if err := e.limiter.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	doc, closeDoc, err := e.opener.Open(ctx, target)
	if err != nil {
		res.Err = fmt.Errorf("opening %s: %w", target, err)
		return res
	}
	defer func() {
		if cerr := closeDoc(); cerr != nil {
			e.log.Warn("closing target", zap.String("target", target), zap.Error(cerr))
		}
	}()

	scan, err := e.scanner.Scan(ctx, doc)
	if err != nil {
		res.Err = fmt.Errorf("scanning %s: %w", target, err)
		return res
	}

	res.Report, res.Err = e.FillForm(ctx, doc, scan, prof)
	return res
}

// FillForm runs the fill pass over one scanned document. Fields are
// processed strictly in scan order, one at a time; unresolvable fields are
// skipped, everything else goes through the strategy chain under the
// per-field timeout. The returned report is always tallied and persisted,
// even when cancellation cut the pass short — the error reports what
// stopped it.
func (e *Engine) FillForm(ctx context.Context, doc dom.Document, scan *schemas.ScanReport, prof *schemas.UserProfile) (*schemas.FillReport, error) {
	start := time.Now()
	report := &schemas.FillReport{
		SessionID: uuid.NewString(),
		Target:    scan.Target,
		Platform:  scan.Platform,
		StartedAt: start,
	}

	filler := fill.NewFiller(doc, e.detector, e.fillCfg, e.log)

	var runErr error
	for i := range scan.Fields {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		field := scan.Fields[i]

		resolved := e.resolver.Resolve(prof, field)
		if resolved == nil {
			report.Fields = append(report.Fields, schemas.FieldResult{
				FieldID:  field.ID,
				Label:    field.Label,
				Selector: field.Selector,
				Outcome:  schemas.OutcomeSkipped,
				Reason:   schemas.ReasonNoMapping,
			})
			continue
		}

		if e.cfg.DryRun {
			report.Fields = append(report.Fields, schemas.FieldResult{
				FieldID:    field.ID,
				Label:      field.Label,
				Selector:   field.Selector,
				Outcome:    schemas.OutcomeFilled,
				Value:      resolved.Value,
				Source:     resolved.Source,
				Confidence: resolved.Confidence,
				Strategy:   StrategyPlanned,
			})
			continue
		}

		report.Fields = append(report.Fields, e.fillField(ctx, filler, &field, resolved))
	}

	report.Duration = time.Since(start)
	report.Tally()
	e.log.Info("fill pass complete",
		zap.String("sessionID", report.SessionID),
		zap.String("target", report.Target),
		zap.Int("filled", report.Filled),
		zap.Int("skipped", report.Skipped),
		zap.Int("errored", report.Errored),
		zap.Duration("duration", report.Duration))

	e.persist(report)
	return report, runErr
}

// fillField wraps one field's whole strategy chain in the configured
// timeout. The chain itself carries none; a field cut off mid-flight may
// leave partial side effects on the page.
func (e *Engine) fillField(ctx context.Context, filler *fill.Filler, field *schemas.FieldDescriptor, resolved *schemas.ProfileValue) schemas.FieldResult {
	fctx := ctx
	if e.cfg.FieldTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, e.cfg.FieldTimeout)
		defer cancel()
	}

	result := filler.Fill(fctx, field, resolved.Value)
	result.Source = resolved.Source
	result.Confidence = resolved.Confidence
	return result
}

// persist hands the report to the history store, when there is one. The
// save runs off the background context with its own deadline so reports
// survive caller cancellation; a store failure costs the history entry,
// never the fill.
func (e *Engine) persist(report *schemas.FillReport) {
	if e.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.history.SaveReport(ctx, report); err != nil {
		e.log.Warn("persisting fill report",
			zap.String("sessionID", report.SessionID),
			zap.Error(err))
	}
}
