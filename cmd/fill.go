// File: cmd/fill.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/browser"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/dom"
	"github.com/formpilot/formpilot-cli/internal/dom/memdom"
	"github.com/formpilot/formpilot-cli/internal/engine"
	"github.com/formpilot/formpilot-cli/internal/observability"
	"github.com/formpilot/formpilot-cli/internal/profile"
	"github.com/formpilot/formpilot-cli/internal/store"
)

// newFillCmd creates and configures the `fill` command.
func newFillCmd() *cobra.Command {
	fillCmd := &cobra.Command{
		Use:   "fill [targets...]",
		Short: "Scan the targets for application forms and fill them from the profile",
		Long: `Opens each target, scans it for fillable application-form fields, resolves
values from the stored profile, and works through the interaction strategy
chain field by field. http(s) targets open in a headless browser; anything
else is treated as a static HTML snapshot on disk.

The form is never submitted. Review the filled page and submit manually.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so command-line values override
			// the config file and environment with the right precedence.
			if err := viper.BindPFlag("profile.path", cmd.Flags().Lookup("profile")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.dry_run", cmd.Flags().Lookup("dry-run")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.field_timeout", cmd.Flags().Lookup("timeout")); err != nil {
				return err
			}
			return viper.BindPFlag("engine.max_concurrent_targets", cmd.Flags().Lookup("concurrency"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			// Re-unmarshal now that the flags are bound, then re-validate the
			// overridden values.
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			outputPath, _ := cmd.Flags().GetString("output")
			submit, _ := cmd.Flags().GetBool("submit")
			return runFill(ctx, logger, cfg, args, outputPath, submit, cmd.OutOrStdout())
		},
	}

	fillCmd.Flags().StringP("profile", "p", "", "Profile file path. (Overrides config/env)")
	fillCmd.Flags().Bool("dry-run", false, "Resolve and plan every field without touching the page.")
	fillCmd.Flags().Bool("submit", false, "Submission is not supported; setting this fails instead of silently ignoring it.")
	fillCmd.Flags().DurationP("timeout", "t", 0, "Per-field timeout. (Overrides config/env)")
	fillCmd.Flags().IntP("concurrency", "j", 0, "Number of concurrent targets. (Overrides config/env)")
	fillCmd.Flags().StringP("output", "o", "", "Write the full fill report as JSON to this path.")

	return fillCmd
}

// runFill contains the core, testable logic for the fill command.
func runFill(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	targets []string,
	outputPath string,
	submit bool,
	out io.Writer,
) error {
	if submit {
		return errors.New("form submission is not supported; fill the form, then review and submit manually")
	}

	prof, err := profile.Load(cfg.Profile.Path)
	if err != nil {
		return fmt.Errorf("loading profile: %w (run 'formpilot profile init' to create one)", err)
	}

	opener := newTargetOpener(cfg.Browser, logger)
	defer func() {
		if cerr := opener.Close(); cerr != nil {
			logger.Warn("Closing browser", zap.Error(cerr))
		}
	}()

	var history engine.History
	if cfg.History.Enabled {
		st, serr := store.New(ctx, cfg.History, logger)
		if serr != nil {
			// History is a convenience; a broken store must not block filling.
			logger.Warn("History store unavailable; continuing without it", zap.Error(serr))
		} else {
			defer func() {
				if cerr := st.Close(); cerr != nil {
					logger.Warn("Closing history store", zap.Error(cerr))
				}
			}()
			history = st
		}
	}

	eng := engine.New(cfg, engine.Deps{Opener: opener, History: history}, logger)

	logger.Info("Starting fill run",
		zap.Strings("targets", targets),
		zap.Bool("dry_run", cfg.Engine.DryRun),
		zap.Int("concurrency", cfg.Engine.MaxConcurrentTargets))

	results, runErr := eng.Run(ctx, targets, prof)

	printFillSummary(out, results)
	if outputPath != "" {
		if werr := writeFillReport(outputPath, results); werr != nil {
			return werr
		}
		fmt.Fprintf(out, "\nReport written to %s\n", outputPath)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Fill run aborted; partial results above")
		}
		return runErr
	}

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(targets))
	}
	return nil
}

// printFillSummary renders the human-oriented per-target outcome. The
// machine-readable form goes through --output.
func printFillSummary(w io.Writer, results []engine.TargetResult) {
	for _, res := range results {
		if res.Report == nil {
			fmt.Fprintf(w, "\n%s\n  failed: %v\n", res.Target, res.Err)
			continue
		}
		r := res.Report
		fmt.Fprintf(w, "\n%s  [%s]\n", res.Target, r.Platform)
		fmt.Fprintf(w, "  session %s: %d filled, %d skipped, %d errored in %s\n",
			r.SessionID, r.Filled, r.Skipped, r.Errored, r.Duration.Round(time.Millisecond))

		for _, f := range r.Fields {
			label := f.Label
			if label == "" {
				label = f.FieldID
			}
			switch f.Outcome {
			case schemas.OutcomeFilled:
				fmt.Fprintf(w, "  %-5s %s = %q (%s)\n", "ok", label, f.Value, f.Strategy)
			case schemas.OutcomeSkipped:
				fmt.Fprintf(w, "  %-5s %s: %s\n", "skip", label, f.Reason)
			case schemas.OutcomeError:
				fmt.Fprintf(w, "  %-5s %s: %s\n", "err", label, f.Reason)
			}
		}
		if res.Err != nil {
			fmt.Fprintf(w, "  interrupted: %v\n", res.Err)
		}
	}
}

// targetOutcome is the JSON shape of one target in the --output report.
type targetOutcome struct {
	Target string              `json:"target"`
	Error  string              `json:"error,omitempty"`
	Report *schemas.FillReport `json:"report,omitempty"`
}

type fillRunOutput struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Targets     []targetOutcome `json:"targets"`
}

func writeFillReport(path string, results []engine.TargetResult) error {
	output := fillRunOutput{GeneratedAt: time.Now()}
	for _, res := range results {
		outcome := targetOutcome{Target: res.Target, Report: res.Report}
		if res.Err != nil {
			outcome.Error = res.Err.Error()
		}
		output.Targets = append(output.Targets, outcome)
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding fill report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing fill report: %w", err)
	}
	return nil
}

// targetOpener routes each target to the right document source: http(s)
// URLs open in a shared headless browser, anything else is read from disk
// into the in-memory DOM. The browser is created lazily so file-only runs
// never launch Chrome.
type targetOpener struct {
	cfg config.BrowserConfig
	log *zap.Logger

	mu      sync.Mutex
	browser *browser.Browser
}

var _ engine.Opener = (*targetOpener)(nil)

func newTargetOpener(cfg config.BrowserConfig, log *zap.Logger) *targetOpener {
	return &targetOpener{cfg: cfg, log: log}
}

func (o *targetOpener) Open(ctx context.Context, target string) (dom.Document, func() error, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		o.mu.Lock()
		if o.browser == nil {
			o.browser = browser.New(o.cfg, o.log)
		}
		b := o.browser
		o.mu.Unlock()
		return b.Open(ctx, target)
	}
	return openSnapshot(target)
}

// Close shuts down the shared browser, when one was started.
func (o *targetOpener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.browser == nil {
		return nil
	}
	return o.browser.Close()
}

// openSnapshot loads a static HTML file into the in-memory DOM.
func openSnapshot(target string) (dom.Document, func() error, error) {
	path := strings.TrimPrefix(target, "file://")
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, nil, fmt.Errorf("expanding %s: %w", target, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", target, err)
	}
	doc, err := memdom.Parse(string(data), target)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", target, err)
	}
	return doc, func() error { return nil }, nil
}
