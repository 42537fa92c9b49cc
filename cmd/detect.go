// File: cmd/detect.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/detect"
	"github.com/formpilot/formpilot-cli/internal/observability"
	"github.com/formpilot/formpilot-cli/internal/scanner"
)

// newDetectCmd creates the `detect` command.
func newDetectCmd() *cobra.Command {
	var asJSON bool

	detectCmd := &cobra.Command{
		Use:   "detect [target]",
		Short: "Scan a page and dump the per-field detection verdicts",
		Long: `Opens the target, scans it for fillable fields, and reports what the
widget detector makes of each one: native control or synthetic dropdown,
which strategy recognized it, and at what confidence. Useful for checking
how a page will be treated before running fill against it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runDetect(ctx, logger, cfg, args[0], asJSON, cmd.OutOrStdout())
		},
	}

	detectCmd.Flags().BoolVar(&asJSON, "json", false, "Emit the verdicts as JSON instead of a table.")
	return detectCmd
}

// fieldVerdict pairs a scanned field with the detector's widget match, when
// any strategy produced one.
type fieldVerdict struct {
	schemas.FieldDescriptor
	Widget *schemas.ComponentMatch `json:"widget,omitempty"`
}

// detectOutput is the JSON shape of a detect run.
type detectOutput struct {
	Target    string           `json:"target"`
	Platform  schemas.Platform `json:"platform"`
	FormScore float64          `json:"form_score"`
	Fields    []fieldVerdict   `json:"fields"`
}

// runDetect contains the core, testable logic for the detect command.
func runDetect(ctx context.Context, logger *zap.Logger, cfg *config.Config, target string, asJSON bool, out io.Writer) error {
	opener := newTargetOpener(cfg.Browser, logger)
	defer func() {
		if cerr := opener.Close(); cerr != nil {
			logger.Warn("Closing browser", zap.Error(cerr))
		}
	}()

	doc, closeDoc, err := opener.Open(ctx, target)
	if err != nil {
		return fmt.Errorf("opening %s: %w", target, err)
	}
	defer func() {
		if cerr := closeDoc(); cerr != nil {
			logger.Warn("Closing target", zap.Error(cerr))
		}
	}()

	scan, err := scanner.NewScanner(logger).Scan(ctx, doc)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", target, err)
	}

	detector := detect.NewDetector(logger)
	output := detectOutput{
		Target:    scan.Target,
		Platform:  scan.Platform,
		FormScore: scan.FormScore,
	}
	for _, field := range scan.Fields {
		verdict := fieldVerdict{FieldDescriptor: field}

		el, qerr := doc.QuerySelector(ctx, field.Selector)
		if qerr == nil && el != nil {
			if res, derr := detector.Detect(ctx, el); derr == nil && res.Detected {
				verdict.Widget = res.BestMatch
			}
		}
		output.Fields = append(output.Fields, verdict)
	}

	if asJSON {
		data, merr := json.MarshalIndent(output, "", "  ")
		if merr != nil {
			return fmt.Errorf("encoding detect output: %w", merr)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	printDetectTable(out, output)
	return nil
}

func printDetectTable(w io.Writer, output detectOutput) {
	fmt.Fprintf(w, "%s  [%s]  form score %.2f\n\n", output.Target, output.Platform, output.FormScore)
	if len(output.Fields) == 0 {
		fmt.Fprintln(w, "No fillable fields found.")
		return
	}

	fmt.Fprintf(w, "%-28s %-10s %-4s %-26s %s\n", "LABEL", "TYPE", "REQ", "MAPPED", "WIDGET")
	for _, v := range output.Fields {
		label := v.Label
		if label == "" {
			label = v.ID
		}
		if runes := []rune(label); len(runes) > 26 {
			label = string(runes[:23]) + "..."
		}

		req := ""
		if v.Required {
			req = "yes"
		}

		widget := "native"
		if v.Widget != nil {
			widget = fmt.Sprintf("%s (%.2f, %s)", v.Widget.Type, v.Widget.Confidence, v.Widget.DetectionMethod)
		}

		fmt.Fprintf(w, "%-28s %-10s %-4s %-26s %s\n", label, v.Type, req, v.MappedProfileField, widget)
	}
}
