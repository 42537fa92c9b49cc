// File: cmd/profile.go
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/observability"
	"github.com/formpilot/formpilot-cli/internal/profile"
)

// newProfileCmd groups the profile management subcommands.
func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the stored applicant profile",
	}
	profileCmd.AddCommand(newProfileInitCmd(), newProfileCheckCmd())
	return profileCmd
}

// profilePath resolves the path to operate on: the -p flag when given,
// otherwise the configured location.
func profilePath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("profile"); p != "" {
		return p, nil
	}
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return "", err
	}
	return cfg.Profile.Path, nil
}

func newProfileInitCmd() *cobra.Command {
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter profile",
		Long: `Writes a fully populated sample profile so the shape is visible while
editing. Every value is a placeholder; replace them with your own.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := profilePath(cmd)
			if err != nil {
				return err
			}
			expanded, err := homedir.Expand(path)
			if err != nil {
				return fmt.Errorf("expanding profile path: %w", err)
			}
			if _, err := os.Stat(expanded); err == nil && !force {
				return fmt.Errorf("profile already exists at %s (use --force to overwrite)", expanded)
			}

			if err := profile.Save(path, profile.NewSampleProfile()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote starter profile to %s\n", expanded)
			fmt.Fprintln(cmd.OutOrStdout(), "Edit it, then run: formpilot profile check")
			return nil
		},
	}

	initCmd.Flags().StringP("profile", "p", "", "Profile file path (defaults to the configured path).")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing profile.")
	return initCmd
}

func newProfileCheckCmd() *cobra.Command {
	var asJSON bool

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Report how completely the profile answers common application questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := profilePath(cmd)
			if err != nil {
				return err
			}
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}

			prof, err := profile.Load(path)
			if err != nil {
				return fmt.Errorf("loading profile: %w (run 'formpilot profile init' to create one)", err)
			}

			resolver := profile.NewResolver(observability.GetLogger(), cfg.Resolver)
			report := resolver.CheckCompleteness(prof)
			return printCompleteness(cmd.OutOrStdout(), report, asJSON)
		},
	}

	checkCmd.Flags().StringP("profile", "p", "", "Profile file path (defaults to the configured path).")
	checkCmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON.")
	return checkCmd
}

func printCompleteness(w io.Writer, report schemas.CompletenessReport, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding completeness report: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "Profile answers %d of %d common application questions (%.0f%%).\n",
		report.Answered, report.Total, report.Score*100)

	if len(report.Gaps) == 0 {
		fmt.Fprintln(w, "No gaps; every catalogued question resolves from stored data.")
		return nil
	}

	fmt.Fprintln(w, "\nQuestions that will fall back to a synthesized answer:")
	for _, gap := range report.Gaps {
		fmt.Fprintf(w, "  [%s] %s\n", gap.Category, gap.Prompt)
		fmt.Fprintf(w, "      fallback: %q\n", gap.Fallback)
	}
	return nil
}
