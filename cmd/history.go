// File: cmd/history.go
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/formpilot/formpilot-cli/internal/observability"
	"github.com/formpilot/formpilot-cli/internal/store"
)

// newHistoryCmd lists past fill sessions and exposes a show subcommand
// for inspecting a single report in full.
func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past fill sessions",
		Long: `Lists fill sessions recorded in the history store, newest first.
Use 'formpilot history show <session-id>' to see the full report for one run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled in the configuration (history.enabled)")
			}

			st, err := store.New(cmd.Context(), cfg.History, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("opening history store: %w", err)
			}
			defer st.Close()

			sessions, err := st.ListSessions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			return printSessions(cmd.OutOrStdout(), sessions, asJSON)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list.")
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "Emit the listing as JSON.")
	historyCmd.AddCommand(newHistoryShowCmd())
	return historyCmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [session-id]",
		Short: "Print the full report for one fill session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled in the configuration (history.enabled)")
			}

			st, err := store.New(cmd.Context(), cfg.History, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("opening history store: %w", err)
			}
			defer st.Close()

			report, err := st.GetSession(cmd.Context(), args[0])
			if errors.Is(err, store.ErrSessionNotFound) {
				return fmt.Errorf("no session %q in the history store", args[0])
			}
			if err != nil {
				return fmt.Errorf("loading session: %w", err)
			}

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func printSessions(w io.Writer, sessions []store.SessionSummary, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding sessions: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(sessions) == 0 {
		fmt.Fprintln(w, "No fill sessions recorded yet.")
		return nil
	}

	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  [%s]  %d filled, %d skipped, %d errored  %s\n",
			s.SessionID,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Platform,
			s.Filled, s.Skipped, s.Errored,
			s.Target)
	}
	fmt.Fprintf(w, "\n%d session(s). Use 'formpilot history show <session-id>' for details.\n", len(sessions))
	return nil
}
