package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded schema checks",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		serviceName string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent checks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.history.ListChecks(cmd.Context(), serviceName, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No checks recorded. Run 'mediatally schema check <service>' first.")
				return nil
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-36s  %-16s  %-10s  %-20s  %s\n", "RUN", "SERVICE", "DIALECT", "STARTED", "MISMATCHES")
			fmt.Fprintf(w, "%-36s  %-16s  %-10s  %-20s  %s\n", "---", "-------", "-------", "-------", "----------")
			for _, r := range runs {
				fmt.Fprintf(w, "%-36s  %-16s  %-10s  %-20s  %d\n",
					r.RunID, r.Service, r.Dialect, r.StartedAt.Local().Format(time.DateTime), r.MismatchCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Only checks of this service")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of checks")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded check and its findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.history.GetCheck(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run:      %s\n", run.RunID)
			fmt.Fprintf(w, "Service:  %s (%s)\n", run.Service, run.Dialect)
			fmt.Fprintf(w, "Schema:   %s\n", run.Schema)
			fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
			fmt.Fprintf(w, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
			if !run.HasDrift {
				fmt.Fprintln(w, "\nNo drift.")
				return nil
			}
			fmt.Fprintf(w, "\n%d mismatches:\n", run.MismatchCount)
			for _, f := range run.Findings {
				fmt.Fprintf(w, "  ! [%s] %s\n", f.Kind, f.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
