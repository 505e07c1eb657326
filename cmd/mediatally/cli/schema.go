package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mediatally/mediatally/internal/drift"
	"github.com/mediatally/mediatally/internal/recreate"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Render, recreate and check the declared schema",
	}

	cmd.AddCommand(newSchemaDDLCmd())
	cmd.AddCommand(newSchemaPlanCmd())
	cmd.AddCommand(newSchemaRecreateCmd())
	cmd.AddCommand(newSchemaCheckCmd())
	cmd.AddCommand(newSchemaInspectCmd())

	return cmd
}

// ---------- schema ddl ----------

func newSchemaDDLCmd() *cobra.Command {
	var dialect string

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the statements that create the schema in an empty database",
		Example: `  mediatally schema ddl
  mediatally schema ddl --dialect postgres`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			steps, err := a.svc.DDL(dialect)
			if err != nil {
				return err
			}
			printSteps(cmd.OutOrStdout(), steps)
			return nil
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "generic", "Dialect: generic, postgres, mysql, mssql or sqlite")
	return cmd
}

// ---------- schema plan ----------

func newSchemaPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <service>",
		Short: "Print the statements a recreation of a service would run",
		Long:  "Print the drop and create statements for a service's dialect without connecting to it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			steps, err := a.svc.Plan(args[0])
			if err != nil {
				return err
			}
			printSteps(cmd.OutOrStdout(), steps)
			return nil
		},
	}
}

// ---------- schema recreate ----------

func newSchemaRecreateCmd() *cobra.Command {
	var yes, dryRun bool

	cmd := &cobra.Command{
		Use:   "recreate <service>",
		Short: "Drop and recreate the schema's tables on a service",
		Long: `Drop every declared table and create it again from the declaration.
Rows in those tables are lost. Tables the schema does not declare are left alone.
The service must set allow_recreate: true in the config file.`,
		Example: `  mediatally schema recreate scratch --dry-run
  mediatally schema recreate scratch --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if dryRun {
				steps, err := a.svc.Plan(name)
				if err != nil {
					return err
				}
				printSteps(cmd.OutOrStdout(), steps)
				return nil
			}

			if !yes {
				if err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), name); err != nil {
					return err
				}
			}
			if err := a.svc.Recreate(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recreated %d tables on %s\n", a.svc.Schema().Len(), name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without running it")
	return cmd
}

// confirm asks for the service name on an interactive terminal.
func confirm(in io.Reader, out io.Writer, name string) error {
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return fmt.Errorf("refusing to recreate %q without a terminal; pass --yes", name)
	}
	fmt.Fprintf(out, "This drops every mediatally table on %q. Type the service name to continue: ", name)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read confirmation: %w", err)
	}
	if strings.TrimSpace(line) != name {
		return fmt.Errorf("recreate of %q cancelled", name)
	}
	return nil
}

// ---------- schema check ----------

func newSchemaCheckCmd() *cobra.Command {
	var jsonOutput, noHistory bool

	cmd := &cobra.Command{
		Use:   "check <service>",
		Short: "Compare a service's live catalog with the schema",
		Long: `Report every table, column, type, nullability, unique constraint and foreign
key that differs from the declaration. The run is recorded in the history store.
Exits non-zero when drift is found.`,
		Example: `  mediatally schema check prod
  mediatally schema check prod --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), !noHistory)
			if err != nil {
				return err
			}
			defer a.Close()

			report, run, err := a.svc.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), report)
				if run != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "\nRecorded as %s\n", run.RunID)
				}
			}

			if report.HasDrift {
				return fmt.Errorf("%s: %d mismatches", args[0], len(report.Mismatches))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the run")
	return cmd
}

// ---------- schema inspect ----------

func newSchemaInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <service>",
		Short: "Print the live catalog of a service as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			catalog, err := a.svc.Catalog(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(catalog)
		},
	}
}

func printSteps(w io.Writer, steps []recreate.Step) {
	var phase recreate.Phase
	for _, s := range steps {
		if s.Phase != phase {
			fmt.Fprintf(w, "-- %s\n", s.Phase)
			phase = s.Phase
		}
		fmt.Fprintf(w, "%s;\n", s.SQL)
	}
}

func printReport(w io.Writer, r drift.Report) {
	fmt.Fprintf(w, "Schema check: %s (%s, schema %s)\n", r.Service, r.Dialect, r.Schema)
	if !r.HasDrift {
		fmt.Fprintln(w, "  No drift.")
		return
	}
	for _, kind := range drift.Kinds {
		if n := r.Counts[kind]; n > 0 {
			fmt.Fprintf(w, "  %-28s %d\n", kind, n)
		}
	}
	fmt.Fprintln(w)
	for _, m := range r.Mismatches {
		fmt.Fprintf(w, "  ! %s\n", m)
	}
}
