package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mediatally/mediatally/internal/mediaschema"
)

// buildInfo is printed by the version command.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	Schema    string `json:"schema"`
	Tables    int    `json:"tables"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCmd(version, commit, date string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build and the schema it declares",
		Long:  "Print the build version together with the name and table count of the compiled-in media schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := mediaschema.New()
			if err != nil {
				return fmt.Errorf("build schema: %w", err)
			}
			info := buildInfo{
				Version:   version,
				Commit:    commit,
				Built:     date,
				Schema:    s.Name(),
				Tables:    s.Len(),
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(w, "mediatally %s (%s, built %s)\n", info.Version, info.Commit, info.Built)
			fmt.Fprintf(w, "  schema %s: %d tables\n", info.Schema, info.Tables)
			fmt.Fprintf(w, "  %s %s\n", info.GoVersion, info.Platform)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
