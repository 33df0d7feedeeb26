package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"teemscan/internal/version"
)

var versionFormat = newOutputFormat("pretty", "pretty", "json")

type versionPayload struct {
	Tool string `json:"tool"`
	version.Info
}

func init() {
	versionCmd.Flags().Var(versionFormat, "format", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show teemscan build metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionFormat.String() == "json" {
			return renderVersionJSON(cmd.OutOrStdout(), info)
		}
		renderVersionPretty(cmd.OutOrStdout(), info)
		return nil
	},
}

func renderVersionPretty(out io.Writer, info version.Info) {
	fmt.Fprintf(out, "teemscan %s\n", version.Colored(info.Version))
	if info.GitCommit != "" {
		fmt.Fprintf(out, "  commit: %s\n", info.GitCommit)
	}
	if info.BuildDate != "" {
		fmt.Fprintf(out, "  built:  %s\n", info.BuildDate)
	}
}

func renderVersionJSON(out io.Writer, info version.Info) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(versionPayload{Tool: "teemscan", Info: info})
}
