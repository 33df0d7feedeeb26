package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teemscan/internal/driver"
)

var annotationsFormat = newOutputFormat("json", "json", "yaml", "msgpack")

var annotationsCmd = &cobra.Command{
	Use:   "annotations [flags] LIBRARY",
	Short: "Export the biff annotations found in library sources",
	Long: `Read every .c file of the library (annotated -annote.c copies excluded) and
print the functions that carry a biff annotation, with the parsed fields.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotations,
}

func init() {
	annotationsCmd.Flags().Var(annotationsFormat, "format", "output format (json|yaml|msgpack)")
}

func runAnnotations(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	libs, err := pickLibraries(cfg, args, false)
	if err != nil {
		return err
	}
	table, bad, err := driver.Annotations(cfg, libs[0])
	if err != nil {
		return err
	}
	for _, e := range bad {
		logger.Warn("bad annotation", zap.Error(e))
	}
	return driver.WriteAnnotations(cmd.OutOrStdout(), table, annotationsFormat.String())
}
