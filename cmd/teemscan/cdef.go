package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teemscan/internal/cdef"
	"teemscan/internal/driver"
)

var cdefCmd = &cobra.Command{
	Use:   "cdef [flags] [library...]",
	Short: "Write cdef-ready copies of library headers",
	Long: `Sanitize the installed headers of each library so that a limited C declaration
parser can read them, and write the result to <out>/cdef_<lib>.h. Without
library names, every configured library is processed.`,
	RunE: runCdef,
}

func init() {
	cdefCmd.Flags().String("out", "", "output directory (default [cdef].out)")
	cdefCmd.Flags().Bool("watch", false, "regenerate when installed headers change")
	cdefCmd.Flags().Bool("check", false, "only compare with existing output; stale files are an error")
}

func runCdef(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	libs, err := pickLibraries(cfg, args, len(args) == 0)
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return fmt.Errorf("failed to get check flag: %w", err)
	}
	if watch && check {
		return errors.New("--watch and --check cannot be used together")
	}
	verbosity, err := cmd.Root().PersistentFlags().GetCount("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	w, err := driver.NewCdefWriter(driver.CdefOptions{
		Config:    cfg,
		OutDir:    outDir,
		Check:     check,
		Verbosity: verbosity,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := driver.GenerateCdef(ctx, w, libs, nil)
	if !quiet {
		printCdefResults(cmd, results, check)
	}
	if err != nil {
		if check && errors.Is(err, cdef.ErrStale) {
			return fmt.Errorf("cdef output is stale: %w", err)
		}
		return err
	}
	if !watch {
		return nil
	}

	logger.Info("watching headers", zap.String("dir", w.HeaderDir), zap.Strings("libs", libs))
	return driver.WatchCdef(ctx, w, cfg, libs, logger)
}

func printCdefResults(cmd *cobra.Command, results []cdef.Result, check bool) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		state := "unchanged"
		switch {
		case check && r.Changed:
			state = "stale"
		case r.Changed:
			state = "written"
		}
		fmt.Fprintf(out, "%-8s %s (%d headers, %d lines) %s\n", r.Lib, r.Path, r.Headers, r.Lines, state)
	}
}
