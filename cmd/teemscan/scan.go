package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teemscan/internal/biff"
	"teemscan/internal/diag"
	"teemscan/internal/driver"
	"teemscan/internal/observ"
)

var (
	scanFormat = newOutputFormat("pretty", "pretty", "short", "json", "msgpack")
	scanUI     = uiModeAuto
)

var scanCmd = &cobra.Command{
	Use:   "scan [flags] [library...]",
	Short: "Check library symbols against header declarations",
	Long: `Build each library, read the symbols of its archive with nm, and compare them
with the declarations in <lib>.h and private<Lib>.h. With --biff, also scan
function definitions for biff usage: level 1 reports, level 2 writes annotated
copies (<file>-annote.c) with new annotations, level 3 also replaces existing
comments that disagree.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Bool("all", false, "scan every configured library")
	scanCmd.Flags().Int("biff", 0, "biff annotation level (0 off, 1 scan, 2 add, 3 overwrite)")
	scanCmd.Flags().Bool("clean", false, "run \"make clean\" before building")
	scanCmd.Flags().String("nm-file", "", "read symbols from a saved nm dump instead of building (one library only)")
	scanCmd.Flags().Int("jobs", 0, "libraries scanned in parallel (0 = [scan].jobs)")
	scanCmd.Flags().Var(scanFormat, "format", "diagnostics format (pretty|short|json|msgpack)")
	scanCmd.Flags().Bool("strict", false, "fail on warnings too")
	scanCmd.Flags().Var(&scanUI, "ui", "progress UI (auto|on|off)")
	scanCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

// runScan executes the "scan" command. It returns an error when a library
// hits a fatal error, or when diagnostics contain errors (warnings with
// --strict).
func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}
	libs, err := pickLibraries(cfg, args, all)
	if err != nil {
		return err
	}
	level, err := cmd.Flags().GetInt("biff")
	if err != nil {
		return fmt.Errorf("failed to get biff flag: %w", err)
	}
	if level < int(biff.LevelOff) || level > int(biff.LevelOverwrite) {
		return fmt.Errorf("--biff level %d not in [0, 3]", level)
	}
	clean, err := cmd.Flags().GetBool("clean")
	if err != nil {
		return fmt.Errorf("failed to get clean flag: %w", err)
	}
	nmFile, err := cmd.Flags().GetString("nm-file")
	if err != nil {
		return fmt.Errorf("failed to get nm-file flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if jobs <= 0 {
		jobs = cfg.Scan.Jobs
	}
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return fmt.Errorf("failed to get strict flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	timer := observ.NewTimer()
	opts := &driver.Options{
		Config: cfg,
		Toolchain: driver.ExecToolchain{
			Make:   cfg.Toolchain.Make,
			Nm:     cfg.Toolchain.Nm,
			Logger: logger,
		},
		BiffLevel:      biff.Level(level),
		Clean:          clean,
		NMFile:         nmFile,
		MaxDiagnostics: maxDiagnostics,
		Logger:         logger,
		Timer:          timer,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var results []*driver.LibraryResult
	title := "scanning " + strings.Join(libs, " ")
	if shouldUseTUI(scanUI) && scanFormat.String() == "pretty" {
		results, err = runScanWithUI(ctx, title, libs, opts, jobs)
	} else {
		results, err = driver.ScanLibraries(ctx, libs, opts, jobs)
	}
	if err != nil {
		dumpTrace(ctx, cmd.ErrOrStderr())
	}

	for _, r := range results {
		if r == nil || r.Err != nil {
			continue
		}
		logger.Info("scanned",
			zap.String("lib", r.Lib),
			zap.Int("symbols", r.Symbols),
			zap.Int("declarations", r.Decls),
			zap.Int("biff_queue", r.Queued),
			zap.Int("annotations", r.Applied))
	}

	bag := driver.MergeBags(results)
	if rerr := renderDiagnostics(cmd.OutOrStdout(), bag, scanFormat.String(), fullPath, cfg.Teem.Path); rerr != nil {
		return rerr
	}
	if showTimings {
		printTimings(cmd.ErrOrStderr(), results, timer)
	}

	switch {
	case err != nil:
		return err
	case bag.HasErrors():
		return errors.New("scan found errors")
	case strict && bag.HasWarnings():
		return fmt.Errorf("scan found %d warnings (--strict)", countSeverity(bag, diag.SevWarning))
	}
	return nil
}

func countSeverity(bag *diag.Bag, sev diag.Severity) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
