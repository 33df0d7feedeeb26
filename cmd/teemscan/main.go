package main

import (
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"teemscan/internal/logging"
	"teemscan/internal/version"
)

var (
	logger    *zap.Logger
	colorFlag = colorAuto
	cleanupMu sync.Mutex
	cleanups  []func()
)

var rootCmd = &cobra.Command{
	Use:   "teemscan",
	Short: "Teem header sanitizer and biff annotation scanner",
	Long: `teemscan prepares Teem headers for a limited C declaration parser (cdef),
checks that library symbols and header declarations agree (scan), and infers
how functions report errors through biff, writing annotated copies of sources.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, err := cmd.Root().PersistentFlags().GetCount("verbose")
		if err != nil {
			return err
		}
		quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
		if err != nil {
			return err
		}
		logger, err = logging.New(verbosity, quiet)
		if err != nil {
			return err
		}
		color.NoColor = !colorEnabled()

		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		addCleanup(stopProfiling)

		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		addCleanup(cleanup)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		runCleanups()
	},
}

// main registers the commands and flags and runs the root command.
// Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(cdefCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(annotationsCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("config", "", "path to teemscan.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "more logging (-v info, -vv debug, -vvv rule-level debug)")
	rootCmd.PersistentFlags().Var(&colorFlag, "color", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "only log errors")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum number of diagnostics kept per library (0 = unlimited)")
	rootCmd.PersistentFlags().String("trace", "", "write trace events to file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|phase|library|debug)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace output format (auto|text|ndjson)")
	rootCmd.PersistentFlags().String("trace-mode", "both", "trace storage mode (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept in memory for dumps after a failure")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write heap profile to file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write Go runtime trace to file")

	err := rootCmd.Execute()
	// при ошибке PersistentPostRun не вызывается
	runCleanups()
	if err != nil {
		os.Exit(1)
	}
}

func addCleanup(fn func()) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	cleanups = append(cleanups, fn)
}

func runCleanups() {
	cleanupMu.Lock()
	fns := cleanups
	cleanups = nil
	cleanupMu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func colorEnabled() bool {
	switch colorFlag {
	case colorOn:
		return true
	case colorOff:
		return false
	default:
		return os.Getenv("NO_COLOR") == "" && isTerminal(os.Stdout)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
