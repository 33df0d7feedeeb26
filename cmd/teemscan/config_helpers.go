package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teemscan/internal/config"
)

// loadConfig resolves teemscan.toml from --config or by walking up from the
// working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(wd, explicit)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		logger.Debug("using config", zap.String("path", cfg.Path))
	} else {
		logger.Debug("no teemscan.toml found, using defaults", zap.String("teem", cfg.Teem.Path))
	}
	return cfg, nil
}

// pickLibraries returns args, or every configured library with all set.
// Unknown names are rejected.
func pickLibraries(cfg *config.Config, args []string, all bool) ([]string, error) {
	switch {
	case all && len(args) > 0:
		return nil, fmt.Errorf("--all does not take library names")
	case all:
		return slices.Clone(cfg.Scan.Libraries), nil
	case len(args) == 0:
		return nil, fmt.Errorf("no libraries given (name them or use --all)")
	}
	seen := make(map[string]bool, len(args))
	libs := make([]string, 0, len(args))
	for _, lib := range args {
		if !cfg.KnownLibrary(lib) {
			return nil, fmt.Errorf("unknown library %q (not in [scan].libraries)", lib)
		}
		if !seen[lib] {
			seen[lib] = true
			libs = append(libs, lib)
		}
	}
	return libs, nil
}
