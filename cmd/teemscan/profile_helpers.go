package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teemscan/internal/prof"
)

// setupProfiling starts the profilers named by the persistent flags. The
// returned cleanup stops them and writes the heap profile.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	var p prof.Paths
	var err error
	if p.CPU, err = root.PersistentFlags().GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if p.Mem, err = root.PersistentFlags().GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if p.Trace, err = root.PersistentFlags().GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !p.Enabled() {
		return func() {}, nil
	}

	session, err := prof.Start(p)
	if err != nil {
		return nil, fmt.Errorf("failed to start profiling: %w", err)
	}
	return func() {
		if err := session.Stop(); err != nil {
			logger.Warn("profiling", zap.Error(err))
		}
	}, nil
}
