package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"teemscan/internal/driver"
	"teemscan/internal/pipeline"
	"teemscan/internal/ui"
)

type scanOutcome struct {
	results []*driver.LibraryResult
	err     error
}

func runScanWithUI(ctx context.Context, title string, libs []string, opts *driver.Options, jobs int) ([]*driver.LibraryResult, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan scanOutcome, 1)

	scanCtx, cancelScan := context.WithCancel(ctx)
	defer cancelScan()

	go func() {
		optsCopy := *opts
		optsCopy.Sink = pipeline.ChannelSink{Ch: events, Ctx: scanCtx}
		res, err := driver.ScanLibraries(scanCtx, libs, &optsCopy, jobs)
		outcomeCh <- scanOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, libs, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()

	// канал закрывается после результата; если его ещё нет, UI закрыли раньше
	var outcome scanOutcome
	select {
	case outcome = <-outcomeCh:
	default:
		cancelScan()
		outcome = <-outcomeCh
	}
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
