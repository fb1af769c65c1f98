package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/koory1st/funlog/internal/buildpipeline"
	"github.com/koory1st/funlog/internal/driver"
	"github.com/koory1st/funlog/internal/ui"
)

type genOutcome struct {
	results []*driver.FileResult
	err     error
}

// runGenWithUI generates paths while a progress view renders the pipeline
// events. Files are announced by the driver, so the view starts empty.
func runGenWithUI(ctx context.Context, title string, paths []string, opts driver.Options) ([]*driver.FileResult, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan genOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := driver.GeneratePaths(ctx, paths, optsCopy)
		outcomeCh <- genOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, nil, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the view may quit early; keep the driver from blocking on a full channel
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
