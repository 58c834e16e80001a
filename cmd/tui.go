package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotctl/internal/player"
	"github.com/desertthunder/spotctl/internal/shared"
	"github.com/desertthunder/spotctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playback remote.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/spotctl-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	// Fail fast before taking over the terminal.
	if _, err := r.session.EnsureValidToken(ctx); err != nil {
		return err
	}

	library, closeLibrary, err := r.openLibrary()
	if err != nil {
		r.logger.Warn("library cache unavailable, browsing without it", "error", err)
		library = nil
	} else {
		defer closeLibrary()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	synchronizer := player.NewSynchronizer(r.gateway, r.config.Player, fileLogger)
	dispatcher := player.NewDispatcher(synchronizer, time.Duration(r.config.Player.CommandDebounceMS)*time.Millisecond)

	go synchronizer.Run(runCtx)

	model := ui.NewModel(runCtx, r.gateway, library, synchronizer, dispatcher, fileLogger)
	p := tea.NewProgram(model, tea.WithAltScreen())

	_, runErr := p.Run()

	cancel()
	dispatcher.Stop()
	synchronizer.Wait()

	if runErr != nil {
		return fmt.Errorf("error running TUI: %w", runErr)
	}

	return nil
}
