package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/kpx/internal/catalog"
	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/shared"
	"github.com/desertthunder/kpx/internal/ui"
)

// isTerminal is swapped in tests.
var isTerminal = func(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// TUI launches the interactive terminal catalog browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.catalog == nil {
		return fmt.Errorf("%w: catalog client not initialized", shared.ErrServiceUnavailable)
	}
	if !isTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("%w: the TUI needs an interactive terminal, use 'kpx movies list' instead", shared.ErrServiceUnavailable)
	}

	filters := models.DefaultFilters()
	if q := cmd.String("query"); q != "" {
		f, err := models.ParseFilterString(q)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		filters = f
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	w, err := shared.NewFileWriter(r.config.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	r.logger.SetOutput(w)
	defer r.logger.SetOutput(os.Stderr)

	controller := catalog.NewController(r.catalog, r.config.API.PageSize, r.logger)
	loader := catalog.NewDetailLoader(r.catalog, r.logger)

	model := ui.NewModel(ctx, controller, loader, r.favorites, r.logger, filters)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
