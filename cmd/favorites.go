package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/kpx/internal/formatter"
	"github.com/desertthunder/kpx/internal/shared"
	"github.com/desertthunder/kpx/internal/tasks"
)

// FavoritesList prints the saved favorites in insertion order.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	movies := r.favorites.List()

	if cmd.Bool("json") {
		return r.writeJSON(movies, true)
	}

	if len(movies) == 0 {
		return r.writePlain("No favorites yet. Add one with 'kpx favorites add <id>'.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Favorites (%d)", len(movies)))
	r.writeMovies(movies)
	return nil
}

// FavoritesAdd fetches the movie so the favorite keeps a snapshot of its summary.
func (r *Runner) FavoritesAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if r.favorites.IsFavorite(id) {
		movie, _ := r.favorites.Get(id)
		return r.writePlain("%s is already a favorite\n", movie.Name)
	}
	if r.catalog == nil {
		return fmt.Errorf("%w: catalog client not initialized", shared.ErrServiceUnavailable)
	}

	movie, err := r.catalog.FetchMovie(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch movie %d: %w", id, err)
	}

	r.favorites.Add(movie.Summary())
	r.logger.Info("favorite added", "id", id, "name", movie.Name)
	return r.writePlain("♥ Added %s (%s) to favorites\n", movie.Name, movie.YearString())
}

// FavoritesRemove drops a movie from favorites.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	movie, found := r.favorites.Get(id)
	r.favorites.Remove(id)
	if !found {
		return r.writePlain("Movie %d is not a favorite\n", id)
	}
	r.logger.Info("favorite removed", "id", id)
	return r.writePlain("Removed %s from favorites\n", movie.Name)
}

// FavoritesExport writes the favorites list in the requested format.
func (r *Runner) FavoritesExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if !formatter.ValidFormat(format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}

	data, err := formatter.FormatMovies(format, "Favorites", r.favorites.List())
	if err != nil {
		return err
	}

	outputPath := cmd.String("output")
	if outputPath == "" {
		_, err := r.output.Write(data)
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	r.logger.Info("favorites exported", "path", outputPath, "format", format)
	return r.writePlain("✓ Exported %d favorites to %s\n", r.favorites.Len(), outputPath)
}

// FavoritesDetails fetches every favorite's full record concurrently and writes one export per
// movie plus a manifest.
func (r *Runner) FavoritesDetails(ctx context.Context, cmd *cli.Command) error {
	movies := r.favorites.List()
	if len(movies) == 0 {
		return r.writePlain("No favorites to export\n")
	}

	opts := tasks.ExportOpts{
		Format:    cmd.String("format"),
		OutputDir: cmd.String("dir"),
		Workers:   cmd.Int("workers"),
		RateLimit: cmd.Float("rate"),
		Posters:   cmd.Bool("posters"),
	}

	progress := make(chan tasks.ProgressUpdate, len(movies)*2+2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.exporter.BulkExport(ctx, progress, movies, opts)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("✓ %d of %d movies exported to %s", result.SuccessfulExports, result.TotalMovies, result.OutputDirectory)
	if result.FailedExports > 0 {
		r.writePlain("✗ %d failed, see %s\n", result.FailedExports, result.ManifestPath)
	}
	return nil
}
