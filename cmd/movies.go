package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/kpx/internal/catalog"
	"github.com/desertthunder/kpx/internal/formatter"
	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/shared"
)

// MoviesList loads one or more catalog pages for the requested filters.
func (r *Runner) MoviesList(ctx context.Context, cmd *cli.Command) error {
	filters, err := filtersFromFlags(cmd.String("query"), cmd.String("genres"), cmd.String("rating"), cmd.String("year"))
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if format != "" && !formatter.ValidFormat(format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}

	pages := cmd.Int("pages")
	if pages < 1 {
		return fmt.Errorf("%w: --pages must be at least 1", shared.ErrInvalidFlag)
	}

	controller, err := r.newController()
	if err != nil {
		return err
	}

	movies, err := r.loadPages(ctx, controller, filters, pages)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(movies, true)
	}
	if format != "" {
		data, err := formatter.FormatMovies(format, "Kinopoisk: "+describeFilters(filters), movies)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	r.writePlainHeader("Kinopoisk: " + describeFilters(filters))
	r.writeMovies(movies)

	summary := fmt.Sprintf("%s movies loaded", humanize.Comma(int64(len(movies))))
	if total := controller.Total(); total > 0 {
		summary += " of " + humanize.Comma(int64(total))
	}
	if controller.HasMore() {
		summary += fmt.Sprintf(" (more with --pages %d)", pages+1)
	}
	return r.writePlainln("%s", summary)
}

// loadPages applies filters and loads up to pages pages, stopping early once the catalog is
// exhausted.
func (r *Runner) loadPages(ctx context.Context, c *catalog.Controller, filters models.FilterState, pages int) ([]models.MovieSummary, error) {
	req, ok := c.ApplyFilters(filters)
	if ok {
		page, err := c.Fetch(ctx, req)
		c.Complete(req, page, err)
	}

	for loaded := 1; ; loaded++ {
		if c.State() == catalog.Errored {
			return nil, fmt.Errorf("failed to load page %d: %w", c.NextPage(), c.LastError())
		}
		if loaded >= pages || !c.HasMore() {
			break
		}
		r.logger.Debug("loading next page", "page", c.NextPage())
		if err := c.LoadNextPage(ctx); err != nil {
			return nil, fmt.Errorf("failed to load page %d: %w", c.NextPage(), err)
		}
	}
	return c.Movies(), nil
}

// MoviesShow prints a single movie with its similar titles.
func (r *Runner) MoviesShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if r.catalog == nil {
		return fmt.Errorf("%w: catalog client not initialized", shared.ErrServiceUnavailable)
	}

	movie, err := catalog.NewDetailLoader(r.catalog, r.logger).Load(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(movie, true)
	}

	marker := ""
	if r.favorites.IsFavorite(movie.ID) {
		marker = " ♥"
	}
	r.writePlainHeader(movie.Name + marker)
	r.writePlain("%s", formatter.DetailToText(movie))
	return r.writePlain("\n%s\n", shared.MovieURL(movie.ID))
}

// writeMovies prints one line per movie, marking favorites.
func (r *Runner) writeMovies(movies []models.MovieSummary) {
	for _, m := range movies {
		heart := " "
		if r.favorites.IsFavorite(m.ID) {
			heart = "♥"
		}
		r.writePlain("%s %8d  %s (%s) ★ %s\n", heart, m.ID, m.Name, m.YearString(), m.RatingString())
	}
}

// filtersFromFlags starts from the query string, when given, and overrides each dimension set by
// its own flag.
func filtersFromFlags(query, genres, rating, year string) (models.FilterState, error) {
	filters := models.DefaultFilters()
	if query != "" {
		f, err := models.ParseFilterString(query)
		if err != nil {
			return filters, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		filters = f
	}

	if genres != "" {
		filters.Genres = strings.Split(genres, ",")
	}
	if rating != "" {
		rr, err := models.ParseRatingRange(rating)
		if err != nil {
			return filters, fmt.Errorf("%w: --rating: %v", shared.ErrInvalidFlag, err)
		}
		filters.Rating = rr
	}
	if year != "" {
		yr, err := models.ParseYearRange(year)
		if err != nil {
			return filters, fmt.Errorf("%w: --year: %v", shared.ErrInvalidFlag, err)
		}
		filters.Year = yr
	}

	filters = filters.Normalize()
	if err := filters.Validate(); err != nil {
		return filters, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	return filters, nil
}

// describeFilters renders the non-default filters for headings.
func describeFilters(f models.FilterState) string {
	var parts []string
	if len(f.Genres) > 0 {
		parts = append(parts, strings.Join(f.Genres, ", "))
	}
	if !f.Rating.IsDefault() {
		parts = append(parts, "rating "+f.Rating.String())
	}
	if !f.Year.IsDefault() {
		parts = append(parts, "years "+f.Year.String())
	}
	if len(parts) == 0 {
		return "all movies"
	}
	return strings.Join(parts, " • ")
}

func parseID(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: movie id is required", shared.ErrMissingArgument)
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: movie id %q must be a positive integer", shared.ErrInvalidArgument, s)
	}
	return id, nil
}
