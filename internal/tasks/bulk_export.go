package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/kpx/internal/formatter"
	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/shared"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 5.0
	manifestFilename = "manifest.json"
)

// ExportOpts contains configuration for bulk detail exports.
type ExportOpts struct {
	Format    string  // Export format: json, csv, markdown, txt
	OutputDir string  // Base output directory (default: kpx_export_{epoch})
	Workers   int     // Concurrent workers (default: 4, max: 10)
	RateLimit float64 // Requests per second (default: 5)
	Posters   bool    // Download posters for Markdown exports
}

// MovieExportResult is the outcome for a single movie.
type MovieExportResult struct {
	ID      int
	Name    string
	Success bool
	Files   []string
	Bytes   int64
	Error   error
}

// BulkExportResult summarises a bulk export.
type BulkExportResult struct {
	TotalMovies       int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	TotalBytes        int64
	Results           []MovieExportResult // In input order
}

// BulkExport exports the detail record of every movie concurrently with rate limiting and
// progress tracking.
//
// Individual failures are recorded in the result and manifest. The returned error is non-nil only
// when the export could not run (output directory, cancellation, manifest write).
func (e *Exporter) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, movies []models.MovieSummary, opts ExportOpts) (*BulkExportResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: catalog client not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("kpx_export_%d", time.Now().Unix())
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(movies)
	result := &BulkExportResult{
		TotalMovies:     total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]MovieExportResult, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	sendProgress(prog, prepareUpdate(total, opts.OutputDir))

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, movie := range movies {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			sendProgress(prog, fetchingDetailUpdate(i+1, total, movie.Name))

			res := e.exportOne(gctx, movie, opts)
			if gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			result.Results[i] = res
			completed++
			step := completed
			mu.Unlock()

			if res.Success {
				sendProgress(prog, exportCompletedUpdate(step, total, res))
			} else {
				e.logger.Warn("movie export failed", "id", res.ID, "error", res.Error)
				sendProgress(prog, exportFailedUpdate(step, total, res))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("export cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export cancelled: %w", err)
	}

	manifest := formatter.Manifest{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		TotalMovies:     total,
		Movies:          make([]formatter.ManifestEntry, 0, total),
	}
	for _, res := range result.Results {
		entry := formatter.ManifestEntry{ID: res.ID, Name: res.Name, Files: res.Files, Status: "success"}
		if res.Success {
			result.SuccessfulExports++
			result.TotalBytes += res.Bytes
		} else {
			result.FailedExports++
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		manifest.Movies = append(manifest.Movies, entry)
	}
	manifest.SuccessfulExports = result.SuccessfulExports
	manifest.FailedExports = result.FailedExports
	manifest.TotalBytes = result.TotalBytes

	manifestPath := filepath.Join(opts.OutputDir, manifestFilename)
	sendProgress(prog, manifestUpdate(manifestPath))
	if err := formatter.WriteBulkExportManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("bulk export finished", "dir", opts.OutputDir, "ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportOne fetches and writes a single movie.
func (e *Exporter) exportOne(ctx context.Context, movie models.MovieSummary, opts ExportOpts) MovieExportResult {
	res := MovieExportResult{ID: movie.ID, Name: movie.Name, Files: []string{}}

	detail, err := e.client.FetchMovie(ctx, movie.ID)
	if err != nil {
		res.Error = fmt.Errorf("failed to fetch movie: %w", err)
		return res
	}
	if detail.Name != "" {
		res.Name = detail.Name
	}

	detailOpts := formatter.DetailExportOpts{Format: opts.Format, OutputDir: opts.OutputDir}
	if opts.Posters && opts.Format == formatter.FormatMarkdown && detail.PosterURL() != "" {
		data, err := formatter.DownloadImage(ctx, e.httpClient, detail.PosterURL())
		if err != nil {
			e.logger.Warn("poster download failed", "id", movie.ID, "error", err)
		} else {
			detailOpts.PosterData = data
		}
	}

	files, err := formatter.WriteDetailExport(detail, detailOpts)
	if err != nil {
		res.Error = err
		return res
	}

	res.Files = files
	res.Success = true
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			res.Bytes += info.Size()
		}
	}
	return res
}
