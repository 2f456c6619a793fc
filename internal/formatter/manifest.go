package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/kpx/internal/shared"
)

// ManifestEntry is the outcome for one movie in a bulk export.
type ManifestEntry struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Manifest summarises a bulk export.
type Manifest struct {
	Format            string          `json:"format"`
	ExportedAt        time.Time       `json:"exported_at"`
	OutputDirectory   string          `json:"output_directory"`
	TotalMovies       int             `json:"total_movies"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	TotalBytes        int64           `json:"total_bytes"`
	TotalSize         string          `json:"total_size"`
	Movies            []ManifestEntry `json:"movies"`
}

// WriteBulkExportManifest writes m as indented JSON to path, filling in the human-readable size.
func WriteBulkExportManifest(m Manifest, path string) error {
	if m.ExportedAt.IsZero() {
		m.ExportedAt = time.Now().UTC()
	}
	m.TotalSize = humanize.Bytes(uint64(max(m.TotalBytes, 0)))
	if m.Movies == nil {
		m.Movies = []ManifestEntry{}
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Summary renders a one-line description of the export, e.g. "12 of 14 movies exported (1.2 MB)".
func (m Manifest) Summary() string {
	return fmt.Sprintf("%s of %s movies exported (%s)",
		humanize.Comma(int64(m.SuccessfulExports)),
		humanize.Comma(int64(m.TotalMovies)),
		humanize.Bytes(uint64(max(m.TotalBytes, 0))),
	)
}
