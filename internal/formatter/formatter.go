// package formatter renders movies and favorites as JSON, CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/shared"
)

// Supported output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the accepted values of --format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ValidFormat reports whether f is one of [Formats].
func ValidFormat(f string) bool {
	switch f {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatText:
		return true
	}
	return false
}

// FormatMovies renders a movie list in format. Unknown formats fall back to JSON.
func FormatMovies(format, title string, movies []models.MovieSummary) ([]byte, error) {
	switch format {
	case FormatCSV:
		return MoviesToCSV(movies)
	case FormatMarkdown:
		return MoviesToMarkdown(title, movies), nil
	case FormatText:
		return MoviesToText(title, movies), nil
	default:
		return shared.MarshalJSON(movies, true)
	}
}

// MoviesToCSV converts movies to CSV with columns: ID, Name, Year, Rating, Poster, URL
func MoviesToCSV(movies []models.MovieSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Year", "Rating", "Poster", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range movies {
		record := []string{
			strconv.Itoa(m.ID),
			m.Name,
			m.YearString(),
			m.RatingString(),
			m.PosterURL(),
			shared.MovieURL(m.ID),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// MoviesToMarkdown renders movies as a numbered Markdown list under title.
func MoviesToMarkdown(title string, movies []models.MovieSummary) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Movies**: %s\n\n", humanize.Comma(int64(len(movies))))

	for i, m := range movies {
		fmt.Fprintf(&buf, "%d. [%s](%s) (%s) ★ %s\n", i+1, m.Name, shared.MovieURL(m.ID), m.YearString(), m.RatingString())
	}

	return buf.Bytes()
}

// MoviesToText renders movies as plain text.
func MoviesToText(title string, movies []models.MovieSummary) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title)
	fmt.Fprintf(&buf, "Movies: %s\n\n", humanize.Comma(int64(len(movies))))

	for i, m := range movies {
		fmt.Fprintf(&buf, "%d. %s (%s) %s [id %d]\n", i+1, m.Name, m.YearString(), m.RatingString(), m.ID)
	}

	return buf.Bytes()
}

// DetailToMarkdown renders a movie record with an optional local poster image.
func DetailToMarkdown(d *models.MovieDetail, posterFilename string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", d.Name)
	if posterFilename != "" {
		fmt.Fprintf(&buf, "![Poster](%s)\n\n", posterFilename)
	}

	fmt.Fprintf(&buf, "**Year**: %s\n", d.YearString())
	fmt.Fprintf(&buf, "**Rating**: %s\n", d.RatingString())
	fmt.Fprintf(&buf, "**Countries**: %s\n", joinOrDash(d.Countries))
	fmt.Fprintf(&buf, "**Genres**: %s\n", joinOrDash(d.Genres))
	fmt.Fprintf(&buf, "**Link**: %s\n\n", shared.MovieURL(d.ID))
	fmt.Fprintf(&buf, "%s\n", d.DescriptionString())

	if len(d.Similar) > 0 {
		buf.WriteString("\n## Similar\n\n")
		for i, m := range d.Similar {
			fmt.Fprintf(&buf, "%d. [%s](%s)\n", i+1, m.Name, shared.MovieURL(m.ID))
		}
	}

	return buf.Bytes()
}

// DetailToText renders a movie record as plain text.
func DetailToText(d *models.MovieDetail) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", d.Name)
	fmt.Fprintf(&buf, "Year: %s\n", d.YearString())
	fmt.Fprintf(&buf, "Rating: %s\n", d.RatingString())
	fmt.Fprintf(&buf, "Countries: %s\n", joinOrDash(d.Countries))
	fmt.Fprintf(&buf, "Genres: %s\n\n", joinOrDash(d.Genres))
	fmt.Fprintf(&buf, "%s\n", d.DescriptionString())

	if len(d.Similar) > 0 {
		buf.WriteString("\nSimilar:\n")
		for _, m := range d.Similar {
			fmt.Fprintf(&buf, "  - %s [id %d]\n", m.Name, m.ID)
		}
	}

	return buf.Bytes()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// DetailExportOpts controls [WriteDetailExport].
type DetailExportOpts struct {
	Format    string
	OutputDir string
	// PosterData, when set, is saved next to the Markdown file and linked from it.
	PosterData []byte
}

// DetailFileBase returns "<id>-<slug>" used to name a movie's export files.
func DetailFileBase(d *models.MovieDetail) string {
	slug := shared.Slugify(d.Name)
	if slug == "" {
		return strconv.Itoa(d.ID)
	}
	return fmt.Sprintf("%d-%s", d.ID, slug)
}

// WriteDetailExport writes one movie record and returns the files it created.
//
//   - json : {base}.json
//   - csv : {base}_similar.csv and {base}_metadata.json
//   - markdown : {base}/README.md and optionally {base}/poster.jpg
//   - txt : {base}.txt
func WriteDetailExport(d *models.MovieDetail, opts DetailExportOpts) ([]string, error) {
	base := filepath.Join(opts.OutputDir, DetailFileBase(d))

	switch opts.Format {
	case FormatCSV:
		csvData, err := MoviesToCSV(d.Similar)
		if err != nil {
			return nil, fmt.Errorf("failed to generate CSV: %w", err)
		}
		similarFile := base + "_similar.csv"
		if err := os.WriteFile(similarFile, csvData, 0644); err != nil {
			return nil, fmt.Errorf("failed to write CSV file: %w", err)
		}

		meta := *d
		meta.Similar = nil
		metaJSON, err := shared.MarshalJSON(meta, true)
		if err != nil {
			return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
		}
		metadataFile := base + "_metadata.json"
		if err := os.WriteFile(metadataFile, metaJSON, 0644); err != nil {
			return nil, fmt.Errorf("failed to write metadata file: %w", err)
		}
		return []string{similarFile, metadataFile}, nil

	case FormatMarkdown:
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		var files []string
		var posterFilename string
		if len(opts.PosterData) > 0 {
			posterPath := filepath.Join(base, "poster.jpg")
			if err := os.WriteFile(posterPath, opts.PosterData, 0644); err != nil {
				return nil, fmt.Errorf("failed to save poster: %w", err)
			}
			posterFilename = "poster.jpg"
			files = append(files, posterPath)
		}

		mdFile := filepath.Join(base, "README.md")
		if err := os.WriteFile(mdFile, DetailToMarkdown(d, posterFilename), 0644); err != nil {
			return nil, fmt.Errorf("failed to write Markdown file: %w", err)
		}
		return append(files, mdFile), nil

	case FormatText:
		txtFile := base + ".txt"
		if err := os.WriteFile(txtFile, DetailToText(d), 0644); err != nil {
			return nil, fmt.Errorf("failed to write text file: %w", err)
		}
		return []string{txtFile}, nil

	default:
		data, err := shared.MarshalJSON(d, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		jsonFile := base + ".json"
		if err := os.WriteFile(jsonFile, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		return []string{jsonFile}, nil
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
