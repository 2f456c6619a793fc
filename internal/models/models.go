package models

import (
	"fmt"
	"strings"
)

// Poster holds the two image sizes the catalog API returns.
type Poster struct {
	PreviewURL string `json:"previewUrl,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Rating holds the Kinopoisk rating; KP is nil when the API has none.
type Rating struct {
	KP *float64 `json:"kp,omitempty"`
}

// MovieSummary is a snapshot of a catalog entry taken at fetch time.
//
// It is never refreshed afterwards; favorites keep whatever was true when they were added.
type MovieSummary struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Year   *int    `json:"year,omitempty"`
	Rating *Rating `json:"rating,omitempty"`
	Poster *Poster `json:"poster,omitempty"`
}

// MovieDetail is a full movie record including its "similar movies" list.
type MovieDetail struct {
	MovieSummary
	Description *string        `json:"description,omitempty"`
	Countries   []string       `json:"countries"`
	Genres      []string       `json:"genres"`
	Similar     []MovieSummary `json:"similar"`
}

// Page is one response unit of the paginated catalog endpoint.
//
// Docs is nil when the response carried no docs array at all.
type Page struct {
	Docs  []MovieSummary `json:"docs"`
	Total int            `json:"total"`
	Limit int            `json:"limit"`
	Page  int            `json:"page"`
	Pages int            `json:"pages"`
}

// KP returns the Kinopoisk rating and whether it is present.
func (m MovieSummary) KP() (float64, bool) {
	if m.Rating == nil || m.Rating.KP == nil {
		return 0, false
	}
	return *m.Rating.KP, true
}

// PreviewURL returns the small poster URL, or "" when absent.
func (m MovieSummary) PreviewURL() string {
	if m.Poster == nil {
		return ""
	}
	return m.Poster.PreviewURL
}

// PosterURL returns the preview poster, falling back to the full-size one.
func (m MovieSummary) PosterURL() string {
	if m.Poster == nil {
		return ""
	}
	if m.Poster.PreviewURL != "" {
		return m.Poster.PreviewURL
	}
	return m.Poster.URL
}

// Displayable reports whether an entry can be listed: a non-blank name and a preview poster.
func (m MovieSummary) Displayable() bool {
	return strings.TrimSpace(m.Name) != "" && m.PreviewURL() != ""
}

// YearString renders the year or "-".
func (m MovieSummary) YearString() string {
	if m.Year == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *m.Year)
}

// RatingString renders a positive rating with one decimal, or "-".
func (m MovieSummary) RatingString() string {
	if kp, ok := m.KP(); ok && kp > 0 {
		return fmt.Sprintf("%.1f", kp)
	}
	return "-"
}

// Summary strips a detail record down to the fields kept in favorites.
func (d MovieDetail) Summary() MovieSummary {
	return d.MovieSummary
}

// DescriptionString returns the description or a placeholder.
func (d MovieDetail) DescriptionString() string {
	if d.Description == nil || strings.TrimSpace(*d.Description) == "" {
		return "No description"
	}
	return *d.Description
}
