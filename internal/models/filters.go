package models

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Unfiltered sentinels. A range equal to its sentinel is left out of the query string.
const (
	MinRating = 0.0
	MaxRating = 10.0
	MinYear   = 1990
	MaxYear   = 2025
)

// Navigation query keys.
const (
	QueryGenres = "genres"
	QueryRating = "rating"
	QueryYear   = "year"
)

// GenreOption is a selectable genre; Value is what the API filters on.
type GenreOption struct {
	Label string
	Value string
}

// Genres offered by the filter editor.
var Genres = []GenreOption{
	{Label: "Комедия", Value: "комедия"},
	{Label: "Драма", Value: "драма"},
	{Label: "Боевик", Value: "боевик"},
	{Label: "Фантастика", Value: "фантастика"},
	{Label: "Ужасы", Value: "ужасы"},
}

// RatingRange is an inclusive Kinopoisk rating range.
type RatingRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// YearRange is an inclusive release year range.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FilterState is the committed set of catalog filters.
type FilterState struct {
	Genres []string    `json:"genres"`
	Rating RatingRange `json:"rating"`
	Year   YearRange   `json:"year"`
}

// DefaultFilters returns the unfiltered state.
func DefaultFilters() FilterState {
	return FilterState{
		Rating: RatingRange{Min: MinRating, Max: MaxRating},
		Year:   YearRange{Min: MinYear, Max: MaxYear},
	}
}

func (r RatingRange) String() string {
	return formatRating(r.Min) + "-" + formatRating(r.Max)
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// IsDefault reports whether the range equals the [0,10] sentinel.
func (r RatingRange) IsDefault() bool {
	return r.Min == MinRating && r.Max == MaxRating
}

// IsDefault reports whether the range equals the [1990,2025] sentinel.
func (r YearRange) IsDefault() bool {
	return r.Min == MinYear && r.Max == MaxYear
}

// Validate checks min <= max for both ranges and the rating bounds.
func (f FilterState) Validate() error {
	if !finite(f.Rating.Min) || !finite(f.Rating.Max) {
		return fmt.Errorf("rating range %s: bounds must be finite", f.Rating)
	}
	if f.Rating.Min > f.Rating.Max {
		return fmt.Errorf("rating range %s: min is greater than max", f.Rating)
	}
	if f.Rating.Min < MinRating || f.Rating.Max > MaxRating {
		return fmt.Errorf("rating range %s: outside %v-%v", f.Rating, MinRating, MaxRating)
	}
	if f.Year.Min > f.Year.Max {
		return fmt.Errorf("year range %s: min is greater than max", f.Year)
	}
	return nil
}

// Normalize trims genre names, drops blanks and duplicates, and keeps first-seen order.
func (f FilterState) Normalize() FilterState {
	out := f
	out.Genres = nil
	for _, g := range f.Genres {
		g = strings.TrimSpace(g)
		if g == "" || slices.Contains(out.Genres, g) {
			continue
		}
		out.Genres = append(out.Genres, g)
	}
	return out
}

// HasGenre reports whether g is selected.
func (f FilterState) HasGenre(g string) bool {
	return slices.Contains(f.Genres, g)
}

// ToggleGenre returns a copy with g added or removed.
func (f FilterState) ToggleGenre(g string) FilterState {
	out := f
	if f.HasGenre(g) {
		out.Genres = slices.DeleteFunc(slices.Clone(f.Genres), func(s string) bool { return s == g })
		return out
	}
	out.Genres = append(slices.Clone(f.Genres), g)
	return out
}

// Equal compares two filter states, genre order included.
func (f FilterState) Equal(o FilterState) bool {
	return slices.Equal(f.Genres, o.Genres) && f.Rating == o.Rating && f.Year == o.Year
}

// EncodeQuery builds the navigation query representation.
//
// Empty genre sets and sentinel ranges are omitted so shareable queries stay minimal.
func (f FilterState) EncodeQuery() url.Values {
	q := url.Values{}
	if len(f.Genres) > 0 {
		q.Set(QueryGenres, strings.Join(f.Genres, ","))
	}
	if !f.Rating.IsDefault() {
		q.Set(QueryRating, f.Rating.String())
	}
	if !f.Year.IsDefault() {
		q.Set(QueryYear, f.Year.String())
	}
	return q
}

// ParseFilterQuery reads a navigation query. Absent or unparsable keys fall back to the
// unfiltered value for that dimension.
func ParseFilterQuery(q url.Values) FilterState {
	f := DefaultFilters()

	if g := q.Get(QueryGenres); g != "" {
		f.Genres = strings.Split(g, ",")
	}
	if r, err := ParseRatingRange(q.Get(QueryRating)); err == nil {
		f.Rating = r
	}
	if y, err := ParseYearRange(q.Get(QueryYear)); err == nil {
		f.Year = y
	}

	f = f.Normalize()
	if f.Validate() != nil {
		return DefaultFilters()
	}
	return f
}

// ParseFilterString parses a raw query string such as "genres=драма&rating=7-10".
//
// Unlike [ParseFilterQuery] it is strict: a present key that does not parse, or a result that
// fails [FilterState.Validate], is an error.
func ParseFilterString(raw string) (FilterState, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return FilterState{}, fmt.Errorf("invalid filter query: %w", err)
	}

	f := DefaultFilters()
	if g := q.Get(QueryGenres); g != "" {
		f.Genres = strings.Split(g, ",")
	}
	if q.Has(QueryRating) {
		if f.Rating, err = ParseRatingRange(q.Get(QueryRating)); err != nil {
			return FilterState{}, err
		}
	}
	if q.Has(QueryYear) {
		if f.Year, err = ParseYearRange(q.Get(QueryYear)); err != nil {
			return FilterState{}, err
		}
	}

	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return FilterState{}, err
	}
	return f, nil
}

// ParseRatingRange parses "min-max" with float bounds.
func ParseRatingRange(s string) (RatingRange, error) {
	lo, hi, err := splitRange(s)
	if err != nil {
		return RatingRange{}, err
	}
	from, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return RatingRange{}, fmt.Errorf("invalid rating %q: %w", lo, err)
	}
	to, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return RatingRange{}, fmt.Errorf("invalid rating %q: %w", hi, err)
	}
	if !finite(from) || !finite(to) {
		return RatingRange{}, fmt.Errorf("invalid rating range %q: bounds must be finite", s)
	}
	return RatingRange{Min: from, Max: to}, nil
}

// ParseYearRange parses "min-max" with integer bounds.
func ParseYearRange(s string) (YearRange, error) {
	lo, hi, err := splitRange(s)
	if err != nil {
		return YearRange{}, err
	}
	from, err := strconv.Atoi(lo)
	if err != nil {
		return YearRange{}, fmt.Errorf("invalid year %q: %w", lo, err)
	}
	to, err := strconv.Atoi(hi)
	if err != nil {
		return YearRange{}, fmt.Errorf("invalid year %q: %w", hi, err)
	}
	return YearRange{Min: from, Max: to}, nil
}

// APIParams builds the catalog request parameters for these filters.
//
// year and rating.kp are always sent; genres only when a genre is selected.
func (f FilterState) APIParams() url.Values {
	p := url.Values{}
	p.Set("year", f.Year.String())
	p.Set("rating.kp", f.Rating.String())
	if len(f.Genres) > 0 {
		p.Set("genres", strings.Join(f.Genres, ","))
	}
	return p
}

func splitRange(s string) (string, string, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || lo == "" || hi == "" {
		return "", "", fmt.Errorf("invalid range %q: want min-max", s)
	}
	return strings.TrimSpace(lo), strings.TrimSpace(hi), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
