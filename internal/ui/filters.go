package ui

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/desertthunder/kpx/internal/models"
)

const ratingStep = 0.1

type filterRow int

const (
	ratingMinRow filterRow = iota
	ratingMaxRow
	yearMinRow
	yearMaxRow
	rangeRows
)

// filterEditor holds an uncommitted copy of the filters. Nothing reaches the controller until the
// user applies it.
type filterEditor struct {
	draft  models.FilterState
	cursor int
}

func newFilterEditor(f models.FilterState) filterEditor {
	return filterEditor{draft: f}
}

func (e *filterEditor) rows() int { return len(models.Genres) + int(rangeRows) }

func (e *filterEditor) up() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *filterEditor) down() {
	if e.cursor < e.rows()-1 {
		e.cursor++
	}
}

// genreRow reports the genre under the cursor, if any.
func (e *filterEditor) genreRow() (models.GenreOption, bool) {
	if e.cursor < len(models.Genres) {
		return models.Genres[e.cursor], true
	}
	return models.GenreOption{}, false
}

func (e *filterEditor) toggle() {
	if g, ok := e.genreRow(); ok {
		e.draft = e.draft.ToggleGenre(g.Value)
	}
}

// adjust moves the range bound under the cursor by dir steps, clamped to the sentinel bounds and
// to the opposite end of the same range.
func (e *filterEditor) adjust(dir int) {
	if _, ok := e.genreRow(); ok {
		e.toggle()
		return
	}

	r := &e.draft.Rating
	y := &e.draft.Year
	switch filterRow(e.cursor - len(models.Genres)) {
	case ratingMinRow:
		r.Min = clampRating(r.Min+float64(dir)*ratingStep, models.MinRating, r.Max)
	case ratingMaxRow:
		r.Max = clampRating(r.Max+float64(dir)*ratingStep, r.Min, models.MaxRating)
	case yearMinRow:
		y.Min = min(max(y.Min+dir, models.MinYear), y.Max)
	case yearMaxRow:
		y.Max = min(max(y.Max+dir, y.Min), models.MaxYear)
	}
}

func (e *filterEditor) reset() {
	e.draft = models.DefaultFilters()
}

func clampRating(v, lo, hi float64) float64 {
	v = math.Round(v*10) / 10
	return math.Min(math.Max(v, lo), hi)
}

func (e *filterEditor) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Filters"))
	b.WriteString("\n")

	line := func(i int, s string) {
		cursor := "  "
		if i == e.cursor {
			cursor = "> "
			s = styles.focus.Render(s)
		}
		b.WriteString(cursor + s + "\n")
	}

	for i, g := range models.Genres {
		box := "[ ]"
		if e.draft.HasGenre(g.Value) {
			box = "[x]"
		}
		line(i, fmt.Sprintf("%s %s", box, g.Label))
	}

	n := len(models.Genres)
	b.WriteString("\n")
	line(n+int(ratingMinRow), fmt.Sprintf("Rating from  ◀ %4.1f ▶", e.draft.Rating.Min))
	line(n+int(ratingMaxRow), fmt.Sprintf("Rating to    ◀ %4.1f ▶", e.draft.Rating.Max))
	line(n+int(yearMinRow), fmt.Sprintf("Year from    ◀ %d ▶", e.draft.Year.Min))
	line(n+int(yearMaxRow), fmt.Sprintf("Year to      ◀ %d ▶", e.draft.Year.Max))

	if q := queryString(e.draft); q != "" {
		b.WriteString("\n" + styles.help.Render("?"+q) + "\n")
	}
	return b.String()
}

// queryString renders the navigation query of f without percent-encoding.
func queryString(f models.FilterState) string {
	q := f.EncodeQuery().Encode()
	if decoded, err := url.QueryUnescape(q); err == nil {
		return decoded
	}
	return q
}
