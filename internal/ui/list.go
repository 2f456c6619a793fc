package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/kpx/internal/models"
)

var _ list.DefaultItem = movieItem{}

// movieItem wraps [models.MovieSummary] to implement [list.Item].
type movieItem struct {
	movie    models.MovieSummary
	favorite bool
}

func (i movieItem) FilterValue() string { return i.movie.Name }

func (i movieItem) Title() string {
	if i.favorite {
		return styles.heart.Render("♥") + " " + i.movie.Name
	}
	return "♡ " + i.movie.Name
}

func (i movieItem) Description() string {
	return fmt.Sprintf("%s • ★ %s", i.movie.YearString(), i.movie.RatingString())
}

// movieItems builds list items, marking favorites with isFavorite.
func movieItems(movies []models.MovieSummary, isFavorite func(int) bool) []list.Item {
	items := make([]list.Item, len(movies))
	for i, m := range movies {
		items[i] = movieItem{movie: m, favorite: isFavorite(m.ID)}
	}
	return items
}

func newMovieList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

func selectedMovie(l list.Model) (models.MovieSummary, bool) {
	if item, ok := l.SelectedItem().(movieItem); ok {
		return item.movie, true
	}
	return models.MovieSummary{}, false
}
