package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/kpx/internal/models"
)

// Kinopoisk brand orange plus the usual status colors.
const (
	colorAccent = "#FF6600"
	colorGood   = "#3BB33B"
	colorFair   = "#777777"
	colorBad    = "#FF1F1F"
	colorMuted  = "#626262"
)

var styles = newPalette()

// palette holds the named styles every view renders with.
type palette struct {
	title lipgloss.Style
	focus lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	heart lipgloss.Style

	ratingGood lipgloss.Style
	ratingFair lipgloss.Style
	ratingBad  lipgloss.Style
}

func newPalette() *palette {
	return &palette{
		title:      bold(colorAccent).MarginBottom(1),
		focus:      bold(colorAccent),
		ok:         bold(colorGood),
		err:        bold(colorBad),
		warn:       fg(colorAccent),
		help:       fg(colorMuted).Italic(true),
		heart:      fg(colorBad),
		ratingGood: bold(colorGood),
		ratingFair: bold(colorFair),
		ratingBad:  bold(colorBad),
	}
}

// rating colors a Kinopoisk score the way the site does: green from 7, grey from 5, red below.
func (p *palette) rating(m models.MovieSummary) string {
	s := "★ " + m.RatingString()
	kp, ok := m.KP()
	switch {
	case !ok || kp <= 0:
		return p.help.Render(s)
	case kp >= 7:
		return p.ratingGood.Render(s)
	case kp >= 5:
		return p.ratingFair.Render(s)
	default:
		return p.ratingBad.Render(s)
	}
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}
