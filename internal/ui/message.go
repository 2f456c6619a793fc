package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/kpx/internal/catalog"
	"github.com/desertthunder/kpx/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageLoaded MsgKind = iota
	MsgDetailLoaded
	MsgBrowserOpened
)

type pageResult struct {
	req  catalog.Request
	page *models.Page
	err  error
}

type detailResult struct {
	id    int
	movie *models.MovieDetail
	err   error
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(req catalog.Request, page *models.Page, err error) Msg {
	return Msg{kind: MsgPageLoaded, data: pageResult{req: req, page: page, err: err}}
}

// detailLoadedMsg is the constructor for [MsgDetailLoaded]
func detailLoadedMsg(id int, movie *models.MovieDetail, err error) Msg {
	return Msg{kind: MsgDetailLoaded, data: detailResult{id: id, movie: movie, err: err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}
