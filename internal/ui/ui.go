package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/kpx/internal/catalog"
	"github.com/desertthunder/kpx/internal/favorites"
	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MovieListView ViewState = iota
	FilterView
	DetailView
	FavoritesView
	ConfirmView
	ErrorView
)

// prefetchRows is how close to the end of the list the cursor may get before the next page is requested.
const prefetchRows = 5

var openInBrowser = func(id int) error {
	return shared.OpenBrowser(shared.MovieURL(id))
}

type confirmAction int

const (
	confirmAdd confirmAction = iota
	confirmRemove
)

type confirmation struct {
	action   confirmAction
	movie    models.MovieSummary
	returnTo ViewState
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	controller *catalog.Controller
	loader     *catalog.DetailLoader
	favorites  *favorites.Store
	logger     *log.Logger
	filters    models.FilterState
	width      int
	height     int
	movieList  list.Model
	favList    list.Model
	editor     filterEditor
	spinner    spinner.Model

	detail       *models.MovieDetail
	detailID     int
	detailErr    error
	detailFrom   ViewState
	history      []int
	similarIndex int

	confirm *confirmation
	status  string
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model that starts browsing with filters.
func NewModel(
	ctx context.Context,
	controller *catalog.Controller,
	loader *catalog.DetailLoader,
	store *favorites.Store,
	logger *log.Logger,
	filters models.FilterState,
) *Model {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.focus

	return &Model{
		ctx:        ctx,
		view:       MovieListView,
		controller: controller,
		loader:     loader,
		favorites:  store,
		logger:     logger,
		filters:    filters,
		movieList:  newMovieList("Kinopoisk"),
		favList:    newMovieList("Favorites"),
		spinner:    s,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init applies the starting filters and requests the first page.
func (m *Model) Init() tea.Cmd {
	req, ok := m.controller.ApplyFilters(m.filters)
	if !ok {
		return nil
	}
	return tea.Batch(m.fetchPage(req), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.movieList.SetSize(msg.Width-4, msg.Height-8)
		m.favList.SetSize(msg.Width-4, msg.Height-8)
		return m, m.maybeLoadMore()

	case tea.KeyMsg:
		m.status = ""
		switch m.view {
		case MovieListView:
			return m.handleMovieListKeys(msg)
		case FilterView:
			return m.handleFilterKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case FavoritesView:
			return m.handleFavoritesKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ErrorView:
			return m.handleErrorKeys(msg)
		}

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPageLoaded:
		r := msg.data.(pageResult)
		if !m.controller.Complete(r.req, r.page, r.err) {
			return m, nil
		}
		cmd := m.refreshMovies()
		return m, tea.Batch(cmd, m.maybeLoadMore())

	case MsgDetailLoaded:
		r := msg.data.(detailResult)
		if r.id != m.detailID {
			m.logger.Debug("discarding stale movie", "id", r.id, "current", m.detailID)
			return m, nil
		}
		if r.err != nil {
			m.detailErr = r.err
			m.view = ErrorView
			return m, nil
		}
		m.detail = r.movie
		m.similarIndex = 0
		return m, nil

	case MsgBrowserOpened:
		if err, ok := msg.data.(error); ok && err != nil {
			m.status = styles.err.Render(err.Error())
		} else {
			m.status = styles.ok.Render("Opened in browser")
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case MovieListView:
		return m.renderMovieList()
	case FilterView:
		return m.renderFilters()
	case DetailView:
		return m.renderDetail()
	case FavoritesView:
		return m.renderFavorites()
	case ConfirmView:
		return m.renderConfirm()
	case ErrorView:
		return m.renderError()
	default:
		return ""
	}
}

func (m *Model) handleMovieListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if movie, ok := selectedMovie(m.movieList); ok {
			return m, m.openDetail(movie.ID, MovieListView)
		}
		return m, nil
	case key.Matches(msg, m.keys.favorite):
		if movie, ok := selectedMovie(m.movieList); ok {
			added := m.favorites.Toggle(movie)
			m.movieList.SetItem(m.movieList.Index(), movieItem{movie: movie, favorite: added})
		}
		return m, nil
	case key.Matches(msg, m.keys.filters):
		m.editor = newFilterEditor(m.controller.Filters())
		m.view = FilterView
		return m, nil
	case key.Matches(msg, m.keys.favorites):
		cmd := m.refreshFavorites()
		m.view = FavoritesView
		return m, cmd
	case key.Matches(msg, m.keys.open):
		if movie, ok := selectedMovie(m.movieList); ok {
			return m, m.openBrowser(movie.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.retry):
		if m.controller.State() == catalog.Errored {
			return m, m.loadPage()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.movieList, cmd = m.movieList.Update(msg)
	return m, tea.Batch(cmd, m.maybeLoadMore())
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MovieListView
	case key.Matches(msg, m.keys.up):
		m.editor.up()
	case key.Matches(msg, m.keys.down):
		m.editor.down()
	case key.Matches(msg, m.keys.left):
		m.editor.adjust(-1)
	case key.Matches(msg, m.keys.right):
		m.editor.adjust(1)
	case key.Matches(msg, m.keys.toggle):
		m.editor.toggle()
	case key.Matches(msg, m.keys.reset):
		m.editor.reset()
	case key.Matches(msg, m.keys.enter):
		return m, m.applyFilters(m.editor.draft)
	}
	return m, nil
}

// applyFilters commits f and restarts the catalog from page 1.
func (m *Model) applyFilters(f models.FilterState) tea.Cmd {
	req, ok := m.controller.ApplyFilters(f)
	m.filters = m.controller.Filters()
	m.view = MovieListView
	m.movieList.ResetSelected()
	cmd := m.movieList.SetItems(nil)
	if !ok {
		return cmd
	}
	return tea.Batch(cmd, m.fetchPage(req), m.spinner.Tick)
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.detailBack()
	case key.Matches(msg, m.keys.open):
		return m, m.openBrowser(m.detailID)
	}

	if m.detail == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.up):
		if m.similarIndex > 0 {
			m.similarIndex--
		}
	case key.Matches(msg, m.keys.down):
		if m.similarIndex < len(m.detail.Similar)-1 {
			m.similarIndex++
		}
	case key.Matches(msg, m.keys.enter):
		if m.similarIndex < len(m.detail.Similar) {
			next := m.detail.Similar[m.similarIndex].ID
			m.history = append(m.history, m.detailID)
			return m, m.openDetail(next, DetailView)
		}
	case key.Matches(msg, m.keys.add):
		summary := m.detail.Summary()
		if m.favorites.IsFavorite(summary.ID) {
			m.status = styles.warn.Render("Already in favorites")
			return m, nil
		}
		m.confirm = &confirmation{action: confirmAdd, movie: summary, returnTo: DetailView}
		m.view = ConfirmView
	}
	return m, nil
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.retry):
		return m, m.openDetail(m.detailID, DetailView)
	case key.Matches(msg, m.keys.back):
		return m, m.detailBack()
	}
	return m, nil
}

func (m *Model) handleFavoritesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MovieListView
		return m, m.refreshMovies()
	case key.Matches(msg, m.keys.enter):
		if movie, ok := selectedMovie(m.favList); ok {
			return m, m.openDetail(movie.ID, FavoritesView)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if movie, ok := selectedMovie(m.favList); ok {
			m.confirm = &confirmation{action: confirmRemove, movie: movie, returnTo: FavoritesView}
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if movie, ok := selectedMovie(m.favList); ok {
			return m, m.openBrowser(movie.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.favList, cmd = m.favList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm == nil {
		m.view = MovieListView
		return m, nil
	}

	c := m.confirm
	switch {
	case key.Matches(msg, m.keys.yes):
		switch c.action {
		case confirmAdd:
			m.favorites.Add(c.movie)
			m.status = styles.ok.Render(fmt.Sprintf("♥ Added '%s' to favorites", c.movie.Name))
		case confirmRemove:
			m.favorites.Remove(c.movie.ID)
			m.status = styles.ok.Render(fmt.Sprintf("Removed '%s' from favorites", c.movie.Name))
		}
	case key.Matches(msg, m.keys.no):
	default:
		return m, nil
	}

	m.confirm = nil
	m.view = c.returnTo
	return m, tea.Batch(m.refreshFavorites(), m.refreshMovies())
}

// openDetail shows the detail view for id and starts loading it. Coming from outside the detail
// view starts a fresh similar-titles history.
func (m *Model) openDetail(id int, from ViewState) tea.Cmd {
	if from != DetailView {
		m.detailFrom = from
		m.history = nil
	}
	m.detailID = id
	m.detail = nil
	m.detailErr = nil
	m.similarIndex = 0
	m.view = DetailView
	return tea.Batch(m.loadDetail(id), m.spinner.Tick)
}

// detailBack returns to the previous similar title, or leaves the detail view when there is none.
func (m *Model) detailBack() tea.Cmd {
	if n := len(m.history); n > 0 {
		prev := m.history[n-1]
		m.history = m.history[:n-1]
		return m.openDetail(prev, DetailView)
	}

	m.view = m.detailFrom
	m.detailID = 0
	m.detail = nil
	m.detailErr = nil
	return tea.Batch(m.refreshFavorites(), m.refreshMovies())
}

// maybeLoadMore requests the next page once the cursor is within [prefetchRows] of the end, or
// while the loaded entries do not fill the screen.
func (m *Model) maybeLoadMore() tea.Cmd {
	switch m.controller.State() {
	case catalog.Loading, catalog.Exhausted, catalog.Errored:
		return nil
	}

	n := len(m.movieList.Items())
	if n > 0 && m.movieList.Index() < n-prefetchRows && n >= m.movieList.Height()/3 {
		return nil
	}
	return m.loadPage()
}

func (m *Model) loadPage() tea.Cmd {
	req, ok := m.controller.Begin()
	if !ok {
		return nil
	}
	return tea.Batch(m.fetchPage(req), m.spinner.Tick)
}

func (m *Model) fetchPage(req catalog.Request) tea.Cmd {
	return func() tea.Msg {
		page, err := m.controller.Fetch(m.ctx, req)
		return pageLoadedMsg(req, page, err)
	}
}

func (m *Model) loadDetail(id int) tea.Cmd {
	return func() tea.Msg {
		movie, err := m.loader.Load(m.ctx, id)
		return detailLoadedMsg(id, movie, err)
	}
}

func (m *Model) openBrowser(id int) tea.Cmd {
	return func() tea.Msg {
		return browserOpenedMsg(openInBrowser(id))
	}
}

func (m *Model) refreshMovies() tea.Cmd {
	return m.movieList.SetItems(movieItems(m.controller.Movies(), m.favorites.IsFavorite))
}

func (m *Model) refreshFavorites() tea.Cmd {
	all := func(int) bool { return true }
	return m.favList.SetItems(movieItems(m.favorites.List(), all))
}

// busy reports whether anything the spinner represents is in flight.
func (m *Model) busy() bool {
	if m.controller.State() == catalog.Loading {
		return true
	}
	return m.view == DetailView && m.detail == nil && m.detailErr == nil
}

func (m *Model) renderMovieList() string {
	var b strings.Builder

	filters := queryString(m.controller.Filters())
	if filters == "" {
		filters = "none"
	}
	b.WriteString(styles.help.Render(fmt.Sprintf("Filters: %s • %s loaded", filters, humanize.Comma(int64(m.controller.Len())))))
	if total := m.controller.Total(); total > 0 {
		b.WriteString(styles.help.Render(" of " + humanize.Comma(int64(total))))
	}
	b.WriteString("\n")
	b.WriteString(m.movieList.View())
	b.WriteString("\n")

	switch m.controller.State() {
	case catalog.Loading:
		b.WriteString(fmt.Sprintf("%s Loading page %d...", m.spinner.View(), m.controller.NextPage()))
	case catalog.Errored:
		b.WriteString(styles.err.Render(fmt.Sprintf("Failed to load movies: %v", m.controller.LastError())))
		b.WriteString(styles.help.Render(" • press r to retry"))
	case catalog.Exhausted:
		if m.controller.Len() == 0 {
			b.WriteString(styles.warn.Render("No movies match these filters"))
		} else {
			b.WriteString(styles.help.Render("End of catalog"))
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.status)
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.favorite, m.keys.filters, m.keys.favorites, m.keys.open, m.keys.quit}
	if m.controller.State() == catalog.Errored {
		helpKeys = append([]key.Binding{m.keys.retry}, helpKeys...)
	}
	b.WriteString("\n\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderFilters() string {
	helpKeys := []key.Binding{
		m.keys.up, m.keys.down, m.keys.toggle, m.keys.left, m.keys.right,
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		m.keys.reset, m.keys.back,
	}
	return fmt.Sprintf("%s\n%s", m.editor.view(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderDetail() string {
	if m.detail == nil {
		return fmt.Sprintf("%s Loading movie %d...\n\n%s", m.spinner.View(), m.detailID,
			m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	}

	d := m.detail
	var b strings.Builder
	title := d.Name
	if m.favorites.IsFavorite(d.ID) {
		title = styles.heart.Render("♥") + " " + title
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Year:      %s\n", d.YearString())
	fmt.Fprintf(&b, "Rating:    %s\n", styles.rating(d.MovieSummary))
	fmt.Fprintf(&b, "Countries: %s\n", listOrDash(d.Countries))
	fmt.Fprintf(&b, "Genres:    %s\n\n", listOrDash(d.Genres))

	desc := d.DescriptionString()
	if m.width > 8 {
		desc = lipgloss.NewStyle().Width(m.width - 4).Render(desc)
	}
	b.WriteString(desc)
	b.WriteString("\n\n")

	if len(d.Similar) == 0 {
		b.WriteString(styles.help.Render("No similar movies"))
	} else {
		b.WriteString(styles.focus.Render("Similar movies"))
		b.WriteString("\n")
		for i, s := range d.Similar {
			line := fmt.Sprintf("%s (%s)", s.Name, s.YearString())
			if i == m.similarIndex {
				b.WriteString("> " + styles.focus.Render(line) + "\n")
			} else {
				b.WriteString("  " + line + "\n")
			}
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.status)
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.add, m.keys.open, m.keys.back, m.keys.quit}
	b.WriteString("\n\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderFavorites() string {
	body := m.favList.View()
	if m.favorites.Len() == 0 {
		body = styles.title.Render("Favorites") + "\n" + styles.help.Render("No favorites yet")
	}
	if m.status != "" {
		body += "\n" + m.status
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.remove, m.keys.open, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", body, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	if m.confirm == nil {
		return ""
	}
	var question string
	switch m.confirm.action {
	case confirmAdd:
		question = fmt.Sprintf("Add '%s' to favorites?", m.confirm.movie.Name)
	case confirmRemove:
		question = fmt.Sprintf("Remove '%s' from favorites?", m.confirm.movie.Name)
	}
	info := fmt.Sprintf("Year: %s • Rating: ★ %s", m.confirm.movie.YearString(), m.confirm.movie.RatingString())
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(question), info, helpView)
}

func (m *Model) renderError() string {
	title := styles.err.Render(fmt.Sprintf("Could not load movie %d", m.detailID))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%v\n\n%s", title, m.detailErr, helpView)
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
