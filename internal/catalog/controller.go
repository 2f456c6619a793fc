package catalog

import (
	"context"
	"io"
	"net/url"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/services"
	"github.com/desertthunder/kpx/internal/shared"
)

// PageSize is the number of entries requested per catalog page.
const PageSize = 50

// State is the controller's loading state.
type State int

const (
	Idle State = iota
	Loading
	Exhausted
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Exhausted:
		return "exhausted"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Request describes one page fetch handed out by [Controller.Begin].
type Request struct {
	Epoch  uint64
	Page   int
	Limit  int
	Params url.Values
}

// Controller accumulates catalog pages for the current filters.
type Controller struct {
	mu       sync.Mutex
	client   services.CatalogClient
	limit    int
	logger   *log.Logger
	filters  models.FilterState
	epoch    uint64
	movies   []models.MovieSummary
	seen     map[int]struct{}
	nextPage int
	hasMore  bool
	state    State
	lastErr  error
	total    int
}

// NewController creates an idle controller with default filters. limit <= 0 uses [PageSize].
func NewController(client services.CatalogClient, limit int, logger *log.Logger) *Controller {
	if limit <= 0 {
		limit = PageSize
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	c := &Controller{client: client, limit: limit, logger: logger}
	c.reset(models.DefaultFilters())
	return c
}

// reset must be called with the lock held.
func (c *Controller) reset(f models.FilterState) {
	c.filters = f
	c.movies = []models.MovieSummary{}
	c.seen = map[int]struct{}{}
	c.nextPage = 1
	c.hasMore = true
	c.state = Idle
	c.lastErr = nil
	c.total = 0
}

// ApplyFilters commits f, discards everything accumulated so far and begins loading page 1.
//
// Invalid filters are replaced by the defaults. Any fetch still in flight belongs to the previous
// epoch and will be ignored by [Controller.Complete].
func (c *Controller) ApplyFilters(f models.FilterState) (Request, bool) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		c.logger.Warn("invalid filters, using defaults", "error", err)
		f = models.DefaultFilters()
	}

	c.mu.Lock()
	c.epoch++
	c.reset(f)
	c.logger.Debug("filters applied", "epoch", c.epoch, "query", f.EncodeQuery().Encode())
	c.mu.Unlock()

	return c.Begin()
}

// Begin marks the controller Loading and returns the next page request.
//
// It returns false while a page is already Loading or once the catalog is Exhausted. From
// Errored it retries the page that failed.
func (c *Controller) Begin() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Loading || c.state == Exhausted {
		return Request{}, false
	}

	c.state = Loading
	return Request{
		Epoch:  c.epoch,
		Page:   c.nextPage,
		Limit:  c.limit,
		Params: c.filters.APIParams(),
	}, true
}

// Fetch performs the network call for req.
func (c *Controller) Fetch(ctx context.Context, req Request) (*models.Page, error) {
	return c.client.FetchCatalogPage(ctx, req.Page, req.Limit, req.Params)
}

// Complete records the outcome of req. It returns false when the result was discarded because
// req belongs to an older epoch.
//
// On success entries without a name or preview poster are dropped, as are ids already loaded in
// this epoch. A full page (as many raw entries as requested) means more may follow.
func (c *Controller) Complete(req Request, page *models.Page, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.Epoch != c.epoch || c.state != Loading {
		c.logger.Debug("discarding stale page", "epoch", req.Epoch, "current", c.epoch, "page", req.Page)
		return false
	}

	if err == nil && (page == nil || page.Docs == nil) {
		err = &shared.MalformedResponseError{Reason: "missing docs array"}
	}
	if err != nil {
		c.state = Errored
		c.lastErr = err
		c.logger.Error("page load failed", "page", req.Page, "error", err)
		return true
	}

	added := 0
	for _, m := range page.Docs {
		if !m.Displayable() {
			continue
		}
		if _, dup := c.seen[m.ID]; dup {
			continue
		}
		c.seen[m.ID] = struct{}{}
		c.movies = append(c.movies, m)
		added++
	}

	c.hasMore = len(page.Docs) == req.Limit
	c.nextPage = req.Page + 1
	c.total = page.Total
	c.lastErr = nil
	if c.hasMore {
		c.state = Idle
	} else {
		c.state = Exhausted
	}

	c.logger.Debug("page loaded", "page", req.Page, "raw", len(page.Docs), "added", added, "has_more", c.hasMore)
	return true
}

// LoadNextPage runs Begin, Fetch and Complete. It is a no-op when Begin refuses, and returns the
// page error when the fetch failed.
func (c *Controller) LoadNextPage(ctx context.Context) error {
	req, ok := c.Begin()
	if !ok {
		return nil
	}

	page, err := c.Fetch(ctx, req)
	if !c.Complete(req, page, err) {
		return nil
	}
	return c.LastError()
}

// Movies returns a copy of the accumulated entries.
func (c *Controller) Movies() []models.MovieSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.movies)
}

// Len returns the number of accumulated entries.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.movies)
}

// State returns the current load state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasMore reports whether the last page was full, so another may exist.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// LastError returns the failure that put the controller in [Errored], or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Filters returns a copy of the committed filters.
func (c *Controller) Filters() models.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.filters
	f.Genres = slices.Clone(f.Genres)
	return f
}

// NextPage returns the 1-based page the next load will request.
func (c *Controller) NextPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextPage
}

// Total returns the catalog size reported by the last successful page.
func (c *Controller) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Epoch returns the current filter generation.
func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Query returns the navigation query for the committed filters.
func (c *Controller) Query() url.Values {
	return c.Filters().EncodeQuery()
}
