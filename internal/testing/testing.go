// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/kpx/internal/models"
)

// MockCatalog is a scripted test double for [services.CatalogClient].
//
// Pages are served by page number; a missing page yields an empty docs array. When Gate is
// non-nil every page fetch blocks until a value is received from it or ctx ends.
type MockCatalog struct {
	mu         sync.Mutex
	Pages      map[int]*models.Page
	PageErr    error
	Movies     map[int]*models.MovieDetail
	MovieErr   error
	Gate       chan struct{}
	pageCalls  int
	movieCalls int
	lastParams url.Values
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{Pages: map[int]*models.Page{}, Movies: map[int]*models.MovieDetail{}}
}

func (m *MockCatalog) FetchCatalogPage(ctx context.Context, page, limit int, params url.Values) (*models.Page, error) {
	m.mu.Lock()
	m.pageCalls++
	m.lastParams = params
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PageErr != nil {
		return nil, m.PageErr
	}
	if p, ok := m.Pages[page]; ok {
		return p, nil
	}
	return &models.Page{Docs: []models.MovieSummary{}, Page: page, Limit: limit}, nil
}

func (m *MockCatalog) FetchMovie(ctx context.Context, id int) (*models.MovieDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movieCalls++
	if m.MovieErr != nil {
		return nil, m.MovieErr
	}
	if d, ok := m.Movies[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("movie %d: not found", id)
}

// SetPageErr changes the scripted page error while fetches may be running.
func (m *MockCatalog) SetPageErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PageErr = err
}

func (m *MockCatalog) PageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageCalls
}

func (m *MockCatalog) MovieCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.movieCalls
}

func (m *MockCatalog) LastParams() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParams
}

// MakeMovies returns n displayable summaries with ids starting at first.
func MakeMovies(first, n int) []models.MovieSummary {
	out := make([]models.MovieSummary, n)
	for i := range n {
		id := first + i
		year := 1990 + id%35
		kp := 5 + float64(id%50)/10
		out[i] = models.MovieSummary{
			ID:     id,
			Name:   fmt.Sprintf("Movie %d", id),
			Year:   &year,
			Rating: &models.Rating{KP: &kp},
			Poster: &models.Poster{PreviewURL: fmt.Sprintf("https://img.example/%d-small.jpg", id), URL: fmt.Sprintf("https://img.example/%d.jpg", id)},
		}
	}
	return out
}

// MakePage wraps docs in a page with the given limit.
func MakePage(page, limit int, docs []models.MovieSummary) *models.Page {
	return &models.Page{Docs: docs, Total: len(docs), Limit: limit, Page: page, Pages: page}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

// MustChdir changes into dir and restores the previous working directory when the test ends.
func MustChdir(t *testing.T, dir string) {
	t.Helper()
	wd := MustGetwd(t)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
