package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/kpx/internal/catalog"
	"github.com/desertthunder/kpx/internal/favorites"
	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/services"
	"github.com/desertthunder/kpx/internal/shared"
	tu "github.com/desertthunder/kpx/internal/testing"
)

func newTestRunner(t *testing.T, mock *tu.MockCatalog) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Catalog: mock,
		Logger:  shared.NewLogger(&bytes.Buffer{}),
		Output:  output,
	})
	return runner, output
}

// run executes args against the full command tree.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:      "kpx",
		Commands:  r.register(),
		Writer:    &bytes.Buffer{},
		ErrWriter: &bytes.Buffer{},
	}
	return app.Run(context.Background(), append([]string{"kpx"}, args...))
}

func detailFor(id int) *models.MovieDetail {
	return &models.MovieDetail{
		MovieSummary: tu.MakeMovies(id, 1)[0],
		Countries:    []string{"США"},
		Genres:       []string{"драма"},
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			mock := tu.NewMockCatalog()
			api := services.NewCatalogService(config.API, httpClient, logger)
			store := favorites.New(favorites.NewMemorySlot(), logger)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Catalog:    mock,
				API:        api,
				Favorites:  store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != mock {
				t.Error("expected catalog to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.favorites != store {
				t.Error("expected favorites to be set")
			}
			if runner.exporter == nil {
				t.Error("expected exporter to be created")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				HTTPClient: nil,
			})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil favorites uses in-memory store", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.favorites == nil {
				t.Fatal("expected default favorites store")
			}
			if runner.favorites.Len() != 0 {
				t.Error("expected empty store")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "movies", "favorites", "api", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("expected command %q at %d, got %q", want[i], i, cmd.Name)
			}
		}
	})
}

func TestMoviesCommands(t *testing.T) {
	t.Run("list stops when the catalog is exhausted", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.Pages[1] = tu.MakePage(1, catalog.PageSize, tu.MakeMovies(1, 50))
		mock.Pages[2] = tu.MakePage(2, catalog.PageSize, tu.MakeMovies(51, 10))
		runner, output := newTestRunner(t, mock)

		if err := run(t, runner, "movies", "list", "--pages", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if mock.PageCalls() != 2 {
			t.Errorf("expected 2 page calls, got %d", mock.PageCalls())
		}
		result := output.String()
		if !strings.Contains(result, "Movie 60") {
			t.Error("expected last movie in output")
		}
		if !strings.Contains(result, "60 movies loaded") {
			t.Errorf("expected summary line, got %s", result)
		}
	})

	t.Run("list loads only the requested pages", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.Pages[1] = tu.MakePage(1, catalog.PageSize, tu.MakeMovies(1, 50))
		mock.Pages[2] = tu.MakePage(2, catalog.PageSize, tu.MakeMovies(51, 50))
		runner, output := newTestRunner(t, mock)

		if err := run(t, runner, "movies", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if mock.PageCalls() != 1 {
			t.Errorf("expected 1 page call, got %d", mock.PageCalls())
		}
		if !strings.Contains(output.String(), "--pages 2") {
			t.Error("expected hint about more pages")
		}
	})

	t.Run("list sends filter flags", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		runner, _ := newTestRunner(t, mock)

		err := run(t, runner, "movies", "list", "--genres", "драма,комедия", "--rating", "7-10", "--year", "2000-2010")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		params := mock.LastParams()
		if got := params.Get("genres"); got != "драма,комедия" {
			t.Errorf("expected genres param, got %q", got)
		}
		if got := params.Get("rating.kp"); got != "7-10" {
			t.Errorf("expected rating.kp 7-10, got %q", got)
		}
		if got := params.Get("year"); got != "2000-2010" {
			t.Errorf("expected year 2000-2010, got %q", got)
		}
	})

	t.Run("list writes JSON", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.Pages[1] = tu.MakePage(1, catalog.PageSize, tu.MakeMovies(1, 3))
		runner, output := newTestRunner(t, mock)

		if err := run(t, runner, "movies", "list", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var movies []models.MovieSummary
		if err := json.Unmarshal(output.Bytes(), &movies); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(movies) != 3 {
			t.Errorf("expected 3 movies, got %d", len(movies))
		}
	})

	t.Run("list rejects bad flags", func(t *testing.T) {
		tc := []struct {
			name string
			args []string
		}{
			{"inverted rating", []string{"--rating", "9-3"}},
			{"bad year", []string{"--year", "abc"}},
			{"bad query", []string{"--query", "%zz"}},
			{"inverted query rating", []string{"--query", "rating=9-1"}},
			{"unparsable query rating", []string{"--query", "rating=abc"}},
			{"unparsable query year", []string{"--query", "year=x-y"}},
			{"NaN rating", []string{"--rating", "NaN-NaN"}},
			{"unknown format", []string{"--format", "xml"}},
			{"zero pages", []string{"--pages", "0"}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				mock := tu.NewMockCatalog()
				runner, _ := newTestRunner(t, mock)

				err := run(t, runner, append([]string{"movies", "list"}, tt.args...)...)
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected ErrInvalidFlag, got %v", err)
				}
				if mock.PageCalls() != 0 {
					t.Error("expected no request")
				}
			})
		}
	})

	t.Run("list reports page errors", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.SetPageErr(errors.New("boom"))
		runner, _ := newTestRunner(t, mock)

		err := run(t, runner, "movies", "list")
		if err == nil || !strings.Contains(err.Error(), "failed to load page 1") {
			t.Errorf("expected page error, got %v", err)
		}
	})

	t.Run("show prints the movie", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.Movies[5] = detailFor(5)
		runner, output := newTestRunner(t, mock)

		if err := run(t, runner, "movies", "show", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		result := output.String()
		if !strings.Contains(result, "Movie 5") {
			t.Error("expected movie name")
		}
		if !strings.Contains(result, shared.MovieURL(5)) {
			t.Error("expected movie URL")
		}
	})

	t.Run("show rejects invalid ids", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		runner, _ := newTestRunner(t, mock)

		if err := run(t, runner, "movies", "show", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := run(t, runner, "movies", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if mock.MovieCalls() != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("show wraps load failures", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		runner, _ := newTestRunner(t, mock)

		err := run(t, runner, "movies", "show", "9")
		var loadErr *shared.DetailLoadError
		if !errors.As(err, &loadErr) || loadErr.ID != 9 {
			t.Errorf("expected DetailLoadError for 9, got %v", err)
		}
	})
}

func TestFavoritesCommands(t *testing.T) {
	t.Run("add, list and remove", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.Movies[5] = detailFor(5)
		runner, output := newTestRunner(t, mock)

		if err := run(t, runner, "favorites", "add", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !runner.favorites.IsFavorite(5) {
			t.Fatal("expected movie 5 to be a favorite")
		}

		if err := run(t, runner, "favorites", "add", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if mock.MovieCalls() != 1 {
			t.Errorf("expected duplicate add to skip the fetch, got %d calls", mock.MovieCalls())
		}

		output.Reset()
		if err := run(t, runner, "favorites", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "♥") || !strings.Contains(output.String(), "Movie 5") {
			t.Errorf("expected favorite in list, got %s", output.String())
		}

		if err := run(t, runner, "favorites", "remove", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.favorites.Len() != 0 {
			t.Error("expected empty favorites")
		}
	})

	t.Run("add reports fetch failures", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		runner, _ := newTestRunner(t, mock)

		if err := run(t, runner, "favorites", "add", "5"); err == nil {
			t.Fatal("expected error for unknown movie")
		}
		if runner.favorites.Len() != 0 {
			t.Error("expected nothing added")
		}
	})

	t.Run("export writes the requested format", func(t *testing.T) {
		runner, _ := newTestRunner(t, tu.NewMockCatalog())
		for _, m := range tu.MakeMovies(1, 3) {
			runner.favorites.Add(m)
		}

		path := filepath.Join(t.TempDir(), "out", "favorites.csv")
		if err := run(t, runner, "favorites", "export", "--format", "csv", "--output", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		content := tu.MustReadFile(t, path)
		if !strings.HasPrefix(content, "ID,Name,Year,Rating,Poster,URL") {
			t.Errorf("expected CSV header, got %q", content)
		}
		if lines := strings.Count(content, "\n"); lines != 4 {
			t.Errorf("expected 4 lines, got %d", lines)
		}
	})

	t.Run("details runs a bulk export", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.Movies[1] = detailFor(1)
		mock.Movies[2] = detailFor(2)
		runner, output := newTestRunner(t, mock)
		for _, m := range tu.MakeMovies(1, 2) {
			runner.favorites.Add(m)
		}

		dir := t.TempDir()
		if err := run(t, runner, "favorites", "details", "--dir", dir, "--workers", "2", "--rate", "100"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "manifest.json"))
		if !strings.Contains(output.String(), "2 of 2 movies exported") {
			t.Errorf("expected summary, got %s", output.String())
		}
	})
}

func TestAPICommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.4/movie/5" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":5,"name":"Heat","lang":"` + r.URL.Query().Get("lang") + `"}`))
			return
		}
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	newRunner := func() (*Runner, *bytes.Buffer) {
		cfg := shared.DefaultConfig().API
		cfg.BaseURL = server.URL
		cfg.RetryDelayMS = 0
		api := services.NewCatalogService(cfg, server.Client(), nil)
		output := &bytes.Buffer{}
		return NewRunner(RunnerOpts{Catalog: api, API: api, Output: output, Logger: shared.NewLogger(&bytes.Buffer{})}), output
	}

	t.Run("get prints pretty JSON", func(t *testing.T) {
		runner, output := newRunner()

		if err := run(t, runner, "api", "get", "--param", "lang=ru", "v1.4/movie/5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"name": "Heat"`) {
			t.Errorf("expected indented JSON, got %s", output.String())
		}
		if !strings.Contains(output.String(), `"lang": "ru"`) {
			t.Errorf("expected param to be sent, got %s", output.String())
		}
	})

	t.Run("get reports client errors", func(t *testing.T) {
		runner, _ := newRunner()

		err := run(t, runner, "api", "get", "/missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if err == nil || !strings.Contains(err.Error(), "404") {
			t.Errorf("expected status in error, got %v", err)
		}
	})

	t.Run("parseParams rejects malformed pairs", func(t *testing.T) {
		if _, err := parseParams([]string{"novalue"}); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
		params, err := parseParams([]string{"a=1", "a=2", "b="})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(params["a"]) != 2 || params.Get("b") != "" {
			t.Errorf("unexpected params %v", params)
		}
	})
}

func TestFiltersFromFlags(t *testing.T) {
	t.Run("flags override the query", func(t *testing.T) {
		f, err := filtersFromFlags("genres=драма&rating=5-10&year=2001-2002", "", "8-10", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !f.HasGenre("драма") {
			t.Error("expected genre from query")
		}
		if f.Rating != (models.RatingRange{Min: 8, Max: 10}) {
			t.Errorf("expected rating from flag, got %v", f.Rating)
		}
		if f.Year != (models.YearRange{Min: 2001, Max: 2002}) {
			t.Errorf("expected year from query, got %v", f.Year)
		}
	})

	t.Run("invalid query values are rejected", func(t *testing.T) {
		for _, q := range []string{"rating=9-1", "rating=abc", "year=x-y", "rating=NaN-10", "year=2020-2000"} {
			if _, err := filtersFromFlags(q, "", "", ""); !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("filtersFromFlags(%q): expected ErrInvalidFlag, got %v", q, err)
			}
		}
	})

	t.Run("no flags gives defaults", func(t *testing.T) {
		f, err := filtersFromFlags("", "", "", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !f.Equal(models.DefaultFilters()) {
			t.Errorf("expected defaults, got %+v", f)
		}
		if describeFilters(f) != "all movies" {
			t.Errorf("expected 'all movies', got %q", describeFilters(f))
		}
	})

	t.Run("describe lists non-default dimensions", func(t *testing.T) {
		f := models.DefaultFilters()
		f.Genres = []string{"ужасы"}
		f.Year = models.YearRange{Min: 2000, Max: 2005}
		if got := describeFilters(f); got != "ужасы • years 2000-2005" {
			t.Errorf("unexpected description %q", got)
		}
	})
}

func TestSetupAndTUI(t *testing.T) {
	t.Run("setup config writes once", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.NewMockCatalog())
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(t, runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), shared.EnvAPIKey) {
			t.Error("expected API key hint")
		}

		if err := run(t, runner, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when config exists")
		}
	})

	t.Run("setup database runs migrations", func(t *testing.T) {
		runner, _ := newTestRunner(t, tu.NewMockCatalog())
		dir := t.TempDir()
		tu.MustChdir(t, dir)

		if err := run(t, runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "kpx.db"))
	})

	t.Run("tui requires a terminal", func(t *testing.T) {
		orig := isTerminal
		isTerminal = func(uintptr) bool { return false }
		t.Cleanup(func() { isTerminal = orig })

		runner, _ := newTestRunner(t, tu.NewMockCatalog())
		if err := run(t, runner, "tui"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
