package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/kpx/internal/shared"
	tu "github.com/desertthunder/kpx/internal/testing"
)

// fakeTimer records requested delays and fires immediately.
type fakeTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (f *fakeTimer) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.delays = append(f.delays, d)
	f.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (f *fakeTimer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delays)
}

func newTestService(t *testing.T, baseURL string) (*CatalogService, *fakeTimer) {
	t.Helper()
	cfg := shared.DefaultConfig().API
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	svc := NewCatalogService(cfg, nil, nil)
	timer := &fakeTimer{}
	svc.timer = timer
	return svc, timer
}

const pageBody = `{"docs":[{"id":1,"name":"Heat","year":1995,"rating":{"kp":8.5},"poster":{"previewUrl":"p1","url":"u1"}}],"total":1,"limit":50,"page":1,"pages":1}`

func TestNewCatalogService(t *testing.T) {
	t.Run("zero config uses defaults", func(t *testing.T) {
		svc := NewCatalogService(shared.APIConfig{}, nil, nil)

		if svc.baseURL != defaultBaseURL {
			t.Errorf("expected default base URL, got %s", svc.baseURL)
		}
		if svc.maxAttempts != defaultMaxAttempts {
			t.Errorf("expected %d attempts, got %d", defaultMaxAttempts, svc.maxAttempts)
		}
		if svc.limiter != nil {
			t.Error("expected no limiter when requests_per_second is 0")
		}
		if svc.httpClient == nil {
			t.Error("expected http client to be created")
		}
	})

	t.Run("config values are applied", func(t *testing.T) {
		cfg := shared.APIConfig{
			BaseURL:           "http://example.com/",
			MaxAttempts:       5,
			RetryDelayMS:      20,
			RequestsPerSecond: 2,
		}
		svc := NewCatalogService(cfg, http.DefaultClient, nil)

		if svc.baseURL != "http://example.com" {
			t.Errorf("expected trailing slash trimmed, got %s", svc.baseURL)
		}
		if svc.maxAttempts != 5 {
			t.Errorf("expected 5 attempts, got %d", svc.maxAttempts)
		}
		if svc.retryDelay != 20*time.Millisecond {
			t.Errorf("expected 20ms delay, got %v", svc.retryDelay)
		}
		if svc.limiter == nil {
			t.Error("expected limiter to be configured")
		}
		if svc.httpClient != http.DefaultClient {
			t.Error("expected custom client to be used")
		}
	})

	t.Run("negative delay falls back", func(t *testing.T) {
		svc := NewCatalogService(shared.APIConfig{RetryDelayMS: -1}, nil, nil)
		if svc.retryDelay != defaultRetryDelay {
			t.Errorf("expected default delay, got %v", svc.retryDelay)
		}
	})
}

func TestFetchCatalogPage(t *testing.T) {
	t.Run("sends defaults, header and overrides", func(t *testing.T) {
		var got url.Values
		var key string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1.4/movie" {
				t.Errorf("expected path /v1.4/movie, got %s", r.URL.Path)
			}
			got = r.URL.Query()
			key = r.Header.Get("X-API-KEY")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(pageBody))
		}))
		defer server.Close()

		svc, _ := newTestService(t, server.URL)
		params := url.Values{"year": {"2000-2010"}, "genres": {"драма"}}
		page, err := svc.FetchCatalogPage(context.Background(), 2, 50, params)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if key != "test-key" {
			t.Errorf("expected api key header, got %q", key)
		}
		want := map[string]string{
			"page":      "2",
			"limit":     "50",
			"type":      "movie",
			"year":      "2000-2010",
			"sortField": "rating.kp",
			"sortType":  "-1",
			"genres":    "драма",
		}
		for k, v := range want {
			if got.Get(k) != v {
				t.Errorf("param %s: expected %q, got %q", k, v, got.Get(k))
			}
		}
		if len(got["year"]) != 1 {
			t.Errorf("expected override to replace the default year, got %v", got["year"])
		}

		if len(page.Docs) != 1 || page.Docs[0].Name != "Heat" {
			t.Errorf("unexpected docs %+v", page.Docs)
		}
		if page.Total != 1 || page.Limit != 50 {
			t.Errorf("unexpected page metadata %+v", page)
		}
	})

	t.Run("fails twice then succeeds", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) <= 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(pageBody))
		}))
		defer server.Close()

		svc, timer := newTestService(t, server.URL)
		page, err := svc.FetchCatalogPage(context.Background(), 1, 50, nil)
		if err != nil {
			t.Fatalf("expected success on third attempt, got %v", err)
		}
		if page == nil || len(page.Docs) != 1 {
			t.Fatalf("expected one doc, got %+v", page)
		}
		if hits.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", hits.Load())
		}
		if timer.count() != 2 {
			t.Errorf("expected 2 delays, got %d", timer.count())
		}
		for _, d := range timer.delays {
			if d != svc.retryDelay {
				t.Errorf("expected fixed delay %v, got %v", svc.retryDelay, d)
			}
		}
	})

	t.Run("always failing returns NetworkError", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}))
		defer server.Close()

		svc, timer := newTestService(t, server.URL)
		_, err := svc.FetchCatalogPage(context.Background(), 1, 50, nil)

		var netErr *shared.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected NetworkError, got %T: %v", err, err)
		}
		if netErr.Attempts != 3 {
			t.Errorf("expected 3 attempts recorded, got %d", netErr.Attempts)
		}
		if hits.Load() != 3 {
			t.Errorf("expected 3 requests, got %d", hits.Load())
		}
		if timer.count() != 2 {
			t.Errorf("expected 2 delays, got %d", timer.count())
		}

		var statusErr *shared.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected last attempt's status error, got %v", err)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("expected error to match ErrAPIRequest")
		}
	})

	t.Run("undecodable body is retried", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Write([]byte("{not json"))
		}))
		defer server.Close()

		svc, _ := newTestService(t, server.URL)
		if _, err := svc.FetchCatalogPage(context.Background(), 1, 50, nil); err == nil {
			t.Fatal("expected decode error")
		}
		if hits.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", hits.Load())
		}
	})

	t.Run("transport error is retried", func(t *testing.T) {
		cfg := shared.APIConfig{BaseURL: "http://example.com", MaxAttempts: 2}
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}
		svc := NewCatalogService(cfg, client, nil)
		timer := &fakeTimer{}
		svc.timer = timer

		_, err := svc.FetchCatalogPage(context.Background(), 1, 50, nil)
		var netErr *shared.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected NetworkError, got %v", err)
		}
		if netErr.Attempts != 2 || timer.count() != 1 {
			t.Errorf("expected 2 attempts and 1 delay, got %d and %d", netErr.Attempts, timer.count())
		}
	})

	t.Run("unreadable body is retried", func(t *testing.T) {
		cfg := shared.APIConfig{BaseURL: "http://example.com", MaxAttempts: 2}
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		svc := NewCatalogService(cfg, client, nil)
		svc.timer = &fakeTimer{}

		_, err := svc.FetchMovie(context.Background(), 42)
		var netErr *shared.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected NetworkError, got %v", err)
		}
		if netErr.Attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", netErr.Attempts)
		}
	})

	t.Run("missing docs decodes to nil slice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"total":0}`))
		}))
		defer server.Close()

		svc, _ := newTestService(t, server.URL)
		page, err := svc.FetchCatalogPage(context.Background(), 1, 50, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if page.Docs != nil {
			t.Errorf("expected nil docs, got %v", page.Docs)
		}
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		svc, _ := newTestService(t, server.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := svc.FetchCatalogPage(ctx, 1, 50, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestFetchMovie(t *testing.T) {
	t.Run("converts nested names and similar movies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1.4/movie/326" {
				t.Errorf("expected path /v1.4/movie/326, got %s", r.URL.Path)
			}
			w.Write([]byte(`{
				"id": 326,
				"name": "Побег из Шоушенка",
				"year": 1994,
				"description": "Бухгалтер Энди Дюфрейн обвинён в убийстве",
				"rating": {"kp": 9.1},
				"poster": {"previewUrl": "p", "url": "u"},
				"countries": [{"name": "США"}],
				"genres": [{"name": "драма"}, {"name": ""}],
				"similarMovies": [{"id": 435, "name": "Зелёная миля", "poster": {"previewUrl": "p2"}}]
			}`))
		}))
		defer server.Close()

		svc, _ := newTestService(t, server.URL)
		movie, err := svc.FetchMovie(context.Background(), 326)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if movie.ID != 326 || movie.Name != "Побег из Шоушенка" {
			t.Errorf("unexpected summary %+v", movie.MovieSummary)
		}
		if movie.YearString() != "1994" || movie.RatingString() != "9.1" {
			t.Errorf("unexpected year/rating %s/%s", movie.YearString(), movie.RatingString())
		}
		if len(movie.Countries) != 1 || movie.Countries[0] != "США" {
			t.Errorf("unexpected countries %v", movie.Countries)
		}
		if len(movie.Genres) != 1 || movie.Genres[0] != "драма" {
			t.Errorf("expected blank genre dropped, got %v", movie.Genres)
		}
		if len(movie.Similar) != 1 || movie.Similar[0].ID != 435 {
			t.Errorf("unexpected similar %+v", movie.Similar)
		}
		if movie.DescriptionString() == "No description" {
			t.Error("expected description to be set")
		}
	})

	t.Run("not found surfaces after retries", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		svc, _ := newTestService(t, server.URL)
		_, err := svc.FetchMovie(context.Background(), 1)

		var statusErr *shared.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 status error, got %v", err)
		}
	})
}
