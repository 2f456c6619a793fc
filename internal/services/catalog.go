package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/shared"
)

const (
	defaultBaseURL     = "https://api.kinopoisk.dev"
	defaultMaxAttempts = 3
	defaultRetryDelay  = 1500 * time.Millisecond

	moviePath    = "/v1.4/movie"
	apiKeyHeader = "X-API-KEY"
)

// CatalogService talks to the catalog API and retries failed calls with a fixed delay.
type CatalogService struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts uint
	retryDelay  time.Duration
	limiter     *rate.Limiter
	timer       retry.Timer
	logger      *log.Logger
}

// NewCatalogService creates a catalog client from the [api] config section.
//
// An empty base URL falls back to the public API, zero attempts to 3 and a negative delay to
// 1.5s. A nil client gets one with the configured timeout.
func NewCatalogService(cfg shared.APIConfig, client *http.Client, logger *log.Logger) *CatalogService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	attempts := uint(defaultMaxAttempts)
	if cfg.MaxAttempts > 0 {
		attempts = uint(cfg.MaxAttempts)
	}
	delay := cfg.RetryDelay()
	if cfg.RetryDelayMS < 0 {
		delay = defaultRetryDelay
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	s := &CatalogService{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		httpClient:  client,
		maxAttempts: attempts,
		retryDelay:  delay,
		logger:      logger,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return s
}

// DefaultCatalogParams returns the query parameters every catalog request starts from.
func DefaultCatalogParams(page, limit int) url.Values {
	p := url.Values{}
	p.Set("page", strconv.Itoa(page))
	p.Set("limit", strconv.Itoa(limit))
	p.Set("type", "movie")
	p.Set("year", fmt.Sprintf("%d-%d", models.MinYear, models.MaxYear))
	p.Set("sortField", "rating.kp")
	p.Set("sortType", "-1")
	return p
}

// FetchCatalogPage fetches one catalog page.
//
// Keys in params replace the matching default keys; unmatched keys are added.
func (s *CatalogService) FetchCatalogPage(ctx context.Context, page, limit int, params url.Values) (*models.Page, error) {
	query := DefaultCatalogParams(page, limit)
	for k, v := range params {
		query[k] = v
	}

	var result models.Page
	op := fmt.Sprintf("fetch catalog page %d", page)
	if err := s.getJSON(ctx, op, moviePath, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchMovie fetches the full record for id, converting the API's nested name objects into plain strings.
func (s *CatalogService) FetchMovie(ctx context.Context, id int) (*models.MovieDetail, error) {
	var dto movieDetailDTO
	op := fmt.Sprintf("fetch movie %d", id)
	if err := s.getJSON(ctx, op, moviePath+"/"+strconv.Itoa(id), nil, &dto); err != nil {
		return nil, err
	}
	return dto.toModel(), nil
}

// getJSON runs a retrying GET and decodes a 2xx body into out. A decode failure counts as a
// failed attempt.
func (s *CatalogService) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	_, err := s.do(ctx, op, path, query, func(resp *rawResponse) error {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &shared.StatusError{URL: resp.URL, StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), 200)}
		}
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	return err
}

type rawResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// do performs the GET with the retry policy. check runs on every received response; a non-nil
// result fails the attempt.
func (s *CatalogService) do(ctx context.Context, op, path string, query url.Values, check func(*rawResponse) error) (*rawResponse, error) {
	fullURL := s.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	requestID := shared.GenerateID()
	logger := s.logger.With("request_id", requestID, "op", op)

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(s.maxAttempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("attempt failed", "attempt", n+1, "max", s.maxAttempts, "error", err)
		}),
	}
	if s.timer != nil {
		opts = append(opts, retry.WithTimer(s.timer))
	}

	attempts := 0
	resp, err := retry.DoWithData(func() (*rawResponse, error) {
		attempts++
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, retry.Unrecoverable(err)
			}
		}
		logger.Debug("request", "url", fullURL, "attempt", attempts)

		resp, err := s.get(ctx, fullURL)
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(resp); err != nil {
				return nil, err
			}
		}
		return resp, nil
	}, opts...)
	if err != nil {
		logger.Warn("request failed", "attempts", attempts, "error", err)
		return nil, &shared.NetworkError{Op: op, Attempts: attempts, Err: err}
	}

	logger.Debug("request succeeded", "attempts", attempts, "status", resp.StatusCode)
	return resp, nil
}

func (s *CatalogService) get(ctx context.Context, fullURL string) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set(apiKeyHeader, s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &rawResponse{URL: fullURL, StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

type namedDTO struct {
	Name string `json:"name"`
}

type movieDetailDTO struct {
	models.MovieSummary
	Description   *string               `json:"description"`
	Countries     []namedDTO            `json:"countries"`
	Genres        []namedDTO            `json:"genres"`
	SimilarMovies []models.MovieSummary `json:"similarMovies"`
}

func (d movieDetailDTO) toModel() *models.MovieDetail {
	return &models.MovieDetail{
		MovieSummary: d.MovieSummary,
		Description:  d.Description,
		Countries:    names(d.Countries),
		Genres:       names(d.Genres),
		Similar:      d.SimilarMovies,
	}
}

func names(in []namedDTO) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
