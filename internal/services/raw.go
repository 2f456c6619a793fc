package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/kpx/internal/shared"
)

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Raw performs a GET against path (relative to the base URL) and returns the raw response.
//
// Transport errors and 5xx statuses are retried like any catalog call. Other statuses are
// returned as-is so the caller can inspect error bodies.
func (s *CatalogService) Raw(ctx context.Context, path string, params url.Values) (*APIResponse, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	resp, err := s.do(ctx, "GET "+path, path, params, func(resp *rawResponse) error {
		if resp.StatusCode >= 500 {
			return &shared.StatusError{URL: resp.URL, StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), 200)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}

	var jsonData any
	if err := json.Unmarshal(resp.Body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// PrettyBody returns the body indented when it is JSON, otherwise unchanged.
func (r *APIResponse) PrettyBody() (string, error) {
	if !r.IsJSON {
		return string(r.Body), nil
	}
	data, err := json.MarshalIndent(r.JSONData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format response: %w", err)
	}
	return string(data), nil
}
