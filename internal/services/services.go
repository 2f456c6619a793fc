package services

import (
	"context"
	"net/url"

	"github.com/desertthunder/kpx/internal/models"
)

// CatalogClient is the read-only view of the catalog API used by the controller, the detail
// loader and the bulk export.
type CatalogClient interface {
	// FetchCatalogPage fetches one page of the movie catalog. params override the default query
	// parameters key by key.
	FetchCatalogPage(ctx context.Context, page, limit int, params url.Values) (*models.Page, error)

	// FetchMovie fetches the full record of a single movie.
	FetchMovie(ctx context.Context, id int) (*models.MovieDetail, error)
}

var _ CatalogClient = (*CatalogService)(nil)
