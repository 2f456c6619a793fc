package catalog

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/services"
	"github.com/desertthunder/kpx/internal/shared"
)

// DetailLoader fetches single movie records.
type DetailLoader struct {
	client services.CatalogClient
	logger *log.Logger
}

func NewDetailLoader(client services.CatalogClient, logger *log.Logger) *DetailLoader {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &DetailLoader{client: client, logger: logger}
}

// Load fetches the movie with id. Failures are returned as [shared.DetailLoadError]; the only
// retries are the client's own.
func (d *DetailLoader) Load(ctx context.Context, id int) (*models.MovieDetail, error) {
	if id <= 0 {
		return nil, &shared.DetailLoadError{ID: id, Err: shared.ErrInvalidArgument}
	}

	movie, err := d.client.FetchMovie(ctx, id)
	if err == nil && movie == nil {
		err = &shared.MalformedResponseError{Reason: "empty movie record"}
	}
	if err != nil {
		d.logger.Error("movie load failed", "id", id, "error", err)
		return nil, &shared.DetailLoadError{ID: id, Err: err}
	}
	return movie, nil
}
