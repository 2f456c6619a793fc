package tasks

import (
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/kpx/internal/services"
	"github.com/desertthunder/kpx/internal/shared"
)

// Exporter runs bulk operations against the catalog client.
type Exporter struct {
	client     services.CatalogClient
	httpClient *http.Client
	logger     *log.Logger
}

// NewExporter creates an exporter. httpClient is used for poster downloads and may be nil.
func NewExporter(client services.CatalogClient, httpClient *http.Client, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Exporter{client: client, httpClient: httpClient, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
