package http

import (
	"context"

	"github.com/xalekter/charts-edit/internal/plot"
	"github.com/xalekter/charts-edit/internal/services"
	"github.com/xalekter/charts-edit/internal/session"
	"github.com/xalekter/charts-edit/internal/table"
	api "github.com/xalekter/charts-edit/pkg/contracts/api/v1"
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

// DatasetServiceInterface defines the dataset operations the handlers need
type DatasetServiceInterface interface {
	CreateSession(ctx context.Context) (string, error)
	DeleteSession(ctx context.Context, id string) error
	Execute(ctx context.Context, id string, cmd session.Command) (session.Outcome, error)
	Revision(id string) uint64

	Summary(ctx context.Context, id string) (api.DatasetSummary, error)
	Preview(ctx context.Context, id string, f table.Filter, limit int) (session.Preview, error)
	Selection(ctx context.Context, id string) (session.Selection, bool, error)
	Markers(ctx context.Context, id string) ([]domain.Marker, error)
	Plot(ctx context.Context, id string, f table.Filter) (*plot.Figure, error)
	PlotPNG(ctx context.Context, id string, f table.Filter, width, height int) ([]byte, error)
	Export(ctx context.Context, id, format string) (services.Export, error)
}

var _ DatasetServiceInterface = (*services.DatasetService)(nil)
