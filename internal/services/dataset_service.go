package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xalekter/charts-edit/internal/config"
	"github.com/xalekter/charts-edit/internal/exporter"
	"github.com/xalekter/charts-edit/internal/infrastructure"
	"github.com/xalekter/charts-edit/internal/plot"
	"github.com/xalekter/charts-edit/internal/session"
	"github.com/xalekter/charts-edit/internal/table"
	api "github.com/xalekter/charts-edit/pkg/contracts/api/v1"
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
	"github.com/xalekter/charts-edit/pkg/contracts/events"
)

// Export formats
const (
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
)

// Notifier delivers change events to the browsers watching a session.
type Notifier interface {
	Publish(ctx context.Context, sessionID string, msgType events.MessageType, data interface{}) error
	CloseSession(ctx context.Context, sessionID string) error
}

// Export is a rendered download.
type Export struct {
	Data        []byte
	Filename    string
	ContentType string
}

// DatasetService executes editing commands against session stores
type DatasetService struct {
	sessions *session.Manager
	notifier Notifier
	metrics  *infrastructure.BusinessMetrics
	tracer   trace.Tracer
	editor   config.EditorConfig
	logger   *slog.Logger

	mu        sync.Mutex
	revisions map[string]uint64
}

// NewDatasetService wires the service. notifier and metrics may be nil.
func NewDatasetService(sessions *session.Manager, notifier Notifier, metrics *infrastructure.BusinessMetrics, editor config.EditorConfig, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	if editor.StepSize <= 0 {
		editor.StepSize = config.DefaultStepSize
	}
	if editor.PreviewRows <= 0 {
		editor.PreviewRows = config.DefaultPreviewRows
	}

	s := &DatasetService{
		sessions:  sessions,
		notifier:  notifier,
		metrics:   metrics,
		tracer:    otel.Tracer(infrastructure.MeterName + "/dataset"),
		editor:    editor,
		logger:    logger.With(slog.String("component", "dataset_service")),
		revisions: make(map[string]uint64),
	}
	sessions.OnExpire(s.expired)
	return s
}

// CreateSession opens an empty editing session.
func (s *DatasetService) CreateSession(ctx context.Context) (string, error) {
	id, err := s.sessions.Create()
	if err != nil {
		s.logger.WarnContext(ctx, "session rejected", slog.String("error", err.Error()))
		return "", err
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, 1)
	}
	return id, nil
}

// DeleteSession drops a session and disconnects its watchers.
func (s *DatasetService) DeleteSession(ctx context.Context, id string) error {
	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	s.forget(ctx, id)
	return nil
}

func (s *DatasetService) expired(ids []string) {
	ctx := context.Background()
	for _, id := range ids {
		s.forget(ctx, id)
	}
}

func (s *DatasetService) forget(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.revisions, id)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, -1)
	}
	if s.notifier != nil {
		if err := s.notifier.CloseSession(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to notify session close",
				slog.String("session_id", id),
				slog.String("error", err.Error()))
		}
	}
}

// Execute runs cmd against the session's store. Successful mutating
// commands publish a dataset_changed event.
func (s *DatasetService) Execute(ctx context.Context, id string, cmd session.Command) (session.Outcome, error) {
	ctx = infrastructure.WithSessionID(ctx, id)
	ctx, span := s.tracer.Start(ctx, "dataset."+cmd.Name(),
		trace.WithAttributes(
			attribute.String("session.id", id),
			attribute.String("dataset.command", cmd.Name()),
		))
	defer span.End()

	if step, ok := cmd.(session.StepCommand); ok && step.StepSize == 0 {
		step.StepSize = s.editor.StepSize
		cmd = step
	}
	if load, ok := cmd.(session.LoadCommand); ok {
		if len(load.Raw) == 0 {
			return session.Outcome{}, fmt.Errorf("%w: %w", session.ErrParseFailure, ErrEmptyUpload)
		}
		if s.metrics != nil {
			s.metrics.UploadBytes.Record(ctx, int64(len(load.Raw)))
		}
	}

	start := time.Now()
	var (
		outcome session.Outcome
		rows    int
	)
	err := s.sessions.With(id, func(store *session.Store) error {
		var err error
		outcome, err = store.Execute(cmd)
		if t := store.Table(); t != nil {
			rows = t.Len()
		}
		return err
	})
	duration := time.Since(start)
	infrastructure.RecordCommandMetrics(ctx, s.metrics, cmd.Name(), duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "dataset command failed",
			slog.String("command", cmd.Name()),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration))
		return outcome, err
	}

	if added, ok := outcome.Value.(session.AddResult); ok {
		infrastructure.RecordRowAdded(ctx, s.metrics, string(added.Provenance))
		span.SetAttributes(attribute.String("dataset.provenance", string(added.Provenance)))
	}

	s.logger.InfoContext(ctx, "dataset command executed",
		slog.String("command", cmd.Name()),
		slog.String("message", outcome.Message),
		slog.Int("rows", rows),
		slog.Duration("duration", duration))

	if session.Mutates(cmd) {
		s.publishChange(ctx, id, cmd.Name(), outcome.Message, rows)
	}
	return outcome, nil
}

func (s *DatasetService) publishChange(ctx context.Context, id, command, message string, rows int) {
	s.mu.Lock()
	s.revisions[id]++
	revision := s.revisions[id]
	s.mu.Unlock()

	if s.notifier == nil {
		return
	}
	change := events.DatasetChanged{
		Command:  command,
		Message:  message,
		Rows:     rows,
		Revision: revision,
	}
	if err := s.notifier.Publish(ctx, id, events.MessageTypeDatasetChanged, change); err != nil {
		s.logger.WarnContext(ctx, "failed to publish dataset change",
			slog.String("command", command),
			slog.String("error", err.Error()))
	}
}

// Revision returns how many mutating commands the session has seen.
func (s *DatasetService) Revision(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revisions[id]
}

// Summary describes the session's dataset, axes, filter options and markers.
func (s *DatasetService) Summary(ctx context.Context, id string) (api.DatasetSummary, error) {
	var summary api.DatasetSummary
	err := s.sessions.With(id, func(store *session.Store) error {
		summary.Markers = store.Markers().All()
		if !store.Loaded() {
			summary.Columns = []string{}
			summary.NumericColumns = []string{}
			return nil
		}
		t := store.Table()
		opts := store.FilterOptions()
		summary.Loaded = true
		summary.Rows = t.Len()
		summary.Columns = t.Columns()
		summary.NumericColumns = t.NumericColumns()
		summary.XColumn, summary.YColumn = store.Axes()
		summary.FilterOptions = api.FilterOptions{
			Species:      opts.Species,
			Sites:        opts.Sites,
			Descriptions: opts.Descriptions,
		}
		return nil
	})
	return summary, err
}

// Preview returns the first rows matching f. A non-positive limit uses the
// configured preview size.
func (s *DatasetService) Preview(ctx context.Context, id string, f table.Filter, limit int) (session.Preview, error) {
	if limit <= 0 {
		limit = s.editor.PreviewRows
	}
	var preview session.Preview
	err := s.sessions.With(id, func(store *session.Store) error {
		var err error
		preview, err = store.Preview(f, limit)
		return err
	})
	return preview, err
}

// Selection returns the selected row, if any.
func (s *DatasetService) Selection(ctx context.Context, id string) (session.Selection, bool, error) {
	var (
		sel session.Selection
		ok  bool
	)
	err := s.sessions.With(id, func(store *session.Store) error {
		sel, ok = store.Selection()
		return nil
	})
	return sel, ok, err
}

// Markers lists the session's markers.
func (s *DatasetService) Markers(ctx context.Context, id string) ([]domain.Marker, error) {
	var out []domain.Marker
	err := s.sessions.With(id, func(store *session.Store) error {
		out = store.Markers().All()
		return nil
	})
	return out, err
}

// Plot assembles the figure for the rows matching f.
func (s *DatasetService) Plot(ctx context.Context, id string, f table.Filter) (*plot.Figure, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.plot", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var fig *plot.Figure
	err := s.sessions.With(id, func(store *session.Store) error {
		var err error
		fig, err = store.Plot(f)
		return err
	})
	if err != nil && !errors.Is(err, session.ErrEmptyFilterResult) {
		infrastructure.RecordError(ctx, err)
	}
	return fig, err
}

// PlotPNG renders the figure for the rows matching f. Zero sizes use the
// configured chart size.
func (s *DatasetService) PlotPNG(ctx context.Context, id string, f table.Filter, width, height int) ([]byte, error) {
	fig, err := s.Plot(ctx, id, f)
	if err != nil {
		return nil, err
	}
	if width <= 0 {
		width = s.editor.ChartWidth
	}
	if height <= 0 {
		height = s.editor.ChartHeight
	}
	return plot.RenderPNGBytes(fig, width, height)
}

// Export renders the live table as a download in the given format.
func (s *DatasetService) Export(ctx context.Context, id, format string) (Export, error) {
	var out Export
	err := s.sessions.With(id, func(store *session.Store) error {
		var err error
		switch format {
		case "", FormatTSV:
			out.Data, err = store.Export()
			out.Filename = exporter.DefaultFilename
			out.ContentType = "text/tab-separated-values; charset=utf-8"
		case FormatXLSX:
			out.Data, err = store.ExportWorkbook()
			out.Filename = exporter.WorkbookFilename
			out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		default:
			err = fmt.Errorf("%w: %w %q", session.ErrInvalidArgument, ErrUnsupportedFormat, format)
		}
		return err
	})
	if err == nil {
		s.logger.InfoContext(infrastructure.WithSessionID(ctx, id), "dataset exported",
			slog.String("format", format),
			slog.Int("bytes", len(out.Data)))
	}
	return out, err
}
