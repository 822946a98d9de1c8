package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	apierrors "github.com/xalekter/charts-edit/internal/errors"
	"github.com/xalekter/charts-edit/internal/infrastructure"
	"github.com/xalekter/charts-edit/internal/middleware"
	"github.com/xalekter/charts-edit/internal/services"
	"github.com/xalekter/charts-edit/internal/session"
	"github.com/xalekter/charts-edit/internal/table"
	api "github.com/xalekter/charts-edit/pkg/contracts/api/v1"
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	indexKey
)

// Preview and chart limits accepted from query parameters
const (
	maxPreviewRows = 1000
	minChartSize   = 100
	maxChartSize   = 4000
)

// UploadField is the multipart field carrying the dataset file.
const UploadField = "file"

// DatasetHandler handles the editing API of a session
type DatasetHandler struct {
	service        DatasetServiceInterface
	validator      *middleware.Validator
	query          *middleware.QueryParamValidator
	uploadMaxBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetServiceInterface, validator *middleware.Validator, uploadMaxBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		validator:      validator,
		query:          middleware.NewQueryParamValidator(errorHandler),
		uploadMaxBytes: uploadMaxBytes,
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the session routes, mounted under /api/sessions
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.CreateSession)

	r.Route("/{sessionID}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Delete("/", h.DeleteSession)

		r.Route("/dataset", func(r chi.Router) {
			r.Get("/", h.GetDataset)
			r.With(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/", h.LoadDataset)
			r.Post("/reset", h.ResetDataset)
		})
		r.Put("/axes", h.SelectAxes)

		r.Route("/rows", func(r chi.Router) {
			r.Get("/", h.PreviewRows)
			r.Post("/", h.AddRow)
			r.Route("/{index}", func(r chi.Router) {
				r.Use(h.IndexCtx)
				r.Put("/", h.UpdateRow)
				r.Delete("/", h.RemoveRow)
				r.Post("/step", h.StepRow)
			})
		})

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", h.GetSelection)
			r.Post("/", h.Select)
			r.Delete("/", h.ClearSelection)
		})

		r.Route("/markers", func(r chi.Router) {
			r.Get("/", h.ListMarkers)
			r.Post("/", h.AddMarker)
			r.Delete("/", h.ClearMarkers)
			r.Post("/presets/{name}", h.AddPresetMarker)
			r.With(h.IndexCtx).Delete("/{index}", h.RemoveMarker)
		})

		r.Get("/plot", h.GetPlot)
		r.Get("/plot.png", h.GetPlotPNG)
		r.Get("/export", h.Export)
	})

	return r
}

// SessionCtx validates the session id path parameter
func (h *DatasetHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if _, err := uuid.Parse(id); err != nil {
			h.errorHandler.HandleError(w, r, fmt.Errorf("%w: %q", session.ErrSessionNotFound, id))
			return
		}
		ctx := context.WithValue(r.Context(), sessionIDKey, id)
		ctx = infrastructure.WithSessionID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IndexCtx parses the row or marker index path parameter
func (h *DatasetHandler) IndexCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("index", "index must be a non-negative integer"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), indexKey, index)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}

func pathIndex(r *http.Request) int {
	index, _ := r.Context().Value(indexKey).(int)
	return index
}

// filterFromQuery reads repeated species, site and description parameters.
func filterFromQuery(r *http.Request) table.Filter {
	q := r.URL.Query()
	return table.Filter{
		Species:      q["species"],
		Sites:        q["site"],
		Descriptions: q["description"],
	}
}

// fail writes err, treating an empty filter result as a status rather than
// an error.
func (h *DatasetHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrEmptyFilterResult) {
		render.JSON(w, r, api.StatusResponse{Status: api.StatusEmpty, Message: api.EmptyFilterMessage})
		return
	}
	h.errorHandler.HandleError(w, r, err)
}

func (h *DatasetHandler) execute(w http.ResponseWriter, r *http.Request, cmd session.Command) (session.Outcome, bool) {
	id := sessionID(r)
	out, err := h.service.Execute(r.Context(), id, cmd)
	if err != nil {
		h.fail(w, r, err)
		return out, false
	}
	w.Header().Set(api.RevisionHeader, strconv.FormatUint(h.service.Revision(id), 10))
	return out, true
}

func (h *DatasetHandler) message(w http.ResponseWriter, r *http.Request, cmd session.Command) {
	if out, ok := h.execute(w, r, cmd); ok {
		render.JSON(w, r, api.MessageResponse{Message: out.Message})
	}
}

// CreateSession handles POST /api/sessions
func (h *DatasetHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.CreateSessionResponse{SessionID: id})
}

// DeleteSession handles DELETE /api/sessions/{sessionID}
func (h *DatasetHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), sessionID(r)); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// LoadDataset handles POST .../dataset with a multipart file upload
func (h *DatasetHandler) LoadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	if err := r.ParseMultipartForm(h.uploadMaxBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(UploadField, "a dataset file is required"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	out, ok := h.execute(w, r, session.LoadCommand{Raw: raw, Filename: filepath.Base(header.Filename)})
	if !ok {
		return
	}
	render.JSON(w, r, out.Value)
}

// GetDataset handles GET .../dataset
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// ResetDataset handles POST .../dataset/reset
func (h *DatasetHandler) ResetDataset(w http.ResponseWriter, r *http.Request) {
	h.message(w, r, session.ResetCommand{})
}

// SelectAxes handles PUT .../axes
func (h *DatasetHandler) SelectAxes(w http.ResponseWriter, r *http.Request) {
	var req api.SelectAxesRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.message(w, r, session.SelectAxesCommand{X: req.X, Y: req.Y})
}

// PreviewRows handles GET .../rows
func (h *DatasetHandler) PreviewRows(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, maxPreviewRows, 0)
	if !ok {
		return
	}
	f := filterFromQuery(r)
	preview, err := h.service.Preview(r.Context(), sessionID(r), f, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if preview.Filtered == 0 {
		render.JSON(w, r, api.StatusResponse{Status: api.StatusEmpty, Message: api.EmptyFilterMessage})
		return
	}
	render.JSON(w, r, previewResponse{Preview: preview, FilterStatus: session.FilterStatus(f)})
}

type previewResponse struct {
	session.Preview
	FilterStatus string `json:"filter_status"`
}

// AddRow handles POST .../rows
func (h *DatasetHandler) AddRow(w http.ResponseWriter, r *http.Request) {
	var req api.AddRowRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	out, ok := h.execute(w, r, session.AddRowCommand{X: *req.X, Y: *req.Y, Species: req.Species, Sites: req.Sites})
	if !ok {
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, out.Value)
}

// UpdateRow handles PUT .../rows/{index}
func (h *DatasetHandler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateRowRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.message(w, r, session.UpdateRowCommand{Index: pathIndex(r), X: *req.X, Y: *req.Y})
}

// RemoveRow handles DELETE .../rows/{index}
func (h *DatasetHandler) RemoveRow(w http.ResponseWriter, r *http.Request) {
	h.message(w, r, session.RemoveRowCommand{Index: pathIndex(r)})
}

// StepRow handles POST .../rows/{index}/step
func (h *DatasetHandler) StepRow(w http.ResponseWriter, r *http.Request) {
	var req api.StepRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	out, ok := h.execute(w, r, session.StepCommand{
		Index:     pathIndex(r),
		Axis:      session.Axis(req.Axis),
		Direction: req.Direction,
		StepSize:  req.StepSize,
	})
	if !ok {
		return
	}
	render.JSON(w, r, out.Value)
}

type selectionResponse struct {
	Selected  bool               `json:"selected"`
	Selection *session.Selection `json:"selection,omitempty"`
}

// GetSelection handles GET .../selection
func (h *DatasetHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sel, ok, err := h.service.Selection(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if !ok {
		render.JSON(w, r, selectionResponse{})
		return
	}
	render.JSON(w, r, selectionResponse{Selected: true, Selection: &sel})
}

// Select handles POST .../selection
func (h *DatasetHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req api.SelectRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	out, ok := h.execute(w, r, session.SelectCommand{Index: *req.Index})
	if !ok {
		return
	}
	sel := out.Value.(session.Selection)
	render.JSON(w, r, selectionResponse{Selected: true, Selection: &sel})
}

// ClearSelection handles DELETE .../selection
func (h *DatasetHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.execute(w, r, session.ClearSelectionCommand{}); ok {
		render.NoContent(w, r)
	}
}

// ListMarkers handles GET .../markers
func (h *DatasetHandler) ListMarkers(w http.ResponseWriter, r *http.Request) {
	h.renderMarkers(w, r, "")
}

func (h *DatasetHandler) renderMarkers(w http.ResponseWriter, r *http.Request, message string) {
	list, err := h.service.Markers(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Marker{}
	}
	render.JSON(w, r, api.MarkersResponse{Markers: list, Message: message})
}

// AddMarker handles POST .../markers
func (h *DatasetHandler) AddMarker(w http.ResponseWriter, r *http.Request) {
	var req api.AddMarkerRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	out, ok := h.execute(w, r, session.AddMarkerCommand{
		Position: *req.Position,
		Label:    req.Label,
		Color:    domain.MarkerColor(req.Color),
	})
	if !ok {
		return
	}
	render.Status(r, http.StatusCreated)
	h.renderMarkers(w, r, out.Message)
}

// AddPresetMarker handles POST .../markers/presets/{name}
func (h *DatasetHandler) AddPresetMarker(w http.ResponseWriter, r *http.Request) {
	out, ok := h.execute(w, r, session.AddPresetMarkerCommand{Preset: chi.URLParam(r, "name")})
	if !ok {
		return
	}
	render.Status(r, http.StatusCreated)
	h.renderMarkers(w, r, out.Message)
}

// RemoveMarker handles DELETE .../markers/{index}
func (h *DatasetHandler) RemoveMarker(w http.ResponseWriter, r *http.Request) {
	if out, ok := h.execute(w, r, session.RemoveMarkerCommand{Index: pathIndex(r)}); ok {
		h.renderMarkers(w, r, out.Message)
	}
}

// ClearMarkers handles DELETE .../markers
func (h *DatasetHandler) ClearMarkers(w http.ResponseWriter, r *http.Request) {
	if out, ok := h.execute(w, r, session.ClearMarkersCommand{}); ok {
		h.renderMarkers(w, r, out.Message)
	}
}

// GetPlot handles GET .../plot
func (h *DatasetHandler) GetPlot(w http.ResponseWriter, r *http.Request) {
	fig, err := h.service.Plot(r.Context(), sessionID(r), filterFromQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, fig)
}

// GetPlotPNG handles GET .../plot.png
func (h *DatasetHandler) GetPlotPNG(w http.ResponseWriter, r *http.Request) {
	width, ok := h.query.ValidateInt(w, r, "width", minChartSize, maxChartSize, 0)
	if !ok {
		return
	}
	height, ok := h.query.ValidateInt(w, r, "height", minChartSize, maxChartSize, 0)
	if !ok {
		return
	}

	png, err := h.service.PlotPNG(r.Context(), sessionID(r), filterFromQuery(r), width, height)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Export handles GET .../export?format=tsv|xlsx
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", []string{services.FormatTSV, services.FormatXLSX}, services.FormatTSV)
	if !ok {
		return
	}

	export, err := h.service.Export(r.Context(), sessionID(r), format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Data); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed", slog.String("error", err.Error()))
	}
}
