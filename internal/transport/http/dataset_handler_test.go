package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xalekter/charts-edit/internal/config"
	apierrors "github.com/xalekter/charts-edit/internal/errors"
	"github.com/xalekter/charts-edit/internal/middleware"
	"github.com/xalekter/charts-edit/internal/services"
	"github.com/xalekter/charts-edit/internal/session"
	api "github.com/xalekter/charts-edit/pkg/contracts/api/v1"
)

const tracesCSV = `DOY,Sc,SiteC,Val,Description
10,A,1,100,-
30,A,1,200,leaf
20,B,2,50,stem
`

type testServer struct {
	t      *testing.T
	router chi.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)

	mgr := session.NewManager(session.ManagerConfig{}, logger)
	svc := services.NewDatasetService(mgr, nil, nil, config.Default().Editor, logger)
	h := NewDatasetHandler(svc, middleware.NewValidator(logger), 1<<20, logger, errorHandler)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/sessions", h.Routes())
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return s.do(method, path, r, "application/json")
}

func (s *testServer) upload(path, filename string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, filename)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())
	return s.do(http.MethodPost, path, &buf, mw.FormDataContentType())
}

func (s *testServer) createSession() string {
	s.t.Helper()
	rec := s.json(http.MethodPost, "/api/sessions", "")
	require.Equal(s.t, http.StatusCreated, rec.Code)
	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.SessionID)
	return "/api/sessions/" + resp.SessionID
}

func (s *testServer) loaded() string {
	s.t.Helper()
	base := s.createSession()
	rec := s.upload(base+"/dataset", "traces.csv", []byte(tracesCSV))
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.json(http.MethodPut, base+"/axes", `{"x":"DOY","y":"Val"}`)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return base
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestDatasetHandler_LoadAndSummary(t *testing.T) {
	s := newTestServer(t)
	base := s.createSession()

	rec := s.json(http.MethodGet, base+"/dataset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["loaded"])

	rec = s.upload(base+"/dataset", "traces.csv", []byte(tracesCSV))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Successfully loaded 3 rows and 5 columns", body["message"])
	assert.Equal(t, "DOY", body["x_column"])

	rec = s.json(http.MethodGet, base+"/dataset", "")
	body = decode(t, rec)
	assert.Equal(t, true, body["loaded"])
	assert.EqualValues(t, 3, body["rows"])
}

func TestDatasetHandler_UploadErrors(t *testing.T) {
	s := newTestServer(t)
	base := s.createSession()

	rec := s.upload(base+"/dataset", "empty.csv", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apierrors.CodeParseFailure, decode(t, rec)["error_code"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	rec = s.do(http.MethodPost, base+"/dataset", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.json(http.MethodPost, base+"/dataset", `{"file":"x"}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestDatasetHandler_UnknownSession(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/sessions/not-a-uuid/dataset",
		"/api/sessions/6f1c2d4e-8a9b-4c3d-9e8f-7a6b5c4d3e2f/dataset",
	} {
		rec := s.json(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, apierrors.CodeSessionNotFound, decode(t, rec)["error_code"], path)
	}
}

func TestDatasetHandler_NoDataLoaded(t *testing.T) {
	s := newTestServer(t)
	base := s.createSession()

	rec := s.json(http.MethodDelete, base+"/rows/0", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.CodeNoDataLoaded, decode(t, rec)["error_code"])
}

func TestDatasetHandler_PreviewFilters(t *testing.T) {
	s := newTestServer(t)
	base := s.loaded()

	rec := s.json(http.MethodGet, base+"/rows?species=A&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["filtered"])
	assert.Len(t, body["rows"], 1)
	assert.Equal(t, "Filtered by: Species: A", body["filter_status"])

	rec = s.json(http.MethodGet, base+"/rows?species=Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "empty", body["status"])
	assert.Equal(t, "No data matches the selected filters", body["message"])

	rec = s.json(http.MethodGet, base+"/rows?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetHandler_EditRows(t *testing.T) {
	s := newTestServer(t)
	base := s.loaded()

	rec := s.json(http.MethodPost, base+"/rows", `{"x":20,"y":9,"species":["A"],"sites":["1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "interpolated", body["provenance"])
	assert.EqualValues(t, 3, body["position"])

	rec = s.json(http.MethodPost, base+"/rows/0/step", `{"axis":"y","direction":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 100+config.DefaultStepSize, decode(t, rec)["new"], 1e-9)

	rec = s.json(http.MethodPost, base+"/rows/0/step", `{"axis":"z","direction":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.json(http.MethodPut, base+"/rows/1", `{"x":31,"y":210}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Updated point 1 to (31, 210)", decode(t, rec)["message"])

	rec = s.json(http.MethodPut, base+"/rows/99", `{"x":1,"y":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, apierrors.CodeIndexOutOfRange, body["error_code"])
	assert.Equal(t, map[string]any{"clear_selection": true}, body["details"])

	rec = s.json(http.MethodPut, base+"/rows/-1", `{"x":1,"y":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.json(http.MethodPost, base+"/dataset/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodGet, base+"/dataset", "")
	assert.EqualValues(t, 3, decode(t, rec)["rows"])
}

func TestDatasetHandler_PartialBodiesLeaveDataUntouched(t *testing.T) {
	s := newTestServer(t)
	base := s.loaded()

	before := s.json(http.MethodGet, base+"/rows", "").Body.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		field  string
	}{
		{"update without y", http.MethodPut, "/rows/0", `{"x":12}`, "y"},
		{"update without x", http.MethodPut, "/rows/0", `{"y":4.5}`, "x"},
		{"add without coordinates", http.MethodPost, "/rows", `{}`, "x"},
		{"add without y", http.MethodPost, "/rows", `{"x":20}`, "y"},
		{"marker without position", http.MethodPost, "/markers", `{"label":"Bloom","color":"red"}`, "position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.json(tt.method, base+tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, apierrors.CodeValidationFailed, body["error_code"])
			assert.Contains(t, rec.Body.String(), `"field":"`+tt.field+`"`)
		})
	}

	assert.JSONEq(t, before, s.json(http.MethodGet, base+"/rows", "").Body.String())
	assert.Empty(t, decode(t, s.json(http.MethodGet, base+"/markers", ""))["markers"])

	rec := s.json(http.MethodPut, base+"/rows/0", `{"x":0,"y":0}`)
	require.Equal(t, http.StatusOK, rec.Code, "explicit zeros are valid")
	assert.Equal(t, "Updated point 0 to (0, 0)", decode(t, rec)["message"])
}

func TestDatasetHandler_RevisionHeader(t *testing.T) {
	s := newTestServer(t)
	base := s.loaded()

	rec := s.json(http.MethodPut, base+"/rows/1", `{"x":31,"y":210}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first, err := strconv.ParseUint(rec.Header().Get(api.RevisionHeader), 10, 64)
	require.NoError(t, err)
	assert.NotZero(t, first)

	rec = s.json(http.MethodPut, base+"/rows/1", `{"x":32,"y":211}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, strconv.FormatUint(first+1, 10), rec.Header().Get(api.RevisionHeader))

	rec = s.json(http.MethodPut, base+"/rows/99", `{"x":1,"y":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get(api.RevisionHeader))
}

func TestDatasetHandler_Selection(t *testing.T) {
	s := newTestServer(t)
	base := s.loaded()

	rec := s.json(http.MethodPost, base+"/selection", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.json(http.MethodPost, base+"/selection", `{"index":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["selected"])

	rec = s.json(http.MethodDelete, base+"/rows/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Removed point 1. Total points: 2", decode(t, rec)["message"])

	rec = s.json(http.MethodGet, base+"/selection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["selected"])

	rec = s.json(http.MethodPost, base+"/selection", `{"index":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodDelete, base+"/selection", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDatasetHandler_Markers(t *testing.T) {
	s := newTestServer(t)
	base := s.createSession()

	rec := s.json(http.MethodGet, base+"/markers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["markers"])

	rec = s.json(http.MethodPost, base+"/markers/presets/spring", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["markers"], 1)

	rec = s.json(http.MethodPost, base+"/markers", `{"position":150,"label":"Harvest","color":"green"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["markers"], 2)

	rec = s.json(http.MethodPost, base+"/markers", `{"position":150,"label":"Harvest","color":"teal"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.CodeValidationFailed, decode(t, rec)["error_code"])

	rec = s.json(http.MethodPost, base+"/markers/presets/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.json(http.MethodDelete, base+"/markers/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.json(http.MethodDelete, base+"/markers/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["markers"], 1)

	rec = s.json(http.MethodDelete, base+"/markers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["markers"])
}

func TestDatasetHandler_Plot(t *testing.T) {
	s := newTestServer(t)
	base := s.loaded()

	rec := s.json(http.MethodGet, base+"/plot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["traces"])

	rec = s.json(http.MethodGet, base+"/plot?species=Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "empty", decode(t, rec)["status"])

	rec = s.json(http.MethodGet, base+"/plot.png?width=400&height=300", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = s.json(http.MethodGet, base+"/plot.png?width=5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetHandler_Export(t *testing.T) {
	s := newTestServer(t)
	base := s.loaded()

	rec := s.json(http.MethodGet, base+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="modified_data.DOY"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "DOY\tSc\tSiteC\tVal\tDescription\n"))

	rec = s.json(http.MethodGet, base+"/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "modified_data.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = s.json(http.MethodGet, base+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetHandler_DeleteSession(t *testing.T) {
	s := newTestServer(t)
	base := s.createSession()

	rec := s.json(http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.json(http.MethodGet, base+"/dataset", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
