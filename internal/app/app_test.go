package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xalekter/charts-edit/internal/config"
	"github.com/xalekter/charts-edit/pkg/contracts/events"
)

const tracesCSV = `DOY,Sc,SiteC,Val,Description
10,A,1,100,-
30,A,1,200,leaf
20,B,2,50,stem
`

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*Application, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	app, err := NewApplication(cfg, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		srv.Close()
		_ = app.OTelProviders.Shutdown(context.Background())
	})
	return app, srv
}

func createSession(t *testing.T, baseURL string) string {
	t.Helper()
	resp, err := http.Post(baseURL+config.SessionsEndpoint, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.SessionID
}

func upload(t *testing.T, url string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "traces.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(tracesCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestApplication_HealthAndVersion(t *testing.T) {
	_, srv := newTestApp(t, testConfig())

	for _, path := range []string{config.HealthEndpoint, config.HealthEndpoint + "/live", config.HealthEndpoint + "/ready", "/api/version"} {
		resp := do(t, http.MethodGet, srv.URL+path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"), path)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), path)
	}
}

func TestApplication_NotFoundIsProblem(t *testing.T) {
	_, srv := newTestApp(t, testConfig())

	resp := do(t, http.MethodGet, srv.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var problem map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.EqualValues(t, 404, problem["status"])
}

func TestApplication_EditingRoundTrip(t *testing.T) {
	_, srv := newTestApp(t, testConfig())
	id := createSession(t, srv.URL)
	base := srv.URL + config.SessionsEndpoint + "/" + id

	upload(t, base+"/dataset")
	require.Equal(t, http.StatusOK, do(t, http.MethodPut, base+"/axes", `{"x":"DOY","y":"Val"}`).StatusCode)

	resp := do(t, http.MethodPost, base+"/rows", `{"x":20,"y":9,"species":["A"],"sites":["1"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var added map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	assert.Equal(t, "interpolated", added["provenance"])

	resp = do(t, http.MethodGet, base+"/plot?species=A", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(data), "\n"))

	resp = do(t, http.MethodGet, srv.URL+config.MetricsEndpoint, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "dataset_commands_total")
}

func TestApplication_ChangeFeed(t *testing.T) {
	app, srv := newTestApp(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = app.WebSocketHub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	id := createSession(t, srv.URL)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + config.WebSocketEndpoint + "?session=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, events.MessageTypeConnect, msg.Type)

	upload(t, srv.URL+config.SessionsEndpoint+"/"+id+"/dataset")

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeDatasetChanged, msg.Type)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "load", data["command"])
	assert.EqualValues(t, 1, data["revision"])
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	_, srv := newTestApp(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+config.HealthEndpoint, "").StatusCode)
	resp := do(t, http.MethodGet, srv.URL+config.HealthEndpoint, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	app, err := NewApplication(testConfig(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
