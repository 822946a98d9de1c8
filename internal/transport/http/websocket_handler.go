package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/xalekter/charts-edit/internal/config"
	apierrors "github.com/xalekter/charts-edit/internal/errors"
	"github.com/xalekter/charts-edit/internal/infrastructure"
	"github.com/xalekter/charts-edit/internal/session"
	ws "github.com/xalekter/charts-edit/internal/websocket"
)

// SessionLookup reports whether a session is live.
type SessionLookup interface {
	Exists(id string) bool
}

// WebSocketHandler attaches browsers to the change feed of a session
type WebSocketHandler struct {
	hub          *ws.Hub
	sessions     SessionLookup
	upgrader     *websocket.Upgrader
	cfg          config.WebSocketConfig
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(hub *ws.Hub, sessions SessionLookup, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		sessions:     sessions,
		upgrader:     ws.NewUpgrader(cfg, allowedOrigins),
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "websocket_handler")),
		errorHandler: errorHandler,
	}
}

// ServeHTTP handles GET /ws?session={id}
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("session", "session is required"))
		return
	}
	if !h.sessions.Exists(id) {
		h.errorHandler.HandleError(w, r, fmt.Errorf("%w: %q", session.ErrSessionNotFound, id))
		return
	}

	ctx := infrastructure.WithSessionID(r.Context(), id)
	if err := ws.ServeWS(h.hub, h.upgrader, h.cfg, w, r.WithContext(ctx), id, h.logger); err != nil {
		h.logger.WarnContext(ctx, "websocket attach failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
	}
}
