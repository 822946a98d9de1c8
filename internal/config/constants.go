package config

import "time"

// Application constants for the FM-Trace Editor
const (
	// Application Info
	AppName = "fmtrace"

	// Server
	DefaultShutdownTimeout = 30 * time.Second

	// Uploads
	DefaultUploadMaxBytes = 32 << 20 // 32 MiB

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Sessions
	DefaultSessionIdleTimeout   = 2 * time.Hour
	DefaultSessionSweepInterval = time.Minute
	DefaultMaxSessions          = 1000

	// Editor
	DefaultStepSize    = 0.1
	DefaultPreviewRows = 20
	DefaultChartWidth  = 1200
	DefaultChartHeight = 600

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Endpoints
	APIBasePath       = "/api"
	SessionsEndpoint  = "/api/sessions"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
