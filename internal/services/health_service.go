package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Counter reports a live count, such as sessions or websocket clients.
type Counter interface {
	Len() int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func() int

// Len implements Counter.
func (f CounterFunc) Len() int { return f() }

// HealthService provides health check functionality
type HealthService struct {
	version   string
	sessions  Counter
	clients   Counter
	maxLoad   int
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count"`
}

// NewHealthService creates a health service. maxSessions of zero means no
// cap; at the cap the service reports not_ready so load balancers back off.
func NewHealthService(version string, sessions, clients Counter, maxSessions int, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		sessions:  sessions,
		clients:   clients,
		maxLoad:   maxSessions,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.Duration("uptime", time.Since(hs.startTime)))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"sessions":  hs.checkSessions(),
			"websocket": hs.checkCounter(hs.clients),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed", slog.String("reason", sh.Message))
			break
		}
	}
	return status
}

func (hs *HealthService) checkSessions() ServiceHealth {
	sh := hs.checkCounter(hs.sessions)
	if hs.maxLoad > 0 && sh.Count >= hs.maxLoad {
		sh.Status = "not_ready"
		sh.Message = "session limit reached"
	}
	return sh
}

func (hs *HealthService) checkCounter(c Counter) ServiceHealth {
	if c == nil {
		return ServiceHealth{Status: "not_ready", Message: "not configured"}
	}
	return ServiceHealth{Status: "ready", Count: c.Len()}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}
