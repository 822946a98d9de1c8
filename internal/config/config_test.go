package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadFile tests the layering of defaults, file and environment
func TestLoadFile(t *testing.T) {
	writeFile := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "fmtrace.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, int64(32<<20), cfg.Server.UploadMaxBytes)
				assert.Equal(t, 2*time.Hour, cfg.Session.IdleTimeout)
				assert.Equal(t, 0.1, cfg.Editor.StepSize)
				assert.Equal(t, 20, cfg.Editor.PreviewRows)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
			},
		},
		{
			name: "file overrides defaults",
			file: "server:\n  port: 9000\neditor:\n  step_size: 0.5\nsession:\n  max_sessions: 3\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, 0.5, cfg.Editor.StepSize)
				assert.Equal(t, 3, cfg.Session.MaxSessions)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "untouched fields keep defaults")
			},
		},
		{
			name: "environment overrides file",
			file: "server:\n  port: 9000\n",
			env: map[string]string{
				"FMTRACE_SERVER_PORT":              "9191",
				"FMTRACE_SECURITY_ALLOWED_ORIGINS": "http://a.example,https://b.example",
				"FMTRACE_SESSION_IDLE_TIMEOUT":     "30m",
				"FMTRACE_LOGGING_FORMAT":           "text",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9191, cfg.Server.Port)
				assert.Equal(t, []string{"http://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
				assert.Equal(t, "json", cfg.Logging.Format, "format is always json")
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"FMTRACE_SERVER_PORT": "99999"},
			wantErr: "invalid server port: 99999",
		},
		{
			name:    "unparseable env value",
			env:     map[string]string{"FMTRACE_EDITOR_STEP_SIZE": "abc"},
			wantErr: "failed to load config from env",
		},
		{
			name:    "bad yaml",
			file:    "server: [",
			wantErr: "failed to load config from file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetConfigFilePath_FromEnv(t *testing.T) {
	t.Setenv("FMTRACE_CONFIG", "/etc/fmtrace/custom.yaml")
	assert.Equal(t, "/etc/fmtrace/custom.yaml", getConfigFilePath())
}

// TestValidate tests the validate function
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid configuration", mutate: func(*Config) {}},
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port: 0"},
		{name: "negative read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = -time.Second }, wantErr: "server read timeout must be positive"},
		{name: "zero write timeout", mutate: func(c *Config) { c.Server.WriteTimeout = 0 }, wantErr: "server write timeout must be positive"},
		{name: "zero upload limit", mutate: func(c *Config) { c.Server.UploadMaxBytes = 0 }, wantErr: "upload limit must be positive"},
		{name: "cors without origins", mutate: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: "at least one allowed origin"},
		{name: "cors disabled without origins", mutate: func(c *Config) {
			c.Security.EnableCORS = false
			c.Security.AllowedOrigins = nil
		}},
		{name: "bad rate limit", mutate: func(c *Config) { c.Security.RateLimit.Burst = 0 }, wantErr: "rate limit"},
		{name: "bad log output", mutate: func(c *Config) { c.Logging.Output = "syslog" }, wantErr: "invalid logging output"},
		{name: "zero step", mutate: func(c *Config) { c.Editor.StepSize = 0 }, wantErr: "step size"},
		{name: "zero preview", mutate: func(c *Config) { c.Editor.PreviewRows = 0 }, wantErr: "preview rows"},
		{name: "zero idle timeout", mutate: func(c *Config) { c.Session.IdleTimeout = 0 }, wantErr: "idle timeout"},
		{name: "unknown trace exporter", mutate: func(c *Config) { c.Telemetry.TraceExporter = "jaeger" }, wantErr: "invalid trace exporter"},
		{name: "unknown metric exporter", mutate: func(c *Config) { c.Telemetry.MetricExporter = "statsd" }, wantErr: "invalid metric exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_FilePathFilledForFileOutput(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "both"
	cfg.Logging.FilePath = ""
	require.NoError(t, cfg.validate())
	assert.Equal(t, "logs/fmtrace.log", cfg.Logging.FilePath)
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, ":8080", Default().Server.Addr())
	assert.Equal(t, "127.0.0.1:9000", ServerConfig{Host: "127.0.0.1", Port: 9000}.Addr())
}
