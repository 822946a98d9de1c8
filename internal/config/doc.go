// Package config provides centralized configuration management for the
// FM-Trace Editor server and CLI.
//
// # Configuration Sources
//
// Configuration is layered, later sources winning:
//
//  1. Default values (Default)
//  2. A YAML file: $FMTRACE_CONFIG, else fmtrace.yaml or configs/fmtrace.yaml
//  3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern FMTRACE_<SECTION>_<FIELD>:
//
//	FMTRACE_SERVER_PORT=8080
//	FMTRACE_SERVER_UPLOAD_MAX_BYTES=33554432
//	FMTRACE_SESSION_IDLE_TIMEOUT=2h
//	FMTRACE_EDITOR_STEP_SIZE=0.1
//	FMTRACE_LOGGING_LEVEL=debug
//	FMTRACE_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For tests, config.Default() returns a valid configuration that needs no
// environment or files.
package config
