// Package app wires the trace editor server together and manages its
// lifecycle.
//
// # Initialization Flow
//
// NewApplication takes a loaded configuration and a logger and:
//
//  1. Initializes OpenTelemetry and the business metrics
//  2. Creates the session manager, the change feed hub and the services
//  3. Builds the chi router and its middleware chain
//  4. Configures the HTTP server
//
// Nothing is started until Run.
//
// # Usage
//
//	cfg, err := config.Load()
//	...
//	application, err := app.NewApplication(cfg, logger)
//	...
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run groups the HTTP server, the hub loop and the session sweeper in an
// errgroup. When the context is cancelled, or any of them fails, the server
// drains in-flight requests within the shutdown timeout, websocket clients
// are closed and telemetry is flushed.
//
// # Error Handling
//
// Initialization errors are returned to the caller. The package never calls
// os.Exit; cmd/fmtrace maps errors to exit codes.
package app
