// Package app provides application initialization and lifecycle management
// for the analysis server. It wires configuration, logging, telemetry, the
// impact journal, services and the HTTP router together and handles
// graceful shutdown.
//
// # Initialization Flow
//
//	1. Resolve paths and create output directories
//	2. Initialize OpenTelemetry and the business metrics
//	3. Open the SQLite impact journal
//	4. Create the analysis service and load the configured dataset
//	5. Set up middleware, handlers and the HTTP server
//
// # Middleware Chain
//
//	RequestID → RealIP → OpenTelemetry → StructuredLogger → Recoverer →
//	RateLimiter → SecurityHeaders, plus a per-request Timeout on /api/v1
//
// # Usage
//
//	cfg, _ := config.Load()
//	logger, _ := infrastructure.InitializeLogger(cfg.Logging)
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
package app
