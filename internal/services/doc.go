// Package services implements the business logic layer between the HTTP
// handlers and the analysis core.
//
// # Analysis Service
//
// AnalysisService owns the current dataset. Reads (rolling statistics,
// decomposition, correlation, event impact, chart rendering, exports) hold
// a read lock and may run concurrently. Loading a dataset or adopting a
// merged table takes the write lock. The analysis core itself is
// single-threaded; the lock is what makes it safe behind a server.
//
//	svc := services.NewAnalysisService(services.Dependencies{
//	    Config:   cfg.Analysis,
//	    Paths:    paths,
//	    Renderer: renderer,
//	    Journal:  journal,
//	    Logger:   logger,
//	})
//	info, err := svc.LoadDataset(ctx, paths.DatasetFile)
//
// Operations called before a dataset is loaded return
// errors.ErrNoDataset.
//
// # Event Impact Journal
//
// When a store.ImpactStore is configured every event impact run is saved
// and can be read back by run id. A failed save is logged and does not
// fail the analysis.
//
// # Health Service
//
// HealthService reports liveness, readiness (dataset loaded, journal
// reachable) and version information.
package services
