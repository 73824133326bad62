// Package shared holds code used across layers that belongs to no single
// domain package.
//
// # Test Utilities
//
// The testutil subpackage provides a buffered slog handler so tests can
// assert on structured log output:
//
//	func TestLoad(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    loader := ingest.NewLoader(logger)
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset loaded")
//	}
//
// It must not import other internal packages.
package shared
