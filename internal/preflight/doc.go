// Package preflight validates that the host can serve Windows Search
// queries before ds relies on it.
//
// The package checks:
//   - The operating system (Windows Search exists only on Windows)
//   - The WSearch service is installed and running
//   - The Search.CollatorDSO OLE DB provider is registered
//   - The SystemIndex catalog answers and is not paused
//   - The log and history directories are writable
//   - Free disk space for the query history store
//
// Checks run concurrently; results are reported in a fixed order:
//
//	checker := preflight.New(preflight.WithPaths(logDir, dataDir))
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
