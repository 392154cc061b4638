// Package app wires the retail pipeline and the gold read API together.
//
// NewApplication resolves the data directories, initializes OpenTelemetry
// and the pipeline metrics, and opens the configured layer store. The same
// Application serves both entry points:
//
//	cmd/etl runs one pipeline with RunPipeline and then calls Close.
//	cmd/server calls Run, which serves the API until SIGINT or SIGTERM.
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
