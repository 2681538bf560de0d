// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package. Records are written to stderr by
// default so that stdout stays reserved for output relayed from the wrapped
// tool. When journal output is enabled and journald is reachable, records are
// mirrored to the systemd journal as well.
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",  // Global log level: debug, info, warn, error
//		Format:  "text",  // Output format: text or json
//		Journal: true,    // Also send to journald when available
//		Modules: map[string]string{
//			"ffmpeg": "debug", // Per-module overrides
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("runner")
//	logger.Info("Run started", "run_id", id)
//
// # Modules
//
//	runner  - orchestration of a single invocation and its child process
//	ffmpeg  - lines relayed from the wrapped tool, at their classified level
//	systemd - sd_notify status updates
//
// # Viewing Logs
//
// When journal output is enabled:
//
//	journalctl -t ffrun                 # All ffrun logs
//	journalctl -t ffrun MODULE=ffmpeg   # Tool diagnostics only
//	journalctl -t ffrun RUN_ID=<uuid>   # A single invocation
//
// # Configuration
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	journal = false
//
//	[logging.modules]
//	ffmpeg = "debug"
package logging
