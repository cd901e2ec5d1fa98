package logging

import (
	"log/slog"
)

// SetupServeMode initializes logging for `ds serve`.
// Records go to the log file only: stdout carries the JSON-RPC stream and
// stderr is often captured by the MCP client as protocol noise.
func SetupServeMode(cfg Config) (func(), error) {
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultLogPath()
	}
	cfg.WriteToStderr = false

	cleanup, err := SetupDefault(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("serve_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
