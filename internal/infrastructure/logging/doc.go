// Package logging provides structured logging for the building data service.
//
// This package wraps Go's standard log/slog package so every component
// (importer, pipeline, API, hand-off publishers) logs with the same fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("import finished", "buildings", 12, "warnings", 3)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
