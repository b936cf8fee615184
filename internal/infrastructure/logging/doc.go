// Package logging provides structured logging for the Smart Home Core.
//
// The package wraps log/slog so every component logs through the same
// handler with the same default fields.
//
// # Features
//
//   - JSON output for production, text output for development
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
//	logger.Info("device registered", "device_id", id)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
