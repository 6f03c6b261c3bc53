// Package logging provides structured logging for alauto.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the bot.
//
// # Features
//
//   - Text output by default (the bot is usually watched from a terminal)
//   - JSON output for log shipping
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("connected to device", "service", cfg.Network.Service)
//
// Never log MQTT or InfluxDB credentials.
package logging
