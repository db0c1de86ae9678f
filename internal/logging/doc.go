// Package logging provides structured logging for the smartlock controller.
//
// This package wraps a zap logger with convenience functions for the log
// patterns used by the connectivity supervisor and the control endpoint.
//
// # Log Levels
//
//   - Debug: raw request bytes, buffer offsets, link polling
//   - Info: Wi-Fi state transitions, accepted connections, lock changes
//   - Warn: benign handshake failures, read errors, rejected credentials
//   - Error: accept failures, association failures, fatal conditions
//
// # Components
//
// Every domain helper attaches a "component" field so output from the
// supervisor and the serving workers can be told apart:
//
//	logging.For(logging.ComponentWiFi).Info("Attempting to connect...")
//	logging.LogConnection(sessionID, remoteAddr, "connection_accepted")
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When neither a level nor SMARTLOCK_LOG_LEVEL is set, logging is silent.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
