// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Room and connection events are logged with the shared field helpers
// (RoomID, ConnID, Event) so entries can be filtered per room.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	logger.Info("Room created", logging.RoomID("r1"), logging.ConnID(conn))
//	logger.Error("Failed to upgrade connection", zap.Error(err))
package logging
