// Package logging provides structured logging for the bootstrap using uber/zap.
//
// Two modes are available:
//   - Production: JSON lines on stderr, warn level by default
//   - Development: colored console output (SATCHEL_LOG_DEV)
//
// The bootstrap never logs to stdout; stdout belongs to the launched
// application.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("cache hit", zap.String("dir", dir))
//	logger.Error("extraction failed", zap.String("path", path), zap.Error(err))
package logging
