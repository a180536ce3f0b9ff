// Package logger provides structured logging for the download service.
//
// It wraps zerolog behind a small interface so callers can log at the
// usual levels, attach structured fields, and chain context with
// WithField/WithFields/WithError. Output goes to a pretty console
// writer by default, or to a file when one is configured.
//
// Basic usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "fetch")
//	log.InfoWithFields("download complete", map[string]interface{}{
//	    "platform": "tiktok",
//	    "size_mb":  4.2,
//	})
package logger
