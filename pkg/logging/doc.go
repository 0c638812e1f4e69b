// Package logging provides structured logging configuration for stubby.
//
// This package wraps log/slog so that every component logs the same way.
// Components accept a *slog.Logger through an option; when none is given
// they fall back to Nop.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("stubs loaded", "lifecycles", 12)
package logging
