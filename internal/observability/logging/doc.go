// Package logging configures the process-wide slog logger.
//
// Output is JSON by default and text when LOG_FORMAT=text; the level comes from
// LOG_LEVEL (debug, info, warn, error). Feed sessions tag their entries with a
// session_id via WithSessionID, and loggers travel through a context with
// WithLogger / FromContext.
//
// Example usage:
//
//	logger := logging.NewFromEnv()
//	slog.SetDefault(logger)
//
//	ctx = logging.WithLogger(ctx, logging.WithSessionID(logger, id))
//	logging.FromContext(ctx).Info("session started")
package logging
