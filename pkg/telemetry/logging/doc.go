// Package logging builds the process slog logger.
//
// New returns a *slog.Logger writing JSON or text. Records logged with a
// context pick up the request ID set by the HTTP middleware and the run ID
// set by the orchestrator:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "run started") // includes run_id
//
// Attributes named in Config.RedactKeys (by default the webhook secret and
// authorization headers) are written as "***".
package logging
