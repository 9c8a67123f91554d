// Package log provides slog loggers that mask sensitive values.
//
// Crawls can be configured with extra request headers such as a Cookie
// or an Authorization token. SecureHandler wraps any slog.Handler and
// replaces such values with MaskValue before they reach the output, so
// verbose logs stay safe to paste into an issue.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetching page",
//	    "url", pageURL,
//	    log.HeaderAttr("headers", req.Header), // Cookie becomes ***REDACTED***
//	)
//	slog.SetDefault(logger)
package log
