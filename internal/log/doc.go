// Package log builds the slog loggers used by the command line tool.
//
// SecureHandler wraps any slog.Handler and masks values that should not
// end up in a log file: cookies and authorization headers configured for
// a site, bearer and basic credentials, and the userinfo part of proxy
// URLs. Masking applies in verbose mode too.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("request", "cookie", "sid=abc") // cookie=***REDACTED***
//
// NewFileWriter returns a rotating writer for --log-file.
package log
