// Package logging is the zap wrapper shared by the tokensaver commands.
//
// Hook processes are short-lived and write their real result to stdout, so
// log entries go to stderr, to an optional hook.log file when debugging, and
// to an OpenTelemetry log exporter when telemetry is on. Every entry carries
// the session id and trace ids from the context, and string values pass
// through the credential scrubber before they are encoded.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	ctx = logging.WithSessionID(ctx, sessionID)
//	logger.Debug(ctx, "output compressed", zap.String("processor", "search"))
package logging
