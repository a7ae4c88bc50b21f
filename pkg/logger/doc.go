// Package logger provides the structured logging interface used across xhstoolbox.
//
// It wraps zerolog with a small Logger interface so components can take a
// logger as a dependency and tests can swap in NewTestLogger or NewNopLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "proxy")
//	log.InfoWithFields("forwarded", map[string]interface{}{"status": 200})
//
// Console output goes to stderr with colored level labels. When a log file is
// configured, lines are written to both the console and the file.
package logger
