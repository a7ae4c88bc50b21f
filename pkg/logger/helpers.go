package logger

import "time"

// LogRequest logs the outcome of a forwarded or outgoing HTTP request.
// Level follows the status class; status 0 means no response was received.
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	}

	switch {
	case statusCode == 0 || statusCode >= 500:
		OrGlobal(l).WarnWithFields("HTTP request failed", fields)
	case statusCode >= 400:
		OrGlobal(l).InfoWithFields("HTTP request client error", fields)
	default:
		OrGlobal(l).DebugWithFields("HTTP request completed", fields)
	}
}

// LogComponentStart logs when a long-running component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	cl := OrGlobal(l).WithField("component", component)
	if len(settings) > 0 {
		cl = cl.WithFields(settings)
	}
	cl.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	OrGlobal(l).WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                   {}
func (nopLogger) Info(string)                                    {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) Error(string)                                   {}
func (n nopLogger) WithField(string, interface{}) Logger         { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger     { return n }
func (n nopLogger) WithError(error) Logger                       { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
