package chain

// LogWriter is the logging capability chain clients use.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

// Debug implements LogWriter.
func (NopLogger) Debug(string, ...any) {}

// Error implements LogWriter.
func (NopLogger) Error(string, ...any) {}
