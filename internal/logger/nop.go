package logger

var _ Logger = (*NoOpLogger)(nil)

// NoOpLogger discards every entry. Repositories and stores fall back to it
// when they are built without a logger, and tests use it to keep output quiet.
type NoOpLogger struct{}

// NewNop returns the shared no-op logger.
func NewNop() Logger {
	return nop
}

var nop = &NoOpLogger{}

// Debug discards the entry.
func (l *NoOpLogger) Debug(string, ...Field) {}

// Info discards the entry.
func (l *NoOpLogger) Info(string, ...Field) {}

// Warn discards the entry.
func (l *NoOpLogger) Warn(string, ...Field) {}

// Error discards the entry.
func (l *NoOpLogger) Error(string, ...Field) {}

// With ignores the fields and returns the receiver.
func (l *NoOpLogger) With(...Field) Logger {
	return l
}

// Sync has nothing to flush.
func (l *NoOpLogger) Sync() error {
	return nil
}
