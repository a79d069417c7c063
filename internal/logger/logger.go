package logger

import "chorddht/internal/ring"

// Field is a structured key:value log field.
type Field struct {
	Key string
	Val any
}

// Logger is the minimal structured-logging interface used throughout the
// node, store and RPC layers.
type Logger interface {
	Named(name string) Logger
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// F builds a Field concisely.
func F(key string, val any) Field { return Field{Key: key, Val: val} }

// FNode serializes a ring.NodeInfo into a readable structured field.
func FNode(key string, n ring.NodeInfo) Field {
	return Field{
		Key: key,
		Val: map[string]any{
			"id":   n.ID.String(),
			"addr": n.Address,
		},
	}
}

// NopLogger is a Logger implementation that discards everything. It is
// the default when no logger is configured.
type NopLogger struct{}

func (l *NopLogger) Named(name string) Logger          { return l }
func (l *NopLogger) With(fields ...Field) Logger       { return l }
func (l *NopLogger) Debug(msg string, fields ...Field) {}
func (l *NopLogger) Info(msg string, fields ...Field)  {}
func (l *NopLogger) Warn(msg string, fields ...Field)  {}
func (l *NopLogger) Error(msg string, fields ...Field) {}
