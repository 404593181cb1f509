package identity

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/identity/internal/audit"
)

// AuditEvent is one security-relevant action recorded by the engine.
// Passwords, tokens and hashes never appear in it.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's background dispatcher.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// NewChannelSink returns a sink that buffers events on a channel, useful in
// tests and for in-process consumers.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink returns a sink that logs events through logger.
func NewSlogSink(logger *slog.Logger) *audit.SlogSink {
	return audit.NewSlogSink(logger)
}

// MultiSink fans events out to several sinks.
func MultiSink(sinks ...AuditSink) AuditSink {
	return audit.MultiSink(sinks)
}
