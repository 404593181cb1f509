// Package audit delivers account and session audit events to a sink
// without blocking the request path.
//
// The [Dispatcher] owns buffering and delivery. It does not decide which
// events to emit; the identity engine does. Sinks provided here write to a
// channel, a JSON line stream or a slog logger.
package audit
