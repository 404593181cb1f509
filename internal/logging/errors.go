package logging

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Error logs err at error level. Context attached with samber/oops (code,
// key/value pairs) is expanded into the record.
func Error(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != "" {
			attrs = append(attrs, slog.Any("error_code", code))
		}
		if fields := oopsErr.Context(); len(fields) > 0 {
			attrs = append(attrs, slog.Any("error_context", fields))
		}
	}
	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
