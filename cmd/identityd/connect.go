package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

var (
	retryBase = 200 * time.Millisecond
	retryCap  = 5 * time.Second
)

// connect calls dial until it succeeds or ctx ends, backing off
// exponentially between attempts.
func connect(ctx context.Context, logger *slog.Logger, name string, dial func(context.Context) error) error {
	backoff := retry.WithCappedDuration(retryCap, retry.NewExponential(retryBase))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := dial(ctx); err != nil {
			logger.WarnContext(ctx, "dependency not reachable",
				slog.String("dependency", name),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DEPENDENCY_CONNECT_FAILED").
			With("dependency", name).
			With("attempts", attempt).
			Wrap(err)
	}
	logger.InfoContext(ctx, "dependency connected", slog.String("dependency", name), slog.Int("attempts", attempt))
	return nil
}
