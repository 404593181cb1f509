package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type readyResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Timestamp    time.Time         `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   a.opts.ServiceName,
		Version:   a.opts.Version,
		Timestamp: a.now().UTC(),
	})
}

// handleReady runs every check concurrently under the ready timeout. Any
// failing dependency makes the service not ready.
func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.opts.ReadyTimeout)
	defer cancel()

	names := make([]string, 0, len(a.opts.Checks))
	for name := range a.opts.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu   sync.Mutex
		deps = make(map[string]string, len(names))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		check := a.opts.Checks[name]
		g.Go(func() error {
			state := "connected"
			if err := check(gctx); err != nil {
				state = "disconnected"
				a.logger.WarnContext(r.Context(), "readiness check failed",
					slog.String("dependency", name),
					slog.String("error", err.Error()),
				)
			}
			mu.Lock()
			deps[name] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := readyResponse{
		Status:       "ready",
		Service:      a.opts.ServiceName,
		Timestamp:    a.now().UTC(),
		Dependencies: deps,
	}
	status := http.StatusOK
	for _, state := range deps {
		if state != "connected" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	a.writeJSON(w, status, resp)
}
