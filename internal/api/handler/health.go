package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/reviewpulse/internal/api/response"
)

const healthCheckTimeout = 3 * time.Second

// Pinger is anything whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// NewHealthHandler reports database, cache and classifier reachability.
// Database or cache loss is a 503; a lost classifier only marks the
// classifier degraded because ingestion falls back locally.
func NewHealthHandler(db, cache, classifier Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		checks := map[string]string{
			"database":   probe(ctx, db),
			"cache":      probe(ctx, cache),
			"classifier": probe(ctx, classifier),
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		status := "ok"
		if checks["classifier"] != "ok" {
			status = "degraded"
		}
		response.JSON(w, map[string]any{
			"status":   status,
			"services": checks,
		})
	}
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil || p.Ping(ctx) != nil {
		return "degraded"
	}
	return "ok"
}
