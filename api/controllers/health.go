package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/winimarket/winimarket-backend/api/responses"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness plus dependency reachability.
func Health(db pinger, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				checks["database"] = err.Error()
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency check failed").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ok", "checks": checks})
	}
}
