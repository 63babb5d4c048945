package controllers

import (
	"context"
	"net/http"

	"github.com/brewloop/subswap-backend/api/responses"
	"github.com/brewloop/subswap-backend/pkg/config"
	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
)

const envHeader = "X-Subswap-Env"

// Pinger is the connectivity check surface of a backing dependency.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every wired dependency responds.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx := r.Context()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				dctx := logg.WithField(ctx, "dependency", name)
				logg.Error(dctx, "readiness check failed", err)
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
