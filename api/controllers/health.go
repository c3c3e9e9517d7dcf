package controllers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/dropsaas/shopify-bridge/api/responses"
	"github.com/dropsaas/shopify-bridge/pkg/config"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
)

const readinessTimeout = 3 * time.Second

const envHeader = "X-Dropsaas-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis and reports every failure.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var err error
		if dbP == nil {
			checks["database"] = "missing"
			err = multierr.Append(err, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
		} else if pingErr := dbP.Ping(ctx); pingErr != nil {
			checks["database"] = "error"
			err = multierr.Append(err, pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, "database ping"))
		}
		if redisP == nil {
			checks["redis"] = "missing"
			err = multierr.Append(err, pkgerrors.New(pkgerrors.CodeDependency, "redis not configured"))
		} else if pingErr := redisP.Ping(ctx); pingErr != nil {
			checks["redis"] = "error"
			err = multierr.Append(err, pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, "redis ping"))
		}

		if err != nil {
			if logg != nil {
				logg.Error(logg.WithField(r.Context(), "checks", checks), "health.not_ready", err)
			}
			responses.WriteError(r.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "not ready").WithDetails(checks))
			return
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
