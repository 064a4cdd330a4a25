package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/soko-labs/sokolist-backend/api/responses"
	"github.com/soko-labs/sokolist-backend/pkg/config"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SokoList-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, pingers ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SokoList-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		for _, p := range pingers {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
