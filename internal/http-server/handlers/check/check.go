// Package check запускает цикл проверки цен вручную через служебный API.
package check

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	resp "github.com/S1l3ntium/yandex-price-bot/internal/lib/api/response"
	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	"github.com/S1l3ntium/yandex-price-bot/internal/monitor"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Checker interface {
	RunCheckCycle(ctx context.Context) error
}

func New(
	log *slog.Logger,
	checker Checker,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.check.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := checker.RunCheckCycle(r.Context()); err != nil {
			if errors.Is(err, monitor.ErrCycleRunning) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Check cycle is already running"))
				return
			}

			log.Error("Manual check cycle failed", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Manual check cycle finished")

		render.JSON(w, r, resp.OK())
	}
}
