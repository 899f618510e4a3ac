package getProducts

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "github.com/S1l3ntium/yandex-price-bot/internal/lib/api/response"
	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	authMiddleware "github.com/S1l3ntium/yandex-price-bot/internal/middleware/auth"
	"github.com/S1l3ntium/yandex-price-bot/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Products []models.Product `json:"products"`
}

type ProductsLister interface {
	List(ctx context.Context, userID int64) ([]models.Product, error)
}

func New(
	log *slog.Logger,
	lister ProductsLister,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authMiddleware.UserID(r)
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		products, err := lister.List(ctx, userID)
		if err != nil {
			log.Error("Failed to get products", sl.Err(err), slog.Int64("user_id", userID))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		if products == nil {
			products = []models.Product{}
		}

		log.Info("Products retrieved successfully",
			slog.Int64("user_id", userID),
			slog.Int("count", len(products)),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Products: products,
		})
	}
}
