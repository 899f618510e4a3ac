package deleteProduct

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	resp "github.com/S1l3ntium/yandex-price-bot/internal/lib/api/response"
	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	authMiddleware "github.com/S1l3ntium/yandex-price-bot/internal/middleware/auth"
	"github.com/S1l3ntium/yandex-price-bot/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

type ProductsRemover interface {
	Delete(ctx context.Context, productID, userID int64) error
}

func New(
	log *slog.Logger,
	prodOp ProductsRemover,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.delete.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		productID := parseProductID(r)
		if productID == -1 {
			log.Error("Invalid id")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid id"))

			return
		}

		userID, ok := authMiddleware.UserID(r)
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		err := prodOp.Delete(r.Context(), productID, userID)
		if err != nil {
			// Чужой товар выглядит так же, как несуществующий.
			if errors.Is(err, storage.ErrProductNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Product not found"))
				return
			}

			log.Error("Failed to delete product",
				sl.Err(err),
				slog.Int64("user_id", userID),
				slog.Int64("product_id", productID),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Product deleted successfully",
			slog.Int64("product_id", productID),
			slog.Int64("user_id", userID),
		)

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}

func parseProductID(r *http.Request) int64 {
	productIDStr := r.URL.Query().Get("id")
	if productIDStr == "" {
		return -1
	}

	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID < 0 {
		return -1
	}

	return productID
}
