package addProduct

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "github.com/S1l3ntium/yandex-price-bot/internal/lib/api/response"
	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	authMiddleware "github.com/S1l3ntium/yandex-price-bot/internal/middleware/auth"
	"github.com/S1l3ntium/yandex-price-bot/internal/models"
	"github.com/S1l3ntium/yandex-price-bot/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
)

type Request struct {
	URL       string `json:"url" validate:"required,url"`
	Threshold int    `json:"threshold,omitempty" validate:"omitempty,gt=0"`
}

type Response struct {
	resp.Response
	Product models.Product `json:"product"`
}

type ProductAdder interface {
	AddProduct(ctx context.Context, userID int64, url string, threshold int) (models.Product, error)
}

func New(
	log *slog.Logger,
	prodOp ProductAdder,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.add.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // * 1 МБ лимит запроса
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		userID, ok := authMiddleware.UserID(r)
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		// Первичная загрузка страницы может быть медленной.
		ctx, cancel := context.WithTimeout(r.Context(), 35*time.Second)
		defer cancel()

		product, err := prodOp.AddProduct(ctx, userID, req.URL, req.Threshold)
		if err != nil {
			log.Error("Failed to add product", sl.Err(err))

			if errors.Is(err, storage.ErrProductAlreadyTracked) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Product is already tracked"))
				return
			}

			// Неудачная первичная загрузка означает неверную ссылку, а не 500.
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, resp.Error("Failed to fetch product page"))

			return
		}

		log.Info("Product saved successfully",
			slog.Int64("product_id", product.ID),
			slog.Int64("user_id", userID),
		)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			Product:  product,
		})
	}
}
