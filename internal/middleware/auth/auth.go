// Package auth проверяет доступ к служебному HTTP API по статическому
// списку доверенных пользователей.
package auth

import (
	"context"
	"net/http"
	"strconv"

	resp "github.com/S1l3ntium/yandex-price-bot/internal/lib/api/response"

	"github.com/go-chi/render"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// New пускает дальше только запросы с заголовком X-User-ID из списка admins.
func New(admins []int64) func(next http.Handler) http.Handler {
	allowed := make(map[int64]struct{}, len(admins))
	for _, id := range admins {
		allowed[id] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("X-User-ID")
			if header == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Missing user id"))
				return
			}

			userID, err := strconv.ParseInt(header, 10, 64)
			if err != nil || userID <= 0 {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid user id"))
				return
			}

			if _, ok := allowed[userID]; !ok {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Access denied"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID достаёт идентификатор пользователя, положенный middleware.
func UserID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(UserIDKey).(int64)
	return userID, ok && userID > 0
}
