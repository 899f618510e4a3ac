package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/S1l3ntium/yandex-price-bot/internal/middleware/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedHandler(t *testing.T, admins []int64) (http.Handler, *int64) {
	t.Helper()

	var seenUserID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserID(r)
		require.True(t, ok)
		seenUserID = userID
	})

	return auth.New(admins)(next), &seenUserID
}

func TestAuth_AllowsAdmin(t *testing.T) {
	handler, seenUserID := newProtectedHandler(t, []int64{42, 7})

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("X-User-ID", "42")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(42), *seenUserID)
}

func TestAuth_RejectsUnknownUser(t *testing.T) {
	handler, _ := newProtectedHandler(t, []int64{42})

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("X-User-ID", "99")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAuth_MissingHeader(t *testing.T) {
	handler, _ := newProtectedHandler(t, []int64{42})

	req := httptest.NewRequest(http.MethodGet, "/products", nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_MalformedHeader(t *testing.T) {
	for _, header := range []string{"abc", "-5", "0"} {
		handler, _ := newProtectedHandler(t, []int64{42})

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("X-User-ID", header)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "header %q", header)
	}
}
