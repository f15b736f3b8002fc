package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/moneymap/moneymap/internal/config"
	"github.com/moneymap/moneymap/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiddlewareTest(t *testing.T) *mux.Router {
	r := mux.NewRouter()
	SetupMiddleware(r, &Dependencies{}, config.Application{})
	r.HandleFunc("/whoami", func(w http.ResponseWriter, req *http.Request) {
		userID, err := user.CurrentId(req.Context())
		require.NoError(t, err)
		assert.Equal(t, 42, userID)
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestSetupMiddleware_UserHeader(t *testing.T) {
	t.Run("should resolve the user from the X-User-Id header", func(t *testing.T) {
		router := setupMiddlewareTest(t)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-User-Id", "42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("should reject a missing header", func(t *testing.T) {
		router := setupMiddlewareTest(t)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("should reject a non-numeric header", func(t *testing.T) {
		router := setupMiddlewareTest(t)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-User-Id", "not-a-number")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
