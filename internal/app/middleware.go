package app

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/moneymap/moneymap/internal/config"
	"github.com/moneymap/moneymap/pkg/user"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Propagate X-User-Id header into context for downstream services.
	// Authentication and session handling happen upstream of this service;
	// every route needs a user, so a missing header is rejected here.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			userIDHeader := req.Header.Get("X-User-Id")
			if userIDHeader == "" {
				http.Error(w, "missing user id", http.StatusUnauthorized)
				return
			}
			userID, err := strconv.Atoi(userIDHeader)
			if err != nil {
				log.Debugf("invalid X-User-Id header: %s", userIDHeader)
				http.Error(w, "invalid user id", http.StatusBadRequest)
				return
			}
			ctx := user.WithUserId(req.Context(), userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
}
