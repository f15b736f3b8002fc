package user

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserIDKey contextKey = "userId"

var ErrNoUser = errors.New("user not found")

// CurrentId retrieves the current user's ID from the context. Authentication
// happens upstream; this core only needs the resolved owner id.
func CurrentId(ctx context.Context) (int, error) {
	userID, ok := ctx.Value(UserIDKey).(int)
	if !ok {
		log.Trace("user not found in context")
		return 0, ErrNoUser
	}
	return userID, nil
}

func WithUserId(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
