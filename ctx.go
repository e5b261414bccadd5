package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithSessionContext sets the Session in the given context
func WithSessionContext(r context.Context, session Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext extracts the Session from the standard context
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// HasRoleFromRouter checks role membership for the request session stored by
// the route guard. A missing or undecodable session holds no roles.
func HasRoleFromRouter(ctx router.Context, role string) bool {
	session, err := SessionFromLocals(ctx)
	if err != nil {
		return false
	}

	holder, ok := session.(interface{ HasRole(string) bool })
	if !ok {
		return false
	}

	return holder.HasRole(role)
}
