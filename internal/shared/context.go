package shared

import "context"

type (
	sessionContextKey struct{}
	userContextKey    struct{}
)

// CurrentUser is the authenticated principal attached to a request.
type CurrentUser struct {
	ID    int64
	Email string
	Name  string
}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithUser attaches the signed-in user.
func ContextWithUser(ctx context.Context, user CurrentUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the signed-in user, if any.
func UserFromContext(ctx context.Context) (CurrentUser, bool) {
	user, ok := ctx.Value(userContextKey{}).(CurrentUser)
	return user, ok
}
