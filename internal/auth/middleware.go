package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// UserLoader resolves the user bound to a session.
type UserLoader interface {
	ActiveUser(ctx context.Context, id int64) (User, error)
}

// RequireUser attaches the signed-in user to the request context and sends
// anonymous visitors to the login page.
func RequireUser(logger *slog.Logger, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				redirectToLogin(w, r)
				return
			}
			id, err := strconv.ParseInt(sess.User(), 10, 64)
			if err != nil {
				sess.SetUser("")
				redirectToLogin(w, r)
				return
			}
			user, err := users.ActiveUser(r.Context(), id)
			if err != nil {
				if !errors.Is(err, shared.ErrNotFound) {
					logger.Error("load session user", slog.Int64("user_id", id), slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				sess.SetUser("")
				redirectToLogin(w, r)
				return
			}
			ctx := shared.ContextWithUser(r.Context(), shared.CurrentUser{ID: user.ID, Email: user.Email, Name: displayName(user)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath
	if r.Method == http.MethodGet && r.URL.Path != "/" {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
