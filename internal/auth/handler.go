package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/internal/view"
)

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/auth/login"

// Authenticator checks credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (User, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger   *slog.Logger
	service  Authenticator
	sessions *shared.SessionManager
	page     view.Page
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service Authenticator, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		page:     view.Page{Logger: logger, Templates: templates, CSRF: csrf},
	}
}

// MountRoutes registers auth routes; mount under /auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginPageData struct {
	Email string
	Next  string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.page.Render(w, r, http.StatusOK, "pages/login.html", "Sign in", nil,
		loginPageData{Next: safeNext(r.URL.Query().Get("next"))})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := LoginInput{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	data := loginPageData{Email: in.Email, Next: safeNext(r.PostFormValue("next"))}

	if errs := shared.ValidateStruct(in); errs.Any() {
		h.page.Render(w, r, http.StatusBadRequest, "pages/login.html", "Sign in", errs, data)
		return
	}

	user, err := h.service.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		h.page.Render(w, r, http.StatusBadRequest, "pages/login.html", "Sign in",
			shared.FieldErrors{"general": shared.UserSafeMessage(err)}, data)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.page.ServerError(w, r, "login", shared.ErrSessionMissing)
		return
	}
	h.sessions.Renew(sess)
	sess.Delete(shared.CSRFSessionKey)
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	h.logger.Info("user signed in", slog.Int64("user_id", user.ID))

	dest := data.Next
	if dest == "" {
		dest = "/"
	}
	h.page.RedirectWithFlash(w, r, dest, "success", "Welcome back, "+displayName(user)+".")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	if strings.HasPrefix(u.Path, "/auth/") {
		return ""
	}
	return next
}

func displayName(u User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
