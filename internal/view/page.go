package view

import (
	"log/slog"
	"net/http"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Page bundles what every HTML handler needs to render a template or
// redirect with a flash message.
type Page struct {
	Logger    *slog.Logger
	Templates *Engine
	CSRF      *shared.CSRFManager
}

// Render fills the common TemplateData fields from the request and renders name.
func (p Page) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, errs shared.FieldErrors, data any) {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	if p.CSRF != nil && sess != nil {
		token, err := p.CSRF.EnsureToken(sess)
		if err != nil {
			p.Logger.Error("ensure csrf token", slog.Any("error", err))
		}
		csrfToken = token
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	var user *shared.CurrentUser
	if u, ok := shared.UserFromContext(r.Context()); ok {
		user = &u
	}
	if errs == nil {
		errs = shared.FieldErrors{}
	}
	td := TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		User:        user,
		Errors:      errs,
		Data:        data,
	}
	if err := p.Templates.RenderStatus(w, status, name, td); err != nil {
		p.Logger.Error("render template", slog.Any("error", err), slog.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// RedirectWithFlash queues a flash message and answers 303 See Other.
func (p Page) RedirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// NotFound renders the shared 404 page.
func (p Page) NotFound(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, http.StatusNotFound, "pages/not_found.html", "Not found", nil, nil)
}

// ServerError logs err and renders a generic 500.
func (p Page) ServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	p.Logger.Error(msg, slog.Any("error", err), slog.String("path", r.URL.Path))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
