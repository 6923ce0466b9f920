package products

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/internal/view"
)

// Handler serves the product pages.
type Handler struct {
	logger  *slog.Logger
	service *Service
	page    view.Page
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		page:    view.Page{Logger: logger, Templates: templates, CSRF: csrf},
	}
}

// MountRoutes registers product routes; mount under /products.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}/edit", h.update)
	r.Get("/{id}/delete", h.delete)
	r.Post("/{id}/delete", h.delete)
}

type listData struct {
	Products []Product
}

type formData struct {
	ID     int64
	Action string
	Form   Input
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListActive(r.Context())
	if err != nil {
		h.page.ServerError(w, r, "list products", err)
		return
	}
	h.page.Render(w, r, http.StatusOK, "pages/products_list.html", "Products", nil, listData{Products: items})
}

// Home renders the top page with the active catalogue.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListActive(r.Context())
	if err != nil {
		h.page.ServerError(w, r, "list products", err)
		return
	}
	h.page.Render(w, r, http.StatusOK, "pages/home.html", "", nil, listData{Products: items})
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	h.page.Render(w, r, http.StatusOK, "pages/product_form.html", "Add product", nil, formData{Action: "/products/new"})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	res, err := h.service.Add(r.Context(), in)
	if err != nil {
		h.renderFormError(w, r, "Add product", formData{Action: "/products/new", Form: in}, err)
		return
	}
	msg := fmt.Sprintf("Added %s.", res.Product.Name)
	if res.Reactivated {
		msg = fmt.Sprintf("Restored %s with the new price.", res.Product.Name)
	}
	h.logger.Info("product saved",
		slog.Int64("product_id", res.Product.ID),
		slog.Bool("reactivated", res.Reactivated))
	h.page.RedirectWithFlash(w, r, "/products", "success", msg)
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "load product", err)
		return
	}
	h.page.Render(w, r, http.StatusOK, "pages/product_form.html", "Edit product", nil, formData{
		ID:     p.ID,
		Action: editPath(p.ID),
		Form:   Input{Name: p.Name, Price: p.Price.StringFixed(2)},
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	in, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	p, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.renderFormError(w, r, "Edit product", formData{ID: id, Action: editPath(id), Form: in}, err)
		return
	}
	h.page.RedirectWithFlash(w, r, "/products", "success", fmt.Sprintf("Updated %s.", p.Name))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}
	h.logger.Info("product deleted", slog.Int64("product_id", id))
	h.page.RedirectWithFlash(w, r, "/products", "success", "Product deleted.")
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		Name:  r.PostFormValue("name"),
		Price: r.PostFormValue("price"),
	}, true
}

func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, title string, data formData, err error) {
	var fieldErrs shared.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		h.page.Render(w, r, http.StatusBadRequest, "pages/product_form.html", title, fieldErrs, data)
	case errors.Is(err, shared.ErrNotFound):
		h.page.NotFound(w, r)
	default:
		h.logger.Error("save product", slog.Any("error", err))
		h.page.Render(w, r, http.StatusInternalServerError, "pages/product_form.html", title,
			shared.FieldErrors{"general": shared.UserSafeMessage(err)}, data)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		h.page.NotFound(w, r)
		return
	}
	h.page.ServerError(w, r, msg, err)
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.page.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func editPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10) + "/edit"
}
