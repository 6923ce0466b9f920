package sales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/myfruitshop/myfruitshop/internal/products"
	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/internal/view"
)

// CatalogLister feeds the product picker on the sale forms.
type CatalogLister interface {
	ListActive(ctx context.Context) ([]products.Product, error)
}

// ImportQueue hands large uploads to the background worker.
type ImportQueue interface {
	EnqueueImport(ctx context.Context, filename string, data []byte) (string, error)
}

// UploadConfig limits bulk uploads.
type UploadConfig struct {
	MaxBytes       int64
	AsyncThreshold int64
}

// Handler serves the sales pages.
type Handler struct {
	logger  *slog.Logger
	service *Service
	catalog CatalogLister
	queue   ImportQueue
	upload  UploadConfig
	page    view.Page
}

// NewHandler constructs a Handler. queue may be nil, in which case every
// upload is imported inline.
func NewHandler(logger *slog.Logger, service *Service, catalog CatalogLister, queue ImportQueue, upload UploadConfig, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if upload.MaxBytes <= 0 {
		upload.MaxBytes = 5 << 20
	}
	return &Handler{
		logger:  logger,
		service: service,
		catalog: catalog,
		queue:   queue,
		upload:  upload,
		page:    view.Page{Logger: logger, Templates: templates, CSRF: csrf},
	}
}

// MountRoutes registers sale routes; mount under /sales.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/upload", h.uploadCSV)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}/edit", h.update)
	r.Get("/{id}/delete", h.delete)
	r.Post("/{id}/delete", h.delete)
}

type listData struct {
	Page     Page
	Products []products.Product
	Form     Input
}

type formData struct {
	ID       int64
	Action   string
	Form     Input
	Products []products.Product
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), shared.ParsePage(r.URL.Query()))
	if err != nil {
		h.page.ServerError(w, r, "list sales", err)
		return
	}
	catalog, err := h.catalog.ListActive(r.Context())
	if err != nil {
		h.page.ServerError(w, r, "list products", err)
		return
	}
	h.page.Render(w, r, http.StatusOK, "pages/sales_list.html", "Sales", nil, listData{Page: page, Products: catalog})
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "Add sale", nil, formData{Action: "/sales/new"})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Add(r.Context(), in)
	if err != nil {
		h.renderFormError(w, r, "Add sale", formData{Action: "/sales/new", Form: in}, err)
		return
	}
	h.logger.Info("sale recorded", slog.Int64("sale_id", sale.ID), slog.Int64("product_id", sale.ProductID))
	h.page.RedirectWithFlash(w, r, "/sales", "success", fmt.Sprintf("Recorded %d × %s.", sale.Quantity, sale.ProductName))
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "load sale", err)
		return
	}
	h.renderForm(w, r, http.StatusOK, "Edit sale", nil, formData{
		ID:     sale.ID,
		Action: editPath(sale.ID),
		Form: Input{
			ProductName: sale.ProductName,
			Quantity:    strconv.Itoa(sale.Quantity),
			SoldAt:      sale.SoldAt.In(h.service.Location()).Format("2006-01-02T15:04"),
		},
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	in, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Update(r.Context(), id, in); err != nil {
		h.renderFormError(w, r, "Edit sale", formData{ID: id, Action: editPath(id), Form: in}, err)
		return
	}
	h.page.RedirectWithFlash(w, r, "/sales", "success", "Sale updated.")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete sale", err)
		return
	}
	h.logger.Info("sale deleted", slog.Int64("sale_id", id))
	h.page.RedirectWithFlash(w, r, "/sales", "success", "Sale deleted.")
}

func (h *Handler) uploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxBytes+(1<<20))
	file, header, err := r.FormFile("csv_file")
	if err != nil {
		h.page.RedirectWithFlash(w, r, "/sales", "error", "Choose a CSV file to upload.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.upload.MaxBytes+1))
	if err != nil {
		h.page.ServerError(w, r, "read upload", err)
		return
	}
	if int64(len(data)) > h.upload.MaxBytes {
		h.page.RedirectWithFlash(w, r, "/sales", "error",
			fmt.Sprintf("The file is larger than %d KB.", h.upload.MaxBytes>>10))
		return
	}

	if h.queue != nil && h.upload.AsyncThreshold > 0 && int64(len(data)) > h.upload.AsyncThreshold {
		taskID, err := h.queue.EnqueueImport(r.Context(), header.Filename, data)
		if err == nil {
			h.logger.Info("sales import queued", slog.String("task_id", taskID), slog.Int("bytes", len(data)))
			h.page.RedirectWithFlash(w, r, "/sales", "info", "Upload received; the sales will appear once the import finishes.")
			return
		}
		h.logger.Warn("enqueue import failed, importing inline", slog.Any("error", err))
	}

	res, err := h.service.Import(r.Context(), bytes.NewReader(data))
	if err != nil {
		h.logger.Error("sales import", slog.Any("error", err), slog.Int("accepted", len(res.Accepted)))
		h.page.RedirectWithFlash(w, r, "/sales", "error",
			fmt.Sprintf("Import stopped after %d sales. %s", len(res.Accepted), shared.UserSafeMessage(err)))
		return
	}
	h.page.RedirectWithFlash(w, r, "/sales", "success",
		fmt.Sprintf("Imported %d sales, skipped %d rows.", len(res.Accepted), res.Skipped))
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		ProductName: r.PostFormValue("product_name"),
		Quantity:    r.PostFormValue("quantity"),
		SoldAt:      r.PostFormValue("sale_timestamp"),
		Total:       r.PostFormValue("total_amount"),
	}, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, title string, errs shared.FieldErrors, data formData) {
	catalog, err := h.catalog.ListActive(r.Context())
	if err != nil {
		h.page.ServerError(w, r, "list products", err)
		return
	}
	data.Products = catalog
	h.page.Render(w, r, status, "pages/sale_form.html", title, errs, data)
}

func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, title string, data formData, err error) {
	var fieldErrs shared.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		h.renderForm(w, r, http.StatusBadRequest, title, fieldErrs, data)
	case errors.Is(err, shared.ErrNotFound):
		h.page.NotFound(w, r)
	default:
		h.logger.Error("save sale", slog.Any("error", err))
		h.renderForm(w, r, http.StatusInternalServerError, title,
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

func (h *Handler) saleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.page.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func editPath(id int64) string {
	return "/sales/" + strconv.FormatInt(id, 10) + "/edit"
}
