package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/myfruitshop/myfruitshop/internal/analytics"
	"github.com/myfruitshop/myfruitshop/internal/analytics/export"
	"github.com/myfruitshop/myfruitshop/internal/platform/httpx"
	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/internal/view"
)

const requestTimeout = 5 * time.Second

// ReportService defines the report contract used by the handler.
type ReportService interface {
	Report(ctx context.Context) (analytics.Report, error)
}

// Handler serves the sales report as HTML, CSV and JSON.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	page    view.Page
	csvPool sync.Pool
}

// NewHandler constructs the report HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	h := &Handler{
		logger:  logger,
		service: service,
		page:    view.Page{Logger: logger, Templates: templates, CSRF: csrf},
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

type reportData struct {
	Report analytics.Report
}

func (h *Handler) load(r *http.Request) (analytics.Report, error) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	return h.service.Report(ctx)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	report, err := h.load(r)
	if err != nil {
		h.page.ServerError(w, r, "load report", err)
		return
	}
	h.page.Render(w, r, http.StatusOK, "pages/sales_aggregate.html", "Sales report", nil, reportData{Report: report})
}

func (h *Handler) handleJSON(w http.ResponseWriter, r *http.Request) {
	report, err := h.load(r)
	if err != nil {
		h.logger.Error("load report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.load(r)
	if err != nil {
		h.page.ServerError(w, r, "load report", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteReportCSV(buf, report); err != nil {
		h.page.ServerError(w, r, "write report csv", err)
		return
	}

	filename := fmt.Sprintf("sales-report-%s.csv", report.GeneratedAt.Format("20060102-1504"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}
