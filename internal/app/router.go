package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	analytichttp "github.com/myfruitshop/myfruitshop/internal/analytics/http"
	"github.com/myfruitshop/myfruitshop/internal/auth"
	"github.com/myfruitshop/myfruitshop/internal/observability"
	"github.com/myfruitshop/myfruitshop/internal/platform/httpx"
	"github.com/myfruitshop/myfruitshop/internal/products"
	"github.com/myfruitshop/myfruitshop/internal/sales"
	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/jobs"
	"github.com/myfruitshop/myfruitshop/web"
)

// HealthCheck checks one dependency for /healthz.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	RequireUser      func(http.Handler) http.Handler
	AuthHandler      *auth.Handler
	ProductsHandler  *products.Handler
	SalesHandler     *sales.Handler
	AnalyticsHandler *analytichttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	HealthChecks     map[string]HealthCheck
}

// NewRouter constructs the chi.Router with the shop's defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", healthHandler(params.Logger, params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		if params.RequireUser != nil {
			r.Use(params.RequireUser)
		}
		if params.ProductsHandler != nil {
			r.Get("/", params.ProductsHandler.Home)
			r.Route("/products", params.ProductsHandler.MountRoutes)
		}
		r.Route("/sales", func(r chi.Router) {
			if params.AnalyticsHandler != nil {
				params.AnalyticsHandler.MountRoutes(r)
			}
			if params.SalesHandler != nil {
				params.SalesHandler.MountRoutes(r)
			}
		})
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthStatus{Status: "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}
		httpx.JSON(w, status, resp)
	}
}

// staticCacheHandler lets browsers keep static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
