package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myfruitshop/myfruitshop/internal/analytics"
	analytichttp "github.com/myfruitshop/myfruitshop/internal/analytics/http"
	"github.com/myfruitshop/myfruitshop/internal/auth"
	"github.com/myfruitshop/myfruitshop/internal/observability"
	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/internal/view"
	"github.com/myfruitshop/myfruitshop/jobs"
)

type stubUsers struct{}

func (stubUsers) ActiveUser(ctx context.Context, id int64) (auth.User, error) {
	if id != 1 {
		return auth.User{}, shared.ErrNotFound
	}
	return auth.User{ID: 1, Email: "owner@example.com", Name: "Owner", IsActive: true}, nil
}

type emptyReports struct{}

func (emptyReports) Report(ctx context.Context) (analytics.Report, error) {
	return analytics.Report{GeneratedAt: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)}, nil
}

type routerRig struct {
	handler  http.Handler
	sessions *shared.SessionManager
	metrics  *observability.Metrics
}

func newRouterRig(t *testing.T, checks map[string]HealthCheck) routerRig {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := view.NewEngine()
	require.NoError(t, err)
	sessions := shared.NewSessionManager(client, "fruitshop_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	metrics := observability.NewMetrics()

	handler := NewRouter(RouterParams{
		Logger:           logger,
		Config:           &Config{AppEnv: "test", ImportMaxBytes: 1 << 20, RateLimitPerMinute: 1000},
		SessionManager:   sessions,
		CSRFManager:      csrf,
		RequireUser:      auth.RequireUser(logger, stubUsers{}),
		AnalyticsHandler: analytichttp.NewHandler(logger, emptyReports{}, engine, csrf),
		JobHandler:       jobs.NewHandler(nil, logger),
		Metrics:          metrics,
		HealthChecks:     checks,
	})
	return routerRig{handler: handler, sessions: sessions, metrics: metrics}
}

// signedInCookie stores a session for user 1 and returns its cookie.
func (rr routerRig) signedInCookie(t *testing.T) *http.Cookie {
	t.Helper()
	sess, err := rr.sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("1")
	rec := httptest.NewRecorder()
	require.NoError(t, rr.sessions.Commit(context.Background(), rec, sess))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func (rr routerRig) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	rr.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReportsChecks(t *testing.T) {
	rig := newRouterRig(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return nil },
	})

	rec := rig.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"postgres": "up", "redis": "up"}, body.Checks)
}

func TestHealthzDegraded(t *testing.T) {
	rig := newRouterRig(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	rec := rig.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"down"`)
}

func TestStaticAssetsAreCached(t *testing.T) {
	rig := newRouterRig(t, nil)

	rec := rig.do(httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestAnonymousVisitorIsSentToLogin(t *testing.T) {
	rig := newRouterRig(t, nil)

	rec := rig.do(httptest.NewRequest(http.MethodGet, "/sales/aggregate", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Fsales%2Faggregate", rec.Header().Get("Location"))
}

func TestSignedInUserReachesReport(t *testing.T) {
	rig := newRouterRig(t, nil)
	cookie := rig.signedInCookie(t)

	req := httptest.NewRequest(http.MethodGet, "/sales/aggregate", nil)
	req.AddCookie(cookie)
	rec := rig.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sales report")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	req = httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusOK, rig.do(req).Code)
}

func TestUnsafeRequestWithoutTokenIsForbidden(t *testing.T) {
	rig := newRouterRig(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/sales/new", strings.NewReader("product_name=apple"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(rig.signedInCookie(t))
	assert.Equal(t, http.StatusForbidden, rig.do(req).Code)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	rig := newRouterRig(t, nil)
	rig.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := rig.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
}
