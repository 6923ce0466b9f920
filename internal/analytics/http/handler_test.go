package analytichttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myfruitshop/myfruitshop/internal/analytics"
	"github.com/myfruitshop/myfruitshop/internal/analytics/export"
	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/internal/view"
	testkit "github.com/myfruitshop/myfruitshop/testing"
)

type stubReports struct {
	report analytics.Report
	err    error
	calls  int
}

func (s *stubReports) Report(ctx context.Context) (analytics.Report, error) {
	s.calls++
	return s.report, s.err
}

func sampleReport() analytics.Report {
	bucket := func(key analytics.BucketKey, name string, qty int, amount int64) analytics.Bucket {
		return analytics.Bucket{
			Key:     key,
			Period:  key.Label(),
			Total:   decimal.NewFromInt(amount),
			Details: []analytics.Detail{{ProductName: name, Quantity: qty, Amount: decimal.NewFromInt(amount)}},
		}
	}
	return analytics.Report{
		GeneratedAt: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
		GrandTotal:  decimal.NewFromInt(1250),
		Monthly: []analytics.Bucket{
			bucket(analytics.BucketKey{Year: 2024, Month: time.May}, "apple", 5, 500),
			bucket(analytics.BucketKey{Year: 2024, Month: time.April}, "banana", 2, 300),
		},
		Daily: []analytics.Bucket{
			bucket(analytics.BucketKey{Year: 2024, Month: time.May, Day: 15}, "apple", 2, 200),
		},
	}
}

func newReportRig(t *testing.T, svc ReportService) (http.Handler, *testkit.Rig) {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)

	rig := testkit.NewRig(t).SignIn(shared.CurrentUser{ID: 1, Email: "owner@example.com", Name: "Owner"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, engine, rig.CSRF)

	r := chi.NewRouter()
	r.Route("/sales", h.MountRoutes)
	return r, rig
}

func TestReportPageShowsBuckets(t *testing.T) {
	router, rig := newReportRig(t, &stubReports{report: sampleReport()})

	rr := rig.Get(router, "/sales/aggregate")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "1,250.00")
	assert.Contains(t, body, "2024-05-15")
	assert.Contains(t, body, "banana: 300.00 (2)")
	assert.Less(t, strings.Index(body, "2024-05</td>"), strings.Index(body, "2024-04</td>"))
}

func TestReportPageWithoutSales(t *testing.T) {
	router, rig := newReportRig(t, &stubReports{report: analytics.Report{GrandTotal: decimal.Zero}})

	rr := rig.Get(router, "/sales/aggregate")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No sales in this period.")
}

func TestReportCSVDownload(t *testing.T) {
	router, rig := newReportRig(t, &stubReports{report: sampleReport()})

	rr := rig.Get(router, "/sales/aggregate.csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "sales-report-20240515-1200.csv")

	rows, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, []string{"monthly", "2024-05", "apple", "5", "500.00"}, rows[1])
	assert.Equal(t, []string{"daily", "2024-05-15", "apple", "2", "200.00"}, rows[3])
	assert.Equal(t, []string{"total", "", "", "", "1250.00"}, rows[4])
}

func TestReportJSON(t *testing.T) {
	router, rig := newReportRig(t, &stubReports{report: sampleReport()})

	rr := rig.Get(router, "/sales/aggregate.json")
	require.Equal(t, http.StatusOK, rr.Code)

	var got analytics.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.GrandTotal.Equal(decimal.NewFromInt(1250)))
	require.Len(t, got.Monthly, 2)
	assert.Equal(t, "2024-05", got.Monthly[0].Period)
}

func TestReportErrors(t *testing.T) {
	router, rig := newReportRig(t, &stubReports{err: errors.New("db down")})

	assert.Equal(t, http.StatusInternalServerError, rig.Get(router, "/sales/aggregate").Code)
	assert.Equal(t, http.StatusInternalServerError, rig.Get(router, "/sales/aggregate.csv").Code)

	rr := rig.Get(router, "/sales/aggregate.json")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}

func TestExportsAreRateLimited(t *testing.T) {
	svc := &stubReports{report: sampleReport()}
	router, rig := newReportRig(t, svc)

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, rig.Get(router, "/sales/aggregate.json").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, rig.Get(router, "/sales/aggregate.json").Code)
	assert.Equal(t, http.StatusOK, rig.Get(router, "/sales/aggregate").Code)
}
