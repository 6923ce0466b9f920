package analytics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

func benchRecords(n int) []SaleRecord {
	records := make([]SaleRecord, n)
	for i := range records {
		records[i] = SaleRecord{
			ProductName: fmt.Sprintf("fruit-%02d", i%20),
			Quantity:    1 + i%7,
			Amount:      decimal.NewFromInt(int64(100 + i%50)),
			SoldAt:      refNow.Add(-time.Duration(i) * 13 * time.Minute),
			Status:      shared.StatusActive,
		}
	}
	return records
}

func BenchmarkAggregateMonthly(b *testing.B) {
	records := benchRecords(10000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Aggregate(records, Monthly, refNow)
	}
}

func BenchmarkAggregateDaily(b *testing.B) {
	records := benchRecords(10000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Aggregate(records, Daily, refNow)
	}
}

func BenchmarkReportCached(b *testing.B) {
	mr := miniredis.RunT(b)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = client.Close() })

	src := &mockSource{records: benchRecords(5000), total: decimal.NewFromInt(1)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(src, NewCache(client, time.Minute), nil, logger, time.UTC).
		WithClock(func() time.Time { return refNow })
	ctx := context.Background()
	if _, err := svc.Report(ctx); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Report(ctx); err != nil {
			b.Fatal(err)
		}
	}
	if src.calls != 1 {
		b.Fatalf("expected a single build, got %d", src.calls)
	}
}
