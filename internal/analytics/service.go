package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Clock supplies the reference time of a report.
type Clock func() time.Time

// Source provides the sales the report is built from.
type Source interface {
	SalesBetween(ctx context.Context, from, to time.Time) ([]SaleRecord, error)
	GrandTotal(ctx context.Context) (decimal.Decimal, error)
}

// Observer records whether a report was served from cache or rebuilt.
type Observer interface {
	ObserveReport(source string)
}

// Report is the aggregate view of recent sales. Bucket slices are newest first.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	Monthly     []Bucket        `json:"monthly"`
	Daily       []Bucket        `json:"daily"`
}

// Service builds reports through the cache.
type Service struct {
	source   Source
	cache    *Cache
	observer Observer
	logger   *slog.Logger
	loc      *time.Location
	now      Clock
	group    singleflight.Group
}

// NewService wires a Source with a Cache helper.
func NewService(source Source, cache *Cache, observer Observer, logger *slog.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		source:   source,
		cache:    cache,
		observer: observer,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(clock Clock) *Service {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Location is the zone bucket keys are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Report returns the report for the current minute.
func (s *Service) Report(ctx context.Context) (Report, error) {
	ref := s.now().In(s.loc).Truncate(time.Minute)

	key, err := s.cache.BuildKey(ctx, "aggregate", ref.UTC().Format("200601021504"))
	if err != nil {
		s.logger.Warn("report cache key", slog.Any("error", err))
		return s.buildShared(ctx, ref, ref.String())
	}

	built := false
	var report Report
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		built = true
		return s.buildShared(ctx, ref, key)
	})
	if err != nil {
		return Report{}, err
	}
	if s.observer != nil {
		if built {
			s.observer.ObserveReport("build")
		} else {
			s.observer.ObserveReport("cache")
		}
	}
	return report, nil
}

// buildShared collapses concurrent builds for the same key into one.
func (s *Service) buildShared(ctx context.Context, ref time.Time, key string) (Report, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		return s.Build(context.WithoutCancel(ctx), ref)
	})
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

// Build computes the report at ref without consulting the cache.
func (s *Service) Build(ctx context.Context, ref time.Time) (Report, error) {
	ref = ref.In(s.loc)
	from := WindowStart(Monthly, ref)
	if daily := WindowStart(Daily, ref); daily.Before(from) {
		from = daily
	}

	var (
		records []SaleRecord
		total   decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.source.SalesBetween(gctx, from, ref)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.source.GrandTotal(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("analytics: build report: %w", err)
	}

	report := Report{
		GeneratedAt: ref,
		GrandTotal:  total,
		Monthly:     Descending(Aggregate(records, Monthly, ref, WithLocation(s.loc))),
		Daily:       Descending(Aggregate(records, Daily, ref, WithLocation(s.loc))),
	}
	s.logger.Debug("report built",
		slog.Time("reference", ref),
		slog.Int("records", len(records)),
		slog.Int("monthly_buckets", len(report.Monthly)),
		slog.Int("daily_buckets", len(report.Daily)),
	)
	return report, nil
}
