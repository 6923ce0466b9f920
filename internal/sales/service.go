package sales

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Store is the persistence port used by Service.
type Store interface {
	SaleWriter
	ListActive(ctx context.Context, limit, offset int) ([]Sale, error)
	CountActive(ctx context.Context) (int, error)
	Get(ctx context.Context, id int64) (Sale, error)
	Update(ctx context.Context, id int64, v Valid, now time.Time) (Sale, error)
	SoftDelete(ctx context.Context, id int64, now time.Time) error
}

// Invalidator drops cached reports after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Config tunes listing and time handling.
type Config struct {
	PageSize int
	Location *time.Location
}

// Page is one page of the sales listing.
type Page struct {
	Sales      []Sale
	Pagination shared.Pagination
}

// Service applies validation and lifecycle rules on top of Store.
type Service struct {
	store       Store
	lookup      ProductLookup
	invalidator Invalidator
	importer    *Importer
	logger      *slog.Logger
	cfg         Config
	now         func() time.Time
}

// NewService wires a Service. invalidator and observer may be nil.
func NewService(store Store, lookup ProductLookup, invalidator Invalidator, observer RowObserver, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = shared.DefaultPerPage
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		store:       store,
		lookup:      lookup,
		invalidator: invalidator,
		importer:    NewImporter(lookup, store, cfg.Location, logger, observer),
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithClock overrides the time source used for created/updated stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.importer.now = now
	return s
}

// Location is the zone sale times are entered and shown in.
func (s *Service) Location() *time.Location {
	return s.cfg.Location
}

// List returns the requested page of active sales, newest first.
func (s *Service) List(ctx context.Context, page int) (Page, error) {
	total, err := s.store.CountActive(ctx)
	if err != nil {
		return Page{}, err
	}
	p := shared.NewPagination(page, s.cfg.PageSize, total)
	items, err := s.store.ListActive(ctx, p.PerPage, p.Offset())
	if err != nil {
		return Page{}, err
	}
	return Page{Sales: items, Pagination: p}, nil
}

// Get returns a sale of any status.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, shared.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// Add records a sale. The total is computed from the product's current price.
func (s *Service) Add(ctx context.Context, in Input) (Sale, error) {
	v, err := s.validate(ctx, in)
	if err != nil {
		return Sale{}, err
	}
	sale, err := s.store.Create(ctx, v, s.now())
	if err != nil {
		return Sale{}, err
	}
	s.invalidate(ctx)
	return sale, nil
}

// Update edits a sale, recomputing its total from the current price.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Sale, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Sale{}, err
	}
	v, err := s.validate(ctx, in)
	if err != nil {
		return Sale{}, err
	}
	sale, err := s.store.Update(ctx, id, v, s.now())
	if err != nil {
		return Sale{}, err
	}
	s.invalidate(ctx)
	return sale, nil
}

// Delete soft-deletes a sale.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	if err := s.store.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Import bulk-loads CSV rows. Rows accepted before a failure stay stored.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	res, err := s.importer.Import(ctx, r)
	if len(res.Accepted) > 0 {
		s.invalidate(ctx)
	}
	s.logger.Info("sales import finished",
		slog.Int("accepted", len(res.Accepted)),
		slog.Int("skipped", res.Skipped),
		slog.Bool("failed", err != nil))
	return res, err
}

func (s *Service) validate(ctx context.Context, in Input) (Valid, error) {
	v, errs, err := ValidateSaleInput(ctx, s.lookup, in, s.cfg.Location)
	if err != nil {
		return Valid{}, fmt.Errorf("sales: validate: %w", err)
	}
	if errs.Any() {
		return Valid{}, errs
	}
	return v, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}
