package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Store is the persistence port used by Service.
type Store interface {
	ListActive(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	FindByName(ctx context.Context, name string) (Product, error)
	Insert(ctx context.Context, v Valid, now time.Time) (Product, error)
	Reactivate(ctx context.Context, id int64, price decimal.Decimal, now time.Time) (Product, error)
	Update(ctx context.Context, id int64, v Valid, now time.Time) (Product, error)
	SoftDelete(ctx context.Context, id int64, now time.Time) error
}

// Invalidator drops cached reports after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service applies validation and lifecycle rules on top of Store.
type Service struct {
	store       Store
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires a Service. invalidator may be nil.
func NewService(store Store, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, invalidator: invalidator, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListActive returns the active catalogue, newest first.
func (s *Service) ListActive(ctx context.Context) ([]Product, error) {
	return s.store.ListActive(ctx)
}

// Get returns a product of any status.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// Add creates a product. When a product with the same name already exists,
// in any status, it is reactivated with the submitted price instead.
// Validation failures come back as shared.FieldErrors.
func (s *Service) Add(ctx context.Context, in Input) (CreateResult, error) {
	v, errs := ValidateProductInput(in)
	if errs.Any() {
		return CreateResult{}, errs
	}
	now := s.now()

	res, err := s.addOrReactivate(ctx, v, now)
	if errors.Is(err, ErrDuplicateName) {
		// Lost a race with a concurrent insert of the same name.
		res, err = s.addOrReactivate(ctx, v, now)
	}
	if err != nil {
		return CreateResult{}, fmt.Errorf("products: add %q: %w", v.Name, err)
	}
	s.invalidate(ctx)
	return res, nil
}

func (s *Service) addOrReactivate(ctx context.Context, v Valid, now time.Time) (CreateResult, error) {
	existing, err := s.store.FindByName(ctx, v.Name)
	switch {
	case err == nil:
		p, err := s.store.Reactivate(ctx, existing.ID, v.Price, now)
		if err != nil {
			return CreateResult{}, err
		}
		return CreateResult{Product: p, Reactivated: !existing.Status.Active()}, nil
	case errors.Is(err, shared.ErrNotFound):
		p, err := s.store.Insert(ctx, v, now)
		if err != nil {
			return CreateResult{}, err
		}
		return CreateResult{Product: p}, nil
	default:
		return CreateResult{}, err
	}
}

// Update edits name and price.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Product{}, err
	}
	v, errs := ValidateProductInput(in)
	if errs.Any() {
		return Product{}, errs
	}
	p, err := s.store.Update(ctx, id, v, s.now())
	if errors.Is(err, ErrDuplicateName) {
		return Product{}, shared.FieldErrors{"name": "a product with this name already exists"}
	}
	if err != nil {
		return Product{}, fmt.Errorf("products: update %d: %w", id, err)
	}
	s.invalidate(ctx)
	return p, nil
}

// Delete soft-deletes the product. Its sales stay in place for history.
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

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}
