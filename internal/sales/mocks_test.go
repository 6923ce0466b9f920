package sales

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/products"
	"github.com/myfruitshop/myfruitshop/internal/shared"
)

type memLookup struct {
	products map[string]products.Product
	err      error
	calls    int
}

func newLookup(items ...products.Product) *memLookup {
	l := &memLookup{products: make(map[string]products.Product)}
	for _, p := range items {
		l.products[p.Name] = p
	}
	return l
}

func (l *memLookup) FindByName(ctx context.Context, name string) (products.Product, error) {
	l.calls++
	if l.err != nil {
		return products.Product{}, l.err
	}
	p, ok := l.products[name]
	if !ok {
		return products.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (l *memLookup) ListActive(ctx context.Context) ([]products.Product, error) {
	var out []products.Product
	for _, p := range l.products {
		if p.Status.Active() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func product(id int64, name, price string) products.Product {
	return products.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Status: shared.StatusActive}
}

type memStore struct {
	mu        sync.Mutex
	nextID    int64
	sales     map[int64]Sale
	failAfter int
	failErr   error
}

func newMemStore() *memStore {
	return &memStore{sales: make(map[int64]Sale), failAfter: -1}
}

func (m *memStore) Create(ctx context.Context, v Valid, now time.Time) (Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter == 0 {
		return Sale{}, m.failErr
	}
	if m.failAfter > 0 {
		m.failAfter--
	}
	m.nextID++
	s := Sale{
		ID:          m.nextID,
		ProductID:   v.ProductID,
		ProductName: v.ProductName,
		Quantity:    v.Quantity,
		Total:       v.Total,
		SoldAt:      v.SoldAt,
		Status:      shared.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.sales[s.ID] = s
	return s, nil
}

func (m *memStore) active() []Sale {
	var out []Sale
	for _, s := range m.sales {
		if s.Status.Active() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SoldAt.Equal(out[j].SoldAt) {
			return out[i].SoldAt.After(out[j].SoldAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memStore) ListActive(ctx context.Context, limit, offset int) ([]Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.active()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memStore) CountActive(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active()), nil
}

func (m *memStore) Get(ctx context.Context, id int64) (Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memStore) Update(ctx context.Context, id int64, v Valid, now time.Time) (Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	s.ProductID, s.ProductName, s.Quantity, s.Total, s.SoldAt, s.UpdatedAt = v.ProductID, v.ProductName, v.Quantity, v.Total, v.SoldAt, now
	m.sales[id] = s
	return s, nil
}

func (m *memStore) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return shared.ErrNotFound
	}
	if s.Status.Active() {
		s.UpdatedAt = now
	}
	s.Status = shared.StatusDeleted
	m.sales[id] = s
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

type rowCounter map[string]int

func (c rowCounter) ObserveImportRow(result string) { c[result]++ }

var fixedNow = time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)

func newTestService(lookup *memLookup) (*Service, *memStore, *countingInvalidator, rowCounter) {
	store := newMemStore()
	inv := &countingInvalidator{}
	rows := rowCounter{}
	svc := NewService(store, lookup, inv, rows, nil, Config{PageSize: 10}).
		WithClock(func() time.Time { return fixedNow })
	return svc, store, inv, rows
}
