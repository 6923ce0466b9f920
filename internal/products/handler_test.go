package products

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/internal/view"
	testkit "github.com/myfruitshop/myfruitshop/testing"
)

func newHandlerRig(t *testing.T) (http.Handler, *testkit.Rig, *memStore) {
	t.Helper()
	svc, store, _, _ := newTestService()
	engine, err := view.NewEngine()
	require.NoError(t, err)

	rig := testkit.NewRig(t).SignIn(shared.CurrentUser{ID: 1, Email: "owner@example.com", Name: "Owner"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, engine, rig.CSRF)

	r := chi.NewRouter()
	r.Get("/", h.Home)
	r.Route("/products", h.MountRoutes)
	return r, rig, store
}

func TestHandlerCreateRedirectsWithFlash(t *testing.T) {
	router, rig, store := newHandlerRig(t)

	rr := rig.PostForm(router, "/products/new", url.Values{"name": {"Apple"}, "price": {"10"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/products", rr.Header().Get("Location"))
	assert.Equal(t, "Added Apple.", rig.Flash())
	assert.Len(t, store.products, 1)

	rr = rig.Get(router, "/products")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Apple")
}

func TestHandlerCreateRerendersOnInvalidPrice(t *testing.T) {
	router, rig, store := newHandlerRig(t)

	rr := rig.PostForm(router, "/products/new", url.Values{"name": {"Apple"}, "price": {"-1"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, MsgPriceNotPositive)
	assert.Contains(t, body, `value="Apple"`)
	assert.Empty(t, store.products)
}

func TestHandlerCreateReactivatesDeleted(t *testing.T) {
	router, rig, store := newHandlerRig(t)
	store.products[7] = Product{ID: 7, Name: "Plum", Price: decimal.NewFromInt(3), Status: shared.StatusDeleted}
	store.nextID = 7

	rr := rig.PostForm(router, "/products/new", url.Values{"name": {"Plum"}, "price": {"5"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "Restored Plum with the new price.", rig.Flash())
	assert.Equal(t, shared.StatusActive, store.products[7].Status)
}

func TestHandlerEditAndDelete(t *testing.T) {
	router, rig, store := newHandlerRig(t)
	res, err := newServiceFor(store).Add(context.Background(), Input{Name: "Fig", Price: "4"})
	require.NoError(t, err)
	id := res.Product.ID

	rr := rig.Get(router, editPath(id))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="4.00"`)

	rr = rig.PostForm(router, editPath(id), url.Values{"name": {"Fig"}, "price": {"4.5"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.True(t, store.products[id].Price.Equal(decimal.RequireFromString("4.5")))

	rr = rig.Get(router, "/products/"+itoa(id)+"/delete")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, shared.StatusDeleted, store.products[id].Status)

	rr = rig.Get(router, "/products")
	assert.NotContains(t, rr.Body.String(), "<td>Fig</td>")
}

func TestHandlerMissingProductIs404(t *testing.T) {
	router, rig, _ := newHandlerRig(t)

	for _, target := range []string{"/products/99/edit", "/products/99/delete", "/products/abc/edit"} {
		rr := rig.Get(router, target)
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
	}
	rr := rig.PostForm(router, "/products/99/edit", url.Values{"name": {"X"}, "price": {"1"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHomeListsActiveProducts(t *testing.T) {
	router, rig, store := newHandlerRig(t)
	store.products[1] = Product{ID: 1, Name: "Mango", Price: decimal.NewFromInt(2), Status: shared.StatusActive}
	store.products[2] = Product{ID: 2, Name: "Durian", Price: decimal.NewFromInt(9), Status: shared.StatusDeleted}

	rr := rig.Get(router, "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Mango")
	assert.NotContains(t, rr.Body.String(), "Durian")
}

func newServiceFor(store *memStore) *Service {
	return NewService(store, nil, nil)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
