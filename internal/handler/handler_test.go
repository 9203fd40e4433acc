package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/admin"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
)

var (
	pepper        = []byte("test-pepper")
	adminPassword = "correct horse battery staple"
	base          = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

// source is an in-memory catalog data store shared by the catalog, content
// and admin fakes.
type source struct {
	mu         sync.Mutex
	products   []catalog.Product
	categories []catalog.Category
	settings   *catalog.SiteSettings
	articles   []catalog.Article
	faqs       []catalog.FAQ
	faqsErr    error
}

func (s *source) Products(context.Context) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Product(nil), s.products...), nil
}

func (s *source) Categories(context.Context) ([]catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Category(nil), s.categories...), nil
}

func (s *source) ActiveSliders(context.Context) ([]catalog.Slider, error) { return nil, nil }

func (s *source) Settings(context.Context) (*catalog.SiteSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *source) Articles(context.Context) ([]catalog.Article, error) { return s.articles, nil }

func (s *source) ArticleBySlug(_ context.Context, slug string) (*catalog.Article, error) {
	for _, a := range s.articles {
		if a.Slug != nil && *a.Slug == slug {
			return &a, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s *source) FAQs(context.Context) ([]catalog.FAQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faqs, s.faqsErr
}

// adminRepo implements the admin writes used by the tests on top of source.
// Other methods are left to the embedded nil interface.
type adminRepo struct {
	admin.Repository
	src *source
}

func (r *adminRepo) CreateProduct(_ context.Context, p *catalog.Product) error {
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	r.src.products = append(r.src.products, *p)
	return nil
}

func (r *adminRepo) CreateCategory(_ context.Context, c *catalog.Category) error {
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	for _, existing := range r.src.categories {
		if existing.Slug == c.Slug {
			return errors.Wrap(admin.ErrDuplicate, "categories_slug_key")
		}
	}
	r.src.categories = append(r.src.categories, *c)
	return nil
}

func (r *adminRepo) DeleteCategory(_ context.Context, id string) error {
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	for _, p := range r.src.products {
		if p.CategoryID == id {
			return admin.ErrInUse
		}
	}
	return catalog.ErrNotFound
}

func (r *adminRepo) UpsertSettings(_ context.Context, st *catalog.SiteSettings) error {
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	c := st.Clone()
	r.src.settings = &c
	return nil
}

type uploads struct{}

func (uploads) Put(_ context.Context, name string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

type env struct {
	t        *testing.T
	src      *source
	store    *catalog.Store
	sessions *cart.Sessions
	srv      *httptest.Server
	client   *http.Client
}

type envOption func(*Deps, *Config)

func withoutAdmin() envOption {
	return func(d *Deps, _ *Config) { d.Admin = nil }
}

func withCartStore(store cart.Store) envOption {
	return func(d *Deps, _ *Config) {
		d.Sessions = cart.NewSessions(store, d.Catalog, cart.SessionsConfig{})
	}
}

// flakyCartStore fails reads while loadErr is set.
type flakyCartStore struct {
	*cart.MemoryStore

	mu      sync.Mutex
	loadErr error
}

func (s *flakyCartStore) setLoadErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

func (s *flakyCartStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	s.mu.Lock()
	err := s.loadErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.Load(ctx, sessionID)
}

func newEnv(t *testing.T, purchaseEnabled bool, opts ...envOption) *env {
	t.Helper()

	strPtr := func(s string) *string { return &s }
	price := func(v int64) *int64 { return &v }
	src := &source{
		categories: []catalog.Category{
			{ID: "c2", Name: "لوازم جانبی", Slug: "accessories", OrderIndex: 2},
			{ID: "c1", Name: "موبایل", Slug: "mobile", OrderIndex: 1},
		},
		products: []catalog.Product{
			{ID: "p1", Name: "گوشی سامسونگ", Description: "Galaxy", Price: 250000, OriginalPrice: price(300000), CategoryID: "c1", Rating: decimal.RequireFromString("4.5"), InStock: true, Featured: true, CreatedAt: base.Add(3 * time.Hour)},
			{ID: "p2", Name: "گوشی شیائومی", Description: "Redmi", Price: 180000, CategoryID: "c1", InStock: true, CreatedAt: base.Add(2 * time.Hour)},
			{ID: "p3", Name: "قاب سامسونگ", Description: "Case", Price: 90000, CategoryID: "c2", InStock: true, CreatedAt: base.Add(time.Hour)},
			{ID: "p4", Name: "گوشی اپل", Description: "iPhone", Price: 900000, CategoryID: "c1", CreatedAt: base},
		},
		settings: &catalog.SiteSettings{ID: "s1", SiteName: "Shop", PhoneNumbers: []string{}, PurchaseEnabled: purchaseEnabled},
		articles: []catalog.Article{{ID: "a1", Title: "Guide", Slug: strPtr("guide"), Content: "..."}},
	}

	store := catalog.NewStore(src, catalog.Options{})
	require.NoError(t, store.Load(context.Background()))

	gate, err := auth.NewPasswordGate(pepper, auth.Digest(pepper, adminPassword))
	require.NoError(t, err)

	deps := Deps{
		Catalog:  store,
		Content:  src,
		Sessions: cart.NewSessions(cart.NewMemoryStore(), store, cart.SessionsConfig{}),
		Checkout: order.NewService(store, nil, order.Config{}),
		Admin:    admin.NewService(&adminRepo{src: src}, store, uploads{}, nil),
		Gate:     gate,
	}
	cfg := Config{MaxUploadSize: 1 << 10}
	for _, o := range opts {
		o(&deps, &cfg)
	}

	mux := http.NewServeMux()
	New(cfg, deps).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &env{t: t, src: src, store: store, sessions: deps.Sessions, srv: srv, client: &http.Client{Jar: jar}}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func (e *env) request(method, path string, body any, header http.Header) (*http.Response, []byte) {
	e.t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(e.t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, data
}

func (e *env) do(method, path string, body any) (int, []byte) {
	e.t.Helper()
	resp, data := e.request(method, path, body, nil)
	return resp.StatusCode, data
}

func (e *env) admin(method, path string, body any) (int, []byte) {
	e.t.Helper()
	resp, data := e.request(method, path, body, http.Header{AdminPasswordHeader: {adminPassword}})
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestGetCatalog(t *testing.T) {
	e := newEnv(t, true)

	code, data := e.do(http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, code)

	resp := decode[catalogResponse](t, data)
	assert.Equal(t, "ready", resp.State)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, "c1", resp.Categories[0].ID, "ordered by order index")
	assert.Equal(t, 4, resp.ProductCount)
	assert.True(t, resp.PurchaseEnabled)
	assert.Equal(t, "Shop", resp.Settings.SiteName)
	assert.NotNil(t, resp.LoadedAt)
}

func TestRefreshCatalog(t *testing.T) {
	e := newEnv(t, true)
	e.src.mu.Lock()
	e.src.products = e.src.products[:1]
	e.src.mu.Unlock()

	code, data := e.do(http.MethodPost, "/api/catalog/refresh", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[catalogResponse](t, data).ProductCount)
}

func TestCatalogUnconfigured(t *testing.T) {
	store := catalog.NewStore(nil, catalog.Options{})
	require.ErrorIs(t, store.Load(context.Background()), catalog.ErrDataUnavailable)

	mux := http.NewServeMux()
	New(Config{}, Deps{Catalog: store}).Register(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	resp := decode[catalogResponse](t, w.Body.Bytes())
	assert.Equal(t, "failed", resp.State)
	assert.Equal(t, catalog.ErrDataUnavailable.Error(), resp.Error)
	assert.False(t, resp.PurchaseEnabled)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, "unavailable", decode[productsResponse](t, w.Body.Bytes()).State)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/p1", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/faqs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func productIDs(products []productJSON) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestListProducts(t *testing.T) {
	e := newEnv(t, true)

	for _, tt := range []struct {
		name  string
		query string
		state string
		ids   []string
		total int
		share string
	}{
		{name: "all", query: "", state: "results", ids: []string{"p1", "p2", "p3", "p4"}, total: 4},
		{name: "category", query: "?category=c1", state: "results", ids: []string{"p1", "p2", "p4"}, total: 3, share: "category=c1"},
		{name: "all category is dropped", query: "?category=all&search=", state: "results", ids: []string{"p1", "p2", "p3", "p4"}, total: 4},
		{name: "search and category", query: "?search=%D8%B3%D8%A7%D9%85%D8%B3%D9%88%D9%86%DA%AF&category=c1", state: "results", ids: []string{"p1"}, total: 1, share: "category=c1&search=%D8%B3%D8%A7%D9%85%D8%B3%D9%88%D9%86%DA%AF"},
		{name: "description search", query: "?search=Case", state: "results", ids: []string{"p3"}, total: 1, share: "search=Case"},
		{name: "case sensitive", query: "?search=case", state: "no_match", ids: []string{}, total: 0, share: "search=case"},
		{name: "paginated", query: "?offset=1&limit=2", state: "results", ids: []string{"p2", "p3"}, total: 4},
		{name: "offset past end", query: "?offset=10", state: "results", ids: []string{}, total: 4},
	} {
		t.Run(tt.name, func(t *testing.T) {
			code, data := e.do(http.MethodGet, "/api/products"+tt.query, nil)
			require.Equal(t, http.StatusOK, code)

			resp := decode[productsResponse](t, data)
			assert.Equal(t, tt.state, resp.State)
			assert.Equal(t, tt.ids, productIDs(resp.Products))
			assert.Equal(t, tt.total, resp.Total)
			assert.Equal(t, tt.share, resp.Query)
		})
	}

	t.Run("bad paging", func(t *testing.T) {
		for _, q := range []string{"?offset=-1", "?limit=x"} {
			code, data := e.do(http.MethodGet, "/api/products"+q, nil)
			assert.Equal(t, http.StatusBadRequest, code, q)
			assert.Equal(t, 400, decode[errorResponse](t, data).Code)
		}
	})

	t.Run("product fields", func(t *testing.T) {
		_, data := e.do(http.MethodGet, "/api/products?limit=1", nil)
		p := decode[productsResponse](t, data).Products[0]
		assert.Equal(t, "موبایل", p.CategoryName)
		assert.Equal(t, 4.5, p.Rating)
		assert.Equal(t, 17, p.DiscountPercent)
	})
}

func TestEmptyCatalog(t *testing.T) {
	e := newEnv(t, true)
	e.src.mu.Lock()
	e.src.products = nil
	e.src.mu.Unlock()
	require.NoError(t, e.store.Refetch(context.Background()))

	_, data := e.do(http.MethodGet, "/api/products?search=x", nil)
	assert.Equal(t, "empty", decode[productsResponse](t, data).State)
}

func TestProductDetail(t *testing.T) {
	e := newEnv(t, true)

	code, data := e.do(http.MethodGet, "/api/products/p2", nil)
	require.Equal(t, http.StatusOK, code)
	resp := decode[productResponse](t, data)
	assert.Equal(t, "p2", resp.Product.ID)
	assert.Equal(t, []string{"p1", "p4"}, productIDs(resp.Related))

	code, data = e.do(http.MethodGet, "/api/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 404, decode[errorResponse](t, data).Code)

	code, data = e.do(http.MethodGet, "/api/products/featured", nil)
	require.Equal(t, http.StatusOK, code)
	featured := decode[map[string][]productJSON](t, data)["products"]
	assert.Equal(t, []string{"p1"}, productIDs(featured))
}

func TestContent(t *testing.T) {
	e := newEnv(t, true)

	code, data := e.do(http.MethodGet, "/api/articles", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[map[string][]articleJSON](t, data)["articles"], 1)

	code, _ = e.do(http.MethodGet, "/api/articles/guide", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = e.do(http.MethodGet, "/api/articles/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, data = e.do(http.MethodGet, "/api/faqs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"faqs":[]}`, string(data), "empty is not a failure")

	e.src.mu.Lock()
	e.src.faqsErr = errors.New("connection reset")
	e.src.mu.Unlock()
	code, data = e.do(http.MethodGet, "/api/faqs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotContains(t, string(data), "connection reset")
}

func TestCartFlow(t *testing.T) {
	e := newEnv(t, true)

	resp, data := e.request(http.MethodGet, "/api/cart", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.JSONEq(t, `{"items":[],"totalItems":0,"totalPrice":0,"purchaseEnabled":true}`, string(data))

	code, _ := e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1"})
	require.Equal(t, http.StatusOK, code)
	resp, data = e.request(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1", "quantity": 2}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Cookies(), "session is reused")

	c := decode[cartResponse](t, data)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "موبایل", c.Items[0].Category)
	assert.Equal(t, 3, c.TotalItems)
	assert.Equal(t, int64(750000), c.TotalPrice)

	_, data = e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p3"})
	c = decode[cartResponse](t, data)
	assert.Equal(t, 4, c.TotalItems)
	assert.Equal(t, int64(840000), c.TotalPrice)

	_, data = e.do(http.MethodPut, "/api/cart/items/p1", map[string]any{"quantity": 1})
	c = decode[cartResponse](t, data)
	assert.Equal(t, 2, c.TotalItems)
	assert.Equal(t, int64(340000), c.TotalPrice)

	_, data = e.do(http.MethodPut, "/api/cart/items/p1", map[string]any{"quantity": 0})
	c = decode[cartResponse](t, data)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p3", c.Items[0].ProductID)

	code, _ = e.do(http.MethodDelete, "/api/cart/items/missing", nil)
	assert.Equal(t, http.StatusOK, code, "removing an absent product is a no-op")

	_, data = e.do(http.MethodDelete, "/api/cart/items/p3", nil)
	assert.Empty(t, decode[cartResponse](t, data).Items)

	e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p2"})
	_, data = e.do(http.MethodDelete, "/api/cart", nil)
	assert.JSONEq(t, `{"items":[],"totalItems":0,"totalPrice":0,"purchaseEnabled":true}`, string(data))
}

func TestCartSessionsAreIsolated(t *testing.T) {
	e := newEnv(t, true)
	e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1"})

	other := &http.Client{}
	resp, err := other.Get(e.srv.URL + "/api/cart")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var c cartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	assert.Empty(t, c.Items)
}

func TestCartErrors(t *testing.T) {
	e := newEnv(t, true)

	for _, tt := range []struct {
		name   string
		method string
		path   string
		body   any
		code   int
		field  string
	}{
		{name: "unknown product", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"productId": "nope"}, code: http.StatusNotFound},
		{name: "missing product id", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{}, code: http.StatusUnprocessableEntity, field: "productId"},
		{name: "zero quantity", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"productId": "p1", "quantity": 0}, code: http.StatusUnprocessableEntity, field: "quantity"},
		{name: "quantity above cap", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"productId": "p1", "quantity": cart.MaxQuantity + 1}, code: http.StatusUnprocessableEntity, field: "quantity"},
		{name: "max int quantity", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"productId": "p1", "quantity": math.MaxInt}, code: http.StatusUnprocessableEntity, field: "quantity"},
		{name: "update above cap", method: http.MethodPut, path: "/api/cart/items/p1", body: map[string]any{"quantity": cart.MaxQuantity + 1}, code: http.StatusUnprocessableEntity, field: "quantity"},
		{name: "oversized body", method: http.MethodPost, path: "/api/cart/items", body: `{"productId":"` + strings.Repeat("x", maxJSONBody) + `"}`, code: http.StatusRequestEntityTooLarge},
		{name: "malformed body", method: http.MethodPost, path: "/api/cart/items", body: "{", code: http.StatusBadRequest},
		{name: "empty body", method: http.MethodPost, path: "/api/cart/items", body: nil, code: http.StatusBadRequest},
		{name: "update without quantity", method: http.MethodPut, path: "/api/cart/items/p1", body: map[string]any{}, code: http.StatusBadRequest},
	} {
		t.Run(tt.name, func(t *testing.T) {
			code, data := e.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code)
			resp := decode[errorResponse](t, data)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestCartQuantityCap(t *testing.T) {
	e := newEnv(t, true)

	code, _ := e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1", "quantity": cart.MaxQuantity})
	require.Equal(t, http.StatusOK, code)

	code, data := e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1", "quantity": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "quantity", decode[errorResponse](t, data).Field)

	_, data = e.do(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, cart.MaxQuantity, decode[cartResponse](t, data).TotalItems)
}

func TestCartStoreReadFailure(t *testing.T) {
	store := &flakyCartStore{MemoryStore: cart.NewMemoryStore()}
	e := newEnv(t, true, withCartStore(store))

	_, data := e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1", "quantity": 3})
	require.Equal(t, 3, decode[cartResponse](t, data).TotalItems)

	// Drop the in-memory engine so the next request reads the store.
	for _, c := range e.client.Jar.Cookies(mustParseURL(t, e.srv.URL)) {
		if c.Name == SessionCookie {
			e.sessions.Close(c.Value)
		}
	}

	store.setLoadErr(errors.New("connection reset"))
	code, data := e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotContains(t, string(data), "connection reset")
	code, _ = e.do(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	store.setLoadErr(nil)
	code, data = e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, decode[cartResponse](t, data).TotalItems, "stored cart survives the failed read")
}

func TestPurchaseDisabled(t *testing.T) {
	e := newEnv(t, false)

	for _, tt := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1"}},
		{http.MethodPost, "/api/cart/items", map[string]any{"productId": "unknown"}},
		{http.MethodPut, "/api/cart/items/p1", map[string]any{"quantity": 3}},
		{http.MethodDelete, "/api/cart/items/p1", nil},
		{http.MethodDelete, "/api/cart", nil},
	} {
		code, data := e.do(tt.method, tt.path, tt.body)
		assert.Equal(t, http.StatusConflict, code, tt.path)
		assert.JSONEq(t, `{"code":409,"message":"purchase disabled","notice":true}`, string(data))
	}

	_, data := e.do(http.MethodGet, "/api/cart", nil)
	c := decode[cartResponse](t, data)
	assert.Empty(t, c.Items)
	assert.False(t, c.PurchaseEnabled)
}

func validDelivery() map[string]any {
	return map[string]any{
		"firstName":  "علی",
		"lastName":   "رضایی",
		"phone":      "۰۹۱۲ ۳۴۵ ۶۷۸۹",
		"province":   "تهران",
		"city":       "تهران",
		"address":    "خیابان ولیعصر",
		"postalCode": "1234567890",
	}
}

func TestCheckout(t *testing.T) {
	e := newEnv(t, true)

	code, data := e.do(http.MethodPost, "/api/checkout", validDelivery())
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "cart is empty", decode[errorResponse](t, data).Message)

	e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1", "quantity": 2})
	e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p3"})

	bad := validDelivery()
	bad["postalCode"] = "123"
	code, data = e.do(http.MethodPost, "/api/checkout", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "postalCode", decode[errorResponse](t, data).Field)

	code, data = e.do(http.MethodPost, "/api/checkout", validDelivery())
	require.Equal(t, http.StatusCreated, code, string(data))
	o := decode[orderJSON](t, data)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, 3, o.TotalItems)
	assert.Equal(t, int64(590000), o.Total)
	assert.Equal(t, "09123456789", o.Delivery.Phone)

	_, data = e.do(http.MethodGet, "/api/cart", nil)
	assert.Empty(t, decode[cartResponse](t, data).Items, "ordered lines are removed after checkout")
}

func TestAdminAuth(t *testing.T) {
	e := newEnv(t, true)

	code, _ := e.do(http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	resp, _ := e.request(http.MethodGet, "/api/admin/stats", nil, http.Header{AdminPasswordHeader: {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	code, _ = e.admin(http.MethodPost, "/api/admin/login", nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, data := e.admin(http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, admin.Stats{Products: 4, InStock: 3, Featured: 1, Discounted: 1}, decode[admin.Stats](t, data))

	t.Run("unconfigured", func(t *testing.T) {
		e := newEnv(t, true, withoutAdmin())
		code, _ := e.admin(http.MethodGet, "/api/admin/stats", nil)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}

func TestAdminWrites(t *testing.T) {
	e := newEnv(t, true)

	code, data := e.admin(http.MethodPost, "/api/admin/products", map[string]any{
		"name":       "هدفون",
		"price":      120000,
		"categoryId": "c2",
		"rating":     4.26,
		"inStock":    true,
	})
	require.Equal(t, http.StatusCreated, code, string(data))
	created := decode[productJSON](t, data)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 4.3, created.Rating)
	assert.Equal(t, "لوازم جانبی", created.CategoryName)

	// The catalog is refetched after the write.
	code, _ = e.do(http.MethodGet, "/api/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, code)

	code, data = e.admin(http.MethodPost, "/api/admin/products", map[string]any{"name": "x", "categoryId": "c1", "price": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "price", decode[errorResponse](t, data).Field)

	code, _ = e.admin(http.MethodPost, "/api/admin/categories", map[string]any{"name": "Mobile 2", "slug": "mobile"})
	assert.Equal(t, http.StatusConflict, code)

	code, data = e.admin(http.MethodPost, "/api/admin/categories", map[string]any{"name": "Bad", "slug": "Not A Slug"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "slug", decode[errorResponse](t, data).Field)

	code, _ = e.admin(http.MethodDelete, "/api/admin/categories/c1", nil)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = e.admin(http.MethodDelete, "/api/admin/categories/unknown", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminSettingsTogglesPurchase(t *testing.T) {
	e := newEnv(t, false)

	code, _ := e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1"})
	require.Equal(t, http.StatusConflict, code)

	code, data := e.admin(http.MethodPut, "/api/admin/settings", map[string]any{
		"id":              "s1",
		"siteName":        "Shop",
		"phoneNumbers":    []string{"021-1234"},
		"purchaseEnabled": true,
	})
	require.Equal(t, http.StatusOK, code, string(data))
	assert.True(t, decode[settingsJSON](t, data).PurchaseEnabled)

	code, _ = e.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1"})
	assert.Equal(t, http.StatusOK, code)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAdminUpload(t *testing.T) {
	e := newEnv(t, true)

	upload := func(field, filename string, content []byte) (int, []byte) {
		body, contentType := multipartBody(t, field, filename, content)
		resp, data := e.request(http.MethodPost, "/api/admin/uploads", body.String(), http.Header{
			AdminPasswordHeader: {adminPassword},
			"Content-Type":      {contentType},
		})
		return resp.StatusCode, data
	}

	code, data := upload("file", "photo.PNG", []byte("png"))
	require.Equal(t, http.StatusCreated, code, string(data))
	url := decode[map[string]string](t, data)["url"]
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	code, data = upload("file", "script.exe", []byte("MZ"))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "file", decode[errorResponse](t, data).Field)

	code, _ = upload("other", "photo.png", []byte("png"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = upload("file", "big.png", bytes.Repeat([]byte{1}, 4<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}

func TestMapError(t *testing.T) {
	for _, tt := range []struct {
		err  error
		code int
	}{
		{errors.Wrap(cart.ErrPurchaseDisabled, "add"), http.StatusConflict},
		{&order.ValidationError{Field: "phone", Reason: "required"}, http.StatusUnprocessableEntity},
		{errors.Wrap(&admin.ValidationError{Field: "name", Reason: "required"}, "write"), http.StatusUnprocessableEntity},
		{errors.Wrap(catalog.ErrNotFound, "get"), http.StatusNotFound},
		{errors.Wrap(admin.ErrDuplicate, "write category"), http.StatusConflict},
		{admin.ErrInUse, http.StatusConflict},
		{auth.ErrUnauthorized, http.StatusUnauthorized},
		{catalog.ErrDataUnavailable, http.StatusServiceUnavailable},
		{badRequest("bad %s", "input"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		resp := mapError(tt.err)
		assert.Equal(t, tt.code, resp.Code, tt.err.Error())
		assert.Equal(t, tt.code == http.StatusConflict && errors.Is(tt.err, cart.ErrPurchaseDisabled), resp.Notice)
	}
}
