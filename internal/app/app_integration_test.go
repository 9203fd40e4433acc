//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/storefront/internal/domain/auth"
)

const (
	adminPassword = "integration-password"
	adminPepper   = "integration-pepper"
)

var databaseURL string

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}
	databaseURL = fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())

	return m.Run()
}

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

type server struct {
	t      *testing.T
	base   string
	client *http.Client
}

// startServer runs the application until the test ends and waits for it to
// report ready.
func startServer(t *testing.T) *server {
	t.Helper()
	addr := freeAddr(t)
	cfg := &Config{
		Addr:        addr,
		DatabaseURL: databaseURL,
		Migrate:     true,
		CartStore:   CartStoreConfig{Backend: CartStoreMemory, IdleTimeout: time.Minute, SaveTimeout: time.Second},
		Catalog:     CatalogConfig{FetchTimeout: 5 * time.Second, MaxRetries: 1, InitialBackoff: 50 * time.Millisecond, MaxBackoff: 100 * time.Millisecond},
		Admin:       AdminConfig{PasswordDigest: auth.Digest([]byte(adminPepper), adminPassword), Pepper: adminPepper},
		Uploads:     UploadsConfig{Dir: t.TempDir(), BaseURL: "/uploads", MaxSize: 1 << 20},
		RateLimit:   RateLimitConfig{Max: 1000, Window: time.Minute},
		CORS:        CORSConfig{Origins: []string{"*"}, AllowCredentials: true},
		Graceful:    GracefulConfig{ShutdownTimeout: 5 * time.Second},
		Health:      HealthConfig{Interval: 100 * time.Millisecond},
	}
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, zaptest.NewLogger(t), noopTelemetry{}, cfg) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not shut down")
		}
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	s := &server{t: t, base: "http://" + addr, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}

	require.Eventually(t, func() bool {
		resp, err := s.client.Get(s.base + "/readyz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 30*time.Second, 100*time.Millisecond)
	return s
}

func (s *server) do(method, path string, body any, header http.Header) (*http.Response, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.base+path, &buf)
	require.NoError(s.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func (s *server) admin(method, path string, body any) (*http.Response, map[string]any) {
	return s.do(method, path, body, http.Header{"X-Admin-Password": {adminPassword}})
}

func TestProbes(t *testing.T) {
	s := startServer(t)

	resp, body := s.do(http.MethodGet, "/livez", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = s.do(http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestMiddlewareStack(t *testing.T) {
	s := startServer(t)

	resp, _ := s.do(http.MethodGet, "/api/catalog", nil, http.Header{
		"X-Request-Id": {"custom-request-id-12345"},
		"Origin":       {"http://example.com"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "http://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "1000", resp.Header.Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))

	resp, _ = s.do(http.MethodOptions, "/api/cart/items", nil, http.Header{
		"Origin":                        {"http://example.com"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestStorefrontFlow(t *testing.T) {
	s := startServer(t)

	resp, _ := s.do(http.MethodPost, "/api/admin/login", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = s.admin(http.MethodPost, "/api/admin/login", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, category := s.admin(http.MethodPost, "/api/admin/categories", map[string]any{
		"name": "لوازم خانگی", "slug": "home-" + fmt.Sprint(time.Now().UnixNano()),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, category)
	categoryID := category["id"].(string)

	resp, product := s.admin(http.MethodPost, "/api/admin/products", map[string]any{
		"name": "کتری برقی", "price": 1200, "originalPrice": 1500,
		"image": "/uploads/kettle.jpg", "categoryId": categoryID, "inStock": true, "rating": 4.5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, product)
	productID := product["id"].(string)
	assert.EqualValues(t, 20, product["discountPercent"])

	// Purchasing is disabled until the settings enable it.
	resp, body := s.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": productID}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode, body)
	assert.Equal(t, true, body["notice"])

	resp, _ = s.admin(http.MethodPut, "/api/admin/settings", map[string]any{
		"siteName": "Storefront", "purchaseEnabled": true, "phoneNumbers": []string{},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/api/products?search=کتری", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total"])

	resp, body = s.do(http.MethodGet, "/api/products/"+productID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "لوازم خانگی", body["product"].(map[string]any)["categoryName"])

	resp, body = s.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": productID, "quantity": 2}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.EqualValues(t, 2, body["totalItems"])
	assert.EqualValues(t, 2400, body["totalPrice"])

	resp, body = s.do(http.MethodPost, "/api/checkout", map[string]any{
		"firstName":  "علی",
		"lastName":   "رضایی",
		"phone":      "09123456789",
		"province":   "تهران",
		"city":       "تهران",
		"address":    "خیابان ولیعصر",
		"postalCode": "1234567890",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	orderID := body["id"].(string)
	assert.EqualValues(t, 2400, body["total"])

	resp, body = s.do(http.MethodGet, "/api/cart", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["totalItems"])

	resp, body = s.admin(http.MethodGet, "/api/admin/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ids []string
	for _, o := range body["orders"].([]any) {
		ids = append(ids, o.(map[string]any)["id"].(string))
	}
	assert.Contains(t, ids, orderID)

	// A category that still holds products cannot be deleted.
	resp, _ = s.admin(http.MethodDelete, "/api/admin/categories/"+categoryID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.admin(http.MethodDelete, "/api/admin/products/"+productID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/api/products/"+productID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
