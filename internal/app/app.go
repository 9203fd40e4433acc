// Package app wires the storefront API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/admin"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/filestore"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and background
// workers, and handles graceful shutdown. It is the single wiring point for
// the application. m is usually the *app.Telemetry of go-faster/sdk.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	db, closeDB, err := openDataStore(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	carts, closeCarts, err := openCartStore(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer closeCarts()

	// A nil *postgres.Store must not leak into the interfaces below as a
	// typed nil.
	var (
		source  catalog.Source
		content catalog.ContentSource
		orders  order.Repository
		reader  order.Reader
		repo    admin.Repository
	)
	if db.store != nil {
		source, content, orders, reader, repo = db.store, db.store, db.store, db.store, db.store
	}

	catalogStore := catalog.NewStore(source, catalog.Options{
		FetchTimeout:   cfg.Catalog.FetchTimeout,
		MaxRetries:     cfg.Catalog.MaxRetries,
		InitialBackoff: cfg.Catalog.InitialBackoff,
		MaxBackoff:     cfg.Catalog.MaxBackoff,
		TracerProvider: m.TracerProvider(),
		Logger:         lg.Named("catalog"),
	})

	metrics, err := handler.NewMetrics(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}
	sessions := cart.NewSessions(carts.store, catalogStore, cart.SessionsConfig{
		IdleTimeout:    cfg.CartStore.IdleTimeout,
		SaveTimeout:    cfg.CartStore.SaveTimeout,
		Logger:         lg.Named("cart"),
		OnPersistError: metrics.PersistFailed,
	})
	checkout := order.NewService(catalogStore, orders, order.Config{
		Delay:  cfg.Checkout.Delay,
		Logger: lg.Named("checkout"),
	})

	gate, err := auth.NewPasswordGate([]byte(cfg.Admin.Pepper), cfg.Admin.PasswordDigest)
	if err != nil {
		return errors.Wrap(err, "admin gate")
	}
	uploads, err := filestore.NewUploads(cfg.Uploads.Dir, cfg.Uploads.BaseURL, cfg.Uploads.MaxSize)
	if err != nil {
		return errors.Wrap(err, "uploads")
	}
	var adminSvc *admin.Service
	if repo != nil {
		adminSvc = admin.NewService(repo, catalogStore, uploads, lg.Named("admin"))
	}
	if !gate.Enabled() {
		lg.Warn("Admin password is not configured, admin API is disabled")
	}

	h := handler.New(handlerConfig(cfg), handler.Deps{
		Catalog:  catalogStore,
		Content:  content,
		Sessions: sessions,
		Checkout: checkout,
		Admin:    adminSvc,
		Orders:   reader,
		Gate:     gate,
		Metrics:  metrics,
	})

	// Health checks.
	healthSvc := health.New(cfg.Health.Interval, lg.Named("health"))
	healthSvc.Register(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))
	healthSvc.Register(health.Readiness, "catalog", health.StateCheck(func() (string, bool) {
		s := catalogStore.State()
		return s.String(), s != catalog.StateIdle
	}))
	if db.pool != nil {
		healthSvc.Register(health.Readiness, "postgres", health.PingCheck(db.pool), health.WithTimeout(5*time.Second))
	}
	if carts.pinger != nil {
		healthSvc.Register(health.Readiness, "redis", health.PingCheck(carts.pinger), health.WithTimeout(2*time.Second))
	}

	// Mux: health endpoints, uploaded files and API routes on one server.
	mux := http.NewServeMux()
	mux.Handle("GET /livez", healthSvc.Handler(health.Liveness))
	mux.Handle("GET /readyz", healthSvc.Handler(health.Readiness))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir()))))
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:     cfg.RateLimit.Max,
		Window:  cfg.RateLimit.Window,
		KeyFunc: httpmiddleware.CookieOrIP(handler.SessionCookie),
		Skip: func(r *http.Request) bool {
			return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
		},
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Checkout.Delay + 15*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.AdminPasswordHeader, httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Retry-After"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(limiter),
			httpmiddleware.Instrument("storefront-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthSvc.Run(gctx) })
	g.Go(func() error { return sessions.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error {
		// A failed load leaves the catalog in its failed state; the server
		// still starts and serves it.
		_ = catalogStore.Load(gctx)
		healthSvc.SetReady(true)
		return refreshCatalog(gctx, catalogStore, cfg.Catalog.RefreshInterval)
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: wait for context cancellation, drain, then stop.
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

func handlerConfig(cfg *Config) handler.Config {
	return handler.Config{
		MaxUploadSize: cfg.Uploads.MaxSize,
		SecureCookie:  cfg.CartStore.SecureCookie,
		SessionMaxAge: cfg.CartStore.SessionMaxAge,
	}
}

// refreshCatalog reloads the catalog every interval until ctx is done. A
// zero interval disables periodic reloads.
func refreshCatalog(ctx context.Context, s *catalog.Store, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = s.Refetch(ctx)
		}
	}
}
