package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Collection names, as used in errors and telemetry.
const (
	CollectionProducts   = "products"
	CollectionCategories = "categories"
	CollectionSliders    = "sliders"
	CollectionSettings   = "site_settings"
	CollectionArticles   = "articles"
	CollectionFAQs       = "faqs"
)

// ErrDataUnavailable is returned when the external data store is not
// configured or cannot be reached at all. It is never retried.
var ErrDataUnavailable = errors.New("data store unavailable")

// FetchFailedError reports that reading a single collection failed.
type FetchFailedError struct {
	Collection string
	Err        error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Collection, e.Err)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

// State is the lifecycle state of a Store.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a consistent, caller-owned copy of the store contents.
type Snapshot struct {
	State      State
	Err        error
	Products   []Product
	Categories []Category
	Sliders    []Slider
	Settings   SiteSettings

	// ProductsLoaded is true once a products fetch has succeeded at least
	// once. It separates "no data yet" from "the catalog is empty".
	ProductsLoaded bool
	LoadedAt       time.Time
}

// Options tunes fetching. Zero backoff intervals fall back to
// DefaultOptions; a zero FetchTimeout or MaxRetries is taken literally.
type Options struct {
	// FetchTimeout bounds a single collection fetch attempt. Zero disables it.
	FetchTimeout time.Duration
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries     uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	TracerProvider trace.TracerProvider
	Logger         *zap.Logger
}

// DefaultOptions returns the fetch policy used when none is configured.
func DefaultOptions() Options {
	return Options{
		FetchTimeout:   10 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Store fetches and holds the catalog. It is safe for concurrent use.
//
// Loads never clear data: a collection is replaced only by a successful
// fetch of that collection, so a failed or in-flight load leaves the
// previous values visible. Concurrent loads are not cancelled; whichever
// finishes last wins.
type Store struct {
	src    Source
	opts   Options
	tracer trace.Tracer
	lg     *zap.Logger

	mu       sync.RWMutex
	snap     Snapshot
	inflight int
}

// NewStore creates a Store reading from src. A nil src yields a store that
// settles into StateFailed with ErrDataUnavailable on Load.
func NewStore(src Source, opts Options) *Store {
	def := DefaultOptions()
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = def.InitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = def.MaxBackoff
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	lg := opts.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{
		src:    src,
		opts:   opts,
		tracer: tp.Tracer("storefront/catalog"),
		lg:     lg,
		snap: Snapshot{
			State:    StateIdle,
			Settings: DefaultSettings(),
		},
	}
}

// Load fetches all catalog collections concurrently and merges the results.
// The returned error joins one FetchFailedError per failed collection, or is
// ErrDataUnavailable when the store has no source.
func (s *Store) Load(ctx context.Context) error {
	s.begin()

	if s.src == nil {
		s.lg.Warn("Catalog source is not configured")
		s.finish(fetchResult{}, ErrDataUnavailable)
		return ErrDataUnavailable
	}

	var (
		g   errgroup.Group
		res fetchResult
	)
	g.Go(func() error {
		res.products, res.productsErr = fetch(ctx, s, CollectionProducts, s.src.Products)
		return nil
	})
	g.Go(func() error {
		res.categories, res.categoriesErr = fetch(ctx, s, CollectionCategories, s.src.Categories)
		return nil
	})
	g.Go(func() error {
		res.sliders, res.slidersErr = fetch(ctx, s, CollectionSliders, s.src.ActiveSliders)
		return nil
	})
	g.Go(func() error {
		res.settings, res.settingsErr = fetch(ctx, s, CollectionSettings, s.src.Settings)
		return nil
	})
	_ = g.Wait()

	err := errors.Join(res.productsErr, res.categoriesErr, res.slidersErr, res.settingsErr)
	s.finish(res, err)
	if err != nil {
		s.lg.Warn("Catalog load failed", zap.Error(err))
		return err
	}
	s.lg.Debug("Catalog loaded",
		zap.Int("products", len(res.products)),
		zap.Int("categories", len(res.categories)),
		zap.Int("sliders", len(res.sliders)),
	)
	return nil
}

// Refetch re-runs Load. Current data stays visible until it resolves.
func (s *Store) Refetch(ctx context.Context) error {
	return s.Load(ctx)
}

type fetchResult struct {
	products      []Product
	productsErr   error
	categories    []Category
	categoriesErr error
	sliders       []Slider
	slidersErr    error
	settings      *SiteSettings
	settingsErr   error
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	s.snap.State = StateLoading
}

func (s *Store) finish(res fetchResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src != nil {
		if res.productsErr == nil {
			s.snap.Products = sortProducts(res.products)
			s.snap.ProductsLoaded = true
		}
		if res.categoriesErr == nil {
			s.snap.Categories = sortCategories(res.categories)
		}
		if res.slidersErr == nil {
			s.snap.Sliders = activeSliders(res.sliders)
		}
		if res.settingsErr == nil {
			if res.settings != nil {
				s.snap.Settings = res.settings.Clone()
			} else {
				s.snap.Settings = DefaultSettings()
			}
		}
	}

	s.snap.Err = err
	s.snap.LoadedAt = time.Now()
	s.inflight--
	if s.inflight > 0 {
		return
	}
	if err != nil {
		s.snap.State = StateFailed
	} else {
		s.snap.State = StateReady
	}
}

// fetch runs a single collection read with a per-attempt timeout and bounded
// exponential backoff. ErrDataUnavailable stops retrying immediately.
func fetch[T any](ctx context.Context, s *Store, collection string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.fetch",
		trace.WithAttributes(attribute.String("catalog.collection", collection)),
	)
	defer span.End()

	op := func() (T, error) {
		fctx := ctx
		if s.opts.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
			defer cancel()
		}
		v, err := fn(fctx)
		if err != nil && errors.Is(err, ErrDataUnavailable) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialBackoff
	b.MaxInterval = s.opts.MaxBackoff

	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.opts.MaxRetries+1),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T
		return zero, &FetchFailedError{Collection: collection, Err: err}
	}
	return v, nil
}

func sortProducts(in []Product) []Product {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Product) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func sortCategories(in []Category) []Category {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Category) int {
		return a.OrderIndex - b.OrderIndex
	})
	return out
}

func activeSliders(in []Slider) []Slider {
	out := make([]Slider, 0, len(in))
	for _, sl := range in {
		if sl.IsActive {
			out = append(out, sl)
		}
	}
	slices.SortStableFunc(out, func(a, b Slider) int {
		return a.OrderIndex - b.OrderIndex
	})
	return out
}

// Snapshot returns a copy of the current contents and state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	snap.Products = slices.Clone(s.snap.Products)
	snap.Categories = slices.Clone(s.snap.Categories)
	snap.Sliders = slices.Clone(s.snap.Sliders)
	snap.Settings = s.snap.Settings.Clone()
	return snap
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.State
}

// PurchaseEnabled reports the site-wide purchase switch.
func (s *Store) PurchaseEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Settings.PurchaseEnabled
}

// Product returns the product with the given id.
func (s *Store) Product(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.snap.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// CategoryName returns the display name of a category, or "" if unknown.
func (s *Store) CategoryName(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.snap.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// Featured returns featured products in catalog order.
func (s *Store) Featured() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Product
	for _, p := range s.snap.Products {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

// Related returns up to n other products from the same category.
func (s *Store) Related(p Product, n int) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Product
	for _, other := range s.snap.Products {
		if len(out) >= n {
			break
		}
		if other.ID != p.ID && other.CategoryID == p.CategoryID {
			out = append(out, other)
		}
	}
	return out
}
