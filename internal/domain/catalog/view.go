package catalog

import (
	"iter"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Shareable query parameter names.
const (
	ParamSearch   = "search"
	ParamCategory = "category"
)

// AllCategories selects every category.
const AllCategories = "all"

// Filter selects a subset of the catalog. The zero value matches everything.
type Filter struct {
	Search   string
	Category string
}

// FilterFromQuery reads a Filter from shareable query parameters.
func FilterFromQuery(q url.Values) Filter {
	f := Filter{
		Search:   q.Get(ParamSearch),
		Category: q.Get(ParamCategory),
	}
	if f.Category == "" {
		f.Category = AllCategories
	}
	return f
}

// Query writes the filter back into q, deleting parameters that hold their
// default so that empty values are never persisted.
func (f Filter) Query(q url.Values) {
	if f.Search != "" {
		q.Set(ParamSearch, f.Search)
	} else {
		q.Del(ParamSearch)
	}
	if f.Category != "" && f.Category != AllCategories {
		q.Set(ParamCategory, f.Category)
	} else {
		q.Del(ParamCategory)
	}
}

// Match reports whether p passes both the category and the search condition.
// Search is a case-sensitive substring match on NFC-normalized text, so it
// works the same for right-to-left and non-Latin scripts.
func (f Filter) Match(p Product) bool {
	if f.Category != "" && f.Category != AllCategories && p.CategoryID != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := norm.NFC.String(f.Search)
	return strings.Contains(norm.NFC.String(p.Name), needle) ||
		strings.Contains(norm.NFC.String(p.Description), needle)
}

// VisibleProducts returns a lazy sequence over the products matching f.
// The sequence may be ranged over any number of times.
func VisibleProducts(products []Product, f Filter) iter.Seq[Product] {
	return func(yield func(Product) bool) {
		for _, p := range products {
			if !f.Match(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Paginate skips offset elements of seq and yields at most limit of the
// rest. A non-positive limit yields everything after offset.
func Paginate[T any](seq iter.Seq[T], offset, limit int) iter.Seq[T] {
	return func(yield func(T) bool) {
		i, n := 0, 0
		for v := range seq {
			if i < offset {
				i++
				continue
			}
			if limit > 0 && n >= limit {
				return
			}
			n++
			if !yield(v) {
				return
			}
		}
	}
}

// ViewState tells a consumer why a view does or does not have products.
type ViewState int

const (
	// ViewLoading means no products have been fetched yet.
	ViewLoading ViewState = iota
	// ViewUnavailable means no products were ever fetched because loading failed.
	ViewUnavailable
	// ViewEmpty means the catalog loaded and holds no products.
	ViewEmpty
	// ViewNoMatch means the filter matched nothing in a non-empty catalog.
	ViewNoMatch
	// ViewResults means at least one product matched.
	ViewResults
)

func (s ViewState) String() string {
	switch s {
	case ViewLoading:
		return "loading"
	case ViewUnavailable:
		return "unavailable"
	case ViewEmpty:
		return "empty"
	case ViewNoMatch:
		return "no_match"
	case ViewResults:
		return "results"
	default:
		return "unknown"
	}
}

// View derives the visible product list from a Store and a Filter, and keeps
// the filter in sync with shareable query parameters.
type View struct {
	store  *Store
	filter Filter
	query  url.Values
}

// NewView creates a View over store initialised from the shareable query.
func NewView(store *Store, query url.Values) *View {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	f := FilterFromQuery(q)
	f.Query(q)
	return &View{store: store, filter: f, query: q}
}

// SetSearch updates the search text.
func (v *View) SetSearch(s string) {
	v.filter.Search = s
	v.filter.Query(v.query)
}

// SetCategory updates the category selector; AllCategories or "" clears it.
func (v *View) SetCategory(id string) {
	if id == "" {
		id = AllCategories
	}
	v.filter.Category = id
	v.filter.Query(v.query)
}

// Filter returns the active filter.
func (v *View) Filter() Filter { return v.filter }

// Query returns the shareable query parameters for the active filter.
func (v *View) Query() url.Values {
	out := url.Values{}
	for k, vals := range v.query {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Visible returns the matching products of the store's current snapshot.
// Each call recomputes from a fresh snapshot.
func (v *View) Visible() iter.Seq[Product] {
	return VisibleProducts(v.store.Snapshot().Products, v.filter)
}

// State classifies the current view.
func (v *View) State() ViewState {
	return Classify(v.store.Snapshot(), v.filter)
}

// Classify derives the ViewState of f over snap.
func Classify(snap Snapshot, f Filter) ViewState {
	if !snap.ProductsLoaded {
		if snap.State == StateFailed {
			return ViewUnavailable
		}
		return ViewLoading
	}
	if len(snap.Products) == 0 {
		return ViewEmpty
	}
	for range VisibleProducts(snap.Products, f) {
		return ViewResults
	}
	return ViewNoMatch
}
