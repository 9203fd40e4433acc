// Package admin implements catalog management: validated writes to the data
// store followed by a catalog refetch, and image uploads.
package admin

import (
	"context"
	"fmt"
	"io"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/catalog"
)

var (
	// ErrDuplicate is returned when a write violates a uniqueness constraint,
	// such as a category slug that is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse is returned when deleting a record other records refer to.
	ErrInUse = errors.New("record is in use")
)

// ValidationError indicates that a record was rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Repository is the write side of the data store. Update methods replace the
// whole record and return catalog.ErrNotFound for unknown ids.
type Repository interface {
	CreateProduct(ctx context.Context, p *catalog.Product) error
	UpdateProduct(ctx context.Context, p *catalog.Product) error
	DeleteProduct(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, c *catalog.Category) error
	UpdateCategory(ctx context.Context, c *catalog.Category) error
	DeleteCategory(ctx context.Context, id string) error

	// Sliders lists every slider, including inactive ones.
	Sliders(ctx context.Context) ([]catalog.Slider, error)
	CreateSlider(ctx context.Context, s *catalog.Slider) error
	UpdateSlider(ctx context.Context, s *catalog.Slider) error
	DeleteSlider(ctx context.Context, id string) error

	CreateArticle(ctx context.Context, a *catalog.Article) error
	UpdateArticle(ctx context.Context, a *catalog.Article) error
	DeleteArticle(ctx context.Context, id string) error

	// AllFAQs lists every FAQ, including inactive ones.
	AllFAQs(ctx context.Context) ([]catalog.FAQ, error)
	CreateFAQ(ctx context.Context, f *catalog.FAQ) error
	UpdateFAQ(ctx context.Context, f *catalog.FAQ) error
	DeleteFAQ(ctx context.Context, id string) error

	UpsertSettings(ctx context.Context, s *catalog.SiteSettings) error
}

// Refetcher reloads the catalog after a write.
type Refetcher interface {
	Refetch(ctx context.Context) error
}

// Uploader stores a public file under name and returns its URL.
type Uploader interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// Stats summarizes the product catalog for the admin dashboard.
type Stats struct {
	Products   int `json:"products"`
	InStock    int `json:"inStock"`
	Featured   int `json:"featured"`
	Discounted int `json:"discounted"`
}

// ComputeStats counts products by state.
func ComputeStats(products []catalog.Product) Stats {
	s := Stats{Products: len(products)}
	for _, p := range products {
		if p.InStock {
			s.InStock++
		}
		if p.Featured {
			s.Featured++
		}
		if p.HasDiscount() {
			s.Discounted++
		}
	}
	return s
}
