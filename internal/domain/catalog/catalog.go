// Package catalog holds the storefront catalog: products, categories,
// sliders, site settings and the content records served next to them.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         int64
	OriginalPrice *int64
	Image         string
	CategoryID    string
	Rating        decimal.Decimal
	Reviews       int
	InStock       bool
	Featured      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var hundred = decimal.NewFromInt(100)

// HasDiscount reports whether the product carries an original price above
// its current price.
func (p Product) HasDiscount() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// DiscountPercent returns the discount relative to the original price,
// rounded to the nearest whole percent. Zero when there is no discount.
func (p Product) DiscountPercent() int {
	if !p.HasDiscount() {
		return 0
	}
	orig := decimal.NewFromInt(*p.OriginalPrice)
	pct := orig.Sub(decimal.NewFromInt(p.Price)).Div(orig).Mul(hundred).Round(0)
	return int(pct.IntPart())
}

// Category groups products. Slug is unique across categories.
type Category struct {
	ID         string
	Name       string
	Slug       string
	OrderIndex int
	CreatedAt  time.Time
}

// Slider is a promotional banner shown on the home page.
type Slider struct {
	ID         string
	Title      string
	Subtitle   *string
	Image      string
	Link       *string
	ButtonText *string
	IsActive   bool
	OrderIndex int
	CreatedAt  time.Time
}

// Article is a long-form content page.
type Article struct {
	ID        string
	Title     string
	Slug      *string
	Excerpt   *string
	Content   string
	CreatedAt time.Time
}

// FAQ is a single question and answer pair.
type FAQ struct {
	ID         string
	Question   string
	Answer     string
	OrderIndex int
	IsActive   bool
}

// Source is the read side of the external data store used by the Store.
//
// Implementations return products newest first, categories and active
// sliders by order index. Settings returns (nil, nil) when no settings row
// exists.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
	Categories(ctx context.Context) ([]Category, error)
	ActiveSliders(ctx context.Context) ([]Slider, error)
	Settings(ctx context.Context) (*SiteSettings, error)
}

// ContentSource provides the content collections that are not part of the
// catalog snapshot.
type ContentSource interface {
	Articles(ctx context.Context) ([]Article, error)
	ArticleBySlug(ctx context.Context, slug string) (*Article, error)
	FAQs(ctx context.Context) ([]FAQ, error)
}
