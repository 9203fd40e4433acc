package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/admin"
	"github.com/xenking/storefront/internal/domain/catalog"
)

var (
	_ catalog.Source        = (*Store)(nil)
	_ catalog.ContentSource = (*Store)(nil)
	_ admin.Repository      = (*Store)(nil)
)

const (
	productColumns = `id, name, description, price, original_price, image, category_id,
		rating, reviews, in_stock, featured, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`

	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateProductSQL = `UPDATE products SET name = $2, description = $3, price = $4,
		original_price = $5, image = $6, category_id = $7, rating = $8, reviews = $9,
		in_stock = $10, featured = $11, updated_at = $12
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	listCategoriesSQL = `SELECT id, name, slug, order_index, created_at
		FROM categories ORDER BY order_index, created_at, id`

	insertCategorySQL = `INSERT INTO categories (id, name, slug, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	updateCategorySQL = `UPDATE categories SET name = $2, slug = $3, order_index = $4 WHERE id = $1`

	deleteCategorySQL = `DELETE FROM categories WHERE id = $1`

	sliderColumns = `id, title, subtitle, image, link, button_text, is_active, order_index, created_at`

	listActiveSlidersSQL = `SELECT ` + sliderColumns + ` FROM sliders
		WHERE is_active ORDER BY order_index, created_at, id`

	listSlidersSQL = `SELECT ` + sliderColumns + ` FROM sliders ORDER BY order_index, created_at, id`

	insertSliderSQL = `INSERT INTO sliders (` + sliderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateSliderSQL = `UPDATE sliders SET title = $2, subtitle = $3, image = $4, link = $5,
		button_text = $6, is_active = $7, order_index = $8
		WHERE id = $1`

	deleteSliderSQL = `DELETE FROM sliders WHERE id = $1`
)

// Products returns all products, newest first.
func (s *Store) Products(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// CreateProduct inserts p.
func (s *Store) CreateProduct(ctx context.Context, p *catalog.Product) error {
	_, err := s.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Image, p.CategoryID,
		p.Rating, p.Reviews, p.InStock, p.Featured, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, mapError(err))
	}
	return nil
}

// UpdateProduct replaces every mutable column of the product with p.ID.
func (s *Store) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	return s.exec(ctx, "updating product", p.ID, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Image, p.CategoryID,
		p.Rating, p.Reviews, p.InStock, p.Featured, p.UpdatedAt,
	)
}

// DeleteProduct removes the product with id.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting product", id, deleteProductSQL, id)
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.Image, &p.CategoryID,
		&p.Rating, &p.Reviews, &p.InStock, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// Categories returns all categories by display order.
func (s *Store) Categories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.OrderIndex, &c.CreatedAt)
		return c, err
	})
}

// CreateCategory inserts c.
func (s *Store) CreateCategory(ctx context.Context, c *catalog.Category) error {
	_, err := s.pool.Exec(ctx, insertCategorySQL, c.ID, c.Name, c.Slug, c.OrderIndex, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating category %q: %w", c.ID, mapError(err))
	}
	return nil
}

// UpdateCategory replaces the category with c.ID.
func (s *Store) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	return s.exec(ctx, "updating category", c.ID, updateCategorySQL, c.ID, c.Name, c.Slug, c.OrderIndex)
}

// DeleteCategory removes the category with id. Categories that still hold
// products cannot be deleted.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting category", id, deleteCategorySQL, id)
}

// ActiveSliders returns the active sliders by display order.
func (s *Store) ActiveSliders(ctx context.Context) ([]catalog.Slider, error) {
	return s.listSliders(ctx, listActiveSlidersSQL)
}

// Sliders returns every slider by display order.
func (s *Store) Sliders(ctx context.Context) ([]catalog.Slider, error) {
	return s.listSliders(ctx, listSlidersSQL)
}

func (s *Store) listSliders(ctx context.Context, sql string) ([]catalog.Slider, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing sliders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Slider, error) {
		var sl catalog.Slider
		err := row.Scan(
			&sl.ID, &sl.Title, &sl.Subtitle, &sl.Image, &sl.Link,
			&sl.ButtonText, &sl.IsActive, &sl.OrderIndex, &sl.CreatedAt,
		)
		return sl, err
	})
}

// CreateSlider inserts sl.
func (s *Store) CreateSlider(ctx context.Context, sl *catalog.Slider) error {
	_, err := s.pool.Exec(ctx, insertSliderSQL,
		sl.ID, sl.Title, sl.Subtitle, sl.Image, sl.Link,
		sl.ButtonText, sl.IsActive, sl.OrderIndex, sl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating slider %q: %w", sl.ID, mapError(err))
	}
	return nil
}

// UpdateSlider replaces the slider with sl.ID.
func (s *Store) UpdateSlider(ctx context.Context, sl *catalog.Slider) error {
	return s.exec(ctx, "updating slider", sl.ID, updateSliderSQL,
		sl.ID, sl.Title, sl.Subtitle, sl.Image, sl.Link,
		sl.ButtonText, sl.IsActive, sl.OrderIndex,
	)
}

// DeleteSlider removes the slider with id.
func (s *Store) DeleteSlider(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting slider", id, deleteSliderSQL, id)
}

// isNoRows reports whether err is pgx.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
