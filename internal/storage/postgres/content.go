package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	articleColumns = `id, title, slug, excerpt, content, created_at`

	listArticlesSQL = `SELECT ` + articleColumns + ` FROM articles ORDER BY created_at DESC, id`

	getArticleBySlugSQL = `SELECT ` + articleColumns + ` FROM articles WHERE slug = $1`

	insertArticleSQL = `INSERT INTO articles (` + articleColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	updateArticleSQL = `UPDATE articles SET title = $2, slug = $3, excerpt = $4, content = $5 WHERE id = $1`

	deleteArticleSQL = `DELETE FROM articles WHERE id = $1`

	faqColumns = `id, question, answer, order_index, is_active`

	listActiveFAQsSQL = `SELECT ` + faqColumns + ` FROM faqs WHERE is_active ORDER BY order_index, id`

	listFAQsSQL = `SELECT ` + faqColumns + ` FROM faqs ORDER BY order_index, id`

	insertFAQSQL = `INSERT INTO faqs (` + faqColumns + `) VALUES ($1, $2, $3, $4, $5)`

	updateFAQSQL = `UPDATE faqs SET question = $2, answer = $3, order_index = $4, is_active = $5 WHERE id = $1`

	deleteFAQSQL = `DELETE FROM faqs WHERE id = $1`
)

// Articles returns all articles, newest first.
func (s *Store) Articles(ctx context.Context) ([]catalog.Article, error) {
	rows, err := s.pool.Query(ctx, listArticlesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return pgx.CollectRows(rows, scanArticle)
}

// ArticleBySlug returns the article with slug or catalog.ErrNotFound.
func (s *Store) ArticleBySlug(ctx context.Context, slug string) (*catalog.Article, error) {
	rows, err := s.pool.Query(ctx, getArticleBySlugSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("getting article %q: %w", slug, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanArticle)
	if err != nil {
		if isNoRows(err) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting article %q: %w", slug, err)
	}
	return &a, nil
}

// CreateArticle inserts a.
func (s *Store) CreateArticle(ctx context.Context, a *catalog.Article) error {
	_, err := s.pool.Exec(ctx, insertArticleSQL, a.ID, a.Title, a.Slug, a.Excerpt, a.Content, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating article %q: %w", a.ID, mapError(err))
	}
	return nil
}

// UpdateArticle replaces the article with a.ID.
func (s *Store) UpdateArticle(ctx context.Context, a *catalog.Article) error {
	return s.exec(ctx, "updating article", a.ID, updateArticleSQL, a.ID, a.Title, a.Slug, a.Excerpt, a.Content)
}

// DeleteArticle removes the article with id.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting article", id, deleteArticleSQL, id)
}

func scanArticle(row pgx.CollectableRow) (catalog.Article, error) {
	var a catalog.Article
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Content, &a.CreatedAt)
	return a, err
}

// FAQs returns the active FAQs by display order.
func (s *Store) FAQs(ctx context.Context) ([]catalog.FAQ, error) {
	return s.listFAQs(ctx, listActiveFAQsSQL)
}

// AllFAQs returns every FAQ by display order.
func (s *Store) AllFAQs(ctx context.Context) ([]catalog.FAQ, error) {
	return s.listFAQs(ctx, listFAQsSQL)
}

func (s *Store) listFAQs(ctx context.Context, sql string) ([]catalog.FAQ, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing faqs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.FAQ, error) {
		var f catalog.FAQ
		err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.OrderIndex, &f.IsActive)
		return f, err
	})
}

// CreateFAQ inserts f.
func (s *Store) CreateFAQ(ctx context.Context, f *catalog.FAQ) error {
	_, err := s.pool.Exec(ctx, insertFAQSQL, f.ID, f.Question, f.Answer, f.OrderIndex, f.IsActive)
	if err != nil {
		return fmt.Errorf("creating faq %q: %w", f.ID, mapError(err))
	}
	return nil
}

// UpdateFAQ replaces the FAQ with f.ID.
func (s *Store) UpdateFAQ(ctx context.Context, f *catalog.FAQ) error {
	return s.exec(ctx, "updating faq", f.ID, updateFAQSQL, f.ID, f.Question, f.Answer, f.OrderIndex, f.IsActive)
}

// DeleteFAQ removes the FAQ with id.
func (s *Store) DeleteFAQ(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting faq", id, deleteFAQSQL, id)
}
