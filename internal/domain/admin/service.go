package admin

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/catalog"
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {}, ".svg": {}, ".avif": {},
}

// Service validates and applies catalog writes.
type Service struct {
	repo    Repository
	catalog Refetcher
	uploads Uploader
	lg      *zap.Logger
	now     func() time.Time
}

// NewService creates an admin Service. uploads may be nil when uploads are
// not configured.
func NewService(repo Repository, catalog Refetcher, uploads Uploader, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		uploads: uploads,
		lg:      lg,
		now:     time.Now,
	}
}

// write validates v, applies op and refetches the catalog on success.
func write[T any](ctx context.Context, s *Service, what string, v *T, validate func(*T) error, op func(context.Context, *T) error) error {
	if err := validate(v); err != nil {
		return err
	}
	if err := op(ctx, v); err != nil {
		return errors.Wrapf(err, "write %s", what)
	}
	s.refetch(ctx)
	return nil
}

func (s *Service) remove(ctx context.Context, what, id string, op func(context.Context, string) error) error {
	if id == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	if err := op(ctx, id); err != nil {
		return errors.Wrapf(err, "delete %s", what)
	}
	s.refetch(ctx)
	return nil
}

// refetch reloads the catalog. The write already succeeded, so a failed
// reload is only logged; the store keeps serving its previous data.
func (s *Service) refetch(ctx context.Context) {
	if err := s.catalog.Refetch(ctx); err != nil {
		s.lg.Warn("Refetch catalog after write", zap.Error(err))
	}
}

func newID() string { return uuid.New().String() }

// CreateProduct inserts p, assigning an id and timestamps.
func (s *Service) CreateProduct(ctx context.Context, p *catalog.Product) error {
	now := s.now().UTC()
	if p.ID == "" {
		p.ID = newID()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return write(ctx, s, "product", p, ValidateProduct, s.repo.CreateProduct)
}

// UpdateProduct replaces the product with p.ID.
func (s *Service) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	p.UpdatedAt = s.now().UTC()
	return write(ctx, s, "product", p, ValidateProduct, s.repo.UpdateProduct)
}

// DeleteProduct removes the product with id.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.remove(ctx, "product", id, s.repo.DeleteProduct)
}

// CreateCategory inserts c.
func (s *Service) CreateCategory(ctx context.Context, c *catalog.Category) error {
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = s.now().UTC()
	return write(ctx, s, "category", c, ValidateCategory, s.repo.CreateCategory)
}

// UpdateCategory replaces the category with c.ID.
func (s *Service) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	return write(ctx, s, "category", c, ValidateCategory, s.repo.UpdateCategory)
}

// DeleteCategory removes the category with id.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.remove(ctx, "category", id, s.repo.DeleteCategory)
}

// Sliders lists every slider, including inactive ones.
func (s *Service) Sliders(ctx context.Context) ([]catalog.Slider, error) {
	sliders, err := s.repo.Sliders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list sliders")
	}
	return sliders, nil
}

// CreateSlider inserts sl.
func (s *Service) CreateSlider(ctx context.Context, sl *catalog.Slider) error {
	if sl.ID == "" {
		sl.ID = newID()
	}
	sl.CreatedAt = s.now().UTC()
	return write(ctx, s, "slider", sl, ValidateSlider, s.repo.CreateSlider)
}

// UpdateSlider replaces the slider with sl.ID.
func (s *Service) UpdateSlider(ctx context.Context, sl *catalog.Slider) error {
	return write(ctx, s, "slider", sl, ValidateSlider, s.repo.UpdateSlider)
}

// DeleteSlider removes the slider with id.
func (s *Service) DeleteSlider(ctx context.Context, id string) error {
	return s.remove(ctx, "slider", id, s.repo.DeleteSlider)
}

// CreateArticle inserts a.
func (s *Service) CreateArticle(ctx context.Context, a *catalog.Article) error {
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = s.now().UTC()
	return write(ctx, s, "article", a, ValidateArticle, s.repo.CreateArticle)
}

// UpdateArticle replaces the article with a.ID.
func (s *Service) UpdateArticle(ctx context.Context, a *catalog.Article) error {
	return write(ctx, s, "article", a, ValidateArticle, s.repo.UpdateArticle)
}

// DeleteArticle removes the article with id.
func (s *Service) DeleteArticle(ctx context.Context, id string) error {
	return s.remove(ctx, "article", id, s.repo.DeleteArticle)
}

// FAQs lists every FAQ, including inactive ones.
func (s *Service) FAQs(ctx context.Context) ([]catalog.FAQ, error) {
	faqs, err := s.repo.AllFAQs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list faqs")
	}
	return faqs, nil
}

// CreateFAQ inserts f.
func (s *Service) CreateFAQ(ctx context.Context, f *catalog.FAQ) error {
	if f.ID == "" {
		f.ID = newID()
	}
	return write(ctx, s, "faq", f, ValidateFAQ, s.repo.CreateFAQ)
}

// UpdateFAQ replaces the FAQ with f.ID.
func (s *Service) UpdateFAQ(ctx context.Context, f *catalog.FAQ) error {
	return write(ctx, s, "faq", f, ValidateFAQ, s.repo.UpdateFAQ)
}

// DeleteFAQ removes the FAQ with id.
func (s *Service) DeleteFAQ(ctx context.Context, id string) error {
	return s.remove(ctx, "faq", id, s.repo.DeleteFAQ)
}

// UpdateSettings writes the settings singleton, creating it if needed.
func (s *Service) UpdateSettings(ctx context.Context, st *catalog.SiteSettings) error {
	if st.ID == "" || st.ID == catalog.DefaultSettingsID {
		st.ID = newID()
	}
	if st.PhoneNumbers == nil {
		st.PhoneNumbers = []string{}
	}
	st.UpdatedAt = s.now().UTC()
	return write(ctx, s, "settings", st, ValidateSettings, s.repo.UpsertSettings)
}

// Upload stores an image under a random name that keeps the extension of
// filename and returns its public URL.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if s.uploads == nil {
		return "", errors.New("uploads are not configured")
	}
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := imageExtensions[ext]; !ok {
		return "", &ValidationError{Field: "file", Reason: "unsupported image type " + ext}
	}
	u, err := s.uploads.Put(ctx, newID()+ext, r)
	if err != nil {
		return "", errors.Wrap(err, "store upload")
	}
	return u, nil
}
