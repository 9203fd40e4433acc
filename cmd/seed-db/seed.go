package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xenking/storefront/internal/domain/admin"
	"github.com/xenking/storefront/internal/domain/catalog"
)

// seedFile is the on-disk seed format. JSON files parse as YAML.
type seedFile struct {
	Settings   *seedSettings  `yaml:"settings"`
	Categories []seedCategory `yaml:"categories"`
	Products   []seedProduct  `yaml:"products"`
	Sliders    []seedSlider   `yaml:"sliders"`
	Articles   []seedArticle  `yaml:"articles"`
	FAQs       []seedFAQ      `yaml:"faqs"`
}

type seedCategory struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Slug       string `yaml:"slug"`
	OrderIndex int    `yaml:"orderIndex"`
}

type seedProduct struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description"`
	Price         int64   `yaml:"price"`
	OriginalPrice *int64  `yaml:"originalPrice"`
	Image         string  `yaml:"image"`
	CategoryID    string  `yaml:"categoryId"`
	Rating        float64 `yaml:"rating"`
	Reviews       int     `yaml:"reviews"`
	InStock       *bool   `yaml:"inStock"`
	Featured      bool    `yaml:"featured"`
}

type seedSlider struct {
	ID         string  `yaml:"id"`
	Title      string  `yaml:"title"`
	Subtitle   *string `yaml:"subtitle"`
	Image      string  `yaml:"image"`
	Link       *string `yaml:"link"`
	ButtonText *string `yaml:"buttonText"`
	IsActive   *bool   `yaml:"isActive"`
	OrderIndex int     `yaml:"orderIndex"`
}

type seedArticle struct {
	ID      string  `yaml:"id"`
	Title   string  `yaml:"title"`
	Slug    *string `yaml:"slug"`
	Excerpt *string `yaml:"excerpt"`
	Content string  `yaml:"content"`
}

type seedFAQ struct {
	ID         string `yaml:"id"`
	Question   string `yaml:"question"`
	Answer     string `yaml:"answer"`
	OrderIndex int    `yaml:"orderIndex"`
	IsActive   *bool  `yaml:"isActive"`
}

type seedSettings struct {
	SiteName        string   `yaml:"siteName"`
	SiteDescription string   `yaml:"siteDescription"`
	LogoURL         *string  `yaml:"logoUrl"`
	FaviconURL      *string  `yaml:"faviconUrl"`
	PhoneNumbers    []string `yaml:"phoneNumbers"`
	Address         *string  `yaml:"address"`
	SupportHours    string   `yaml:"supportHours"`
	InstagramURL    *string  `yaml:"instagramUrl"`
	TelegramURL     *string  `yaml:"telegramUrl"`
	LinkedInURL     *string  `yaml:"linkedinUrl"`
	AboutUs         *string  `yaml:"aboutUs"`
	ContactUs       *string  `yaml:"contactUs"`
	ShippingPolicy  *string  `yaml:"shippingPolicy"`
	ReturnPolicy    *string  `yaml:"returnPolicy"`
	PrivacyPolicy   *string  `yaml:"privacyPolicy"`
	TermsConditions *string  `yaml:"termsConditions"`
	PurchaseEnabled *bool    `yaml:"purchaseEnabled"`
}

var gzipMagic = []byte{0x1f, 0x8b}

// readSeed reads a seed file. Gzip-compressed files are detected by their
// magic bytes, so the extension does not matter.
func readSeed(path string) (*seedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed file")
	}
	defer func() { _ = f.Close() }()
	return decodeSeed(f)
}

func decodeSeed(r io.Reader) (*seedFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read seed")
	}
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := pgzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = zr.Close() }()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, errors.Wrap(err, "decompress seed")
		}
	}

	var s seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse seed")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *seedFile) validate() error {
	categories := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.ID == "" || c.Slug == "" {
			return errors.Errorf("category %q: id and slug are required", c.Name)
		}
		categories[c.ID] = true
	}
	for _, p := range s.Products {
		if p.ID == "" {
			return errors.Errorf("product %q: id is required", p.Name)
		}
		if p.Price < 0 {
			return errors.Errorf("product %s: negative price", p.ID)
		}
		if p.CategoryID != "" && !categories[p.CategoryID] {
			return errors.Errorf("product %s: unknown category %q", p.ID, p.CategoryID)
		}
	}
	for _, a := range s.Articles {
		if a.ID == "" {
			return errors.Errorf("article %q: id is required", a.Title)
		}
	}
	for _, sl := range s.Sliders {
		if sl.ID == "" {
			return errors.Errorf("slider %q: id is required", sl.Title)
		}
	}
	for _, f := range s.FAQs {
		if f.ID == "" {
			return errors.Errorf("faq %q: id is required", f.Question)
		}
	}
	return nil
}

func orTrue(b *bool) bool { return b == nil || *b }

func (p seedProduct) domain(now time.Time) catalog.Product {
	return catalog.Product{
		ID:            p.ID,
		Name:          strings.TrimSpace(p.Name),
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         p.Image,
		CategoryID:    p.CategoryID,
		Rating:        decimal.NewFromFloat(p.Rating).Round(1),
		Reviews:       p.Reviews,
		InStock:       orTrue(p.InStock),
		Featured:      p.Featured,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s seedSettings) domain(now time.Time) catalog.SiteSettings {
	st := catalog.DefaultSettings()
	st.ID = uuid.NewString()
	if s.SiteName != "" {
		st.SiteName = s.SiteName
	}
	if s.SiteDescription != "" {
		st.SiteDescription = s.SiteDescription
	}
	if s.SupportHours != "" {
		st.SupportHours = s.SupportHours
	}
	if s.PhoneNumbers != nil {
		st.PhoneNumbers = s.PhoneNumbers
	}
	if s.PurchaseEnabled != nil {
		st.PurchaseEnabled = *s.PurchaseEnabled
	}
	st.LogoURL = s.LogoURL
	st.FaviconURL = s.FaviconURL
	st.Address = s.Address
	st.InstagramURL = s.InstagramURL
	st.TelegramURL = s.TelegramURL
	st.LinkedInURL = s.LinkedInURL
	st.AboutUs = s.AboutUs
	st.ContactUs = s.ContactUs
	st.ShippingPolicy = s.ShippingPolicy
	st.ReturnPolicy = s.ReturnPolicy
	st.PrivacyPolicy = s.PrivacyPolicy
	st.TermsConditions = s.TermsConditions
	st.CreatedAt = now
	st.UpdatedAt = now
	return st
}

// upsert creates v, or replaces it when a record with the same key exists.
func upsert[T any](ctx context.Context, v *T, create, update func(context.Context, *T) error) error {
	err := create(ctx, v)
	if errors.Is(err, admin.ErrDuplicate) {
		return update(ctx, v)
	}
	return err
}

// counts reports how many records of each collection were written.
type counts struct {
	Categories, Products, Sliders, Articles, FAQs int
	Settings                                      bool
}

func apply(ctx context.Context, repo admin.Repository, s *seedFile, now time.Time) (counts, error) {
	var n counts
	// Categories go first: products reference them.
	for _, c := range s.Categories {
		v := catalog.Category{ID: c.ID, Name: c.Name, Slug: c.Slug, OrderIndex: c.OrderIndex, CreatedAt: now}
		if err := upsert(ctx, &v, repo.CreateCategory, repo.UpdateCategory); err != nil {
			return n, errors.Wrapf(err, "category %s", c.ID)
		}
		n.Categories++
	}
	for _, p := range s.Products {
		v := p.domain(now)
		if err := upsert(ctx, &v, repo.CreateProduct, repo.UpdateProduct); err != nil {
			return n, errors.Wrapf(err, "product %s", p.ID)
		}
		n.Products++
	}
	for _, sl := range s.Sliders {
		v := catalog.Slider{
			ID:         sl.ID,
			Title:      sl.Title,
			Subtitle:   sl.Subtitle,
			Image:      sl.Image,
			Link:       sl.Link,
			ButtonText: sl.ButtonText,
			IsActive:   orTrue(sl.IsActive),
			OrderIndex: sl.OrderIndex,
			CreatedAt:  now,
		}
		if err := upsert(ctx, &v, repo.CreateSlider, repo.UpdateSlider); err != nil {
			return n, errors.Wrapf(err, "slider %s", sl.ID)
		}
		n.Sliders++
	}
	for _, a := range s.Articles {
		v := catalog.Article{ID: a.ID, Title: a.Title, Slug: a.Slug, Excerpt: a.Excerpt, Content: a.Content, CreatedAt: now}
		if err := upsert(ctx, &v, repo.CreateArticle, repo.UpdateArticle); err != nil {
			return n, errors.Wrapf(err, "article %s", a.ID)
		}
		n.Articles++
	}
	for _, f := range s.FAQs {
		v := catalog.FAQ{ID: f.ID, Question: f.Question, Answer: f.Answer, OrderIndex: f.OrderIndex, IsActive: orTrue(f.IsActive)}
		if err := upsert(ctx, &v, repo.CreateFAQ, repo.UpdateFAQ); err != nil {
			return n, errors.Wrapf(err, "faq %s", f.ID)
		}
		n.FAQs++
	}
	if s.Settings != nil {
		v := s.Settings.domain(now)
		if err := repo.UpsertSettings(ctx, &v); err != nil {
			return n, errors.Wrap(err, "settings")
		}
		n.Settings = true
	}
	return n, nil
}
