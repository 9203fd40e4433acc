package admin

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	maxRating   = decimal.NewFromInt(5)
)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "required"}
	}
	return nil
}

func validSlug(field, slug string) error {
	if !slugPattern.MatchString(slug) {
		return &ValidationError{Field: field, Reason: "must be lowercase letters, digits and dashes"}
	}
	return nil
}

func validURL(field string, raw *string) error {
	if raw == nil || *raw == "" {
		return nil
	}
	// Relative links ("/products") are allowed.
	if _, err := url.Parse(*raw); err != nil {
		return &ValidationError{Field: field, Reason: "malformed URL"}
	}
	return nil
}

// ValidateProduct checks a product before it is written.
func ValidateProduct(p *catalog.Product) error {
	if err := required("name", p.Name); err != nil {
		return err
	}
	if err := required("categoryId", p.CategoryID); err != nil {
		return err
	}
	if p.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "must be positive"}
	}
	if p.OriginalPrice != nil && *p.OriginalPrice <= 0 {
		return &ValidationError{Field: "originalPrice", Reason: "must be positive"}
	}
	if p.Rating.IsNegative() || p.Rating.GreaterThan(maxRating) {
		return &ValidationError{Field: "rating", Reason: "must be between 0 and 5"}
	}
	if p.Reviews < 0 {
		return &ValidationError{Field: "reviews", Reason: "must not be negative"}
	}
	return nil
}

// ValidateCategory checks a category before it is written.
func ValidateCategory(c *catalog.Category) error {
	if err := required("name", c.Name); err != nil {
		return err
	}
	if err := required("slug", c.Slug); err != nil {
		return err
	}
	return validSlug("slug", c.Slug)
}

// ValidateSlider checks a slider before it is written.
func ValidateSlider(s *catalog.Slider) error {
	if err := required("title", s.Title); err != nil {
		return err
	}
	if err := required("image", s.Image); err != nil {
		return err
	}
	return validURL("link", s.Link)
}

// ValidateArticle checks an article before it is written.
func ValidateArticle(a *catalog.Article) error {
	if err := required("title", a.Title); err != nil {
		return err
	}
	if err := required("content", a.Content); err != nil {
		return err
	}
	if a.Slug != nil {
		return validSlug("slug", *a.Slug)
	}
	return nil
}

// ValidateFAQ checks an FAQ before it is written.
func ValidateFAQ(f *catalog.FAQ) error {
	if err := required("question", f.Question); err != nil {
		return err
	}
	return required("answer", f.Answer)
}

// ValidateSettings checks site settings before they are written.
func ValidateSettings(s *catalog.SiteSettings) error {
	for _, u := range []struct {
		field string
		value *string
	}{
		{"logoUrl", s.LogoURL},
		{"faviconUrl", s.FaviconURL},
		{"instagramUrl", s.InstagramURL},
		{"telegramUrl", s.TelegramURL},
		{"linkedinUrl", s.LinkedInURL},
	} {
		if err := validURL(u.field, u.value); err != nil {
			return err
		}
	}
	for _, phone := range s.PhoneNumbers {
		if strings.TrimSpace(phone) == "" {
			return &ValidationError{Field: "phoneNumbers", Reason: "must not contain empty entries"}
		}
	}
	return nil
}
