package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
)

type productJSON struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           int64     `json:"price"`
	OriginalPrice   *int64    `json:"originalPrice"`
	Image           string    `json:"image"`
	CategoryID      string    `json:"categoryId"`
	CategoryName    string    `json:"categoryName,omitempty"`
	Rating          float64   `json:"rating"`
	Reviews         int       `json:"reviews"`
	InStock         bool      `json:"inStock"`
	Featured        bool      `json:"featured"`
	DiscountPercent int       `json:"discountPercent,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toProductJSON(p catalog.Product, categoryName string) productJSON {
	return productJSON{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		OriginalPrice:   p.OriginalPrice,
		Image:           p.Image,
		CategoryID:      p.CategoryID,
		CategoryName:    categoryName,
		Rating:          p.Rating.InexactFloat64(),
		Reviews:         p.Reviews,
		InStock:         p.InStock,
		Featured:        p.Featured,
		DiscountPercent: p.DiscountPercent(),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// domain converts an admin request body. Derived fields are ignored.
func (p productJSON) domain() catalog.Product {
	return catalog.Product{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         p.Image,
		CategoryID:    p.CategoryID,
		Rating:        decimal.NewFromFloat(p.Rating).Round(1),
		Reviews:       p.Reviews,
		InStock:       p.InStock,
		Featured:      p.Featured,
	}
}

type categoryJSON struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	OrderIndex int       `json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toCategoryJSON(c catalog.Category) categoryJSON {
	return categoryJSON(c)
}

func (c categoryJSON) domain() catalog.Category {
	return catalog.Category(c)
}

type sliderJSON struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Subtitle   *string   `json:"subtitle"`
	Image      string    `json:"image"`
	Link       *string   `json:"link"`
	ButtonText *string   `json:"buttonText"`
	IsActive   bool      `json:"isActive"`
	OrderIndex int       `json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toSliderJSON(s catalog.Slider) sliderJSON {
	return sliderJSON(s)
}

func (s sliderJSON) domain() catalog.Slider {
	return catalog.Slider(s)
}

type articleJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      *string   `json:"slug"`
	Excerpt   *string   `json:"excerpt"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toArticleJSON(a catalog.Article) articleJSON {
	return articleJSON(a)
}

func (a articleJSON) domain() catalog.Article {
	return catalog.Article(a)
}

type faqJSON struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	OrderIndex int    `json:"orderIndex"`
	IsActive   bool   `json:"isActive"`
}

func toFAQJSON(f catalog.FAQ) faqJSON {
	return faqJSON(f)
}

func (f faqJSON) domain() catalog.FAQ {
	return catalog.FAQ(f)
}

type settingsJSON struct {
	ID              string    `json:"id"`
	SiteName        string    `json:"siteName"`
	SiteDescription string    `json:"siteDescription"`
	LogoURL         *string   `json:"logoUrl"`
	FaviconURL      *string   `json:"faviconUrl"`
	PhoneNumbers    []string  `json:"phoneNumbers"`
	Address         *string   `json:"address"`
	SupportHours    string    `json:"supportHours"`
	InstagramURL    *string   `json:"instagramUrl"`
	TelegramURL     *string   `json:"telegramUrl"`
	LinkedInURL     *string   `json:"linkedinUrl"`
	AboutUs         *string   `json:"aboutUs"`
	ContactUs       *string   `json:"contactUs"`
	FAQ             *string   `json:"faq"`
	ShippingPolicy  *string   `json:"shippingPolicy"`
	ReturnPolicy    *string   `json:"returnPolicy"`
	PrivacyPolicy   *string   `json:"privacyPolicy"`
	TermsConditions *string   `json:"termsConditions"`
	ArticleContent  *string   `json:"articleContent"`
	PurchaseEnabled bool      `json:"purchaseEnabled"`
	EnamadCode      *string   `json:"enamadCode"`
	SamandehiCode   *string   `json:"samandehiCode"`
	EcunionCode     *string   `json:"ecunionCode"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toSettingsJSON(s catalog.SiteSettings) settingsJSON {
	return settingsJSON(s.Clone())
}

func (s settingsJSON) domain() catalog.SiteSettings {
	return catalog.SiteSettings(s)
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

type lineItemJSON struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

func toLineItemJSON(li cart.LineItem) lineItemJSON {
	return lineItemJSON{
		ProductID: li.ProductID,
		Name:      li.Name,
		Price:     li.Price,
		Image:     li.Image,
		Category:  li.Category,
		Quantity:  li.Quantity,
		Subtotal:  li.Subtotal(),
	}
}

type orderJSON struct {
	ID         string         `json:"id"`
	Items      []lineItemJSON `json:"items"`
	TotalItems int            `json:"totalItems"`
	Total      int64          `json:"total"`
	Delivery   order.Delivery `json:"delivery"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func toOrderJSON(o order.Order) orderJSON {
	return orderJSON{
		ID:         o.ID.String(),
		Items:      mapSlice(o.Items, toLineItemJSON),
		TotalItems: o.TotalItems(),
		Total:      o.Total,
		Delivery:   o.Delivery,
		CreatedAt:  o.CreatedAt,
	}
}
