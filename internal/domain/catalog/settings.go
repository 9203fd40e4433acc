package catalog

import "time"

// SiteSettings is the singleton record that configures the storefront.
//
// Optional fields are pointers; nil means "not set" and is never conflated
// with an empty string. Defaults are described by DefaultSettings.
type SiteSettings struct {
	ID              string
	SiteName        string
	SiteDescription string
	LogoURL         *string
	FaviconURL      *string
	PhoneNumbers    []string
	Address         *string
	SupportHours    string
	InstagramURL    *string
	TelegramURL     *string
	LinkedInURL     *string
	AboutUs         *string
	ContactUs       *string
	FAQ             *string
	ShippingPolicy  *string
	ReturnPolicy    *string
	PrivacyPolicy   *string
	TermsConditions *string
	ArticleContent  *string
	PurchaseEnabled bool
	EnamadCode      *string
	SamandehiCode   *string
	EcunionCode     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DefaultSettingsID identifies settings that were not loaded from the store.
const DefaultSettingsID = "default"

// DefaultSettings returns the settings used when the store has no settings
// row. Purchasing is disabled by default.
func DefaultSettings() SiteSettings {
	return SiteSettings{
		ID:           DefaultSettingsID,
		PhoneNumbers: []string{},
	}
}

// Clone returns a deep copy of s.
func (s SiteSettings) Clone() SiteSettings {
	c := s
	c.PhoneNumbers = append([]string(nil), s.PhoneNumbers...)
	if c.PhoneNumbers == nil {
		c.PhoneNumbers = []string{}
	}
	return c
}
