package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	settingsColumns = `id, site_name, site_description, logo_url, favicon_url, phone_numbers,
		address, support_hours, instagram_url, telegram_url, linkedin_url, about_us,
		contact_us, faq, shipping_policy, return_policy, privacy_policy, terms_conditions,
		article_content, purchase_enabled, enamad_code, samandehi_code, ecunion_code,
		created_at, updated_at`

	getSettingsSQL = `SELECT ` + settingsColumns + ` FROM site_settings
		ORDER BY created_at LIMIT 1`

	// The singleton is the oldest row; the id of a new row is only used when
	// the table is empty.
	updateSettingsSQL = `UPDATE site_settings SET site_name = $1, site_description = $2,
		logo_url = $3, favicon_url = $4, phone_numbers = $5, address = $6,
		support_hours = $7, instagram_url = $8, telegram_url = $9, linkedin_url = $10,
		about_us = $11, contact_us = $12, faq = $13, shipping_policy = $14,
		return_policy = $15, privacy_policy = $16, terms_conditions = $17,
		article_content = $18, purchase_enabled = $19, enamad_code = $20,
		samandehi_code = $21, ecunion_code = $22, updated_at = $23
		WHERE id = (SELECT id FROM site_settings ORDER BY created_at LIMIT 1)
		RETURNING id, created_at`

	insertSettingsSQL = `INSERT INTO site_settings (` + settingsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
)

// Settings returns the settings singleton, or (nil, nil) when none exists.
func (s *Store) Settings(ctx context.Context) (*catalog.SiteSettings, error) {
	rows, err := s.pool.Query(ctx, getSettingsSQL)
	if err != nil {
		return nil, fmt.Errorf("getting settings: %w", err)
	}
	st, err := pgx.CollectExactlyOneRow(rows, scanSettings)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting settings: %w", err)
	}
	return &st, nil
}

// UpsertSettings updates the settings singleton, inserting it when the table
// is empty. st.ID and st.CreatedAt are set to the stored row's values.
func (s *Store) UpsertSettings(ctx context.Context, st *catalog.SiteSettings) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		args := settingsArgs(st)
		// Same columns without id and created_at.
		update := append(append([]any{}, args[1:23]...), args[24])
		err := tx.QueryRow(ctx, updateSettingsSQL, update...).Scan(&st.ID, &st.CreatedAt)
		if err == nil {
			return nil
		}
		if !isNoRows(err) {
			return fmt.Errorf("updating settings: %w", err)
		}

		if st.CreatedAt.IsZero() {
			st.CreatedAt = st.UpdatedAt
			args[23] = st.CreatedAt
		}
		if _, err := tx.Exec(ctx, insertSettingsSQL, args...); err != nil {
			return fmt.Errorf("inserting settings: %w", mapError(err))
		}
		return nil
	})
}

func settingsArgs(st *catalog.SiteSettings) []any {
	phones := st.PhoneNumbers
	if phones == nil {
		phones = []string{}
	}
	return []any{
		st.ID, st.SiteName, st.SiteDescription, st.LogoURL, st.FaviconURL, phones,
		st.Address, st.SupportHours, st.InstagramURL, st.TelegramURL, st.LinkedInURL, st.AboutUs,
		st.ContactUs, st.FAQ, st.ShippingPolicy, st.ReturnPolicy, st.PrivacyPolicy, st.TermsConditions,
		st.ArticleContent, st.PurchaseEnabled, st.EnamadCode, st.SamandehiCode, st.EcunionCode,
		st.CreatedAt, st.UpdatedAt,
	}
}

func scanSettings(row pgx.CollectableRow) (catalog.SiteSettings, error) {
	var st catalog.SiteSettings
	err := row.Scan(
		&st.ID, &st.SiteName, &st.SiteDescription, &st.LogoURL, &st.FaviconURL, &st.PhoneNumbers,
		&st.Address, &st.SupportHours, &st.InstagramURL, &st.TelegramURL, &st.LinkedInURL, &st.AboutUs,
		&st.ContactUs, &st.FAQ, &st.ShippingPolicy, &st.ReturnPolicy, &st.PrivacyPolicy, &st.TermsConditions,
		&st.ArticleContent, &st.PurchaseEnabled, &st.EnamadCode, &st.SamandehiCode, &st.EcunionCode,
		&st.CreatedAt, &st.UpdatedAt,
	)
	return st, err
}
