package order

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError indicates that a delivery field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Normalize trims surrounding whitespace from every field, converts
// non-ASCII digits in phone and postal code to ASCII and drops empty
// optional fields.
func (d Delivery) Normalize() Delivery {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Phone = asciiDigits(strings.TrimSpace(d.Phone))
	d.Province = strings.TrimSpace(d.Province)
	d.City = strings.TrimSpace(d.City)
	d.Address = strings.TrimSpace(d.Address)
	d.PostalCode = asciiDigits(strings.TrimSpace(d.PostalCode))
	d.Email = trimOptional(d.Email)
	d.Note = trimOptional(d.Note)
	return d
}

// Validate checks the delivery details. It expects a normalized value.
func (d Delivery) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"firstName", d.FirstName},
		{"lastName", d.LastName},
		{"phone", d.Phone},
		{"province", d.Province},
		{"city", d.City},
		{"address", d.Address},
		{"postalCode", d.PostalCode},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Reason: "required"}
		}
	}

	phone := strings.TrimPrefix(d.Phone, "+")
	if !isDigits(phone) || len(phone) < 10 || len(phone) > 13 {
		return &ValidationError{Field: "phone", Reason: "must be 10 to 13 digits"}
	}
	if !isDigits(d.PostalCode) || len(d.PostalCode) != 10 {
		return &ValidationError{Field: "postalCode", Reason: "must be 10 digits"}
	}
	if d.Email != nil {
		if _, err := mail.ParseAddress(*d.Email); err != nil {
			return &ValidationError{Field: "email", Reason: "malformed address"}
		}
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// asciiDigits maps decimal digits of any script (Persian, Arabic-Indic) to
// their ASCII counterparts and removes spaces and dashes.
func asciiDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == ' ' || r == '-':
			continue
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
