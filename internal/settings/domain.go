// Package settings stores each tenant's billing profile.
package settings

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// Defaults applied when a tenant has not saved a profile yet.
const (
	DefaultNumberPrefix = "INV-"
	DefaultCurrency     = "SAR"
	DefaultTimezone     = "Asia/Riyadh"
)

// DefaultVATRate is the Saudi standard rate in percent.
var DefaultVATRate = decimal.NewFromInt(15)

// ErrNotFound is returned by the repository when no row exists.
var ErrNotFound = shared.NewError(httpx.ErrNotFound, "settings: not found", "لم يتم إعداد بيانات المنشأة")

// Settings is the tenant's invoice profile.
type Settings struct {
	TenantID       uuid.UUID
	SellerName     string
	VATNumber      string
	CRNumber       string
	Address        string
	City           string
	IBAN           string
	LogoURL        string
	FooterText     string
	NumberPrefix   string
	DefaultVATRate decimal.Decimal
	Currency       string
	Timezone       string
	UpdatedAt      time.Time
}

// Defaults returns an empty profile for tenantID.
func Defaults(tenantID uuid.UUID) Settings {
	return Settings{
		TenantID:       tenantID,
		NumberPrefix:   DefaultNumberPrefix,
		DefaultVATRate: DefaultVATRate,
		Currency:       DefaultCurrency,
		Timezone:       DefaultTimezone,
	}
}

// Ready reports whether tax documents can be issued.
func (s Settings) Ready() bool {
	return strings.TrimSpace(s.SellerName) != "" && strings.TrimSpace(s.VATNumber) != ""
}

// Location resolves the tenant time zone, falling back to Riyadh time.
func (s Settings) Location() *time.Location {
	if loc, err := time.LoadLocation(s.Timezone); err == nil && s.Timezone != "" {
		return loc
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.FixedZone("AST", 3*60*60)
}

// UpsertInput is the editable part of the profile.
type UpsertInput struct {
	SellerName     string          `json:"seller_name" validate:"required,max=200"`
	VATNumber      string          `json:"vat_number" validate:"omitempty,zatca_vat"`
	CRNumber       string          `json:"cr_number" validate:"omitempty,max=20"`
	Address        string          `json:"address" validate:"max=300"`
	City           string          `json:"city" validate:"max=100"`
	IBAN           string          `json:"iban" validate:"omitempty,alphanum,min=15,max=34"`
	LogoURL        string          `json:"logo_url" validate:"omitempty,url"`
	FooterText     string          `json:"footer_text" validate:"max=500"`
	NumberPrefix   string          `json:"number_prefix" validate:"max=10"`
	DefaultVATRate *decimal.Decimal `json:"default_vat_rate"`
	Currency       string          `json:"currency" validate:"omitempty,iso4217"`
	Timezone       string          `json:"timezone" validate:"omitempty,timezone"`
}

// apply merges in over s, keeping defaults for blank optional fields. Text
// printed on documents and QR codes is stored in NFC.
func (in UpsertInput) apply(s Settings) Settings {
	s.SellerName = norm.NFC.String(strings.TrimSpace(in.SellerName))
	s.VATNumber = strings.TrimSpace(in.VATNumber)
	s.CRNumber = strings.TrimSpace(in.CRNumber)
	s.Address = norm.NFC.String(in.Address)
	s.City = norm.NFC.String(in.City)
	s.IBAN = in.IBAN
	s.LogoURL = in.LogoURL
	s.FooterText = in.FooterText
	if p := strings.TrimSpace(in.NumberPrefix); p != "" {
		s.NumberPrefix = p
	}
	if in.DefaultVATRate != nil {
		s.DefaultVATRate = *in.DefaultVATRate
	}
	if in.Currency != "" {
		s.Currency = strings.ToUpper(in.Currency)
	}
	if in.Timezone != "" {
		s.Timezone = in.Timezone
	}
	return s
}
