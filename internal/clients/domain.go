// Package clients manages the buyers invoices are issued to.
package clients

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
	"github.com/odyssey-erp/fatoora/internal/zatca"
)

// Status of a client record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var (
	// ErrNotFound indicates the client does not exist for the tenant.
	ErrNotFound = shared.NewError(httpx.ErrNotFound, "clients: not found", "العميل غير موجود")
	// ErrClientUnavailable means the client is deleted or inactive and cannot be invoiced.
	ErrClientUnavailable = shared.NewError(httpx.ErrConflict, "clients: client unavailable", "لا يمكن إصدار فاتورة لعميل محذوف أو غير نشط")
	// ErrNotDeleted is returned when restoring a client that is not deleted.
	ErrNotDeleted = shared.NewError(httpx.ErrConflict, "clients: client is not deleted", "العميل غير محذوف")
)

// Client is a buyer. A client with a tax number is an organization.
type Client struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	CompanyName string
	TaxNumber   string
	Address     string
	City        string
	Email       string
	Phone       string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// IsOrganization reports whether the client is VAT registered.
func (c Client) IsOrganization() bool {
	return strings.TrimSpace(c.TaxNumber) != ""
}

// Invoiceable reports whether new invoices may reference the client.
func (c Client) Invoiceable() bool {
	return c.DeletedAt == nil && c.Status == StatusActive
}

// ValidTaxNumber reports whether s is a well formed ZATCA VAT number.
func ValidTaxNumber(s string) bool {
	return zatca.ValidVATNumber(s)
}

// Input carries create and update fields.
type Input struct {
	Name        string `json:"name" validate:"required,max=200"`
	CompanyName string `json:"company_name" validate:"max=200"`
	TaxNumber   string `json:"tax_number" validate:"omitempty,zatca_vat"`
	Address     string `json:"address" validate:"max=300"`
	City        string `json:"city" validate:"max=100"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
	Status      Status `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (in Input) normalized() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.TaxNumber = strings.TrimSpace(in.TaxNumber)
	in.Email = strings.TrimSpace(in.Email)
	if in.Status == "" {
		in.Status = StatusActive
	}
	return in
}

// ListFilter narrows List.
type ListFilter struct {
	Search         string
	Status         Status
	IncludeDeleted bool
	Page           int
	PerPage        int
}
