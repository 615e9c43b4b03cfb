package shared

import (
	"errors"

	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = NewError(httpx.ErrNotFound, "not found", "العنصر المطلوب غير موجود")
	// ErrTenantRequired means a handler ran without an authenticated tenant.
	ErrTenantRequired = NewError(httpx.ErrUnauthorized, "tenant required", "يجب تسجيل الدخول أولاً")
)

// Error is a domain error with a category understood by httpx and an Arabic
// message safe to show users.
type Error struct {
	category error
	msg      string
	msgAR    string
}

// NewError constructs a domain error. category is one of the httpx sentinels.
func NewError(category error, msg, msgAR string) *Error {
	return &Error{category: category, msg: msg, msgAR: msgAR}
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the category so errors.Is(err, httpx.ErrConflict) holds.
func (e *Error) Unwrap() error { return e.category }

// UserMessage returns the Arabic message.
func (e *Error) UserMessage() string { return e.msgAR }

// UserMessage returns the Arabic text to display for err. Unknown errors get
// a generic message so internals never leak.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.msgAR
	}
	return httpx.CategoryMessage(err)
}
