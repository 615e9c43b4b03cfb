// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// categoryMessages are the Arabic fallbacks shown when an error carries no
// message of its own.
var categoryMessages = map[error]string{
	ErrNotFound:     "العنصر المطلوب غير موجود",
	ErrDuplicate:    "السجل موجود مسبقاً",
	ErrValidation:   "البيانات المدخلة غير صالحة",
	ErrForbidden:    "لا تملك صلاحية تنفيذ هذا الإجراء",
	ErrUnauthorized: "يجب تسجيل الدخول أولاً",
	ErrConflict:     "لا يمكن تنفيذ العملية في الحالة الحالية",
}

// GenericMessage is shown for unexpected failures.
const GenericMessage = "حدث خطأ غير متوقع، يرجى المحاولة لاحقاً"

// Localized is implemented by errors that carry their own user-facing text.
type Localized interface {
	UserMessage() string
}

// ValidationError reports per-field problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CategoryMessage returns the Arabic message for err's category.
func CategoryMessage(err error) string {
	var loc Localized
	if errors.As(err, &loc) {
		return loc.UserMessage()
	}
	for category, msg := range categoryMessages {
		if errors.Is(err, category) {
			return msg
		}
	}
	return GenericMessage
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var fields map[string]string
	var verr *ValidationError
	if errors.As(err, &verr) {
		fields = verr.Fields
	}

	switch {
	case errors.Is(err, ErrNotFound):
		problem(w, http.StatusNotFound, "Not Found", CategoryMessage(err), nil)
	case errors.Is(err, ErrDuplicate):
		problem(w, http.StatusConflict, "Duplicate", CategoryMessage(err), nil)
	case errors.Is(err, ErrValidation):
		problem(w, http.StatusBadRequest, "Validation Failed", CategoryMessage(err), fields)
	case errors.Is(err, ErrForbidden):
		problem(w, http.StatusForbidden, "Forbidden", CategoryMessage(err), nil)
	case errors.Is(err, ErrUnauthorized):
		problem(w, http.StatusUnauthorized, "Unauthorized", CategoryMessage(err), nil)
	case errors.Is(err, ErrConflict):
		problem(w, http.StatusConflict, "Conflict", CategoryMessage(err), nil)
	default:
		problem(w, http.StatusInternalServerError, "Internal Error", GenericMessage, nil)
	}
}
