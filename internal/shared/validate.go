package shared

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"
	// Tenant time zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/zatca"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process wide validator with the custom tags
// registered: zatca_vat and timezone.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("zatca_vat", func(fl validator.FieldLevel) bool {
			return zatca.ValidVATNumber(fl.Field().String())
		})
		_ = v.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
			_, err := time.LoadLocation(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// Validate runs struct validation and converts failures into an
// httpx.ValidationError keyed by JSON field name.
func Validate(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe.Namespace())] = fe.Tag()
	}
	return &httpx.ValidationError{Fields: fields}
}

// fieldPath drops the struct name prefix from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Invalid builds a single-field validation error.
func Invalid(field, reason string) error {
	return &httpx.ValidationError{Fields: map[string]string{field: reason}}
}
