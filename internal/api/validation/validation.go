// Package validation checks decoded request bodies and reports problems as
// per-field errors suitable for the response envelope.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rentdesk/rentdesk/internal/tier"
)

// FieldError describes a single invalid field in a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// slugRegex matches tier, product and feature slugs such as "professional"
// or "extra_property".
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("resource", func(fl validator.FieldLevel) bool {
		_, err := tier.ParseResource(fl.Field().String())
		return err == nil
	})

	return v
}

// Struct validates s against its `validate` tags. It returns nil when s is valid.
func Struct(s any) []FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		field := fieldPath(e)
		out = append(out, FieldError{Field: field, Message: message(field, e)})
	}
	return out
}

// fieldPath drops the root struct name from the namespace, so a nested cap
// reports as "limits.maxUnits".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(field string, e validator.FieldError) string {
	isString := e.Kind() == reflect.String

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "slug":
		return fmt.Sprintf("%s must be lowercase alphanumeric words joined by hyphens or underscores", field)
	case "resource":
		return fmt.Sprintf("%s must be one of: %s", field, resourceList())
	}
	return fmt.Sprintf("%s failed %q validation", field, e.Tag())
}

func resourceList() string {
	names := make([]string, 0, len(tier.Resources))
	for _, r := range tier.Resources {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}
