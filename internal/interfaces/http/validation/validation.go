// internal/interfaces/http/validation/validation.go

// Package validation configures gin's validator and turns binding failures
// into field-level errors.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

var setupOnce sync.Once

// Setup registers the decimal type and json field naming on gin's validator
func Setup() {
	setupOnce.Do(func() {
		// Money leaves the API as a JSON number.
		decimal.MarshalJSONWithoutQuotes = true

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})

		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
}

// FromBindError converts an error from ShouldBindJSON/ShouldBindQuery into
// an apperror
func FromBindError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return apperror.Validation(FormatValidationErrors(validationErrs)...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperror.Validation(apperror.FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s must be a %s", field, typeErr.Type.String()),
		})
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return apperror.Validation(apperror.FieldError{
			Field:   "query",
			Message: fmt.Sprintf("%q is not a valid number", numErr.Num),
		})
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperror.BadRequest("Invalid JSON body")
	}

	return apperror.BadRequest(err.Error())
}

// FormatValidationErrors converts validator errors to field errors
func FormatValidationErrors(errs validator.ValidationErrors) []apperror.FieldError {
	fields := make([]apperror.FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, apperror.FieldError{
			Field:   e.Field(),
			Message: getErrorMessage(e),
		})
	}
	return fields
}

func getErrorMessage(e validator.FieldError) string {
	field := e.Field()
	isString := e.Kind() == reflect.String

	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid email format"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
	case "gt":
		if e.Param() == "0" {
			return field + " must be positive"
		}
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, e.Param())
	default:
		return "Invalid value"
	}
}

// ParseID parses a positive integer path parameter
func ParseID(raw, field string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation(apperror.FieldError{
			Field:   field,
			Message: "Invalid " + field,
		})
	}
	return uint(id), nil
}
