package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator configured for inbound message payloads.
// - Uses JSON tag names in errors.
// - Registers the recipient alias used by message payloads.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("recipient", "required,email")
	return v
}

const unknownFieldPrefix = "json: unknown field "

// ToDetails converts decode/validation errors into a map[field]message suitable for logs.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	if errors.As(err, &se) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return map[string]string{"payload": "invalid json"}
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		if ute.Field == "" {
			return map[string]string{"payload": "must be a JSON object"}
		}
		return map[string]string{ute.Field: "must be a " + ute.Type.String()}
	}

	// encoding/json reports unknown fields as a plain error
	if msg := err.Error(); strings.HasPrefix(msg, unknownFieldPrefix) {
		field := strings.TrimPrefix(msg, unknownFieldPrefix)
		if unq, uerr := strconv.Unquote(field); uerr == nil {
			field = unq
		}
		return map[string]string{field: "is not allowed"}
	}

	// Validation errors from validator.v10
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	// Fallback
	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "recipient":
		return "must be a valid recipient email"
	default:
		return fmt.Sprintf("validation failed for '%s'", fe.Tag())
	}
}
