package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Request locations reported with each field error.
const (
	LocationBody   = "body"
	LocationParams = "params"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON/URI tag names in errors.
// - Registers alias tags for common validations.
// - "userid" resolves to idRule, the format ids take in the configured store.
func Init(idRule string) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "uri"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		if idRule == "" {
			idRule = "uuid"
		}
		v.RegisterAlias("userid", idRule)
		v.RegisterAlias("pwd", "min=1")
	}
}

// ValidationsError represents a structured validation error
type ValidationsError struct {
	Field    string `json:"field"`
	Tag      string `json:"tag"`
	Value    string `json:"value"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

// ToErrors converts validation/binding errors into the itemized list rendered as {errors: [...]}.
func ToErrors(err error, location string) []ValidationsError {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	var te *time.ParseError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &se):
		return []ValidationsError{{Field: "payload", Tag: "json", Message: "invalid json", Location: location}}
	case errors.As(err, &ute):
		field := ute.Field
		if field == "" {
			field = "payload"
		}
		return []ValidationsError{{Field: field, Tag: "type", Value: ute.Value, Message: "must be a " + ute.Type.String(), Location: location}}
	case errors.As(err, &te):
		return []ValidationsError{{Field: "created", Tag: "datetime", Value: te.Value, Message: "must be an RFC 3339 timestamp", Location: location}}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationsError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationsError{
				Field:    fe.Field(),
				Tag:      fe.Tag(),
				Value:    valueString(fe.Value()),
				Message:  formatFieldError(fe),
				Location: location,
			})
		}
		return out
	}

	return []ValidationsError{{Field: "payload", Message: "invalid payload", Location: location}}
}

func valueString(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	return fmt.Sprintf("%v", rv.Interface())
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "mongodb", "userid":
		return "must be a valid id"
	case "uuid", "uuid4", "uuid_rfc4122":
		return "must be a valid id"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "pwd":
		return "must not be empty"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "hexcolor":
		return "must be a valid hexadecimal color"
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
