// Package inputval validates typed request structs at the HTTP boundary.
//
// Rules are go-playground/validator tags; messages use the `label` tag so they
// read well when shown to a person:
//
//	type submitClaimInput struct {
//	    BusinessID string `validate:"required,objectid" label:"Business"`
//	    Message    string `validate:"required,max=2000" label:"Message"`
//	}
package inputval

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if label := f.Tag.Get("label"); label != "" {
				return label
			}
			return f.Name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return v
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects the failures for one struct.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validate runs the struct's rules.
func Validate(s any) *Result {
	res := &Result{}
	err := instance().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{Field: fe.StructField(), Message: message(fe)})
	}
	return res
}

// Check is Validate folded into a Validation error (nil when valid).
func Check(s any) error {
	if res := Validate(s); res.HasErrors() {
		return apperr.Validation(res.All())
	}
	return nil
}

// IsValidObjectID reports whether s (trimmed) is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required.", label)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s items.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates.", label)
	case "objectid":
		return fmt.Sprintf("%s is not a valid id.", label)
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}
