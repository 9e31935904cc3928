package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"pharmaerp/internal/core/apperror"
)

var setupValidatorOnce sync.Once

// SetupValidator makes binding errors name fields by their JSON tag.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// FieldError is one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError converts a binding error into a VALIDATION_ERROR.
// Malformed JSON has no field list and keeps the decoder message.
func ValidationError(err error) *apperror.AppError {
	appErr := apperror.NewValidation("invalid request body")

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr.WithDetail("error", err.Error())
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return appErr.WithDetail("fields", fields)
}

// fieldPath drops the root struct name: "CreateInvoiceRequest.lines[0].productId" -> "lines[0].productId".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
