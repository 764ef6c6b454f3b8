package request

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/go-playground/validator/v10"
)

var requestValidator *validator.Validate

func V() *validator.Validate {
	if requestValidator == nil {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		requestValidator = v
	}
	return requestValidator
}

// validate runs the struct tags and reports the first failing field as a
// domain.ValidationError.
func validate(req interface{}) error {
	err := V().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError("", err.Error())
	}
	fe := fieldErrs[0]
	return domain.NewValidationError(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is empty", strings.ToLower(fe.Param()))
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "excludesall":
		return "contains reserved characters"
	case "unique":
		return "must not contain duplicates"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
