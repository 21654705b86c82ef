package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"sharebasket/pkg/model"

	"github.com/go-playground/validator/v10"
)

const tagNonNegative = "nonnegative"

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type ItemValidator struct {
	validate *validator.Validate
}

func NewItemValidator() *ItemValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	v.RegisterStructValidation(validateNewItem, model.NewItem{})

	return &ItemValidator{
		validate: v,
	}
}

func (v *ItemValidator) ValidateNew(item *model.NewItem) error {
	if err := v.validate.Struct(item); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// validateNewItem covers what tags cannot express on a decimal.
func validateNewItem(sl validator.StructLevel) {
	item := sl.Current().Interface().(model.NewItem)
	if item.Price != nil && item.Price.IsNegative() {
		sl.ReportError(item.Price, "price", "Price", tagNonNegative, "")
	}
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		var msg string
		switch err.Tag() {
		case "required":
			msg = "is required"
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", err.Param())
		case "min":
			msg = fmt.Sprintf("must be at least %s", err.Param())
		case tagNonNegative:
			msg = "must not be negative"
		default:
			msg = fmt.Sprintf("failed %s validation", err.Tag())
		}
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: msg,
		})
	}

	return validationErrors
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
