package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validator
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationErrors is a list of field errors that also satisfies error
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	// Register custom tag name function to use json tags
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "low", "medium", "high", "critical":
			return true
		}
		return false
	})
	_ = v.RegisterValidation("unitinterval", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f >= 0 && f <= 1
	})

	return &Validator{
		validate: v,
	}
}

// Validate validates a struct. The result is nil when the struct is valid.
func (v *Validator) Validate(i interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := v.validate.Struct(i)
	if err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return ValidationErrors{{Message: err.Error()}}
		}
		for _, err := range fieldErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: msgForTag(err),
			})
		}
	}

	return validationErrors
}

// msgForTag returns a human-readable message for a validation tag
func msgForTag(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "severity":
		return fmt.Sprintf("%s must be one of [low medium high critical]", field)
	case "unitinterval":
		return fmt.Sprintf("%s must be within [0,1]", field)
	case "dive":
		return fmt.Sprintf("%s contains an invalid element", field)
	default:
		return fmt.Sprintf("%s failed validation for tag: %s", field, fe.Tag())
	}
}

// Global validator instance
var globalValidator *Validator

// Init initializes the global validator
func Init() {
	globalValidator = New()
}

// Validate validates a struct using the global validator
func Validate(i interface{}) ValidationErrors {
	if globalValidator == nil {
		Init()
	}
	return globalValidator.Validate(i)
}
