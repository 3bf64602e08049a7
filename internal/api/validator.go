package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chompy-labs/chompy/internal/domain"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a validator with the chompy custom tags registered.
func NewValidator() *Validator {
	v := validator.New()

	// Register custom validations for the closed enums
	_ = v.RegisterValidation("trigger", validateTrigger)
	_ = v.RegisterValidation("xpsource", validateXPSource)

	return &Validator{validate: v}
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationError formats validation errors into a user-friendly map
// keyed by JSON field name.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["error"] = "Invalid request format"
		return errs
	}

	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			errs[field] = "This field is required"
		case "trigger":
			errs[field] = "Unknown achievement trigger"
		case "xpsource":
			errs[field] = "Unknown xp source"
		case "max", "lte":
			errs[field] = fmt.Sprintf("Must be at most %s", e.Param())
		case "min", "gte":
			errs[field] = fmt.Sprintf("Must be at least %s", e.Param())
		default:
			errs[field] = "Invalid value"
		}
	}

	return errs
}

func validateTrigger(fl validator.FieldLevel) bool {
	_, ok := domain.ParseTrigger(fl.Field().String())
	return ok
}

// Empty is allowed; the handler defaults it.
func validateXPSource(fl validator.FieldLevel) bool {
	switch domain.XPSource(fl.Field().String()) {
	case "", domain.XPMealPlan, domain.XPPlannedMeal, domain.XPChallenge, domain.XPManual:
		return true
	}
	return false
}
