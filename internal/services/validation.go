package services

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a form-bound struct. Field violations are
// collapsed into a single ValidationError suitable for flashing.
func (vh *ValidationHelper) ValidateStruct(s any) error {
	err := vh.validator.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("field %s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Message: "Validation failed: " + strings.Join(parts, "; ")}
}
