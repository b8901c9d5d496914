// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"

	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/go-playground/validator/v10"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "eqfield":
		return err.Field() + " must match " + err.Param()
	case "uuid4":
		return err.Field() + " must be a valid UUID"
	case "password_strength":
		return "Password must contain at least 1 uppercase letter and 1 number"
	case "short_code":
		return "Custom code may only contain letters, digits, and hyphens, up to 50 characters"
	case "destination_url":
		return "Destination must be an absolute http or https URL up to 2000 characters"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// registerPasswordStrengthValidation registers the password_strength tag
func registerPasswordStrengthValidation(v *validator.Validate) {
	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()

		hasUpper := false
		hasNumber := false

		for _, char := range value {
			if char >= 'A' && char <= 'Z' {
				hasUpper = true
			}
			if char >= '0' && char <= '9' {
				hasNumber = true
			}
		}

		return hasUpper && hasNumber
	})
}

// registerShortLinkValidations registers the short_code and destination_url tags
func registerShortLinkValidations(v *validator.Validate) {
	_ = v.RegisterValidation("short_code", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true // optional fields validate elsewhere via required
		}
		return businessflow.ValidateCustomCode(value) == nil
	})

	_ = v.RegisterValidation("destination_url", func(fl validator.FieldLevel) bool {
		return businessflow.ValidateDestination(fl.Field().String()) == nil
	})
}
