// Package web defines common components for a web application.
package web

import (
	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	AccessToken          string `json:"access_token,omitempty"`
	AccessTokenExpiresAt string `json:"access_token_expires_at,omitempty"`
	Data                 any    `json:"data,omitempty"`
	Error                string `json:"error,omitempty"`
}

// Error wraps a given err into json frinedly struct.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// GetErrorMsg returns a human readable message for the failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	case "email":
		return " must be a valid email"
	case "alphanum":
		return " must contain only letters and numbers"
	case "accounttype":
		return " is not a supported account type"
	case "accountsubtype":
		return " is not a supported account subtype"
	case "amount":
		return " must be a positive amount with at most 13 digits and 2 decimals"
	case "balance":
		return " must be a non negative amount with at most 13 digits and 2 decimals"
	case "date":
		return " must be a date in YYYY-MM-DD format"
	case "nefield":
		return " must be different from " + fe.Param()
	}

	return " is invalid"
}

// ValidationError builds the error response for the first failed field.
func ValidationError(ve validator.ValidationErrors) Response {
	field := ve[0]
	return Response{Error: field.Field() + GetErrorMsg(field)}
}
