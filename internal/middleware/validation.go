// Package middleware provides HTTP middleware for the trading bridge.
package middleware

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	var msgs []string
	for _, e := range v.Errors {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors.
func (v ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add adds a validation error.
func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

// WriteJSON writes the validation errors as JSON response.
func (v ValidationErrors) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(v)
}

// Common validation patterns.
var (
	sessionIDRegex = regexp.MustCompile(`^session_\d+_[0-9a-z]+$`)
	steamIDRegex   = regexp.MustCompile(`^7656119\d{10}$`)
	offerIDRegex   = regexp.MustCompile(`^\d+$`)
)

// ValidateSessionID checks the bridge's session identifier shape.
func ValidateSessionID(id string) bool {
	return sessionIDRegex.MatchString(id)
}

// ValidateSteamID checks a 64-bit individual account identifier.
func ValidateSteamID(id string) bool {
	return steamIDRegex.MatchString(id)
}

// ValidateOfferID checks a numeric trade offer identifier.
func ValidateOfferID(id string) bool {
	return offerIDRegex.MatchString(id)
}

// ValidateRequired checks if a string is non-empty.
func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

// ValidateLength checks if a string is within length bounds.
func ValidateLength(value string, min, max int) bool {
	l := len(value)
	return l >= min && l <= max
}

// SanitizeString trims whitespace and removes control characters.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return s
}
