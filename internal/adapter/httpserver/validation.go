package httpserver

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

const (
	maxPageLimit = 100
	maxIDLength  = 64
)

var idUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// ValidatePagination validates the raw page and limit query values. Empty values are valid
// and fall back to defaults downstream.
func ValidatePagination(page, limit string) ValidationResult {
	var errors []ValidationError

	if page != "" {
		pageNum, err := strconv.Atoi(page)
		if err != nil || pageNum < 1 {
			errors = append(errors, ValidationError{
				Field:   "page",
				Code:    "INVALID_FORMAT",
				Message: "Page must be a positive integer",
			})
		}
	}

	if limit != "" {
		limitNum, err := strconv.Atoi(limit)
		if err != nil || limitNum < 1 || limitNum > maxPageLimit {
			errors = append(errors, ValidationError{
				Field:   "limit",
				Code:    "INVALID_FORMAT",
				Message: "Limit must be between 1 and 100",
			})
		}
	}

	if len(errors) > 0 {
		return ValidationResult{Valid: false, Errors: errors}
	}
	return ValidationResult{Valid: true}
}

// SanitizeString sanitizes a string input
func SanitizeString(input string) string {
	// Remove null bytes and control characters
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)

	// Limit length to prevent DoS
	if len(input) > 1000 {
		input = input[:1000]
	}

	// Ensure valid UTF-8
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	return input
}

// SanitizeID reduces a path id to the characters a UUID can contain.
func SanitizeID(id string) string {
	id = idUnsafeChars.ReplaceAllString(SanitizeString(id), "")
	if len(id) > maxIDLength {
		id = id[:maxIDLength]
	}
	return id
}
