// Package validation provides input validation helpers for the Guardian API.
package validation

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

var (
	// idRegex validates prefixed resource IDs (e.g. chd_a1b2c3)
	idRegex = regexp.MustCompile(`^[a-z]{2,4}_[a-f0-9]{8,}$`)
	// emailRegex is a pragmatic email shape check, not RFC 5322
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Categories recognized for screen-time logs. Unknown values fall back to "other".
var Categories = []string{"social_media", "games", "education", "entertainment", "productivity", "other"}

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidID checks if a string is a well-formed prefixed resource ID
func IsValidID(id string) bool {
	return idRegex.MatchString(id)
}

// IsValidEmail checks if a string looks like an email address
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsKnownCategory reports whether the category is one of the recognized values.
func IsKnownCategory(c string) bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// NormalizeCategory lowercases and maps unknown categories to "other".
func NormalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" || !IsKnownCategory(c) {
		return "other"
	}
	return c
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// IntRange checks that an integer field falls within [min, max].
func IntRange(field string, value, min, max int) func() *ValidationError {
	return func() *ValidationError {
		if value < min || value > max {
			return &ValidationError{Field: field, Message: "is out of range"}
		}
		return nil
	}
}

// PositiveInt checks that an integer field is at least 1.
func PositiveInt(field string, value int) func() *ValidationError {
	return func() *ValidationError {
		if value < 1 {
			return &ValidationError{Field: field, Message: "must be greater than zero"}
		}
		return nil
	}
}

// ValidHour checks that a value is a valid hour of day (0-23).
func ValidHour(field string, value int) func() *ValidationError {
	return IntRange(field, value, 0, 23)
}

// ValidDate checks that a value parses as YYYY-MM-DD. Empty is allowed;
// use Required for required fields.
func ValidDate(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if _, err := time.Parse(DateFormat, value); err != nil {
			return &ValidationError{Field: field, Message: "must be a valid date (YYYY-MM-DD)"}
		}
		return nil
	}
}

// ValidEmail checks that a value looks like an email address.
func ValidEmail(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidEmail(value) {
			return &ValidationError{Field: field, Message: "must be a valid email address"}
		}
		return nil
	}
}

// IDParamMiddleware validates the named URL parameter as a resource ID on
// routes that use it. Rejects malformed IDs before handlers run.
func IDParamMiddleware(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(param)
		if id != "" && !IsValidID(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_id",
				"message": param + " must be a valid resource ID",
			})
			return
		}
		c.Next()
	}
}
