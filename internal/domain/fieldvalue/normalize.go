// Package fieldvalue canonicalises raw values submitted for single fields.
package fieldvalue

import (
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
)

// DateLayout is the storage form of dates.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidEmail  = errors.New("email address is not valid")
	ErrInvalidBool   = errors.New("value must be yes or no")
	ErrInvalidChoice = errors.New("value is not an allowed choice")
	ErrTooLong       = errors.New("value is too long")
	ErrRequired      = errors.New("value cannot be empty")
)

// Text trims surrounding whitespace and enforces maxLen (in bytes, 0 for none).
func Text(raw string, maxLen int, required bool) (string, error) {
	v := strings.TrimSpace(raw)
	if required && v == "" {
		return "", ErrRequired
	}
	if maxLen > 0 && len(v) > maxLen {
		return "", fmt.Errorf("%w (max %d characters)", ErrTooLong, maxLen)
	}
	return v, nil
}

// Email trims and lower-cases an address. An empty value is allowed unless required.
func Email(raw string, required bool) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		if required {
			return "", ErrRequired
		}
		return "", nil
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return "", ErrInvalidEmail
	}
	return v, nil
}

// Date accepts YYYY-MM-DD, DD/MM/YYYY or an ISO timestamp and returns YYYY-MM-DD.
// An empty value is allowed unless required.
func Date(raw string, required bool) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		if required {
			return "", ErrRequired
		}
		return "", nil
	}
	for _, layout := range []string{DateLayout, "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	if len(v) > 10 && (v[10] == ' ' || v[10] == 'T') {
		if t, err := time.Parse(DateLayout, v[:10]); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", ErrInvalidDate
}

// Bool maps the accepted spellings of yes/no to "1"/"0".
func Bool(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "oui":
		return "1", nil
	case "0", "false", "no", "off", "non", "":
		return "0", nil
	}
	return "", ErrInvalidBool
}

// Choice checks raw against allowed after trimming.
func Choice(raw string, allowed ...string) (string, error) {
	v := strings.TrimSpace(raw)
	if !slices.Contains(allowed, v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, v)
	}
	return v, nil
}

// FormatBool is the storage form of b.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
