// Package cedula shape-checks national identity numbers before they are tokenized.
package cedula

import (
	"fmt"
	"strings"
)

const (
	CodeRequired   = "CEDULA_REQUIRED"
	CodeDigitsOnly = "CEDULA_DIGITS_ONLY"
	CodeLength     = "CEDULA_LENGTH"
)

// Error carries a stable code next to the human readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type Policy struct {
	Min int
	Max int
}

// Validate trims raw and checks it is a digit string within the policy bounds.
// It returns the normalized value.
func (p Policy) Validate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &Error{Code: CodeRequired, Message: "'cedula' is required and must be a non-empty string"}
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", &Error{Code: CodeDigitsOnly, Message: "'cedula' must contain only digits (0-9)"}
		}
	}
	if len(trimmed) < p.Min || len(trimmed) > p.Max {
		return "", &Error{
			Code:    CodeLength,
			Message: fmt.Sprintf("'cedula' must be between %d and %d digits (got %d)", p.Min, p.Max, len(trimmed)),
		}
	}
	return trimmed, nil
}

// Masked describes a cédula without carrying it. Last2 stays empty for
// values too short to hide anything.
type Masked struct {
	Length  int          `json:"length"`
	Last2   string       `json:"last2"`
	Charset string       `json:"charset"`
	Policy  MaskedPolicy `json:"policy"`
}

type MaskedPolicy struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Strategy string `json:"strategy"`
}

// Mask reduces raw to its length, last two characters and charset.
func (p Policy) Mask(raw string) Masked {
	runes := []rune(strings.TrimSpace(raw))
	m := Masked{
		Length:  len(runes),
		Charset: "digits",
		Policy:  MaskedPolicy{Min: p.Min, Max: p.Max, Strategy: "token"},
	}
	for _, r := range runes {
		if r < '0' || r > '9' {
			m.Charset = "mixed"
			break
		}
	}
	if len(runes) > 2 {
		m.Last2 = string(runes[len(runes)-2:])
	}
	return m
}
