package service

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength bounds seller names, in runes.
const MaxNameLength = 100

// normalizeName trims surrounding whitespace and converts to NFC so that
// a name typed with combining accents matches its precomposed form.
func normalizeName(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

func validateName(name string) error {
	if name == "" {
		return &ValidationError{Reason: ReasonEmptyName, Detail: "seller name is empty"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{Reason: ReasonNameTooLong, Detail: "seller name is too long"}
	}
	return nil
}

// NewCustomerID returns a customer identifier made of a time-ordered
// prefix and a random suffix (UUIDv7).
func NewCustomerID() string {
	return "client-" + uuid.Must(uuid.NewV7()).String()
}
