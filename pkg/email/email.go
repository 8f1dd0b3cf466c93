// Package email normalizes and validates account addresses.
package email

import (
	"strings"

	"github.com/asaskevich/govalidator"
)

// Normalize trims and lower-cases an address so lookups are case-insensitive.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValid reports whether address is a plain email address of at most 255
// characters.
func IsValid(address string) bool {
	return govalidator.StringLength(address, "1", "255") && govalidator.IsEmail(address)
}
