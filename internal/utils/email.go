package utils

import "net/mail"

// ValidEmail reports whether email is a bare RFC 5322 address such as
// "ann@example.com". Display-name forms like "Ann <ann@example.com>" are
// rejected.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
