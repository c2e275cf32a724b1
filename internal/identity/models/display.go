package models

import (
	"strings"
	"unicode"
)

// DisplayName derives a greeting name from the local part of an email:
// "ada.lovelace@example.com" becomes "Ada". Unusable input yields "Customer".
func DisplayName(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Customer"
	}
	runes := []rune(parts[0])
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
