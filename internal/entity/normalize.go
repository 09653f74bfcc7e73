package entity

import (
	"fmt"
	"strings"
)

// NormalizeIdentifier canonicalizes an identifier value before storage or
// comparison: whitespace and dashes stripped, KRS zero-padded to 10 digits,
// digit counts validated for the structured types.
func NormalizeIdentifier(typ IdentifierType, value string) (string, error) {
	v := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(value))
	if v == "" {
		return "", fmt.Errorf("empty %s value", typ)
	}

	switch typ {
	case IdentifierKRS:
		if !allDigits(v) {
			return "", fmt.Errorf("invalid KRS %q: must be numeric", value)
		}
		if len(v) > 10 {
			return "", fmt.Errorf("invalid KRS %q: too long", value)
		}
		return strings.Repeat("0", 10-len(v)) + v, nil
	case IdentifierNIP:
		if !allDigits(v) || len(v) != 10 {
			return "", fmt.Errorf("invalid NIP %q: must be 10 digits", value)
		}
	case IdentifierREGON:
		if !allDigits(v) || (len(v) != 9 && len(v) != 14) {
			return "", fmt.Errorf("invalid REGON %q: must be 9 or 14 digits", value)
		}
	case IdentifierPESEL:
		if !allDigits(v) || len(v) != 11 {
			return "", fmt.Errorf("invalid PESEL %q: must be 11 digits", value)
		}
	}
	return v, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
