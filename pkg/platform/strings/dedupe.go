// Package strings provides string slice helpers shared by the registry
// normalizers.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice, trimming
// whitespace from each element. Registry payloads repeat values across
// sections (PKD codes appear per establishment), so declaration order of the
// first occurrence is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{" 62.01.Z ", "62.01.Z", "", "47.91.Z"})
//	// Returns: []string{"62.01.Z", "47.91.Z"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// DedupeAndTrimLower is like DedupeAndTrim but also lowercases each element,
// for values compared case-insensitively such as email addresses.
//
// Example:
//
//	DedupeAndTrimLower([]string{" Biuro@alfa.pl ", "biuro@alfa.pl"})
//	// Returns: []string{"biuro@alfa.pl"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
