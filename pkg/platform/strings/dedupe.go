// Package strings provides list helpers for configuration values.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value into trimmed, non-empty,
// de-duplicated entries. Order is preserved.
//
// Example:
//
//	SplitList(" k1:9092,k2:9092,, k1:9092 ")
//	// Returns: []string{"k1:9092", "k2:9092"}
func SplitList(raw string) []string {
	return Dedupe(strings.Split(raw, ","), strings.TrimSpace)
}

// Dedupe normalizes every value and keeps the first occurrence of each
// non-empty result. A nil normalize keeps values as they are.
func Dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		if normalize != nil {
			v = normalize(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
