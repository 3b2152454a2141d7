// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value, trimming each element and dropping
// empty and repeated ones. Order is preserved; an empty input yields nil.
//
// Example:
//
//	SplitList(" a:9092, b:9092,,a:9092")
//	// Returns: []string{"a:9092", "b:9092"}
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(raw, ","))
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := strings.TrimSpace(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
