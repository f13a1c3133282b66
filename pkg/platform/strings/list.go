// Package strings cleans comma-separated configuration values.
package strings

import (
	"strings"
)

// CleanList trims every entry, drops blanks and keeps the first occurrence
// of each value. A list that ends up empty is returned as nil.
//
//	CleanList([]string{" kafka-1:9092", "kafka-2:9092 ", "", "kafka-1:9092"})
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func CleanList(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
