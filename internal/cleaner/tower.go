package cleaner

import "strings"

// NormalizeTower trims a tower value and maps null-like values to "".
func NormalizeTower(raw string) string {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "n/a", "na":
		return ""
	}
	return trimmed
}

// nullTokens are replaced with "" across the finished table. Matching is
// exact, so "NA" or " n/a " survive.
var nullTokens = map[string]bool{
	"N/A": true,
	"n/a": true,
	"na":  true,
}
