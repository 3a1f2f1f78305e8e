package cleaner

import (
	"strings"

	"github.com/nconklindev/unitclean/internal/types"
)

// Keywords matched against lowercased headers.
const (
	unitKeyword      = "unit"
	towerKeyword     = "tower"
	corporateKeyword = "corporate"
)

// ResolveColumns picks, for each role, the first header that contains the
// role keyword case-insensitively. Header order matters.
func ResolveColumns(headers []string) types.ColumnRoles {
	return types.ColumnRoles{
		Unit:      firstContaining(headers, unitKeyword),
		Tower:     firstContaining(headers, towerKeyword),
		Corporate: firstContaining(headers, corporateKeyword),
	}
}

func firstContaining(headers []string, keyword string) string {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(h), keyword) {
			return h
		}
	}
	return ""
}
