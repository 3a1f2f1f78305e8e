package cleaner

import (
	"unicode"

	"github.com/nconklindev/unitclean/internal/types"
)

// IsDisallowed reports whether s contains a character other than an ASCII
// letter, an ASCII digit, a hyphen or whitespace.
func IsDisallowed(s string) bool {
	for _, r := range s {
		if !isAllowedRune(r) {
			return true
		}
	}
	return false
}

func isAllowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-':
		return true
	case r >= '\x1c' && r <= '\x1f':
		// ASCII information separators count as whitespace.
		return true
	}
	return unicode.IsSpace(r)
}

// FlagRows returns every row holding at least one disallowed cell, in order.
func FlagRows(t *types.Table) []types.FlaggedRow {
	var flagged []types.FlaggedRow
	for i, row := range t.Rows {
		for _, cell := range row {
			if IsDisallowed(cell) {
				flagged = append(flagged, types.FlaggedRow{
					Index: i,
					Cells: append([]string(nil), row...),
				})
				break
			}
		}
	}
	return flagged
}
