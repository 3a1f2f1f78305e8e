package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nconklindev/unitclean/internal/types"
)

func TestIsDisallowed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Empty", "", false},
		{"Letters and digits", "Unit101", false},
		{"Spaces and hyphens", "West Tower - 12", false},
		{"Tabs and newlines", "a\tb\nc", false},
		{"Information separators", "a\x1cb\x1dc\x1ed\x1fe", false},
		{"Other control character", "a\x1bb", true},
		{"Hash", "101#", true},
		{"At sign", "a@b", true},
		{"Period", "101.", true},
		{"Slash", "N/A", true},
		{"Accented letter", "café", true},
		{"Enye", "Ñoño#1", true},
		{"Underscore", "a_b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsDisallowed(tt.input)
			if got != tt.expected {
				t.Errorf("IsDisallowed(%q) = %v; want %v", tt.input, got, tt.expected)
			}
			// Pure: a second call agrees.
			assert.Equal(t, got, IsDisallowed(tt.input))
		})
	}
}

func TestFlagRows(t *testing.T) {
	table := types.NewTable(
		[]string{"Unit", "Tower", "Corporate"},
		[][]string{
			{"101", "A", "Acme"},
			{"102", "B", "Acme & Co"},
			{"103", "", ""},
			{"Ñoño#1", "C", "Beta"},
		},
	)

	flagged := FlagRows(table)

	if assert.Len(t, flagged, 2) {
		assert.Equal(t, 1, flagged[0].Index)
		assert.Equal(t, []string{"102", "B", "Acme & Co"}, flagged[0].Cells)
		assert.Equal(t, 3, flagged[1].Index)
	}
}

func TestFlagRows_CopiesCells(t *testing.T) {
	table := types.NewTable([]string{"Unit"}, [][]string{{"#1"}})

	flagged := FlagRows(table)
	flagged[0].Cells[0] = "changed"

	assert.Equal(t, "#1", table.Rows[0][0])
}

func TestFlagRows_NothingFlagged(t *testing.T) {
	table := types.NewTable([]string{"Unit"}, [][]string{{"1"}, {"2 B"}, {"3-C"}})
	assert.Empty(t, FlagRows(table))
}
