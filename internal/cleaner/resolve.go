package cleaner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nconklindev/unitclean/internal/types"
)

// ResolveDuplicates computes the canonical Unit label for every row, drops
// rows whose label was already seen and blanks null-like tokens outside the
// Unit column. The input table is not modified.
func ResolveDuplicates(t *types.Table, roles types.ColumnRoles) (*types.Table, error) {
	unitIdx := t.ColumnIndex(roles.Unit)
	if roles.Unit == "" || unitIdx < 0 {
		return nil, &MissingColumnError{Column: types.UnitColumn}
	}
	towerIdx := columnOrMissing(t, roles.Tower)
	corpIdx := columnOrMissing(t, roles.Corporate)

	cleanUnits := make([]string, t.Len())
	groups := make(map[string][]int)
	for i, row := range t.Rows {
		u := strings.TrimSpace(row[unitIdx])
		cleanUnits[i] = u
		groups[u] = append(groups[u], i)
	}

	// Distinct towers are only needed for duplicate groups.
	distinctTowers := make(map[string]int)
	for u, members := range groups {
		if len(members) < 2 {
			continue
		}
		seen := make(map[string]bool)
		for _, i := range members {
			if tower := cellAt(t.Rows[i], towerIdx, NormalizeTower); tower != "" {
				seen[tower] = true
			}
		}
		distinctTowers[u] = len(seen)
	}

	labels := make([]string, t.Len())
	for i, row := range t.Rows {
		u := cleanUnits[i]
		if len(groups[u]) < 2 {
			labels[i] = u
			continue
		}
		tower := cellAt(row, towerIdx, NormalizeTower)
		corp := cellAt(row, corpIdx, strings.TrimSpace)
		labels[i] = composeLabel(u, tower, corp, distinctTowers[u])
	}

	return buildOutput(t, labels), nil
}

// composeLabel picks the label for a row in a duplicate group. Tower always
// wins over corporate; corporate is only ever a third segment.
func composeLabel(unit, tower, corp string, distinctTowers int) string {
	switch {
	case tower != "" && distinctTowers > 1:
		return fmt.Sprintf("%s - %s", tower, unit)
	case tower != "" && corp != "":
		return fmt.Sprintf("%s - %s - %s", tower, unit, corp)
	case tower != "":
		return fmt.Sprintf("%s - %s", tower, unit)
	}
	return unit
}

func buildOutput(t *types.Table, labels []string) *types.Table {
	headers := append([]string(nil), t.Headers...)
	outIdx := t.ColumnIndex(types.UnitColumn)
	if outIdx < 0 {
		headers = append(headers, types.UnitColumn)
		outIdx = len(headers) - 1
	}

	byLabel := make(map[string]bool, len(labels))
	byContent := make(map[string]bool, len(labels))
	rows := make([][]string, 0, len(labels))
	for i, src := range t.Rows {
		if byLabel[labels[i]] {
			continue
		}
		byLabel[labels[i]] = true

		row := make([]string, len(headers))
		copy(row, src)
		row[outIdx] = labels[i]

		key := rowKey(row)
		if byContent[key] {
			continue
		}
		byContent[key] = true
		rows = append(rows, row)
	}

	for _, row := range rows {
		for j, cell := range row {
			if j != outIdx && nullTokens[cell] {
				row[j] = ""
			}
		}
	}

	return &types.Table{Headers: headers, Rows: rows}
}

func columnOrMissing(t *types.Table, name string) int {
	if name == "" {
		return -1
	}
	return t.ColumnIndex(name)
}

func cellAt(row []string, idx int, clean func(string) string) string {
	if idx < 0 {
		return ""
	}
	return clean(row[idx])
}

// rowKey encodes row so that two rows share a key only when every cell is
// equal. Each cell is length-prefixed, so no cell content can act as a
// separator.
func rowKey(row []string) string {
	var b strings.Builder
	for _, cell := range row {
		b.WriteString(strconv.Itoa(len(cell)))
		b.WriteByte(':')
		b.WriteString(cell)
	}
	return b.String()
}
