package types

import (
	"fmt"
	"strings"
)

// UnitColumn is the header the canonical unit label is written to.
const UnitColumn = "Unit"

// Table is a spreadsheet held entirely as strings. Every row has exactly
// len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable builds a table, padding or truncating rows to the header width.
func NewTable(headers []string, rows [][]string) *Table {
	t := &Table{Headers: append([]string(nil), headers...)}
	t.Rows = make([][]string, 0, len(rows))
	for _, row := range rows {
		t.Rows = append(t.Rows, fitRow(row, len(headers)))
	}
	return t
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row i in the named column. Unknown columns read
// as empty.
func (t *Table) Cell(i int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return ""
	}
	return t.Rows[i][idx]
}

// Row returns a name-keyed view of row i.
func (t *Table) Row(i int) map[string]string {
	row := make(map[string]string, len(t.Headers))
	for j, h := range t.Headers {
		row[h] = t.Rows[i][j]
	}
	return row
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return NewTable(t.Headers, t.Rows)
}

// FlaggedRow is a copy of a source row that contains a disallowed character,
// together with the index it had in the source table.
type FlaggedRow struct {
	Index int
	Cells []string
}

// ColumnRoles names the columns holding the unit, tower and corporate values.
// An empty name means the role is not present in the table.
type ColumnRoles struct {
	Unit      string
	Tower     string
	Corporate string
}

// Decision is the operator's answer to a review of flagged rows.
type Decision int

const (
	DecisionKeep Decision = iota
	DecisionDelete
	DecisionCancel
)

func (d Decision) String() string {
	switch d {
	case DecisionKeep:
		return "keep"
	case DecisionDelete:
		return "delete"
	case DecisionCancel:
		return "cancel"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// ParseDecision accepts keep, delete or cancel in any case.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep":
		return DecisionKeep, nil
	case "delete":
		return DecisionDelete, nil
	case "cancel":
		return DecisionCancel, nil
	}
	return 0, fmt.Errorf("unknown decision %q (want keep, delete or cancel)", s)
}

// Summary counts what happened to a table during cleaning.
type Summary struct {
	OriginalRows int `json:"original_rows"`
	FlaggedRows  int `json:"flagged_rows"`
	DeletedRows  int `json:"deleted_rows"`
	UniqueRows   int `json:"unique_rows"`
}
