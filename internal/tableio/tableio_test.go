package tableio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/unitclean/internal/types"
)

func writeXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantHeaders []string
		wantRows    [][]string
	}{
		{
			name:        "Plain",
			input:       "Unit,Tower\n101,A\n102,B\n",
			wantHeaders: []string{"Unit", "Tower"},
			wantRows:    [][]string{{"101", "A"}, {"102", "B"}},
		},
		{
			name:        "Byte order mark",
			input:       "\ufeffUnit,Tower\n101,A\n",
			wantHeaders: []string{"Unit", "Tower"},
			wantRows:    [][]string{{"101", "A"}},
		},
		{
			name:        "Ragged rows are fitted",
			input:       "Unit,Tower,Corporate\n101\n102,B,X,extra\n",
			wantHeaders: []string{"Unit", "Tower", "Corporate"},
			wantRows:    [][]string{{"101", "", ""}, {"102", "B", "X"}},
		},
		{
			name:        "Values stay strings",
			input:       "Unit,Tower\n007,N/A\n",
			wantHeaders: []string{"Unit", "Tower"},
			wantRows:    [][]string{{"007", "N/A"}},
		},
		{
			name:        "Header only",
			input:       "Unit,Tower\n",
			wantHeaders: []string{"Unit", "Tower"},
			wantRows:    [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Read(strings.NewReader(tt.input), ".csv", Options{})
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			assertTable(t, table, tt.wantHeaders, tt.wantRows)
		})
	}
}

func TestRead_Errors(t *testing.T) {
	if _, err := Read(strings.NewReader(""), ".csv", Options{}); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty csv: got %v; want ErrEmptyFile", err)
	}

	_, err := Read(strings.NewReader("a"), ".txt", Options{})
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("got %v; want UnsupportedFormatError", err)
	}
	if unsupported.Ext != ".txt" {
		t.Errorf("Ext = %q; want .txt", unsupported.Ext)
	}
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.xls")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := ReadFile(path, Options{})
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) || unsupported.Ext != ".xls" {
		t.Fatalf("got %v; want UnsupportedFormatError for .xls", err)
	}
}

func TestReadFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.xlsx")
	writeXLSX(t, path, [][]string{
		{"Unit", "Tower", "Corporate"},
		{"101", "A", "X"},
		{"102"},
	})

	table, err := ReadFile(path, Options{})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	assertTable(t, table,
		[]string{"Unit", "Tower", "Corporate"},
		[][]string{{"101", "A", "X"}, {"102", "", ""}},
	)
}

func TestReadFile_XLSXDetectHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	writeXLSX(t, path, [][]string{
		{"Inventory export"},
		{},
		{"Unit", "Tower"},
		{"101", "A"},
	})

	table, err := ReadFile(path, Options{DetectHeader: true})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	assertTable(t, table, []string{"Unit", "Tower"}, [][]string{{"101", "A"}})

	table, err = ReadFile(path, Options{})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if table.Headers[0] != "Inventory export" {
		t.Errorf("without detection the first row is the header, got %v", table.Headers)
	}
}

func TestRead_CSVIgnoresDetectHeader(t *testing.T) {
	table, err := Read(strings.NewReader("Inventory export\nUnit,Tower\n101,A\n"), ".csv", Options{DetectHeader: true})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Headers[0] != "Inventory export" {
		t.Errorf("csv header should be the first row, got %v", table.Headers)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d; want 2", table.Len())
	}
}

func TestWriteCSV(t *testing.T) {
	table := types.NewTable(
		[]string{"Unit", "Corporate"},
		[][]string{
			{"A - 101", "Acme, Inc"},
			{"102", `Say "hi"`},
			{"Ñoño", ""},
		},
	)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := "Unit,Corporate\nA - 101,\"Acme, Inc\"\n102,\"Say \"\"hi\"\"\"\nÑoño,\n"
	if buf.String() != want {
		t.Errorf("WriteCSV output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	table := types.NewTable([]string{"Unit", "Tower"}, [][]string{{"A - 1", "A"}, {"2", ""}})

	if err := WriteFile(path, table); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadFile(path, Options{})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	assertTable(t, got, table.Headers, table.Rows)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		dir      string
		suffix   string
		expected string
	}{
		{"Next to input", filepath.Join("data", "units.xlsx"), "", CleanedSuffix, filepath.Join("data", "units_cleaned.csv")},
		{"Output dir", filepath.Join("data", "units.csv"), "out", CleanedSuffix, filepath.Join("out", "units_cleaned.csv")},
		{"Removed rows", "units.csv", "", RemovedSuffix, "units_removed.csv"},
		{"Dotted stem", "north.tower.csv", "", CleanedSuffix, "north.tower_cleaned.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutputPath(tt.input, tt.dir, tt.suffix)
			if got != tt.expected {
				t.Errorf("OutputPath(%q, %q, %q) = %q; want %q", tt.input, tt.dir, tt.suffix, got, tt.expected)
			}
		})
	}
}

func TestFindHeaderRow(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		expected int
	}{
		{"First row", [][]string{{"Unit", "Tower"}, {"1", "A"}}, 0},
		{"After title", [][]string{{"Title"}, {"Unit", "Tower", "Corp"}, {"1", "A", "X"}}, 1},
		{"Numbers only", [][]string{{"1", "2"}, {"3", "4"}}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findHeaderRow(tt.rows); got != tt.expected {
				t.Errorf("findHeaderRow() = %d; want %d", got, tt.expected)
			}
		})
	}
}

func assertTable(t *testing.T, table *types.Table, headers []string, rows [][]string) {
	t.Helper()

	if strings.Join(table.Headers, "|") != strings.Join(headers, "|") {
		t.Errorf("headers = %v; want %v", table.Headers, headers)
	}
	if len(table.Rows) != len(rows) {
		t.Fatalf("got %d rows; want %d", len(table.Rows), len(rows))
	}
	for i := range rows {
		if strings.Join(table.Rows[i], "|") != strings.Join(rows[i], "|") {
			t.Errorf("row %d = %v; want %v", i, table.Rows[i], rows[i])
		}
	}
}
