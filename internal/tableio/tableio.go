package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nconklindev/unitclean/internal/types"
)

const RowDetectionLimit = 10

// Output file suffixes.
const (
	CleanedSuffix = "_cleaned"
	RemovedSuffix = "_removed"
)

// ErrEmptyFile is returned for inputs without a header row.
var ErrEmptyFile = errors.New("empty file")

// UnsupportedFormatError reports an input extension that cannot be read.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: use .csv or .xlsx", e.Ext)
}

// Options tune how inputs are read.
type Options struct {
	// DetectHeader makes the xlsx reader look for the header among the first
	// rows instead of using the first row.
	DetectHeader bool
}

// Supported reports whether path has an extension Read understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ReadFile reads a .csv or .xlsx file into a Table.
func ReadFile(path string, opts Options) (*types.Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, &UnsupportedFormatError{Ext: ext}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, ext, opts)
}

// Read reads a table from r, using ext (".csv" or ".xlsx") to pick the format.
func Read(r io.Reader, ext string, opts Options) (*types.Table, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r, opts)
	default:
		return nil, &UnsupportedFormatError{Ext: ext}
	}
}

func readCSV(r io.Reader) (*types.Table, error) {
	// Spreadsheet exports often start with a UTF-8 BOM.
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	return types.NewTable(records[0], records[1:]), nil
}

func readXLSX(r io.Reader, opts Options) (*types.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	headerRowIdx := 0
	if opts.DetectHeader {
		headerRowIdx = findHeaderRow(rows)
		if headerRowIdx == -1 {
			return nil, fmt.Errorf("could not find header row")
		}
	}

	return types.NewTable(rows[headerRowIdx], rows[headerRowIdx+1:]), nil
}

// findHeaderRow locates the first row that appears to be a header
// by finding the row with the most non-empty text cells
func findHeaderRow(rows [][]string) int {
	maxNonEmpty := 0
	headerIdx := -1

	// Look at first 20 rows max
	searchLimit := len(rows)
	if searchLimit > RowDetectionLimit*2 {
		searchLimit = RowDetectionLimit * 2
	}

	for i := 0; i < searchLimit; i++ {
		nonEmptyCount := 0
		hasText := false

		for _, cell := range rows[i] {
			trimmed := strings.TrimSpace(cell)
			if trimmed != "" {
				nonEmptyCount++
				if containsLetters(trimmed) {
					hasText = true
				}
			}
		}

		// Header should have multiple columns AND contain text
		if nonEmptyCount >= 2 && hasText && nonEmptyCount > maxNonEmpty {
			maxNonEmpty = nonEmptyCount
			headerIdx = i
		}
	}

	return headerIdx
}

// containsLetters checks if a string contains any alphabetic characters
func containsLetters(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// WriteCSV writes the header row and all rows, quoting fields only when needed.
func WriteCSV(w io.Writer, t *types.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Headers); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteFile writes t as CSV to path.
func WriteFile(path string, t *types.Table) error {
	outFile, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteCSV(outFile, t); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}

// OutputPath derives "<stem><suffix>.csv" for input. When dir is empty the
// file sits next to the input.
func OutputPath(input, dir, suffix string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+suffix+".csv")
}
