package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Download metadata for generated workbooks.
const (
	OutputFileName = "generated_qa_output.xlsx"
	XLSXMIMEType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than
	// .xlsx, .xlsm and .csv.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoSuchSheet is returned when the selected sheet does not exist.
	ErrNoSuchSheet = errors.New("no such sheet")
)

// Format is a supported file format.
type Format int

const (
	FormatXLSX Format = iota + 1
	FormatCSV
)

// FormatOf picks the format from a file name's extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Names lists the sheets in the file at path.
func Names(path string) ([]string, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		return []string{CSVSheet}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return SheetNames(f)
}

// Read loads one sheet of the file at path. The sheet name is ignored
// for CSV files other than being checked against CSVSheet.
func Read(path, name string) (*Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if format == FormatCSV {
		if name != "" && name != CSVSheet {
			return nil, fmt.Errorf("%w: %q", ErrNoSuchSheet, name)
		}
		return ReadCSV(f)
	}
	return ReadXLSX(f, name)
}

// Write saves t to path in the format its extension names.
func Write(path string, t *Table) (err error) {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if format == FormatCSV {
		return WriteCSV(f, t)
	}
	return WriteXLSX(f, t)
}
