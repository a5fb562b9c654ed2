// Package fileio reads the tender request sheet into a plain grid of cells.
package fileio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tender/internal/util"
)

// Table is the raw grid of an input sheet, header row included.
type Table struct {
	Rows [][]string
}

// InputError means the input file cannot be used for a run.
type InputError struct {
	File   string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input %s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("input %s: %s", e.File, e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

// Supported reports whether ReadTable has a parser for the file's extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xls", ".csv", ".html", ".htm":
		return true
	}
	return false
}

// ReadFile opens path and reads it with ReadTable.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, &InputError{File: filepath.Base(path), Reason: "open failed", Err: err}
	}
	defer f.Close()
	return ReadTable(f, path)
}

// ReadTable picks a parser by file extension. Fully empty rows are dropped;
// a table without rows is an InputError.
func ReadTable(r io.Reader, filename string) (Table, error) {
	var (
		rows [][]string
		err  error
	)
	name := filepath.Base(filename)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	case ".xls":
		rows, err = readXLS(r)
	case ".csv":
		rows, err = readCSV(r)
	case ".html", ".htm":
		rows, err = readHTML(r)
	default:
		return Table{}, &InputError{File: name, Reason: "unsupported file type"}
	}
	if err != nil {
		return Table{}, &InputError{File: name, Reason: "read failed", Err: err}
	}

	t := Table{Rows: compactRows(rows)}
	if len(t.Rows) == 0 {
		return Table{}, &InputError{File: name, Reason: "file is empty"}
	}
	return t, nil
}

func compactRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		empty := true
		for i, c := range row {
			cells[i] = util.NormalizeSpaces(c)
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, cells)
		}
	}
	return out
}
