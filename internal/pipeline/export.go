package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tender/internal"
)

const (
	DataSheet   = "Data"
	ErrorsSheet = "Errors"
)

// ExportError is a failure to write the report file.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ExportReportToXLSX writes offers to the "Data" sheet and unmatched requests
// to "Errors". Both sheets always carry their header row.
func ExportReportToXLSX(report internal.Report, outputPath string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), DataSheet); err != nil {
		return &ExportError{Path: outputPath, Err: err}
	}
	if _, err := f.NewSheet(ErrorsSheet); err != nil {
		return &ExportError{Path: outputPath, Err: err}
	}

	data := make([][]any, 0, len(report.Offers))
	for _, row := range report.Offers {
		data = append(data, OfferRecord(row))
	}
	if err := writeSheet(f, DataSheet, OfferHeaders, data); err != nil {
		return &ExportError{Path: outputPath, Err: err}
	}

	errs := make([][]any, 0, len(report.Unmatched))
	for _, u := range report.Unmatched {
		errs = append(errs, UnmatchedRecord(u))
	}
	if err := writeSheet(f, ErrorsSheet, UnmatchedHeaders, errs); err != nil {
		return &ExportError{Path: outputPath, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &ExportError{Path: outputPath, Err: err}
	}
	if err := f.SaveAs(outputPath); err != nil {
		return &ExportError{Path: outputPath, Err: err}
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
