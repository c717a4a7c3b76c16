// Package spreadsheet reads uploaded .xlsx, .xls and .csv files and turns
// their rows into performance and student records.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const maxXLSRows = 100000

// Supported extensions, lower case.
var supportedExt = map[string]bool{".xlsx": true, ".xls": true, ".csv": true} //nolint:gochecknoglobals // lookup table

// Supported reports whether filename has an extension ReadRows understands.
func Supported(filename string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(filename))]
}

// ReadRows returns every row of the first worksheet (or of the CSV file).
// The first row is the header. Trailing blank rows are dropped.
func ReadRows(filename string, data []byte) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readXLSX(data)
	case ".xls":
		rows, err = readXLS(data)
	case ".csv":
		rows, err = readCSV(data)
	default:
		return nil, newError(ErrUnsupportedFormat, MsgUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	return trimBlankRows(rows), nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, newError(ErrEmpty, MsgEmptyWorkbook)
	}
	// Raw values keep numbers free of display formatting; dates come
	// back as serial numbers and are handled by NormalizeDate.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// The BIFF reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("read xls: %v", r)
		}
	}()
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, newError(ErrEmpty, MsgEmptyWorkbook)
	}
	if wb.NumSheets() > 1 {
		return nil, newError(ErrUnsupportedFormat, MsgMultipleSheets)
	}
	return wb.ReadAllCells(maxXLSRows), nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func trimBlankRows(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && blank(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cellValue returns the trimmed cell at idx, or "" when the row is short.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
