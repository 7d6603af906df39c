package drive

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	colDate          = "date"
	colCylinderType  = "cylinder_type"
	colReceivedFulls = "received_fulls"
	colSentFulls     = "sent_fulls"
	colSentEmpties   = "sent_empties"
	colReference     = "reference"
)

var requiredColumns = []string{colDate, colCylinderType, colReceivedFulls, colSentFulls, colSentEmpties}

// Challans arrive in ISO form or typed by hand in day-first form.
var dateLayouts = []string{
	domain.DateLayout,
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02-Jan-2006",
	"2 Jan 2006",
}

// ExchangeRow is one parsed line of a corporation exchange sheet.
type ExchangeRow struct {
	Line          int
	Date          time.Time
	CylinderType  string
	ReceivedFulls int
	SentFulls     int
	SentEmpties   int
	Reference     string
}

// RowError describes a sheet line that was skipped.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// IsSheet reports whether name has an extension the ingest can read.
func IsSheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ReadRecords returns the rows of a CSV file or of the first sheet of an
// XLSX workbook, header included.
func ReadRecords(name string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported sheet %q: %w", name, domain.ErrInvalidInput)
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets: %w", domain.ErrInvalidInput)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from sheet %s: %w", sheets[0], err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in sheet %s: %w", sheets[0], err)
	}

	return records, nil
}

func normalizeHeader(col string) string {
	col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
	return strings.Join(strings.Fields(col), "_")
}

// ParseExchangeRows maps the header row and converts every data line.
// Blank lines are ignored; malformed lines are returned as RowErrors.
func ParseExchangeRows(records [][]string) ([]ExchangeRow, []RowError, error) {
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("sheet is empty: %w", domain.ErrInvalidInput)
	}

	colMap := make(map[string]int)
	for i, col := range records[0] {
		colMap[normalizeHeader(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			return nil, nil, fmt.Errorf("missing required column %s: %w", col, domain.ErrInvalidInput)
		}
	}

	var rows []ExchangeRow
	var skipped []RowError
	for i, record := range records[1:] {
		line := i + 2
		if isBlank(record) {
			continue
		}

		row, err := parseExchangeRow(record, colMap)
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Reason: err.Error()})
			continue
		}
		row.Line = line
		rows = append(rows, row)
	}

	return rows, skipped, nil
}

func parseExchangeRow(record []string, colMap map[string]int) (ExchangeRow, error) {
	getValue := func(col string) string {
		if idx, ok := colMap[col]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	var row ExchangeRow
	var err error

	if row.Date, err = parseSheetDate(getValue(colDate)); err != nil {
		return row, err
	}
	if row.CylinderType = getValue(colCylinderType); row.CylinderType == "" {
		return row, fmt.Errorf("cylinder_type is empty")
	}
	if row.ReceivedFulls, err = parseQuantity(colReceivedFulls, getValue(colReceivedFulls)); err != nil {
		return row, err
	}
	if row.SentFulls, err = parseQuantity(colSentFulls, getValue(colSentFulls)); err != nil {
		return row, err
	}
	if row.SentEmpties, err = parseQuantity(colSentEmpties, getValue(colSentEmpties)); err != nil {
		return row, err
	}
	row.Reference = getValue(colReference)

	return row, nil
}

func parseSheetDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	// Unformatted workbook cells carry the excel serial day number.
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// parseQuantity accepts "12" and "12.0"; empty cells count as zero.
func parseQuantity(col, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", col, value)
	}
	if f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("%s must be a whole non-negative number, got %q", col, value)
	}
	return int(f), nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
