package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a supported tabular file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Row is one data row keyed by normalised column header. Index is the
// 1-based position of the row within the file's data section, used for
// error attribution in import reports.
type Row struct {
	Index  int
	Values map[string]string
}

// Get returns the trimmed value for a header, or "" when absent.
func (r Row) Get(header string) string {
	return strings.TrimSpace(r.Values[header])
}

// Parse decodes raw file bytes into ordered rows. The first non-empty line
// is treated as the header row. Headers are lowercased with spaces collapsed
// to underscores so "First Name" and "first_name" address the same column.
func Parse(data []byte, format Format) ([]Row, error) {
	switch format {
	case FormatCSV:
		return parseCSV(data)
	case FormatXLSX:
		return parseXLSX(data)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func parseCSV(data []byte) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, record)
	}

	return buildRows(records), nil
}

func parseXLSX(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet: %w", err)
	}

	return buildRows(records), nil
}

func buildRows(records [][]string) []Row {
	var headers []string
	var rows []Row

	for _, record := range records {
		if isEmptyRecord(record) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(record))
			for i, h := range record {
				headers[i] = normaliseHeader(h)
			}
			continue
		}

		values := make(map[string]string, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				values[header] = record[i]
			}
		}
		rows = append(rows, Row{Index: len(rows) + 1, Values: values})
	}

	return rows
}

func normaliseHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
