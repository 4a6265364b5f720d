package export

import (
	"fmt"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Select returns a copy of the dataset restricted to the given headers, in that order.
func (d Dataset) Select(headers ...string) Dataset {
	if len(headers) == 0 {
		return d
	}
	return Dataset{Headers: headers, Rows: d.Rows}
}

// CSVExporter renders Dataset records into CSV bytes.
// Every cell is quoted, rows are separated by a bare newline and the output has no trailing newline.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	var b strings.Builder
	writeCSVRow(&b, data.Headers)
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		b.WriteByte('\n')
		writeCSVRow(&b, record)
	}
	return []byte(b.String()), nil
}

func writeCSVRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(QuoteCell(cell))
	}
}

// QuoteCell wraps a value in double quotes, doubling embedded quotes.
func QuoteCell(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
