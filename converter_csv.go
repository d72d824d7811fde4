package markitdown

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CsvConverter handles CSV files.
type CsvConverter struct{}

// NewCsvConverter creates a new CsvConverter.
func NewCsvConverter() *CsvConverter {
	return &CsvConverter{}
}

func (c *CsvConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".csv"}, "text/csv", "application/csv")
}

func (c *CsvConverter) Convert(_ context.Context, reader io.ReadSeeker, info StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	r := csv.NewReader(strings.NewReader(decodeText(data, info.Charset)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}

	return &DocumentConverterResult{
		Markdown: renderMarkdownTable(records),
	}, nil
}

// renderMarkdownTable renders rows as a markdown table with the first row
// as header. Short rows are padded to the widest row.
func renderMarkdownTable(records [][]string) string {
	if len(records) == 0 {
		return ""
	}

	numCols := 0
	for _, row := range records {
		numCols = max(numCols, len(row))
	}
	if numCols == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := range numCols {
			cell := ""
			if i < len(row) {
				cell = tableCell(row[i])
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(records[0])
	b.WriteString("|")
	b.WriteString(strings.Repeat(" --- |", numCols))
	b.WriteString("\n")
	for _, row := range records[1:] {
		writeRow(row)
	}
	return b.String()
}

var tableCellReplacer = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func tableCell(s string) string {
	return tableCellReplacer.Replace(strings.TrimSpace(s))
}
