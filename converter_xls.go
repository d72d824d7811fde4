package markitdown

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/extrame/xls"
)

// XlsConverter handles legacy XLS files.
type XlsConverter struct{}

// NewXlsConverter creates a new XlsConverter.
func NewXlsConverter() *XlsConverter {
	return &XlsConverter{}
}

func (c *XlsConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".xls"}, "application/vnd.ms-excel")
}

func (c *XlsConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	wb, err := xls.OpenReader(reader, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open XLS: %w", err)
	}

	var md strings.Builder
	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		writeSheet(&md, name, xlsRows(sheet))
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Metadata: map[string]string{"sheets": strconv.Itoa(wb.NumSheets())},
	}, nil
}

func xlsRows(sheet *xls.WorkSheet) [][]string {
	var rows [][]string
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for col := 0; col < row.LastCol(); col++ {
			cells = append(cells, row.Col(col))
		}
		rows = append(rows, cells)
	}
	return rows
}
