// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package markitdown

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XlsxConverter handles XLSX files, one markdown table per sheet.
type XlsxConverter struct{}

// NewXlsxConverter creates a new XlsxConverter.
func NewXlsxConverter() *XlsxConverter {
	return &XlsxConverter{}
}

func (c *XlsxConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".xlsx", ".xlsm"},
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel.sheet.macroenabled",
	)
}

func (c *XlsxConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var md strings.Builder
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		writeSheet(&md, sheet, rows)
	}

	meta := map[string]string{"sheets": strconv.Itoa(len(sheets))}
	var title string
	if props, err := f.GetDocProps(); err == nil && props != nil {
		title = props.Title
		if props.Creator != "" {
			meta["author"] = props.Creator
		}
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Title:    title,
		Metadata: meta,
	}, nil
}

// writeSheet appends a heading and table for one worksheet. Empty sheets
// are skipped.
func writeSheet(md *strings.Builder, name string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(md, "## %s\n\n", name)
	md.WriteString(renderMarkdownTable(rows))
	md.WriteString("\n")
}
