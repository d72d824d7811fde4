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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// IpynbConverter handles Jupyter notebook files.
type IpynbConverter struct{}

// NewIpynbConverter creates a new IpynbConverter.
func NewIpynbConverter() *IpynbConverter {
	return &IpynbConverter{}
}

// Accepts matches on the extension even when the content sniffs as JSON,
// since a notebook is a JSON document.
func (c *IpynbConverter) Accepts(info StreamInfo) bool {
	if strings.EqualFold(info.Extension, ".ipynb") {
		return true
	}
	return strings.HasPrefix(info.MIMEType, "application/x-ipynb")
}

type notebook struct {
	Metadata struct {
		Title      string `json:"title"`
		KernelSpec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	} `json:"metadata"`
	NBFormat int            `json:"nbformat"`
	Cells    []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
	Outputs  []struct {
		Text json.RawMessage            `json:"text"`
		Data map[string]json.RawMessage `json:"data"`
	} `json:"outputs"`
}

func (c *IpynbConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	var nb notebook
	if err := json.NewDecoder(reader).Decode(&nb); err != nil {
		return nil, fmt.Errorf("parse notebook JSON: %w", err)
	}

	language := nb.Metadata.KernelSpec.Language
	if language == "" {
		language = nb.Metadata.LanguageInfo.Name
	}
	if language == "" {
		language = "python"
	}

	title := nb.Metadata.Title
	var sections []string
	for _, cell := range nb.Cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		source := notebookText(cell.Source)

		switch cell.CellType {
		case "markdown":
			sections = append(sections, source)
			if title == "" {
				title = firstHeading(source)
			}
		case "code":
			if strings.TrimSpace(source) != "" {
				sections = append(sections, fmt.Sprintf("```%s\n%s\n```", language, source))
			}
			for _, out := range cell.Outputs {
				text := notebookText(out.Text)
				if text == "" {
					text = notebookText(out.Data["text/plain"])
				}
				if text = strings.TrimRight(text, "\n"); text != "" {
					sections = append(sections, fmt.Sprintf("```\n%s\n```", text))
				}
			}
		case "raw":
			if strings.TrimSpace(source) != "" {
				sections = append(sections, fmt.Sprintf("```\n%s\n```", source))
			}
		}
	}

	return &DocumentConverterResult{
		Markdown: strings.Join(sections, "\n\n"),
		Title:    title,
		Metadata: map[string]string{
			"language": language,
			"cells":    strconv.Itoa(len(nb.Cells)),
		},
	}, nil
}

// notebookText decodes a notebook string field, which is either a string
// or a list of lines.
func notebookText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "")
	}
	return ""
}

func firstHeading(md string) string {
	for line := range strings.SplitSeq(md, "\n") {
		if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(h)
		}
	}
	return ""
}
