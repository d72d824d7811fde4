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
)

var plainTextExtensions = []string{".txt", ".text", ".md", ".markdown", ".json", ".jsonl", ".log"}

// PlainTextConverter handles plain text, markdown, JSON, and JSONL files.
type PlainTextConverter struct{}

// NewPlainTextConverter creates a new PlainTextConverter.
func NewPlainTextConverter() *PlainTextConverter {
	return &PlainTextConverter{}
}

func (c *PlainTextConverter) Accepts(info StreamInfo) bool {
	return info.Matches(plainTextExtensions,
		"text/",
		"application/json",
		"application/jsonl",
		"application/x-ndjson",
		"application/markdown",
		"application/xml",
	)
}

func (c *PlainTextConverter) Convert(_ context.Context, reader io.ReadSeeker, info StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return &DocumentConverterResult{
		Markdown: decodeText(data, info.Charset),
	}, nil
}
