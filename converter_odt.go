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
	"strings"

	"code.sajari.com/docconv"
)

const mimeODT = "application/vnd.oasis.opendocument.text"

// OdtConverter handles OpenDocument text files via docconv.
type OdtConverter struct{}

// NewOdtConverter creates a new OdtConverter.
func NewOdtConverter() *OdtConverter {
	return &OdtConverter{}
}

func (c *OdtConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".odt"}, mimeODT)
}

func (c *OdtConverter) Convert(_ context.Context, reader io.ReadSeeker, _ StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	res, err := docconv.Convert(reader, mimeODT, false)
	if err != nil {
		return nil, fmt.Errorf("extract ODT: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("extract ODT: %s", res.Error)
	}

	meta := make(map[string]string, len(res.Meta))
	for k, v := range res.Meta {
		if v = strings.TrimSpace(v); v != "" {
			meta[strings.ToLower(k)] = v
		}
	}

	var md strings.Builder
	for line := range strings.SplitSeq(res.Body, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		md.WriteString(line)
		md.WriteString("\n\n")
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Title:    meta["title"],
		Metadata: meta,
	}, nil
}
