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
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxZipEntrySize caps how much of a single archive member is read.
const maxZipEntrySize = 256 << 20

// ZipConverter handles ZIP files by recursively converting their contents
// through the owning engine.
type ZipConverter struct {
	markitdown *MarkItDown
}

// NewZipConverter creates a new ZipConverter.
func NewZipConverter(m *MarkItDown) *ZipConverter {
	return &ZipConverter{markitdown: m}
}

func (c *ZipConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".zip"}, "application/zip", "application/x-zip")
}

func (c *ZipConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, enricher Enricher) (*DocumentConverterResult, error) {
	if d := nestingDepth(ctx); d >= maxNestingDepth {
		return nil, fmt.Errorf("archive nested %d levels deep", d)
	}
	ra, size, err := readerAt(reader)
	if err != nil {
		return nil, fmt.Errorf("read ZIP: %w", err)
	}
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open ZIP: %w", err)
	}

	filename := info.Filename
	if filename == "" {
		filename = "archive"
	}

	var md strings.Builder
	fmt.Fprintf(&md, "Content from the zip file `%s`:\n\n", filename)

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}

		data, err := readZipEntry(f)
		if err != nil {
			continue
		}

		// Members that no converter takes, or that fail, are left out.
		result, err := c.markitdown.convertNested(ctx, data, StreamInfo{
			Filename:  path.Base(f.Name),
			Extension: path.Ext(f.Name),
		}, enricher)
		if err != nil || result.Markdown == "" {
			continue
		}

		fmt.Fprintf(&md, "## File: %s\n\n", f.Name)
		md.WriteString(result.Markdown)
		md.WriteString("\n\n")
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
	}, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxZipEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxZipEntrySize {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", f.Name, maxZipEntrySize)
	}
	return data, nil
}

// readerAt exposes r for random access, buffering it when it cannot be read
// at arbitrary offsets.
func readerAt(r io.ReadSeeker) (io.ReaderAt, int64, error) {
	if ra, ok := r.(io.ReaderAt); ok {
		size, err := r.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		return ra, size, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
