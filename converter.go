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
	"io"
	"slices"
	"strings"
)

// StreamInfo holds the resolved type hints for the input being converted.
// It is built once per call by the source resolver and passed by value.
type StreamInfo struct {
	// MIMEType is the effective type that converters accept on.
	MIMEType string
	// DeclaredMIMEType is the caller-supplied override, if any. Advisory only.
	DeclaredMIMEType string
	// SniffedMIMEType is the type detected from the leading bytes.
	SniffedMIMEType string
	Extension       string
	Charset         string
	Filename        string
	LocalPath       string
	// URL is the origin of the input, used as base for relative links.
	URL string
}

// MIMEKnown reports whether the effective MIME type identifies a concrete format.
func (info StreamInfo) MIMEKnown() bool {
	return info.MIMEType != "" && info.MIMEType != mimeOctetStream
}

// Matches reports whether the effective MIME type has one of mimePrefixes.
// Extensions are only consulted while the MIME type is unknown, so a sniffed
// signature always outranks a filename.
func (info StreamInfo) Matches(exts []string, mimePrefixes ...string) bool {
	mime := strings.ToLower(info.MIMEType)
	for _, p := range mimePrefixes {
		if strings.HasPrefix(mime, p) {
			return true
		}
	}
	if info.MIMEKnown() {
		return false
	}
	return slices.Contains(exts, strings.ToLower(info.Extension))
}

// DocumentConverterResult holds the output of a conversion.
type DocumentConverterResult struct {
	Markdown string
	Title    string
	Metadata map[string]string
}

// DocumentConverter is the interface all format converters implement.
type DocumentConverter interface {
	// Accepts returns true if this converter can handle the given input.
	// It is a pure function of info and never touches the byte source.
	Accepts(info StreamInfo) bool

	// Convert performs the actual document-to-markdown conversion. The reader
	// is positioned at the start of the input. enricher is never required;
	// a nil enricher behaves like one that is unavailable.
	Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, enricher Enricher) (*DocumentConverterResult, error)
}

// ConverterFunc adapts a pair of functions to DocumentConverter.
type ConverterFunc struct {
	AcceptsFunc func(info StreamInfo) bool
	ConvertFunc func(ctx context.Context, reader io.ReadSeeker, info StreamInfo, enricher Enricher) (*DocumentConverterResult, error)
}

func (f ConverterFunc) Accepts(info StreamInfo) bool {
	return f.AcceptsFunc != nil && f.AcceptsFunc(info)
}

func (f ConverterFunc) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, enricher Enricher) (*DocumentConverterResult, error) {
	return f.ConvertFunc(ctx, reader, info, enricher)
}
