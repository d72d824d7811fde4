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

// Package markitdown converts documents of many formats into Markdown.
//
// An engine resolves each input into a seekable source with type hints,
// probes its converter registry in priority order and binds the first
// converter that accepts. Converters that embed images may describe them
// through an optional enrichment hook.
package markitdown

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/conductor-oss/markitdown-engine/internal/enrich"
	"github.com/conductor-oss/markitdown-engine/internal/remote"
)

// MarkItDown is the main document-to-markdown conversion engine. It is safe
// for concurrent use once constructed.
type MarkItDown struct {
	registry     *Registry
	builtins     bool
	extra        []Candidate
	keepDataURIs bool
	logger       *slog.Logger

	enrichCfg EnrichmentConfig
	enricher  Enricher

	httpClient *http.Client
	s3         *remote.S3Fetcher
	s3Once     sync.Once
	s3Err      error
}

// New creates a new MarkItDown instance with the given options. The
// converter registry is fixed once New returns.
func New(opts ...Option) (*MarkItDown, error) {
	m := &MarkItDown{
		registry: NewRegistry(),
		builtins: true,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.builtins {
		m.enableBuiltins()
	}
	for _, c := range m.extra {
		m.registry.Register(c.Name, c.Converter, c.Priority)
	}
	m.registry = m.registry.clone()

	if m.enricher == nil {
		e, err := enrich.New(context.Background(), m.enrichCfg, m.httpClient, m.logger)
		if err != nil {
			return nil, err
		}
		m.enricher = e
	}
	return m, nil
}

// Close releases resources held by the enrichment backend, if any.
func (m *MarkItDown) Close() error {
	if c, ok := m.enricher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Candidates returns the engine's converters in dispatch order.
func (m *MarkItDown) Candidates() []Candidate {
	return m.registry.Candidates()
}

// Convert auto-detects the source type (file path, http(s) or s3 URL) and converts it.
func (m *MarkItDown) Convert(ctx context.Context, source string) (*DocumentConverterResult, error) {
	if remote.IsURL(source) {
		return m.ConvertURL(ctx, source)
	}
	return m.ConvertFile(ctx, strings.TrimPrefix(source, "file://"))
}

// ConvertFile converts a local file to markdown.
func (m *MarkItDown) ConvertFile(ctx context.Context, path string) (*DocumentConverterResult, error) {
	src, err := resolveFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return m.dispatch(ctx, src, m.enricher)
}

// ConvertStream converts a byte stream. hint carries any filename, extension,
// MIME type or charset the caller knows; the zero value means none.
func (m *MarkItDown) ConvertStream(ctx context.Context, r io.Reader, hint StreamInfo) (*DocumentConverterResult, error) {
	src, err := resolveReader(r, hint)
	if err != nil {
		return nil, err
	}
	return m.dispatch(ctx, src, m.enricher)
}

// ConvertBytes converts an in-memory document.
func (m *MarkItDown) ConvertBytes(ctx context.Context, data []byte, hint StreamInfo) (*DocumentConverterResult, error) {
	src, err := resolveBytes(data, hint)
	if err != nil {
		return nil, err
	}
	return m.dispatch(ctx, src, m.enricher)
}

// maxNestingDepth bounds how deep container converters may recurse into
// their members.
const maxNestingDepth = 5

type nestingKey struct{}

// nestingDepth reports how many container levels enclose the current call.
func nestingDepth(ctx context.Context) int {
	d, _ := ctx.Value(nestingKey{}).(int)
	return d
}

// convertNested dispatches a member of a container document one level
// deeper, keeping the enricher the container was handed.
func (m *MarkItDown) convertNested(ctx context.Context, data []byte, hint StreamInfo, e Enricher) (*DocumentConverterResult, error) {
	ctx = context.WithValue(ctx, nestingKey{}, nestingDepth(ctx)+1)
	src, err := resolveBytes(data, hint)
	if err != nil {
		return nil, err
	}
	if le, ok := e.(loggingEnricher); ok {
		e = le.next
	}
	return m.dispatch(ctx, src, e)
}

// ConvertURL fetches an http(s) or s3 URL and converts the object.
func (m *MarkItDown) ConvertURL(ctx context.Context, rawURL string) (*DocumentConverterResult, error) {
	var (
		obj *remote.Object
		err error
	)
	if strings.HasPrefix(rawURL, "s3://") {
		obj, err = m.fetchS3(ctx, rawURL)
	} else {
		f := &remote.HTTPFetcher{Client: m.httpClient}
		obj, err = f.Fetch(ctx, rawURL)
	}
	if err != nil {
		return nil, &UnreadableSourceError{Source: rawURL, Err: err}
	}

	return m.ConvertBytes(ctx, obj.Data, StreamInfo{
		MIMEType:  obj.ContentType,
		Charset:   obj.Charset,
		Extension: obj.Extension,
		Filename:  obj.Filename,
		URL:       obj.URL,
	})
}

func (m *MarkItDown) fetchS3(ctx context.Context, rawURL string) (*remote.Object, error) {
	m.s3Once.Do(func() {
		if m.s3 == nil {
			m.s3, m.s3Err = remote.NewDefaultS3Fetcher(ctx)
		}
	})
	if m.s3Err != nil {
		return nil, m.s3Err
	}
	return m.s3.Fetch(ctx, rawURL)
}

// dispatch probes the registry and binds the first accepting converter. The
// bound converter's failure is final; later candidates are never tried.
func (m *MarkItDown) dispatch(ctx context.Context, src *source, enricher Enricher) (*DocumentConverterResult, error) {
	info := src.info
	logger := m.logger.With(
		"call_id", uuid.NewString(),
		"mime", info.MIMEType,
		"extension", info.Extension,
	)
	if d := nestingDepth(ctx); d > 0 {
		logger = logger.With("depth", d)
	}
	if enricher == nil {
		enricher = enrich.Unavailable{}
	}

	candidate, ok := m.registry.Select(info)
	if !ok {
		logger.Debug("no converter accepted input", "sniffed", info.SniffedMIMEType)
		return nil, &UnsupportedFormatError{
			Extension: info.Extension,
			MIMEType:  info.MIMEType,
		}
	}
	logger = logger.With("converter", candidate.Name)
	logger.Debug("converter selected")

	// Accepts must not move the reader, but rewind anyway so every converter
	// starts at offset zero.
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, &UnreadableSourceError{Source: info.Filename, Err: fmt.Errorf("seek: %w", err)}
	}

	e := loggingEnricher{next: enricher, logger: logger}
	raw, err := invoke(ctx, candidate, src, info, e)
	if err != nil {
		logger.Debug("conversion failed", "error", err)
		return nil, &ConversionError{Converter: candidate.Name, Err: err}
	}

	result := finalize(raw)
	logger.Debug("conversion done", "bytes", len(result.Markdown))
	return result, nil
}

// invoke runs one converter, turning panics and interruptions into errors.
func invoke(ctx context.Context, c Candidate, r io.ReadSeeker, info StreamInfo, e Enricher) (result *DocumentConverterResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("converter panicked: %v", p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err = c.Converter.Convert(ctx, r, info, e)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// enableBuiltins registers all built-in converters.
func (m *MarkItDown) enableBuiltins() {
	// Specific format converters, probed first.
	m.registry.Register("csv", NewCsvConverter(), PrioritySpecific)
	m.registry.Register("rss", NewRSSConverter(), PrioritySpecific)
	m.registry.Register("ipynb", NewIpynbConverter(), PrioritySpecific)
	m.registry.Register("docx", NewDocxConverter(m), PrioritySpecific)
	m.registry.Register("xlsx", NewXlsxConverter(), PrioritySpecific)
	m.registry.Register("xls", NewXlsConverter(), PrioritySpecific)
	m.registry.Register("pptx", NewPptxConverter(m), PrioritySpecific)
	m.registry.Register("pdf", NewPdfConverter(), PrioritySpecific)
	m.registry.Register("epub", NewEpubConverter(m), PrioritySpecific)
	m.registry.Register("odt", NewOdtConverter(), PrioritySpecific)
	m.registry.Register("image", NewImageConverter(), PrioritySpecific)

	// Generic format converters, tried last as fallbacks.
	m.registry.Register("html", NewHTMLConverter(m), PriorityGeneric)
	m.registry.Register("zip", NewZipConverter(m), PriorityGeneric)
	m.registry.Register("plaintext", NewPlainTextConverter(), PriorityGeneric)
}
