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
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const mimeOctetStream = "application/octet-stream"

// genericMIMEs are sniffed types too coarse to overrule a caller's hint.
var genericMIMEs = map[string]bool{
	mimeOctetStream:             true,
	"text/plain":                true,
	"application/zip":           true,
	"application/json":          true,
	"text/xml":                  true,
	"application/xml":           true,
	"application/x-ole-storage": true,
	"application/x-empty":       true,
}

// source is a resolved, seekable input positioned at offset zero.
type source struct {
	io.ReadSeeker
	info   StreamInfo
	closer io.Closer
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Resolve turns r into a seekable source and computes its StreamInfo from the
// caller's hint plus the sniffed signature. Readers that cannot seek are
// buffered in memory. The returned reader is positioned at offset zero.
func Resolve(r io.Reader, hint StreamInfo) (io.ReadSeeker, StreamInfo, error) {
	src, err := resolveReader(r, hint)
	if err != nil {
		return nil, StreamInfo{}, err
	}
	return src.ReadSeeker, src.info, nil
}

func resolveFile(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &UnreadableSourceError{Source: path, Err: fmt.Errorf("open file: %w", err)}
	}
	if fi, err := f.Stat(); err == nil && fi.IsDir() {
		f.Close()
		return nil, &UnreadableSourceError{Source: path, Err: fmt.Errorf("is a directory")}
	}

	src, err := resolveSeeker(f, StreamInfo{
		Extension: filepath.Ext(path),
		Filename:  filepath.Base(path),
		LocalPath: path,
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	src.closer = f
	return src, nil
}

func resolveReader(r io.Reader, hint StreamInfo) (*source, error) {
	if r == nil {
		return nil, &UnreadableSourceError{Err: fmt.Errorf("nil reader")}
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		return resolveSeeker(rs, hint)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &UnreadableSourceError{Source: hint.Filename, Err: fmt.Errorf("buffer stream: %w", err)}
	}
	return resolveSeeker(bytes.NewReader(data), hint)
}

func resolveBytes(data []byte, hint StreamInfo) (*source, error) {
	return resolveSeeker(bytes.NewReader(data), hint)
}

func resolveSeeker(rs io.ReadSeeker, hint StreamInfo) (*source, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, &UnreadableSourceError{Source: hint.Filename, Err: fmt.Errorf("seek: %w", err)}
	}

	sniffed, err := mimetype.DetectReader(rs)
	if err != nil {
		return nil, &UnreadableSourceError{Source: hint.Filename, Err: fmt.Errorf("sniff: %w", err)}
	}

	// Reset after MIME detection
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, &UnreadableSourceError{Source: hint.Filename, Err: fmt.Errorf("seek: %w", err)}
	}

	return &source{ReadSeeker: rs, info: resolveInfo(hint, sniffed)}, nil
}

// resolveInfo merges the caller's hint with the sniffed type.
func resolveInfo(hint StreamInfo, sniffed *mimetype.MIME) StreamInfo {
	info := hint
	info.Extension = normalizeExtension(hint.Extension)
	if info.Extension == "" && hint.Filename != "" {
		info.Extension = normalizeExtension(filepath.Ext(hint.Filename))
	}
	info.DeclaredMIMEType = baseMIME(hint.MIMEType)
	if info.Charset == "" && hint.MIMEType != "" {
		if _, params, err := mime.ParseMediaType(hint.MIMEType); err == nil {
			info.Charset = params["charset"]
		}
	}

	declared := info.DeclaredMIMEType
	if declared == "" {
		declared = mimeFromExtension(info.Extension)
	}

	if sniffed != nil {
		sniffedType, params, _ := mime.ParseMediaType(sniffed.String())
		info.SniffedMIMEType = sniffedType
		if info.Charset == "" {
			info.Charset = params["charset"]
		}
	}
	info.MIMEType = effectiveMIME(declared, sniffed)
	return info
}

// effectiveMIME picks the type used for acceptance. The declared type is
// advisory: it stands only when the sniffed type is generic or when the
// declared type is a refinement of it (docx inside zip, csv inside text).
func effectiveMIME(declared string, sniffed *mimetype.MIME) string {
	var sniffedType string
	if sniffed != nil {
		sniffedType = baseMIME(sniffed.String())
	}

	switch {
	case declared == "" && sniffedType == "":
		return mimeOctetStream
	case declared == "":
		return sniffedType
	case sniffedType == "" || genericMIMEs[sniffedType]:
		return declared
	case sniffed.Is(declared):
		return declared
	case refines(declared, sniffed):
		return declared
	}
	return sniffedType
}

// refines reports whether declared descends from sniffed in mimetype's tree.
func refines(declared string, sniffed *mimetype.MIME) bool {
	d := mimetype.Lookup(declared)
	if d == nil {
		return false
	}
	for p := d.Parent(); p != nil; p = p.Parent() {
		if p.Is(sniffed.String()) {
			return true
		}
	}
	return false
}

func baseMIME(s string) string {
	if s == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(s, ";")[0]))
	}
	return t
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// mimeFromExtension returns the MIME type implied by a file extension, or the
// empty string when the extension is unknown.
func mimeFromExtension(ext string) string {
	return extMIMEs[ext]
}

var extMIMEs = map[string]string{
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":      "application/vnd.ms-excel",
	".odt":      "application/vnd.oasis.opendocument.text",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".csv":      "text/csv",
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".json":     "application/json",
	".jsonl":    "application/jsonl",
	".xml":      "text/xml",
	".rss":      "application/rss+xml",
	".atom":     "application/atom+xml",
	".epub":     "application/epub+zip",
	".zip":      "application/zip",
	".ipynb":    "application/x-ipynb+json",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".png":      "image/png",
	".gif":      "image/gif",
	".webp":     "image/webp",
	".bmp":      "image/bmp",
}
