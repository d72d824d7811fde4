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
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// charsetAliases maps names chardet and Windows tools emit to WHATWG labels.
var charsetAliases = map[string]string{
	"gb-18030":    "gb18030",
	"cp932":       "shift_jis",
	"windows-31j": "shift_jis",
	"cp936":       "gbk",
	"cp949":       "euc-kr",
	"cp950":       "big5",
	"utf8":        "utf-8",
	"ascii":       "utf-8",
	"us-ascii":    "utf-8",
	"latin1":      "iso-8859-1",
}

// lookupEncoding maps a charset name to an encoding, or nil when unknown.
func lookupEncoding(charset string) encoding.Encoding {
	name := strings.ToLower(strings.TrimSpace(charset))
	if alias, ok := charsetAliases[name]; ok {
		name = alias
	}
	if strings.HasPrefix(name, "cp") {
		name = "windows-" + strings.TrimPrefix(name, "cp")
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil
	}
	return enc
}

// decodeText converts data to UTF-8. A usable charset hint wins; otherwise
// BOMs, UTF-8 validity and finally chardet decide.
func decodeText(data []byte, charset string) string {
	if charset != "" {
		if enc := lookupEncoding(charset); enc != nil {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				return strings.TrimPrefix(string(out), "\ufeff")
			}
		}
	}

	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):])
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if out, err := dec.Bytes(data); err == nil {
			return string(out)
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}
	return detectAndDecode(data)
}

// detectAndDecode tries chardet's candidates in confidence order and keeps
// the first decoding that yields no replacement characters.
func detectAndDecode(data []byte) string {
	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}

	fallback := ""
	for _, r := range results {
		enc := lookupEncoding(r.Charset)
		if enc == nil {
			continue
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		s := string(out)
		if !strings.ContainsRune(s, utf8.RuneError) {
			return s
		}
		if fallback == "" {
			fallback = s
		}
	}
	if fallback != "" {
		return fallback
	}
	return strings.ToValidUTF8(string(data), "�")
}
