package markitdown

import (
	"maps"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	reTrailingWhitespace = regexp.MustCompile(`[ \t]+\n`)
	reMultipleNewlines   = regexp.MustCompile(`\n{3,}`)
	reCRLF               = regexp.MustCompile(`\r\n?`)
)

// finalize builds the caller-facing result from a converter's raw output.
// Title and metadata pass through untouched; only the markdown is normalized.
func finalize(raw *DocumentConverterResult) *DocumentConverterResult {
	if raw == nil {
		return &DocumentConverterResult{}
	}
	return &DocumentConverterResult{
		Markdown: normalizeOutput(raw.Markdown),
		Title:    raw.Title,
		Metadata: maps.Clone(raw.Metadata),
	}
}

// normalizeOutput applies post-processing to converter output:
// - Ensure output is valid UTF-8
// - Normalize line endings (CRLF -> LF)
// - Strip non-printable/control characters (keep \n, \t)
// - Strip trailing whitespace from each line
// - Collapse 3+ consecutive newlines to 2
// - Trim leading/trailing whitespace from final output
func normalizeOutput(s string) string {
	if s == "" {
		return ""
	}

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	s = reCRLF.ReplaceAllString(s, "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	// The trailing newline lets the last line lose its trailing blanks too.
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	s = reTrailingWhitespace.ReplaceAllString(s, "\n")

	s = reMultipleNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
