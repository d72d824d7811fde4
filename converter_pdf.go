package markitdown

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PdfConverter handles PDF files.
type PdfConverter struct{}

// NewPdfConverter creates a new PdfConverter.
func NewPdfConverter() *PdfConverter {
	return &PdfConverter{}
}

func (c *PdfConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".pdf"}, "application/pdf", "application/x-pdf")
}

func (c *PdfConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	ra, size, err := readerAt(reader)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}

	pdfReader, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := pdfReader.NumPage()
	var md strings.Builder
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pdfPageText(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if text == "" {
			continue
		}
		md.WriteString(text)
		md.WriteString("\n\n")
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Title:    pdfInfoString(pdfReader, "Title"),
		Metadata: pdfMetadata(pdfReader, numPages),
	}, nil
}

// pdfPageText joins the words of each row. An empty word between two
// non-empty ones marks a word boundary.
func pdfPageText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, row := range rows {
		var line strings.Builder
		gap := false
		for _, word := range row.Content {
			if word.S == "" {
				gap = true
				continue
			}
			if gap && line.Len() > 0 && !strings.HasSuffix(line.String(), " ") {
				line.WriteByte(' ')
			}
			line.WriteString(word.S)
			gap = false
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			out.WriteString(text)
			out.WriteByte('\n')
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func pdfInfoString(r *pdf.Reader, key string) string {
	return strings.TrimSpace(r.Trailer().Key("Info").Key(key).Text())
}

func pdfMetadata(r *pdf.Reader, numPages int) map[string]string {
	meta := map[string]string{"pages": strconv.Itoa(numPages)}
	for key, name := range map[string]string{
		"Author":   "author",
		"Subject":  "subject",
		"Creator":  "creator",
		"Producer": "producer",
	} {
		if v := pdfInfoString(r, key); v != "" {
			meta[name] = v
		}
	}
	return meta
}
