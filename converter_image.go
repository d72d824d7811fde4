package markitdown

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"
)

// ImageConverter handles standalone images. The text comes entirely from
// the enrichment hook; without one the result carries only dimensions.
type ImageConverter struct{}

// NewImageConverter creates a new ImageConverter.
func NewImageConverter() *ImageConverter {
	return &ImageConverter{}
}

func (c *ImageConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}, "image/")
}

func (c *ImageConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, enricher Enricher) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	meta := map[string]string{}
	var md strings.Builder

	// Formats without a registered decoder (webp, bmp, svg) still get a
	// description, just no dimensions.
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		meta["format"] = format
		meta["width"] = strconv.Itoa(cfg.Width)
		meta["height"] = strconv.Itoa(cfg.Height)
		fmt.Fprintf(&md, "ImageSize: %dx%d\n\n", cfg.Width, cfg.Height)
	}

	contentType := info.MIMEType
	if !strings.HasPrefix(contentType, "image/") {
		contentType = mimeFromExtension(info.Extension)
	}
	if desc, ok := describeAsset(ctx, enricher, data, contentType); ok {
		md.WriteString("# Description:\n")
		md.WriteString(strings.TrimSpace(desc))
		md.WriteString("\n")
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Metadata: meta,
	}, nil
}
