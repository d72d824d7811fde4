package markitdown

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/conductor-oss/markitdown-engine/internal/ooxml"
)

// EpubConverter handles EPUB files. Spine documents are converted in reading
// order through the HTML pipeline.
type EpubConverter struct {
	markitdown *MarkItDown
}

// NewEpubConverter creates a new EpubConverter.
func NewEpubConverter(m *MarkItDown) *EpubConverter {
	return &EpubConverter{markitdown: m}
}

func (c *EpubConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".epub"}, "application/epub", "application/x-epub")
}

type epubPackage struct {
	Metadata struct {
		Title       []string `xml:"title"`
		Creator     []string `xml:"creator"`
		Language    string   `xml:"language"`
		Publisher   string   `xml:"publisher"`
		Date        string   `xml:"date"`
		Description string   `xml:"description"`
		Identifier  string   `xml:"identifier"`
	} `xml:"metadata"`
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

func (c *EpubConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	ra, size, err := readerAt(reader)
	if err != nil {
		return nil, fmt.Errorf("read EPUB: %w", err)
	}
	pkg, err := ooxml.Open(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open EPUB: %w", err)
	}

	opfPath, err := epubRootFile(pkg)
	if err != nil {
		return nil, err
	}
	data, err := pkg.Read(opfPath)
	if err != nil {
		return nil, err
	}
	var opf epubPackage
	if err := xml.Unmarshal(data, &opf); err != nil {
		return nil, fmt.Errorf("parse OPF: %w", err)
	}

	meta := epubMetadata(&opf)
	title := meta["title"]

	var md strings.Builder
	if title != "" {
		fmt.Fprintf(&md, "# %s\n\n", title)
	}
	for _, field := range []struct{ key, label string }{
		{"authors", "Authors"},
		{"language", "Language"},
		{"publisher", "Publisher"},
		{"date", "Date"},
		{"description", "Description"},
	} {
		if v := meta[field.key]; v != "" {
			fmt.Fprintf(&md, "**%s:** %s\n\n", field.label, v)
		}
	}

	hrefs := make(map[string]string, len(opf.Manifest))
	for _, item := range opf.Manifest {
		hrefs[item.ID] = item.Href
	}

	htmlConv := NewHTMLConverter(c.markitdown)
	for _, ref := range opf.Spine {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		doc, err := pkg.Read(ooxml.ResolveTarget(opfPath, href))
		if err != nil {
			continue
		}
		chapter, err := htmlConv.ConvertString(string(doc))
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", href, err)
		}
		if chapter.Markdown != "" {
			md.WriteString(chapter.Markdown)
			md.WriteString("\n\n")
		}
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Title:    title,
		Metadata: meta,
	}, nil
}

// epubRootFile reads the OPF location from META-INF/container.xml.
func epubRootFile(pkg *ooxml.Package) (string, error) {
	data, err := pkg.Read("META-INF/container.xml")
	if err != nil {
		return "", fmt.Errorf("read container: %w", err)
	}
	var container struct {
		RootFiles []struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfiles>rootfile"`
	}
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", fmt.Errorf("parse container: %w", err)
	}
	if len(container.RootFiles) == 0 || container.RootFiles[0].FullPath == "" {
		return "", fmt.Errorf("container lists no package document")
	}
	return container.RootFiles[0].FullPath, nil
}

func epubMetadata(opf *epubPackage) map[string]string {
	m := opf.Metadata
	meta := map[string]string{}
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			meta[key] = v
		}
	}
	if len(m.Title) > 0 {
		set("title", m.Title[0])
	}
	set("authors", strings.Join(m.Creator, ", "))
	set("language", m.Language)
	set("publisher", m.Publisher)
	set("date", m.Date)
	set("description", m.Description)
	set("identifier", m.Identifier)
	return meta
}
