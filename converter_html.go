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
	"net/url"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLConverter handles HTML files. Other converters that render through
// HTML (docx, epub) share its markdown pipeline.
type HTMLConverter struct {
	markitdown *MarkItDown
}

// NewHTMLConverter creates a new HTMLConverter.
func NewHTMLConverter(m *MarkItDown) *HTMLConverter {
	return &HTMLConverter{markitdown: m}
}

func (c *HTMLConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".html", ".htm", ".xhtml"}, "text/html", "application/xhtml")
}

func (c *HTMLConverter) Convert(_ context.Context, reader io.ReadSeeker, info StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return c.convert(decodeText(data, info.Charset), info.URL)
}

// ConvertString converts an HTML string to markdown.
func (c *HTMLConverter) ConvertString(htmlStr string) (*DocumentConverterResult, error) {
	return c.convert(htmlStr, "")
}

func (c *HTMLConverter) convert(htmlStr, baseURL string) (*DocumentConverterResult, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	title := htmlTitle(doc)
	stripNodes(doc, atom.Script, atom.Style, atom.Noscript)

	md, err := htmlNodeToMarkdown(doc, baseURL)
	if err != nil {
		return nil, fmt.Errorf("convert HTML to markdown: %w", err)
	}

	if c.markitdown == nil || !c.markitdown.keepDataURIs {
		md = truncateDataURIs(md)
	}

	return &DocumentConverterResult{
		Markdown: md,
		Title:    title,
	}, nil
}

// htmlNodeToMarkdown renders a parsed document with html-to-markdown.
// Relative links resolve against the origin of baseURL when it is set.
func htmlNodeToMarkdown(doc *html.Node, baseURL string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			table.NewTablePlugin(),
		),
	)

	var domain string
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		domain = u.Scheme + "://" + u.Host
	}

	out, err := conv.ConvertNode(doc, converter.WithDomain(domain))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// convertHTMLToMarkdown converts an HTML fragment with the shared pipeline.
func convertHTMLToMarkdown(htmlStr string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return "", err
	}
	stripNodes(doc, atom.Script, atom.Style, atom.Noscript)
	return htmlNodeToMarkdown(doc, "")
}

var reDataURI = regexp.MustCompile(`(data:[a-zA-Z0-9/+.-]+;base64,)[A-Za-z0-9+/=]{64,}`)

// truncateDataURIs truncates large base64 data URIs to data:mime/type;base64...
func truncateDataURIs(md string) string {
	return reDataURI.ReplaceAllString(md, "${1}...")
}

// stripNodes removes every element whose tag is one of tags, with its subtree.
func stripNodes(n *html.Node, tags ...atom.Atom) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && containsAtom(tags, c.DataAtom) {
			n.RemoveChild(c)
		} else {
			stripNodes(c, tags...)
		}
		c = next
	}
}

func containsAtom(tags []atom.Atom, a atom.Atom) bool {
	for _, t := range tags {
		if t == a {
			return true
		}
	}
	return false
}

// htmlTitle returns the text of the first <title> element.
func htmlTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		return strings.TrimSpace(sb.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := htmlTitle(c); t != "" {
			return t
		}
	}
	return ""
}
