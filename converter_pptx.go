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
	"math"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/conductor-oss/markitdown-engine/internal/ooxml"
)

const pptxPresentationPart = "ppt/presentation.xml"

// PptxConverter handles PPTX files. Shapes on each slide are emitted top to
// bottom, left to right. Pictures are described by the enrichment hook when
// one is available.
type PptxConverter struct {
	markitdown *MarkItDown
}

// NewPptxConverter creates a new PptxConverter.
func NewPptxConverter(m *MarkItDown) *PptxConverter {
	return &PptxConverter{markitdown: m}
}

func (c *PptxConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".pptx"},
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	)
}

func (c *PptxConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, enricher Enricher) (*DocumentConverterResult, error) {
	ra, size, err := readerAt(reader)
	if err != nil {
		return nil, fmt.Errorf("read PPTX: %w", err)
	}
	pkg, err := ooxml.Open(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open PPTX: %w", err)
	}

	slides, err := pptxSlideOrder(pkg)
	if err != nil {
		return nil, fmt.Errorf("read slide order: %w", err)
	}

	var md strings.Builder
	images := 0
	for i, part := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := pkg.Read(part)
		if err != nil {
			return nil, err
		}
		root, err := ooxml.ParseTree(data)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		rels, err := pkg.Rels(part)
		if err != nil {
			return nil, err
		}

		s := &pptxSlide{ctx: ctx, pkg: pkg, part: part, rels: rels, enricher: enricher}
		if tree := root.Find("spTree"); tree != nil {
			s.collect(tree)
		}
		images += s.images

		fmt.Fprintf(&md, "\n\n<!-- Slide number: %d -->\n", i+1)
		md.WriteString(s.render())

		if notes := pptxNotes(pkg, rels, part); notes != "" {
			md.WriteString("\n### Notes:\n")
			md.WriteString(notes)
			md.WriteString("\n")
		}
	}

	props := pkg.CoreProperties()
	meta := map[string]string{
		"slides": strconv.Itoa(len(slides)),
		"images": strconv.Itoa(images),
	}
	if v := props["creator"]; v != "" {
		meta["author"] = v
	}
	return &DocumentConverterResult{
		Markdown: md.String(),
		Title:    props["title"],
		Metadata: meta,
	}, nil
}

// pptxSlideOrder returns slide parts in presentation order.
func pptxSlideOrder(pkg *ooxml.Package) ([]string, error) {
	data, err := pkg.Read(pptxPresentationPart)
	if err != nil {
		return nil, err
	}
	root, err := ooxml.ParseTree(data)
	if err != nil {
		return nil, err
	}
	rels, err := pkg.Rels(pptxPresentationPart)
	if err != nil {
		return nil, err
	}

	var parts []string
	for _, sld := range root.FindAll("sldId") {
		if rel, ok := rels[sld.AttrNS(ooxml.NSRelDoc, "id")]; ok && rel.Type == ooxml.RelSlide {
			parts = append(parts, ooxml.ResolveTarget(pptxPresentationPart, rel.Target))
		}
	}
	return parts, nil
}

type pptxShape struct {
	top, left int64
	markdown  string
}

type pptxSlide struct {
	ctx      context.Context
	pkg      *ooxml.Package
	part     string
	rels     map[string]ooxml.Relationship
	enricher Enricher

	shapes []pptxShape
	images int
}

func (s *pptxSlide) collect(tree *ooxml.Node) {
	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		var md string
		switch {
		case n.Is("sp"):
			md = s.textShape(n)
		case n.Is("pic"):
			md = s.picture(n)
		case n.Is("graphicFrame"):
			if tbl := n.Find("tbl"); tbl != nil {
				md = pptxTable(tbl)
			}
		case n.Is("grpSp"):
			s.collect(n)
			continue
		}
		if md == "" {
			continue
		}
		top, left := pptxOffset(n)
		s.shapes = append(s.shapes, pptxShape{top: top, left: left, markdown: md})
	}
}

func (s *pptxSlide) render() string {
	sort.SliceStable(s.shapes, func(i, j int) bool {
		if s.shapes[i].top != s.shapes[j].top {
			return s.shapes[i].top < s.shapes[j].top
		}
		return s.shapes[i].left < s.shapes[j].left
	})
	var b strings.Builder
	for _, sh := range s.shapes {
		b.WriteString(sh.markdown)
		b.WriteString("\n")
	}
	return b.String()
}

func (s *pptxSlide) textShape(n *ooxml.Node) string {
	body := n.Child("txBody")
	if body == nil {
		return ""
	}
	text := pptxText(body)
	if text == "" {
		return ""
	}
	if ph := n.Find("ph"); ph != nil {
		if t := ph.Attr("type"); t == "title" || t == "ctrTitle" {
			return "# " + strings.ReplaceAll(text, "\n", " ")
		}
	}
	return text
}

// picture renders an image reference. The enrichment description is
// preferred as alt text, then the author's description, then the shape name.
func (s *pptxSlide) picture(n *ooxml.Node) string {
	var alt, name string
	if pr := n.Find("cNvPr"); pr != nil {
		alt = pr.Attr("descr")
		name = pr.Attr("name")
	}

	target := name
	if blip := n.Find("blip"); blip != nil {
		if asset, err := s.pkg.Media(s.part, s.rels, blip.AttrNS(ooxml.NSRelDoc, "embed")); err == nil {
			s.images++
			target = path.Base(asset.Name)
			if desc, ok := describeAsset(s.ctx, s.enricher, asset.Data, asset.ContentType); ok {
				alt = desc
			}
		}
	}
	if alt == "" {
		alt = name
	}
	if target == "" {
		return ""
	}
	return fmt.Sprintf("![%s](%s)", markdownAlt(alt), target)
}

// markdownAlt flattens text for use inside ![...].
func markdownAlt(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ", "[", " ", "]", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func pptxText(body *ooxml.Node) string {
	var lines []string
	for _, p := range body.FindAll("p") {
		var sb strings.Builder
		for _, t := range p.FindAll("t") {
			sb.WriteString(t.Content)
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func pptxTable(tbl *ooxml.Node) string {
	var rows [][]string
	for _, tr := range tbl.FindAll("tr") {
		var cells []string
		for _, tc := range tr.FindAll("tc") {
			cells = append(cells, strings.ReplaceAll(pptxText(tc), "\n", " "))
		}
		rows = append(rows, cells)
	}
	return renderMarkdownTable(rows)
}

// pptxOffset returns the shape's position. Shapes without one sort last.
func pptxOffset(n *ooxml.Node) (top, left int64) {
	top, left = math.MaxInt64, math.MaxInt64
	off := n.Find("off")
	if off == nil {
		return top, left
	}
	if v, err := strconv.ParseInt(off.Attr("y"), 10, 64); err == nil {
		top = v
	}
	if v, err := strconv.ParseInt(off.Attr("x"), 10, 64); err == nil {
		left = v
	}
	return top, left
}

func pptxNotes(pkg *ooxml.Package, rels map[string]ooxml.Relationship, slidePart string) string {
	for _, rel := range rels {
		if rel.Type != ooxml.RelNotes {
			continue
		}
		data, err := pkg.Read(ooxml.ResolveTarget(slidePart, rel.Target))
		if err != nil {
			return ""
		}
		root, err := ooxml.ParseTree(data)
		if err != nil {
			return ""
		}
		var parts []string
		for _, sp := range root.FindAll("sp") {
			// Slide image and number placeholders repeat the slide itself.
			if ph := sp.Find("ph"); ph != nil && ph.Attr("type") != "body" {
				continue
			}
			if body := sp.Child("txBody"); body != nil {
				if t := pptxText(body); t != "" {
					parts = append(parts, t)
				}
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}
