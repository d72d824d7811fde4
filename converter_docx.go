package markitdown

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/conductor-oss/markitdown-engine/internal/ooxml"
)

const docxMainPart = "word/document.xml"

// DocxConverter handles DOCX files. The document body is rendered to HTML
// and passed through the HTML pipeline. Embedded images are described by
// the enrichment hook when one is available.
type DocxConverter struct {
	markitdown *MarkItDown
}

// NewDocxConverter creates a new DocxConverter.
func NewDocxConverter(m *MarkItDown) *DocxConverter {
	return &DocxConverter{markitdown: m}
}

func (c *DocxConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".docx"},
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	)
}

func (c *DocxConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, enricher Enricher) (*DocumentConverterResult, error) {
	ra, size, err := readerAt(reader)
	if err != nil {
		return nil, fmt.Errorf("read DOCX: %w", err)
	}
	pkg, err := ooxml.Open(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	if !pkg.Has(docxMainPart) {
		return nil, fmt.Errorf("not a Word document: %s missing", docxMainPart)
	}
	data, err := pkg.Read(docxMainPart)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	root, err := ooxml.ParseTree(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	body := root.Child("body")
	if body == nil {
		return nil, fmt.Errorf("document has no body")
	}

	rels, err := pkg.Rels(docxMainPart)
	if err != nil {
		return nil, err
	}

	w := &docxWriter{
		ctx:      ctx,
		pkg:      pkg,
		rels:     rels,
		enricher: enricher,
		headings: docxHeadingStyles(pkg),
		ordered:  docxOrderedLists(pkg),
	}
	w.blocks(body)
	w.closeLists(0)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := NewHTMLConverter(c.markitdown).ConvertString(w.b.String())
	if err != nil {
		return nil, fmt.Errorf("convert DOCX HTML to markdown: %w", err)
	}

	props := pkg.CoreProperties()
	result.Title = props["title"]
	result.Metadata = map[string]string{"images": strconv.Itoa(w.images)}
	if v := props["creator"]; v != "" {
		result.Metadata["author"] = v
	}
	return result, nil
}

// docxWriter renders WordprocessingML to HTML.
type docxWriter struct {
	ctx      context.Context
	pkg      *ooxml.Package
	rels     map[string]ooxml.Relationship
	enricher Enricher
	headings map[string]int
	ordered  map[string]bool

	b      strings.Builder
	lists  []string
	images int
}

func (w *docxWriter) blocks(n *ooxml.Node) {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		switch {
		case c.Is("p"):
			w.paragraph(c)
		case c.Is("tbl"):
			w.closeLists(0)
			w.table(c)
		case c.Is("sdt"):
			if content := c.Child("sdtContent"); content != nil {
				w.blocks(content)
			}
		}
	}
}

func (w *docxWriter) paragraph(p *ooxml.Node) {
	var style, numID string
	level := 0
	if ppr := p.Child("pPr"); ppr != nil {
		style, _ = ppr.ChildVal("pStyle")
		if num := ppr.Child("numPr"); num != nil {
			numID, _ = num.ChildVal("numId")
			if v, ok := num.ChildVal("ilvl"); ok {
				level = listLevel(v)
			}
		}
	}

	content := w.inline(p)

	if numID != "" && numID != "0" {
		w.openList(level+1, w.ordered[numID])
		fmt.Fprintf(&w.b, "<li>%s</li>\n", content)
		return
	}
	w.closeLists(0)

	if strings.TrimSpace(content) == "" {
		return
	}
	if h := w.headings[style]; h > 0 {
		fmt.Fprintf(&w.b, "<h%d>%s</h%d>\n", h, content, h)
		return
	}
	fmt.Fprintf(&w.b, "<p>%s</p>\n", content)
}

// maxListLevel is the deepest w:ilvl WordprocessingML defines.
const maxListLevel = 8

// listLevel parses a w:ilvl value, clamped to the defined range.
func listLevel(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return min(n, maxListLevel)
}

func (w *docxWriter) openList(depth int, ordered bool) {
	tag := "ul"
	if ordered {
		tag = "ol"
	}
	w.closeLists(depth)
	for len(w.lists) < depth {
		w.lists = append(w.lists, tag)
		fmt.Fprintf(&w.b, "<%s>\n", tag)
	}
}

func (w *docxWriter) closeLists(depth int) {
	for len(w.lists) > depth {
		tag := w.lists[len(w.lists)-1]
		w.lists = w.lists[:len(w.lists)-1]
		fmt.Fprintf(&w.b, "</%s>\n", tag)
	}
}

// inline renders the runs, hyperlinks and drawings of a paragraph.
func (w *docxWriter) inline(n *ooxml.Node) string {
	var sb strings.Builder
	for i := range n.Nodes {
		c := &n.Nodes[i]
		switch {
		case c.Is("r"):
			sb.WriteString(w.run(c))
		case c.Is("hyperlink"):
			text := w.inline(c)
			rel, ok := w.rels[c.AttrNS(ooxml.NSRelDoc, "id")]
			if ok && rel.Type == ooxml.RelHyperlink && rel.External() {
				fmt.Fprintf(&sb, `<a href="%s">%s</a>`, html.EscapeString(rel.Target), text)
			} else {
				sb.WriteString(text)
			}
		case c.Is("ins"), c.Is("smartTag"), c.Is("sdt"), c.Is("sdtContent"), c.Is("fldSimple"):
			sb.WriteString(w.inline(c))
		case c.Is("oMath"), c.Is("oMathPara"):
			sb.WriteString(mathText(c))
		}
	}
	return sb.String()
}

// mathText renders an Office Math block as its linear text between dollar signs.
func mathText(n *ooxml.Node) string {
	var sb strings.Builder
	for _, t := range n.FindAll("t") {
		sb.WriteString(t.Content)
	}
	if sb.Len() == 0 {
		return ""
	}
	return "$" + html.EscapeString(sb.String()) + "$"
}

func (w *docxWriter) run(r *ooxml.Node) string {
	var sb strings.Builder
	for i := range r.Nodes {
		c := &r.Nodes[i]
		switch {
		case c.Is("t"):
			sb.WriteString(html.EscapeString(c.Content))
		case c.Is("tab"):
			sb.WriteString("\t")
		case c.Is("br"), c.Is("cr"):
			sb.WriteString("<br>")
		case c.Is("drawing"), c.Is("pict"):
			sb.WriteString(w.image(c))
		}
	}
	text := sb.String()
	if text == "" {
		return ""
	}

	if rpr := r.Child("rPr"); rpr != nil {
		if docxToggle(rpr, "b") {
			text = "<strong>" + text + "</strong>"
		}
		if docxToggle(rpr, "i") {
			text = "<em>" + text + "</em>"
		}
		if docxToggle(rpr, "strike") {
			text = "<del>" + text + "</del>"
		}
	}
	return text
}

// docxToggle reports whether an on/off run property is set.
func docxToggle(rpr *ooxml.Node, name string) bool {
	v, ok := rpr.ChildVal(name)
	if !ok {
		return false
	}
	return v != "0" && v != "false" && v != "off"
}

// image renders an embedded picture. The enrichment description is preferred
// as alt text, then the author's own description, then nothing.
func (w *docxWriter) image(n *ooxml.Node) string {
	var id string
	if blip := n.Find("blip"); blip != nil {
		id = blip.AttrNS(ooxml.NSRelDoc, "embed")
	} else if data := n.Find("imagedata"); data != nil {
		id = data.AttrNS(ooxml.NSRelDoc, "id")
	}
	if id == "" {
		return ""
	}
	asset, err := w.pkg.Media(docxMainPart, w.rels, id)
	if err != nil {
		return ""
	}
	w.images++

	alt, ok := describeAsset(w.ctx, w.enricher, asset.Data, asset.ContentType)
	if !ok {
		if pr := n.Find("docPr"); pr != nil {
			alt = pr.Attr("descr")
		}
	}

	src := "data:" + asset.ContentType + ";base64," + base64.StdEncoding.EncodeToString(asset.Data)
	return fmt.Sprintf(`<img src="%s" alt="%s">`, src, html.EscapeString(strings.TrimSpace(alt)))
}

func (w *docxWriter) table(t *ooxml.Node) {
	w.b.WriteString("<table>\n")
	first := true
	for i := range t.Nodes {
		row := &t.Nodes[i]
		if !row.Is("tr") {
			continue
		}
		cell := "td"
		if first {
			cell = "th"
			first = false
		}
		w.b.WriteString("<tr>")
		for j := range row.Nodes {
			tc := &row.Nodes[j]
			if !tc.Is("tc") {
				continue
			}
			var parts []string
			for _, p := range tc.FindAll("p") {
				if s := strings.TrimSpace(w.inline(p)); s != "" {
					parts = append(parts, s)
				}
			}
			fmt.Fprintf(&w.b, "<%s>%s</%s>", cell, strings.Join(parts, "<br>"), cell)
		}
		w.b.WriteString("</tr>\n")
	}
	w.b.WriteString("</table>\n")
}

// docxHeadingStyles maps style IDs to heading levels, from styles.xml names
// ("heading 2", "Title") with a fallback on conventional IDs.
func docxHeadingStyles(pkg *ooxml.Package) map[string]int {
	levels := map[string]int{"Title": 1}
	for i := 1; i <= 6; i++ {
		levels["Heading"+strconv.Itoa(i)] = i
	}

	data, err := pkg.Read("word/styles.xml")
	if err != nil {
		return levels
	}
	root, err := ooxml.ParseTree(data)
	if err != nil {
		return levels
	}
	for _, s := range root.FindAll("style") {
		name, _ := s.ChildVal("name")
		if lvl := headingLevel(name); lvl > 0 {
			levels[s.Attr("styleId")] = lvl
		}
	}
	return levels
}

func headingLevel(styleName string) int {
	name := strings.ToLower(strings.TrimSpace(styleName))
	if name == "title" {
		return 1
	}
	rest, ok := strings.CutPrefix(name, "heading")
	if !ok {
		return 0
	}
	lvl, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || lvl < 1 {
		return 0
	}
	return min(lvl, 6)
}

// docxOrderedLists reports, per numbering instance, whether its first level
// is numbered rather than bulleted.
func docxOrderedLists(pkg *ooxml.Package) map[string]bool {
	ordered := map[string]bool{}
	data, err := pkg.Read("word/numbering.xml")
	if err != nil {
		return ordered
	}
	root, err := ooxml.ParseTree(data)
	if err != nil {
		return ordered
	}

	abstract := map[string]bool{}
	for _, a := range root.FindAll("abstractNum") {
		if lvl := a.Child("lvl"); lvl != nil {
			fmtVal, _ := lvl.ChildVal("numFmt")
			abstract[a.Attr("abstractNumId")] = fmtVal != "" && fmtVal != "bullet" && fmtVal != "none"
		}
	}
	for _, n := range root.FindAll("num") {
		id, _ := n.ChildVal("abstractNumId")
		ordered[n.Attr("numId")] = abstract[id]
	}
	return ordered
}
