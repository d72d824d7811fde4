// Package ooxml reads the parts of Office Open XML packages (docx, pptx).
package ooxml

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// NSRelDoc is the namespace of r:id, r:embed and the relationship types.
const NSRelDoc = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// Relationship types this package resolves.
const (
	RelImage     = NSRelDoc + "/image"
	RelHyperlink = NSRelDoc + "/hyperlink"
	RelSlide     = NSRelDoc + "/slide"
	RelNotes     = NSRelDoc + "/notesSlide"
)

// ErrPartNotFound is returned when a package has no part with the given name.
var ErrPartNotFound = errors.New("part not found")

// Relationship represents an OOXML relationship.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// External reports whether the relationship points outside the package.
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Package is an opened OOXML container.
type Package struct {
	zr    *zip.Reader
	parts map[string]*zip.File
}

// Open reads the package directory from r.
func Open(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	p := &Package{zr: zr, parts: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.parts[strings.TrimPrefix(f.Name, "/")] = f
	}
	return p, nil
}

// Has reports whether the package contains a part.
func (p *Package) Has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// Read returns the content of a part.
func (p *Package) Read(name string) ([]byte, error) {
	f, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrPartNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Rels returns the relationships of a part keyed by ID. A part without a
// rels file has no relationships.
func (p *Package) Rels(part string) (map[string]Relationship, error) {
	data, err := p.Read(RelsPathFor(part))
	if err != nil {
		return map[string]Relationship{}, nil
	}
	var doc struct {
		Relationships []Relationship `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode relationships of %s: %w", part, err)
	}
	rels := make(map[string]Relationship, len(doc.Relationships))
	for _, rel := range doc.Relationships {
		rels[rel.ID] = rel
	}
	return rels, nil
}

// Asset is an embedded binary part such as an image.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

// Media resolves relationship id of part to an embedded asset.
func (p *Package) Media(part string, rels map[string]Relationship, id string) (*Asset, error) {
	rel, ok := rels[id]
	if !ok || rel.External() || rel.Type != RelImage {
		return nil, fmt.Errorf("image relationship %q of %s: %w", id, part, ErrPartNotFound)
	}
	name := ResolveTarget(part, rel.Target)
	data, err := p.Read(name)
	if err != nil {
		return nil, err
	}
	return &Asset{
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

// RelsPathFor returns the .rels path for a part.
func RelsPathFor(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// ResolveTarget resolves a relationship target against the part it belongs to.
func ResolveTarget(part, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(part), target)
}

// CoreProperties returns the Dublin Core properties of docProps/core.xml
// keyed by local name (title, creator, subject, ...). Empty values are omitted.
func (p *Package) CoreProperties() map[string]string {
	props := map[string]string{}
	data, err := p.Read("docProps/core.xml")
	if err != nil {
		return props
	}
	root, err := ParseTree(data)
	if err != nil {
		return props
	}
	for _, n := range root.Nodes {
		if v := strings.TrimSpace(n.Content); v != "" {
			props[n.XMLName.Local] = v
		}
	}
	return props
}
