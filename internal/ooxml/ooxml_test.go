package ooxml

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func buildPackage(t *testing.T, parts map[string]string) *Package {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	p, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return p
}

func TestRelsPathFor(t *testing.T) {
	tests := []struct {
		part string
		want string
	}{
		{"word/document.xml", "word/_rels/document.xml.rels"},
		{"ppt/slides/slide1.xml", "ppt/slides/_rels/slide1.xml.rels"},
		{"root.xml", "_rels/root.xml.rels"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelsPathFor(tt.part), tt.part)
	}
}

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, "word/media/image1.png", ResolveTarget("word/document.xml", "media/image1.png"))
	assert.Equal(t, "ppt/media/image2.png", ResolveTarget("ppt/slides/slide1.xml", "../media/image2.png"))
	assert.Equal(t, "media/x.png", ResolveTarget("word/document.xml", "/media/x.png"))
}

func TestPackageMedia(t *testing.T) {
	p := buildPackage(t, map[string]string{
		"word/document.xml": "<doc/>",
		"word/_rels/document.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="` + RelImage + `" Target="media/image1.png"/>
  <Relationship Id="rId2" Type="` + RelHyperlink + `" Target="https://example.com" TargetMode="External"/>
  <Relationship Id="rId3" Type="` + RelNotes + `" Target="media/image1.png"/>
</Relationships>`,
		"word/media/image1.png": string(pngHeader),
	})

	rels, err := p.Rels("word/document.xml")
	require.NoError(t, err)
	require.Len(t, rels, 3)
	assert.True(t, rels["rId2"].External())

	asset, err := p.Media("word/document.xml", rels, "rId1")
	require.NoError(t, err)
	assert.Equal(t, "word/media/image1.png", asset.Name)
	assert.Equal(t, "image/png", asset.ContentType)

	_, err = p.Media("word/document.xml", rels, "rId2")
	assert.True(t, errors.Is(err, ErrPartNotFound))

	// Only image relationships resolve to media.
	_, err = p.Media("word/document.xml", rels, "rId3")
	assert.True(t, errors.Is(err, ErrPartNotFound))
}

func TestPackageRelsMissing(t *testing.T) {
	p := buildPackage(t, map[string]string{"a.xml": "<a/>"})
	rels, err := p.Rels("a.xml")
	require.NoError(t, err)
	assert.Empty(t, rels)
	assert.True(t, p.Has("a.xml"))

	_, err = p.Read("missing.xml")
	assert.ErrorIs(t, err, ErrPartNotFound)
}

func TestParseTree(t *testing.T) {
	root, err := ParseTree([]byte(`<w:document xmlns:w="urn:w"><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Hello</w:t></w:r></w:p>
<w:p><w:r><w:t>World</w:t></w:r></w:p>
</w:body></w:document>`))
	require.NoError(t, err)

	body := root.Child("body")
	require.NotNil(t, body)
	paras := body.FindAll("p")
	require.Len(t, paras, 2)

	style, ok := paras[0].Find("pPr").ChildVal("pStyle")
	assert.True(t, ok)
	assert.Equal(t, "Heading1", style)
	assert.Equal(t, "World", paras[1].Find("t").Content)
	assert.Nil(t, paras[1].Child("pPr"))
}

func TestCoreProperties(t *testing.T) {
	p := buildPackage(t, map[string]string{
		"docProps/core.xml": `<cp:coreProperties xmlns:cp="urn:cp" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Quarterly Report</dc:title><dc:creator>Ops</dc:creator><dc:subject></dc:subject>
</cp:coreProperties>`,
	})
	props := p.CoreProperties()
	assert.Equal(t, "Quarterly Report", props["title"])
	assert.Equal(t, "Ops", props["creator"])
	assert.NotContains(t, props, "subject")
}
