package markitdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func acceptAll(name string, calls *atomic.Int32, err error) DocumentConverter {
	return ConverterFunc{
		AcceptsFunc: func(StreamInfo) bool { return true },
		ConvertFunc: func(context.Context, io.ReadSeeker, StreamInfo, Enricher) (*DocumentConverterResult, error) {
			if calls != nil {
				calls.Add(1)
			}
			if err != nil {
				return nil, err
			}
			return &DocumentConverterResult{Markdown: "from " + name}, nil
		},
	}
}

func TestConvertBytes_PDFSignatureSelectsPDF(t *testing.T) {
	m := newTestEngine(t)
	data := []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n")

	_, info, err := Resolve(bytes.NewReader(data), StreamInfo{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.MIMEType)

	c, ok := m.registry.Select(info)
	require.True(t, ok)
	assert.Equal(t, "pdf", c.Name)

	// The body is not a valid PDF; the failure belongs to the pdf converter.
	_, err = m.ConvertBytes(context.Background(), data, StreamInfo{})
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "pdf", convErr.Converter)
	assert.ErrorIs(t, err, ErrConversionFailed)
}

func TestConvertFile_EmptyText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m := newTestEngine(t)
	res, err := m.ConvertFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "", res.Markdown)
}

func TestConvertFile_UnknownBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.xyz")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x13, 0x37}, 0o644))

	m := newTestEngine(t)
	_, err := m.ConvertFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, IsUnsupportedFormat(err))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), `extension=".xyz"`)
}

func TestConvertFile_Unreadable(t *testing.T) {
	m := newTestEngine(t)

	_, err := m.ConvertFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, ErrUnreadableSource)

	_, err = m.ConvertFile(context.Background(), t.TempDir())
	assert.True(t, IsUnreadableSource(err))
}

func TestConvertStream_NilReader(t *testing.T) {
	m := newTestEngine(t)
	_, err := m.ConvertStream(context.Background(), nil, StreamInfo{})
	assert.ErrorIs(t, err, ErrUnreadableSource)
}

func TestConvertStream_NonSeekable(t *testing.T) {
	m := newTestEngine(t)
	r := struct{ io.Reader }{strings.NewReader("name,qty\nbolt,4\n")}

	res, err := m.ConvertStream(context.Background(), r, StreamInfo{Filename: "parts.csv"})
	require.NoError(t, err)
	assert.Contains(t, res.Markdown, "| name | qty |")
	assert.Contains(t, res.Markdown, "| bolt | 4 |")
}

func TestConvert_BoundConverterFailureIsFinal(t *testing.T) {
	var second atomic.Int32
	r := NewRegistry()
	r.Register("first", acceptAll("first", nil, errors.New("malformed")), PrioritySpecific)
	r.Register("second", acceptAll("second", &second, nil), PriorityGeneric)

	m := newTestEngine(t, WithRegistry(r))
	_, err := m.ConvertBytes(context.Background(), []byte("anything"), StreamInfo{})

	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "first", convErr.Converter)
	assert.ErrorContains(t, err, "malformed")
	assert.Zero(t, second.Load())
}

func TestConvert_PanickingConverter(t *testing.T) {
	m := newTestEngine(t, WithoutBuiltins(), WithConverter("boom", ConverterFunc{
		AcceptsFunc: func(StreamInfo) bool { return true },
		ConvertFunc: func(context.Context, io.ReadSeeker, StreamInfo, Enricher) (*DocumentConverterResult, error) {
			panic("index out of range")
		},
	}, PriorityGeneric))

	_, err := m.ConvertBytes(context.Background(), []byte("x"), StreamInfo{})
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "boom", convErr.Converter)
	assert.ErrorContains(t, err, "panicked")
}

func TestConvert_Cancelled(t *testing.T) {
	m := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.ConvertBytes(ctx, []byte("hello"), StreamInfo{Extension: ".txt"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsConversionFailed(err))
}

func TestConvert_EmptyRegistry(t *testing.T) {
	m := newTestEngine(t, WithoutBuiltins())
	_, err := m.ConvertBytes(context.Background(), []byte("hello"), StreamInfo{Extension: ".txt"})
	assert.True(t, IsUnsupportedFormat(err))
}

func TestConvert_CustomConverterOutranksBuiltin(t *testing.T) {
	m := newTestEngine(t, WithConverter("custom-text", acceptAll("custom", nil, nil), PrioritySpecific+1))

	res, err := m.ConvertBytes(context.Background(), []byte("plain"), StreamInfo{Extension: ".txt"})
	require.NoError(t, err)
	assert.Equal(t, "from custom", res.Markdown)
	assert.Equal(t, "custom-text", m.Candidates()[0].Name)
}

func TestConvert_RegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register("a", acceptAll("a", nil, nil), PriorityGeneric)
	m := newTestEngine(t, WithRegistry(r))

	r.Register("b", acceptAll("b", nil, nil), PrioritySpecific)
	require.Len(t, m.Candidates(), 1)

	res, err := m.ConvertBytes(context.Background(), []byte("x"), StreamInfo{})
	require.NoError(t, err)
	assert.Equal(t, "from a", res.Markdown)
}

func TestConvert_ResultMetadataIsCopied(t *testing.T) {
	meta := map[string]string{"k": "v"}
	m := newTestEngine(t, WithoutBuiltins(), WithConverter("meta", ConverterFunc{
		AcceptsFunc: func(StreamInfo) bool { return true },
		ConvertFunc: func(context.Context, io.ReadSeeker, StreamInfo, Enricher) (*DocumentConverterResult, error) {
			return &DocumentConverterResult{Markdown: "body  \r\n\r\n\r\n\r\nend", Title: "T", Metadata: meta}, nil
		},
	}, PriorityGeneric))

	res, err := m.ConvertBytes(context.Background(), []byte("x"), StreamInfo{})
	require.NoError(t, err)
	assert.Equal(t, "body\n\nend", res.Markdown)
	assert.Equal(t, "T", res.Title)
	assert.Equal(t, meta, res.Metadata)

	res.Metadata["k"] = "changed"
	assert.Equal(t, "v", meta["k"])
}

func TestConvert_ConverterSeesRewoundReader(t *testing.T) {
	m := newTestEngine(t, WithoutBuiltins(), WithConverter("echo", ConverterFunc{
		AcceptsFunc: func(StreamInfo) bool { return true },
		ConvertFunc: func(_ context.Context, r io.ReadSeeker, info StreamInfo, e Enricher) (*DocumentConverterResult, error) {
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			require.NotNil(t, e)
			return &DocumentConverterResult{Markdown: string(data)}, nil
		},
	}, PriorityGeneric))

	res, err := m.ConvertStream(context.Background(), strings.NewReader("full body"), StreamInfo{})
	require.NoError(t, err)
	assert.Equal(t, "full body", res.Markdown)
}

func TestConvert_Concurrent(t *testing.T) {
	m := newTestEngine(t)

	g, ctx := errgroup.WithContext(context.Background())
	for i := range 16 {
		g.Go(func() error {
			doc := fmt.Sprintf("<html><body><h1>Doc %d</h1><p>body %d</p></body></html>", i, i)
			res, err := m.ConvertBytes(ctx, []byte(doc), StreamInfo{Extension: ".html"})
			if err != nil {
				return err
			}
			if !strings.Contains(res.Markdown, fmt.Sprintf("# Doc %d", i)) {
				return fmt.Errorf("doc %d: unexpected output %q", i, res.Markdown)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestConvert_URL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guide.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, `<html><head><title>Guide</title></head><body><p>See <a href="/faq">the FAQ</a>.</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	m := newTestEngine(t, WithHTTPClient(ts.Client()))

	res, err := m.Convert(context.Background(), ts.URL+"/guide.html")
	require.NoError(t, err)
	assert.Equal(t, "Guide", res.Title)
	assert.Contains(t, res.Markdown, "[the FAQ]("+ts.URL+"/faq)")

	_, err = m.Convert(context.Background(), ts.URL+"/missing.pdf")
	assert.ErrorIs(t, err, ErrUnreadableSource)
}

func TestConvert_FileScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readme.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nBody   \n"), 0o644))

	m := newTestEngine(t)
	res, err := m.Convert(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody", res.Markdown)
}

func TestNew_InvalidEnrichmentConfig(t *testing.T) {
	_, err := New(WithEnrichment(EnrichmentConfig{Model: "m", Backend: "carrier-pigeon"}))
	assert.Error(t, err)
}
