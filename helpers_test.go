package markitdown

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// zipBytes builds an archive from name/body pairs in sorted name order.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fixedEnricher answers every request with the same description.
type fixedEnricher struct {
	desc  string
	calls atomic.Int32
}

func (f *fixedEnricher) Describe(context.Context, []byte, string) (string, error) {
	f.calls.Add(1)
	return f.desc, nil
}

var failingEnricher = EnricherFunc(func(context.Context, []byte, string) (string, error) {
	return "", &EnrichmentFailedError{Backend: "stub", Status: 500, Err: errors.New("boom")}
})

func newTestEngine(t *testing.T, opts ...Option) *MarkItDown {
	t.Helper()
	m, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}
