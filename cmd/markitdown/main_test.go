package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	markitdown "github.com/conductor-oss/markitdown-engine"
)

func TestRenderFrontMatter(t *testing.T) {
	res := &markitdown.DocumentConverterResult{
		Markdown: "# Report\n\nbody",
		Title:    "Report",
		Metadata: map[string]string{"pages": "2"},
	}

	out := render(res, "report.pdf", true)
	require.True(t, strings.HasPrefix(out, "---\n"))

	head, body, ok := strings.Cut(strings.TrimPrefix(out, "---\n"), "---\n\n")
	require.True(t, ok)
	assert.Equal(t, "# Report\n\nbody\n", body)

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(head), &fm))
	assert.Equal(t, "Report", fm.Title)
	assert.Equal(t, "report.pdf", fm.Source)
	assert.Equal(t, "2", fm.Metadata["pages"])

	assert.Equal(t, "body\n", render(&markitdown.DocumentConverterResult{Markdown: "body"}, "x", false))
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"docs/report.pdf", "report.md"},
		{"https://example.com/a/page.html?x=1", "page.md"},
		{"s3://bucket/deck.pptx", "deck.md"},
		{"https://example.com/", "example.md"},
		{".hidden", "document.md"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, []string{filepath.Join("out", tt.want)}, outputPaths("out", []string{tt.src}))
		})
	}
}

func TestOutputPathsDisambiguates(t *testing.T) {
	got := outputPaths("out", []string{
		"a/report.pdf",
		"b/report.docx",
		"c/report.pdf",
		"notes.txt",
	})
	assert.Equal(t, []string{
		filepath.Join("out", "report.pdf.md"),
		filepath.Join("out", "report.docx.md"),
		filepath.Join("out", "report.pdf-2.md"),
		filepath.Join("out", "notes.md"),
	}, got)
}

func TestLLMHeadersFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringArray("llm-header", nil, "")
	require.NoError(t, cmd.Flags().Set("llm-header", "Authorization: Bearer X"))
	require.NoError(t, cmd.Flags().Set("llm-header", "X-Route: eu"))

	assert.Equal(t, []string{"Authorization: Bearer X", "X-Route: eu"}, llmHeaders(cmd))
}

func TestEnrichmentConfigHeadersFromEnv(t *testing.T) {
	t.Setenv("MARKITDOWN_LLM_HEADER", "Authorization: Bearer X\nX-Route: eu\n")
	initConfig()

	cfg, err := enrichmentConfig(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer X",
		"X-Route":       "eu",
	}, cfg.Headers)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", "json")
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestRootCommandConvertsFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,age\nAda,36\n"), 0o644))
	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("plain notes"), 0o644))
	outDir := filepath.Join(dir, "out")

	rootCmd.SetArgs([]string{"--output-dir", outDir, "--jobs", "2", csvPath, txtPath})
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	table, err := os.ReadFile(filepath.Join(outDir, "people.md"))
	require.NoError(t, err)
	assert.Contains(t, string(table), "| name | age |")
	assert.Contains(t, string(table), "| Ada | 36 |")

	notes, err := os.ReadFile(filepath.Join(outDir, "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "plain notes\n", string(notes))
	assert.Empty(t, stdout.String())
}

func TestRootCommandVersionFlag(t *testing.T) {
	t.Cleanup(func() { rootCmd.Flags().Set("version", "false") })

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"--version"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Equal(t, "markitdown version dev\n", stdout.String())
}
