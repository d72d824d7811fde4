package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	markitdown "github.com/conductor-oss/markitdown-engine"
	"github.com/conductor-oss/markitdown-engine/internal/enrich"
)

func runConvert(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd.ErrOrStderr(), viper.GetString("log-level"), viper.GetString("log-format"))
	if err != nil {
		return err
	}

	enrichment, err := enrichmentConfig(cmd)
	if err != nil {
		return err
	}

	m, err := markitdown.New(
		markitdown.WithLogger(logger),
		markitdown.WithKeepDataURIs(viper.GetBool("keep-data-uris")),
		markitdown.WithEnrichment(enrichment),
	)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := cmd.Context()
	frontmatter := viper.GetBool("frontmatter")

	if len(args) == 0 {
		res, err := m.ConvertStream(ctx, cmd.InOrStdin(), markitdown.StreamInfo{
			Extension: viper.GetString("extension"),
			MIMEType:  viper.GetString("mime-type"),
			Charset:   viper.GetString("charset"),
		})
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), viper.GetString("output"), render(res, "stdin", frontmatter))
	}

	results := make([]string, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, viper.GetInt("jobs")))
	for i, src := range args {
		g.Go(func() error {
			res, err := m.Convert(gctx, src)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			logger.Info("converted", "source", src, "bytes", len(res.Markdown))
			results[i] = render(res, src, frontmatter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if dir := viper.GetString("output-dir"); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		for i, path := range outputPaths(dir, args) {
			if err := os.WriteFile(path, []byte(results[i]), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
		return nil
	}
	return writeResult(cmd.OutOrStdout(), viper.GetString("output"), strings.Join(results, "\n"))
}

// enrichmentConfig assembles the backend options from flags, env and config file.
func enrichmentConfig(cmd *cobra.Command) (markitdown.EnrichmentConfig, error) {
	cfg := markitdown.EnrichmentConfig{
		Backend:  viper.GetString("llm-backend"),
		Endpoint: viper.GetString("llm-endpoint"),
		Model:    viper.GetString("llm-model"),
		Prompt:   viper.GetString("llm-prompt"),
	}
	for _, h := range llmHeaders(cmd) {
		key, value, err := enrich.ParseHeader(h)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.WithHeader(key, value)
	}
	return cfg, cfg.Validate()
}

// llmHeaders returns the raw "Key: Value" headers. Flags repeat; an env var or
// config string holds one header per line.
func llmHeaders(cmd *cobra.Command) []string {
	if f := cmd.Flags(); f.Changed("llm-header") {
		headers, _ := f.GetStringArray("llm-header")
		return headers
	}
	switch v := viper.Get("llm-header").(type) {
	case string:
		var headers []string
		for line := range strings.SplitSeq(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				headers = append(headers, line)
			}
		}
		return headers
	case []string:
		return v
	case []any:
		headers := make([]string, 0, len(v))
		for _, h := range v {
			headers = append(headers, fmt.Sprint(h))
		}
		return headers
	}
	return nil
}

type frontMatter struct {
	Title    string            `yaml:"title,omitempty"`
	Source   string            `yaml:"source"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// render formats a result for output, optionally behind a YAML header.
func render(res *markitdown.DocumentConverterResult, source string, withFrontMatter bool) string {
	if !withFrontMatter {
		return res.Markdown + "\n"
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(frontMatter{Title: res.Title, Source: source, Metadata: res.Metadata}); err != nil {
		return res.Markdown + "\n"
	}
	enc.Close()
	b.WriteString("---\n\n")
	b.WriteString(res.Markdown)
	b.WriteString("\n")
	return b.String()
}

// outputPaths names the markdown file written for each source inside dir.
// Sources sharing a stem keep their extension in the name; names that still
// collide get a numeric suffix.
func outputPaths(dir string, sources []string) []string {
	stems := make([]string, len(sources))
	names := make([]string, len(sources))
	count := make(map[string]int, len(sources))
	for i, src := range sources {
		names[i], stems[i] = sourceName(src)
		count[stems[i]]++
	}

	used := make(map[string]bool, len(sources))
	paths := make([]string, len(sources))
	for i := range sources {
		name := stems[i]
		if count[name] > 1 {
			name = names[i]
		}
		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s-%d", name, n)
		}
		used[candidate] = true
		paths[i] = filepath.Join(dir, candidate+".md")
	}
	return paths
}

// sourceName returns the base name of a path or URL and that name without
// its extension.
func sourceName(src string) (name, stem string) {
	name = filepath.Base(strings.TrimRight(src, "/"))
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "." || name == "/" {
		return "document", "document"
	}
	stem = strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = "document"
	}
	return name, stem
}

func writeResult(stdout io.Writer, path, content string) error {
	if path == "" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}
