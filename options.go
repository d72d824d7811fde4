package markitdown

import (
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"

	"github.com/conductor-oss/markitdown-engine/internal/remote"
)

// Option configures a MarkItDown instance.
type Option func(*MarkItDown)

// WithKeepDataURIs configures whether to keep full data URIs in output
// (default: false, which truncates them to data:mime/type;base64...).
func WithKeepDataURIs(keep bool) Option {
	return func(m *MarkItDown) {
		m.keepDataURIs = keep
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(m *MarkItDown) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithEnrichment configures the enrichment backend. A config without a model
// leaves enrichment disabled.
func WithEnrichment(cfg EnrichmentConfig) Option {
	return func(m *MarkItDown) {
		m.enrichCfg = cfg
	}
}

// WithEnricher installs a ready-made enrichment hook, taking precedence over
// WithEnrichment. Useful for tests and custom backends.
func WithEnricher(e Enricher) Option {
	return func(m *MarkItDown) {
		m.enricher = e
	}
}

// WithRegistry makes the engine dispatch over a snapshot of r instead of the
// built-in converters. Later changes to r do not affect the engine.
func WithRegistry(r *Registry) Option {
	return func(m *MarkItDown) {
		m.registry = r.clone()
		m.builtins = false
	}
}

// WithConverter registers an additional converter alongside the builtins.
func WithConverter(name string, c DocumentConverter, priority float64) Option {
	return func(m *MarkItDown) {
		m.extra = append(m.extra, Candidate{Name: name, Converter: c, Priority: priority})
	}
}

// WithoutBuiltins starts from an empty registry.
func WithoutBuiltins() Option {
	return func(m *MarkItDown) {
		m.builtins = false
	}
}

// WithHTTPClient sets the client used for URL sources and the enrichment backend.
func WithHTTPClient(c *http.Client) Option {
	return func(m *MarkItDown) {
		m.httpClient = c
	}
}

// WithS3Client sets the client used for s3:// sources. Without it a client is
// built from the default AWS configuration on first use.
func WithS3Client(c manager.DownloadAPIClient) Option {
	return func(m *MarkItDown) {
		m.s3 = remote.NewS3Fetcher(c)
	}
}
