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
	"errors"
	"log/slog"

	"github.com/conductor-oss/markitdown-engine/internal/enrich"
)

// Enricher describes non-textual assets (images) for converters that embed them.
type Enricher interface {
	// Describe returns a text description of asset. It fails with
	// ErrEnrichmentUnavailable when no backend is configured, or with an
	// *EnrichmentFailedError when the backend errored.
	Describe(ctx context.Context, asset []byte, contentType string) (string, error)
}

// EnricherFunc adapts a function to Enricher.
type EnricherFunc func(ctx context.Context, asset []byte, contentType string) (string, error)

func (f EnricherFunc) Describe(ctx context.Context, asset []byte, contentType string) (string, error) {
	return f(ctx, asset, contentType)
}

// ErrEnrichmentUnavailable is returned by a hook with no backend configured.
var ErrEnrichmentUnavailable = enrich.ErrUnavailable

// EnrichmentFailedError is returned when the backend was reached but errored.
type EnrichmentFailedError = enrich.FailedError

// EnrichmentConfig holds the recognized enrichment options.
type EnrichmentConfig = enrich.Config

// describeAsset asks e for a description and reports whether one was
// produced. Any enrichment error is absorbed here; callers fall back to the
// document's own alt text.
func describeAsset(ctx context.Context, e Enricher, asset []byte, contentType string) (string, bool) {
	if e == nil || len(asset) == 0 {
		return "", false
	}
	desc, err := e.Describe(ctx, asset, contentType)
	if err != nil || desc == "" {
		return "", false
	}
	return desc, true
}

// loggingEnricher records enrichment degradation for one conversion call.
type loggingEnricher struct {
	next   Enricher
	logger *slog.Logger
}

func (l loggingEnricher) Describe(ctx context.Context, asset []byte, contentType string) (string, error) {
	desc, err := l.next.Describe(ctx, asset, contentType)
	switch {
	case err == nil:
	case errors.Is(err, ErrEnrichmentUnavailable):
		l.logger.Debug("enrichment unavailable", "content_type", contentType)
	default:
		l.logger.Warn("enrichment failed, continuing without description",
			"content_type", contentType,
			"error", err,
		)
	}
	return desc, err
}
