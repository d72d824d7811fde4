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

// Package enrich implements the language-model backends that describe
// embedded images. Every backend is safe for concurrent use.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrUnavailable is returned by a hook that has no backend configured.
var ErrUnavailable = errors.New("enrichment unavailable")

// FailedError is returned when a configured backend was reached but the
// description could not be produced.
type FailedError struct {
	Backend string
	Status  int
	Err     error
}

func (e *FailedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("enrichment failed (%s, status %d): %v", e.Backend, e.Status, e.Err)
	}
	return fmt.Sprintf("enrichment failed (%s): %v", e.Backend, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Describer produces a text description of a binary asset.
type Describer interface {
	Describe(ctx context.Context, asset []byte, contentType string) (string, error)
}

// Unavailable is the hook used when no model is configured. It never touches
// the network.
type Unavailable struct{}

func (Unavailable) Describe(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}

// New builds the describer selected by cfg. A config without a model yields
// Unavailable. client may be nil, in which case one with cfg.Timeout is used.
func New(ctx context.Context, cfg Config, client *http.Client, logger *slog.Logger) (Describer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("enrichment config: %w", err)
	}
	if !cfg.Enabled() {
		return Unavailable{}, nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("backend", cfg.backend(), "model", cfg.Model)

	switch cfg.backend() {
	case BackendGemini:
		return NewGemini(ctx, cfg, logger)
	default:
		if client == nil {
			client = &http.Client{Timeout: cfg.timeout()}
		}
		return NewOpenAI(cfg, client, logger), nil
	}
}
