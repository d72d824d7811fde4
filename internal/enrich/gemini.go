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

package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini describes assets with Google's Gemini models.
type Gemini struct {
	client *genai.Client
	model  string
	prompt string
	logger *slog.Logger
}

// NewGemini creates a Gemini describer. The API key is taken from an
// "x-goog-api-key" or bearer "Authorization" header, falling back to
// GEMINI_API_KEY.
func NewGemini(ctx context.Context, cfg Config, logger *slog.Logger) (*Gemini, error) {
	var opts []option.ClientOption
	if key := geminiAPIKey(cfg.Headers); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gemini{client: cl, model: cfg.Model, prompt: cfg.prompt(), logger: logger}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *Gemini) Describe(ctx context.Context, asset []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(asset)
	}
	format := strings.TrimPrefix(strings.ToLower(contentType), "image/")

	g.logger.Debug("describing asset", "content_type", contentType, "bytes", len(asset))

	m := g.client.GenerativeModel(g.model)
	resp, err := m.GenerateContent(ctx, genai.Text(g.prompt), genai.ImageData(format, asset))
	if err != nil {
		return "", &FailedError{Backend: BackendGemini, Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &FailedError{Backend: BackendGemini, Err: errors.New("response has no candidates")}
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func geminiAPIKey(headers map[string]string) string {
	for k, v := range headers {
		switch strings.ToLower(k) {
		case "x-goog-api-key":
			return v
		case "authorization":
			if key, ok := strings.CutPrefix(v, "Bearer "); ok {
				return strings.TrimSpace(key)
			}
		}
	}
	return os.Getenv("GEMINI_API_KEY")
}
