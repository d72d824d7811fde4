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
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/conductor-oss/markitdown-engine/internal/httputil"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// OpenAI describes assets through an OpenAI-compatible chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
	prompt string
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI-compatible describer. Headers are copied.
func NewOpenAI(cfg Config, client *http.Client, logger *slog.Logger) *OpenAI {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Credentials travel in the configured headers, not as an API key.
	oc := openai.DefaultConfig("")
	oc.BaseURL = endpoint
	oc.HTTPClient = &retryDoer{client: client, headers: headers}

	return &OpenAI{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		prompt: cfg.prompt(),
		logger: logger,
	}
}

// retryDoer adds the configured headers to every request and retries
// throttled ones.
type retryDoer struct {
	client  *http.Client
	headers http.Header
}

func (d *retryDoer) Do(req *http.Request) (*http.Response, error) {
	if strings.TrimSpace(req.Header.Get("Authorization")) == "Bearer" {
		req.Header.Del("Authorization")
	}
	for k, v := range d.headers {
		req.Header[k] = v
	}
	return httputil.DoWithRetry(req.Context(), d.client, req, 0)
}

func (o *OpenAI) Describe(ctx context.Context, asset []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(asset)
	}
	dataURI := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(asset)

	o.logger.Debug("describing asset", "content_type", contentType, "bytes", len(asset))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: o.prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURI}},
			},
		}},
	})
	if err != nil {
		return "", o.fail(statusOf(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", o.fail(0, errors.New("response has no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// statusOf extracts the HTTP status from a client error, or 0 when the
// backend never answered with one.
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func (o *OpenAI) fail(status int, err error) error {
	return &FailedError{Backend: BackendOpenAI, Status: status, Err: err}
}
