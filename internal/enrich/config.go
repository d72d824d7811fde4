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
	"fmt"
	"maps"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Supported backends.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// DefaultPrompt is sent with every asset unless Config.Prompt overrides it.
const DefaultPrompt = "Write a detailed caption for this image."

const defaultTimeout = 60 * time.Second

// Config holds the recognized enrichment options.
type Config struct {
	// Backend selects the wire protocol; empty means BackendOpenAI.
	Backend string
	// Endpoint is the backend base URL; empty selects the backend default.
	Endpoint string
	// Model identifies the model. Empty disables enrichment entirely.
	Model string
	// Headers are added to every backend request (auth, routing).
	Headers map[string]string
	Prompt  string
	Timeout time.Duration
}

// Validate checks the option values without contacting the backend.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.In(BackendOpenAI, BackendGemini)),
		validation.Field(&c.Endpoint, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Enabled reports whether a model identifier is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Model) != ""
}

// WithHeader returns a copy of c with one more request header.
func (c Config) WithHeader(key, value string) Config {
	h := maps.Clone(c.Headers)
	if h == nil {
		h = make(map[string]string)
	}
	h[key] = value
	c.Headers = h
	return c
}

func (c Config) backend() string {
	if c.Backend == "" {
		return BackendOpenAI
	}
	return c.Backend
}

func (c Config) prompt() string {
	if c.Prompt == "" {
		return DefaultPrompt
	}
	return c.Prompt
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// ParseHeader splits a "Key: Value" string.
func ParseHeader(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q: want \"Key: Value\"", s)
	}
	return key, strings.TrimSpace(value), nil
}
