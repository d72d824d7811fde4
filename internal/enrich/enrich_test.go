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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductor-oss/markitdown-engine/internal/httputil"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// echoServer answers each chat completion with the decoded image payload so
// concurrent callers can tell their responses apart.
func echoServer(t *testing.T, seenAuth *sync.Map) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		uri := req.Messages[0].Content[1].ImageURL.URL
		_, b64, _ := strings.Cut(uri, ";base64,")
		payload, _ := base64.StdEncoding.DecodeString(b64)
		if seenAuth != nil {
			seenAuth.Store(string(payload), r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "described " + string(payload)}},
			},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestNew_NoModelIsUnavailable(t *testing.T) {
	var called int32
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&called, 1)
		return nil, context.Canceled
	})}

	d, err := New(context.Background(), Config{Endpoint: "http://example.invalid"}, client, nil)
	require.NoError(t, err)
	assert.IsType(t, Unavailable{}, d)

	_, err = d.Describe(context.Background(), []byte("png"), "image/png")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, atomic.LoadInt32(&called))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Model: "m", Backend: "carrier-pigeon"}, nil, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Model: "m", Endpoint: "not a url"}, nil, nil)
	assert.Error(t, err)
}

func TestOpenAI_Describe(t *testing.T) {
	var seen sync.Map
	ts := echoServer(t, &seen)

	d, err := New(context.Background(), Config{Endpoint: ts.URL, Model: "gpt-test"}, ts.Client(), nil)
	require.NoError(t, err)

	got, err := d.Describe(context.Background(), []byte("cat"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "described cat", got)

	auth, ok := seen.Load("cat")
	require.True(t, ok)
	assert.Empty(t, auth, "no credentials configured")
}

func TestOpenAI_RetriesThrottledRequests(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" a chart "}}]}`))
	}))
	defer ts.Close()

	d := NewOpenAI(Config{Endpoint: ts.URL + "/", Model: "m"}, ts.Client(), nil)
	got, err := d.Describe(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "a chart", got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAI_ConcurrentCallsWithHeader(t *testing.T) {
	var seen sync.Map
	ts := echoServer(t, &seen)

	cfg := Config{Endpoint: ts.URL, Model: "gpt-test"}.WithHeader("Authorization", "Bearer X")
	d, err := New(context.Background(), cfg, ts.Client(), nil)
	require.NoError(t, err)

	assets := []string{"first-asset", "second-asset"}
	results := make([]string, len(assets))
	errs := make([]error, len(assets))

	var wg sync.WaitGroup
	for i, a := range assets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = d.Describe(context.Background(), []byte(a), "image/jpeg")
		}()
	}
	wg.Wait()

	for i, a := range assets {
		require.NoError(t, errs[i])
		assert.Equal(t, "described "+a, results[i])
		auth, ok := seen.Load(a)
		require.True(t, ok)
		assert.Equal(t, "Bearer X", auth)
	}
}

func TestOpenAI_BackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "bad key", http.StatusUnauthorized)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte("{not json"))
			},
			status: 0,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			status: 0,
		},
		{
			name: "api error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
			},
			status: http.StatusBadRequest,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			status: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			d := NewOpenAI(Config{Endpoint: ts.URL, Model: "m"}, ts.Client(), nil)
			_, err := d.Describe(context.Background(), []byte("x"), "image/png")

			var failed *FailedError
			require.ErrorAs(t, err, &failed)
			assert.Equal(t, tt.status, failed.Status)
			assert.NotErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestParseHeader(t *testing.T) {
	k, v, err := ParseHeader("Authorization: Bearer X")
	require.NoError(t, err)
	assert.Equal(t, "Authorization", k)
	assert.Equal(t, "Bearer X", v)

	k, v, err = ParseHeader("X-Route:a:b")
	require.NoError(t, err)
	assert.Equal(t, "X-Route", k)
	assert.Equal(t, "a:b", v)

	_, _, err = ParseHeader("no-colon")
	assert.Error(t, err)
	_, _, err = ParseHeader(": value")
	assert.Error(t, err)
}

func TestConfig_WithHeaderCopies(t *testing.T) {
	base := Config{Model: "m"}.WithHeader("A", "1")
	derived := base.WithHeader("B", "2")

	assert.Len(t, base.Headers, 1)
	assert.Len(t, derived.Headers, 2)
}

func TestGeminiAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	assert.Equal(t, "h-key", geminiAPIKey(map[string]string{"X-Goog-Api-Key": "h-key"}))
	assert.Equal(t, "b-key", geminiAPIKey(map[string]string{"Authorization": "Bearer b-key"}))
	assert.Equal(t, "env-key", geminiAPIKey(nil))
}
