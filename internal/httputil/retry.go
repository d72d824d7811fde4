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

// Package httputil provides the HTTP retry helper shared by remote sources and
// enrichment backends.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RetryBaseDelay is the first backoff interval. Tests override it.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// Retryable reports whether a status code is worth another attempt.
// Plain 500s are not retried; they rarely clear on their own.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoWithRetry executes req and retries on Retryable statuses with exponential
// backoff starting at RetryBaseDelay. Requests with a body must set GetBody
// (http.NewRequest does so for in-memory bodies) so each attempt replays it.
//
// maxRetries <= 0 selects the default. When retries are exhausted the last
// response is returned unchanged for the caller to inspect. A context
// cancelled during a backoff wait returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if client == nil {
		client = http.DefaultClient
	}

	delay := RetryBaseDelay
	for attempt := 0; ; attempt++ {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replay request body: %w", err)
			}
			r.Body = body
		}

		resp, err := client.Do(r)
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
