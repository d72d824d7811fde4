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

// Package remote fetches conversion inputs named by URL.
package remote

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/conductor-oss/markitdown-engine/internal/httputil"
)

// MaxObjectSize bounds how much of a remote object is buffered.
const MaxObjectSize = 512 << 20

// Object is a fully buffered remote input with the hints its transport gave.
type Object struct {
	Data        []byte
	ContentType string
	Charset     string
	Filename    string
	Extension   string
	URL         string
}

// IsURL reports whether source names a remote object this package can fetch.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "s3://")
}

// HTTPFetcher downloads http(s) URLs.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch GETs rawURL, retrying on 429/503.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch URL: status %s", resp.Status)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	obj := &Object{Data: data, URL: rawURL}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, params, err := mime.ParseMediaType(ct); err == nil {
			obj.ContentType = mt
			obj.Charset = params["charset"]
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		obj.Extension = strings.ToLower(path.Ext(u.Path))
		if obj.Extension != "" {
			obj.Filename = path.Base(u.Path)
		}
	}
	return obj, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxObjectSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxObjectSize {
		return nil, fmt.Errorf("object exceeds %d bytes", MaxObjectSize)
	}
	return data, nil
}
