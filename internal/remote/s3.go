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

package remote

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Fetcher downloads s3://bucket/key objects.
type S3Fetcher struct {
	downloader *manager.Downloader
}

// NewS3Fetcher wraps an existing S3 client.
func NewS3Fetcher(client manager.DownloadAPIClient) *S3Fetcher {
	return &S3Fetcher{downloader: manager.NewDownloader(client)}
}

// NewDefaultS3Fetcher builds a client from the default AWS configuration.
// MARKITDOWN_S3_ACCESS_KEY / MARKITDOWN_S3_SECRET_KEY select static
// credentials and MARKITDOWN_S3_ENDPOINT an S3-compatible endpoint.
func NewDefaultS3Fetcher(ctx context.Context) (*S3Fetcher, error) {
	var opts []func(*config.LoadOptions) error
	if key, secret := os.Getenv("MARKITDOWN_S3_ACCESS_KEY"), os.Getenv("MARKITDOWN_S3_SECRET_KEY"); key != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}
	if region := os.Getenv("MARKITDOWN_S3_REGION"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := os.Getenv("MARKITDOWN_S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Fetcher(client), nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 URL: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3://bucket/key URL: %q", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("missing object key in %q", rawURL)
	}
	return u.Host, key, nil
}

// Fetch downloads the object named by rawURL into memory.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) (*Object, error) {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, err
	}

	buf := manager.NewWriteAtBuffer(nil)
	n, err := f.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	if n > MaxObjectSize {
		return nil, fmt.Errorf("object exceeds %d bytes", MaxObjectSize)
	}

	return &Object{
		Data:      buf.Bytes(),
		Filename:  path.Base(key),
		Extension: strings.ToLower(path.Ext(key)),
		URL:       rawURL,
	}, nil
}
