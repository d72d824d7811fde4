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
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrUnreadableSource  = errors.New("unreadable source")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrConversionFailed  = errors.New("conversion failed")
)

// UnreadableSourceError is returned when the input cannot be opened, read or rewound.
type UnreadableSourceError struct {
	Source string
	Err    error
}

func (e *UnreadableSourceError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("unreadable source: %v", e.Err)
	}
	return fmt.Sprintf("unreadable source %q: %v", e.Source, e.Err)
}

func (e *UnreadableSourceError) Unwrap() error { return e.Err }

func (e *UnreadableSourceError) Is(target error) bool { return target == ErrUnreadableSource }

// UnsupportedFormatError is returned when no converter can handle the input format.
type UnsupportedFormatError struct {
	Extension string
	MIMEType  string
}

func (e *UnsupportedFormatError) Error() string {
	parts := []string{"unsupported format"}
	if e.Extension != "" {
		parts = append(parts, fmt.Sprintf("extension=%q", e.Extension))
	}
	if e.MIMEType != "" {
		parts = append(parts, fmt.Sprintf("mime=%q", e.MIMEType))
	}
	return strings.Join(parts, " ")
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// ConversionError is returned when the converter that accepted the input failed
// to convert it. Acceptance is binding, so there is exactly one converter to blame.
type ConversionError struct {
	Converter string
	Err       error
}

func (e *ConversionError) Error() string {
	if e.Converter == "" {
		return fmt.Sprintf("conversion failed: %v", e.Err)
	}
	return fmt.Sprintf("conversion failed in %s: %v", e.Converter, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) Is(target error) bool { return target == ErrConversionFailed }

// IsUnsupportedFormat reports whether the error is an UnsupportedFormatError.
func IsUnsupportedFormat(err error) bool {
	var target *UnsupportedFormatError
	return errors.As(err, &target)
}

// IsUnreadableSource reports whether the error is an UnreadableSourceError.
func IsUnreadableSource(err error) bool {
	var target *UnreadableSourceError
	return errors.As(err, &target)
}

// IsConversionFailed reports whether the error is a ConversionError.
func IsConversionFailed(err error) bool {
	var target *ConversionError
	return errors.As(err, &target)
}
