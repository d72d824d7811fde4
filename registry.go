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
	"slices"
	"sort"
)

const (
	// PrioritySpecific is for format-specific converters (PDF, DOCX, etc.).
	PrioritySpecific = 10.0
	// PriorityGeneric is for fallback converters (PlainText, HTML, ZIP).
	PriorityGeneric = 0.0
)

// Candidate is a registered converter together with its dispatch priority.
type Candidate struct {
	Name      string
	Converter DocumentConverter
	Priority  float64
}

// Registry is an ordered collection of converters. Higher priorities are
// probed first; equal priorities keep registration order.
//
// A Registry is not safe for concurrent registration. Engines take their own
// snapshot at construction, after which reads are safe from any goroutine.
type Registry struct {
	candidates []Candidate
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a converter with the given priority.
func (r *Registry) Register(name string, c DocumentConverter, priority float64) {
	r.candidates = append(r.candidates, Candidate{
		Name:      name,
		Converter: c,
		Priority:  priority,
	})
	// Stable sort keeps earlier registrations ahead within a priority.
	sort.SliceStable(r.candidates, func(i, j int) bool {
		return r.candidates[i].Priority > r.candidates[j].Priority
	})
}

// Candidates returns the converters in dispatch order.
func (r *Registry) Candidates() []Candidate {
	return slices.Clone(r.candidates)
}

// Len returns the number of registered converters.
func (r *Registry) Len() int {
	return len(r.candidates)
}

// Select returns the first candidate whose Accepts is satisfied by info.
func (r *Registry) Select(info StreamInfo) (Candidate, bool) {
	for _, c := range r.candidates {
		if c.Converter.Accepts(info) {
			return c, true
		}
	}
	return Candidate{}, false
}

func (r *Registry) clone() *Registry {
	return &Registry{candidates: slices.Clone(r.candidates)}
}
