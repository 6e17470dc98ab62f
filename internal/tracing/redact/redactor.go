// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package redact scrubs secrets from span attributes before they
// leave the process. It sits between the tracer and the exporting
// span processor, so unredacted values never reach a collector.
package redact

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const placeholder = "***REDACTED***"

// RedactionMode selects how aggressively attribute values are
// scrubbed.
type RedactionMode string

const (
	// ModeNone passes attributes through unmodified.
	ModeNone RedactionMode = "none"

	// ModeStandard replaces substrings matching known secret shapes
	// and blanks values whose keys look sensitive.
	ModeStandard RedactionMode = "standard"

	// ModeStrict blanks every string attribute value.
	ModeStrict RedactionMode = "strict"
)

// secretShapes match the same families the subprocess runner scrubs
// from captured output: VCS token prefixes, AWS access keys, bearer
// credentials, and key=value secret assignments.
var secretShapes = []*regexp.Regexp{
	regexp.MustCompile(`gh[poousr]_[A-Za-z0-9]{16,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`),
	regexp.MustCompile(`(?i)(password|api[_-]?key|secret|token)\s*[:=]\s*\S+`),
}

// sensitiveKeyFragments flag attribute keys whose values are always
// blanked under ModeStandard, regardless of shape.
var sensitiveKeyFragments = []string{"password", "secret", "token", "api_key", "apikey", "authorization", "credential"}

// Redactor rewrites strings and attribute sets per its mode.
type Redactor struct {
	mode RedactionMode
}

// NewRedactor creates a redactor for the given mode.
func NewRedactor(mode RedactionMode) *Redactor {
	return &Redactor{mode: mode}
}

// RedactString scrubs secret-shaped substrings from s.
func (r *Redactor) RedactString(s string) string {
	switch r.mode {
	case ModeNone:
		return s
	case ModeStrict:
		return placeholder
	}
	for _, re := range secretShapes {
		s = re.ReplaceAllString(s, placeholder)
	}
	return s
}

// RedactAttributes returns a copy of attrs with string values scrubbed.
// Non-string values pass through; under ModeStandard, values under
// sensitive keys are blanked outright.
func (r *Redactor) RedactAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	if r.mode == ModeNone {
		return attrs
	}
	out := make([]attribute.KeyValue, len(attrs))
	for i, kv := range attrs {
		if kv.Value.Type() != attribute.STRING {
			out[i] = kv
			continue
		}
		if r.mode == ModeStrict || r.keyIsSensitive(string(kv.Key)) {
			out[i] = attribute.String(string(kv.Key), placeholder)
			continue
		}
		out[i] = attribute.String(string(kv.Key), r.RedactString(kv.Value.AsString()))
	}
	return out
}

func (r *Redactor) keyIsSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// RedactorSpanProcessor applies a Redactor to every span's attributes
// before handing it to the next processor in the chain.
type RedactorSpanProcessor struct {
	redactor *Redactor
	next     sdktrace.SpanProcessor
}

// NewRedactorSpanProcessor wraps next with attribute redaction.
func NewRedactorSpanProcessor(redactor *Redactor, next sdktrace.SpanProcessor) *RedactorSpanProcessor {
	return &RedactorSpanProcessor{redactor: redactor, next: next}
}

// OnStart rewrites the span's attributes in place while the span is
// still writable; OnEnd only forwards, since a completed span is
// read-only.
func (p *RedactorSpanProcessor) OnStart(ctx context.Context, span sdktrace.ReadWriteSpan) {
	span.SetAttributes(p.redactor.RedactAttributes(span.Attributes())...)
	p.next.OnStart(ctx, span)
}

func (p *RedactorSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	p.next.OnEnd(span)
}

func (p *RedactorSpanProcessor) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

func (p *RedactorSpanProcessor) ForceFlush(ctx context.Context) error {
	return p.next.ForceFlush(ctx)
}
