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

// Package http provides a builtin action for making outbound HTTP
// requests from a workflow step: get/post/put/patch/delete plus a
// generic request operation, with host allow-listing, HTTPS
// enforcement, and SSRF protection against private addresses applied
// to both the original request and any redirect it follows.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPAction implements the action interface for outbound HTTP calls.
type HTTPAction struct {
	config *Config
	client *http.Client
}

// Result represents the output of an HTTP operation.
type Result struct {
	Response interface{}
	Metadata map[string]interface{}
}

// parseJSONString is replaced by init() in operations.go with the real
// encoding/json implementation, keeping the JSON dependency out of
// this file.
var parseJSONString func(jsonStr string, target *interface{}) error = func(string, *interface{}) error {
	return fmt.Errorf("json parsing not available")
}

// New creates an HTTP action instance. A nil config uses DefaultConfig.
func New(config *Config) (*HTTPAction, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxResponseSize == 0 {
		config.MaxResponseSize = 10 * 1024 * 1024
	}
	if config.MaxRedirects == 0 {
		config.MaxRedirects = 10
	}

	action := &HTTPAction{config: config}
	action.client = &http.Client{
		Timeout: config.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			return action.checkURL(req.Context(), req.URL)
		},
	}
	return action, nil
}

// Name returns the action identifier.
func (c *HTTPAction) Name() string {
	return "http"
}

// Execute runs a named HTTP operation with the given inputs.
func (c *HTTPAction) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (*Result, error) {
	switch operation {
	case "get":
		return c.get(ctx, inputs)
	case "post":
		return c.post(ctx, inputs)
	case "put":
		return c.put(ctx, inputs)
	case "patch":
		return c.patch(ctx, inputs)
	case "delete":
		return c.delete(ctx, inputs)
	case "request":
		return c.request(ctx, inputs)
	default:
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}
}

// checkURL applies Config's host, scheme, and private-address policy
// to u. Called on the original request and again, via CheckRedirect,
// on every redirect target so a policy-compliant URL cannot be used to
// pivot into a blocked one.
func (c *HTTPAction) checkURL(ctx context.Context, u *url.URL) error {
	if c.config.RequireHTTPS && u.Scheme != "https" {
		return &SecurityBlockedError{URL: u.String(), Reason: "HTTPS is required"}
	}
	if len(c.config.AllowedHosts) > 0 && !hostAllowed(u.Hostname(), c.config.AllowedHosts) {
		return &SecurityBlockedError{URL: u.String(), Reason: fmt.Sprintf("host %q is not in the allowed list", u.Hostname())}
	}
	if c.config.BlockPrivateIPs {
		if err := rejectPrivateHost(ctx, u.Hostname()); err != nil {
			return &SecurityBlockedError{URL: u.String(), Reason: err.Error()}
		}
	}
	return nil
}

// validateAndPrepareRequest parses and security-checks rawURL, then
// builds the *http.Request with any caller-supplied headers applied.
func (c *HTTPAction) validateAndPrepareRequest(ctx context.Context, method, rawURL string, body io.Reader, inputs map[string]interface{}) (*http.Request, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "scheme must be http or https"}
	}
	if parsed.Host == "" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "missing host"}
	}
	if err := c.checkURL(ctx, parsed); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}
	if headers, ok := inputs["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}
	return req, nil
}

// executeRequest sends req, caps the response body at
// Config.MaxResponseSize, and optionally parses it as JSON.
func (c *HTTPAction) executeRequest(req *http.Request, inputs map[string]interface{}) (*Result, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		var secErr *SecurityBlockedError
		if errors.As(err, &secErr) {
			return nil, secErr
		}
		if req.Context().Err() != nil {
			return nil, &TimeoutError{URL: req.URL.String(), Timeout: c.config.Timeout.String()}
		}
		return nil, &NetworkError{URL: req.URL.String(), Reason: err.Error()}
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.config.MaxResponseSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, &NetworkError{URL: req.URL.String(), Reason: err.Error()}
	}
	if int64(len(data)) > c.config.MaxResponseSize {
		return nil, &NetworkError{URL: req.URL.String(), Reason: fmt.Sprintf("response exceeds max size of %d bytes", c.config.MaxResponseSize)}
	}

	headers := make(map[string]interface{}, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) == 1 {
			headers[k] = v[0]
			continue
		}
		headers[k] = v
	}

	var bodyValue interface{} = string(data)
	if parseJSON, _ := inputs["parse_json"].(bool); parseJSON && len(data) > 0 {
		var parsed interface{}
		if err := parseJSONString(string(data), &parsed); err == nil {
			bodyValue = parsed
		}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	response := map[string]interface{}{
		"success":     success,
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        bodyValue,
	}
	if !success {
		response["error"] = fmt.Sprintf("request returned status %d", resp.StatusCode)
	}

	return &Result{
		Response: response,
		Metadata: map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"url":         req.URL.String(),
			"method":      req.Method,
		},
	}, nil
}
