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

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var allowedRequestMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// requestBody extracts the optional "body" input as a reader, or nil
// if the operation was called without one.
func requestBody(inputs map[string]interface{}) io.Reader {
	bodyStr, ok := inputs["body"].(string)
	if !ok || bodyStr == "" {
		return nil
	}
	return strings.NewReader(bodyStr)
}

func (c *HTTPAction) get(ctx context.Context, inputs map[string]interface{}) (*Result, error) {
	rawURL, ok := inputs["url"].(string)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	req, err := c.validateAndPrepareRequest(ctx, "GET", rawURL, nil, inputs)
	if err != nil {
		return nil, err
	}
	return c.executeRequest(req, inputs)
}

func (c *HTTPAction) delete(ctx context.Context, inputs map[string]interface{}) (*Result, error) {
	rawURL, ok := inputs["url"].(string)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	req, err := c.validateAndPrepareRequest(ctx, "DELETE", rawURL, nil, inputs)
	if err != nil {
		return nil, err
	}
	return c.executeRequest(req, inputs)
}

// withBody runs a method that may carry a request body, defaulting the
// Content-Type to application/json when a body is present and no
// explicit header was set.
func (c *HTTPAction) withBody(ctx context.Context, method string, inputs map[string]interface{}) (*Result, error) {
	rawURL, ok := inputs["url"].(string)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	body := requestBody(inputs)

	req, err := c.validateAndPrepareRequest(ctx, method, rawURL, body, inputs)
	if err != nil {
		return nil, err
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.executeRequest(req, inputs)
}

func (c *HTTPAction) post(ctx context.Context, inputs map[string]interface{}) (*Result, error) {
	return c.withBody(ctx, "POST", inputs)
}

func (c *HTTPAction) put(ctx context.Context, inputs map[string]interface{}) (*Result, error) {
	return c.withBody(ctx, "PUT", inputs)
}

func (c *HTTPAction) patch(ctx context.Context, inputs map[string]interface{}) (*Result, error) {
	return c.withBody(ctx, "PATCH", inputs)
}

// request performs an HTTP call with a caller-supplied method, for
// verbs the dedicated operations don't cover (HEAD, OPTIONS) or when a
// workflow picks the method dynamically.
func (c *HTTPAction) request(ctx context.Context, inputs map[string]interface{}) (*Result, error) {
	rawURL, ok := inputs["url"].(string)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	method, ok := inputs["method"].(string)
	if !ok || method == "" {
		return nil, fmt.Errorf("method is required for request operation")
	}
	method = strings.ToUpper(method)

	allowed := false
	for _, m := range allowedRequestMethods {
		if method == m {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("invalid HTTP method: %s (allowed: %v)", method, allowedRequestMethods)
	}

	return c.withBody(ctx, method, inputs)
}

func init() {
	parseJSONString = func(jsonStr string, target *interface{}) error {
		return json.Unmarshal([]byte(jsonStr), target)
	}
}
