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

import "time"

// Config holds configuration for the HTTP action.
type Config struct {
	// Timeout is the default timeout for requests (default: 30s)
	Timeout time.Duration

	// AllowedHosts restricts which hosts can be contacted (empty = allow
	// all). An entry may be an exact hostname or a "*.domain" wildcard
	// matching any subdomain.
	AllowedHosts []string

	// RequireHTTPS requires all requests, including redirect targets, to
	// use HTTPS.
	RequireHTTPS bool

	// BlockPrivateIPs rejects requests whose host resolves to a
	// loopback, link-local, or RFC1918/RFC4193 private address.
	BlockPrivateIPs bool

	// MaxResponseSize limits response body size in bytes (default: 10MB)
	MaxResponseSize int64

	// MaxRedirects limits redirect following (default: 10)
	MaxRedirects int
}

// DefaultConfig returns a config with secure defaults: private
// addresses are blocked and HTTPS is not forced, matching the
// expectations of a workflow author who mostly calls public APIs but
// occasionally needs localhost during development.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		AllowedHosts:    []string{},
		RequireHTTPS:    false,
		BlockPrivateIPs: true,
		MaxResponseSize: 10 * 1024 * 1024,
		MaxRedirects:    10,
	}
}
