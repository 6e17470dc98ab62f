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

package export

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSInput configures the TLS connection an OTLP exporter dials with.
type TLSInput struct {
	Enabled    bool
	CACertPath string
}

// BuildTLSConfig builds a *tls.Config from input, or returns nil when
// TLS is not enabled (the caller then dials insecure). The system
// certificate pool is used unless a custom CA is given.
func BuildTLSConfig(input TLSInput) (*tls.Config, error) {
	if !input.Enabled {
		return nil, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if input.CACertPath == "" {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("loading system cert pool: %w", err)
		}
		cfg.RootCAs = pool
		return cfg, nil
	}

	pem, err := os.ReadFile(input.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("reading CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("parsing CA certificate %s", input.CACertPath)
	}
	cfg.RootCAs = pool
	return cfg, nil
}
