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
	"fmt"
	"net"
	"strings"
)

// hostAllowed reports whether host matches one of allowed. An entry is
// either an exact hostname or a "*.domain" wildcard matching any
// subdomain of domain (but not domain itself).
func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, pattern := range allowed {
		pattern = strings.ToLower(pattern)
		if pattern == host {
			return true
		}
		if rest, ok := strings.CutPrefix(pattern, "*."); ok {
			if strings.HasSuffix(host, "."+rest) {
				return true
			}
		}
	}
	return false
}

// rejectPrivateHost resolves host (or parses it as a literal IP) and
// returns an error if any candidate address is a loopback, link-local,
// unspecified, or RFC1918/RFC4193 private address.
func rejectPrivateHost(ctx context.Context, host string) error {
	if ip := net.ParseIP(host); ip != nil {
		return checkPrivateIP(host, ip)
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", host, err)
	}
	for _, addr := range addrs {
		if err := checkPrivateIP(host, addr.IP); err != nil {
			return err
		}
	}
	return nil
}

func checkPrivateIP(host string, ip net.IP) error {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("%s resolves to a private or loopback address (%s)", host, ip)
	}
	return nil
}
