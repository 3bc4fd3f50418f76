// Package hostutil classifies hosts and normalizes the base URLs the CLI
// sends bearer tokens to.
package hostutil

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// NormalizeBaseURL turns a host or URL into a base URL without a trailing
// slash. Bare loopback hosts get http://, everything else https://.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		host, _, _ := strings.Cut(raw, "/")
		if IsLoopback(host) {
			raw = "http://" + raw
		} else {
			raw = "https://" + raw
		}
	}
	return strings.TrimRight(raw, "/")
}

// RequireSecureURL rejects plain http:// URLs unless they point at a
// loopback host.
func RequireSecureURL(raw string) error {
	if raw == "" || !strings.HasPrefix(raw, "http://") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if IsLoopback(u.Host) {
		return nil
	}
	return fmt.Errorf("insecure http:// URL %q: tokens are only sent over https", raw)
}

// IsLoopback reports whether host, with an optional port, only accepts
// connections from this machine: localhost, a .localhost subdomain, or a
// loopback address. The empty host and unspecified addresses listen on
// every interface and are not loopback.
func IsLoopback(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
