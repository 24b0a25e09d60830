package model

import (
	"fmt"
	"net"
	"net/url"
)

// Origin returns the (scheme, host, port) triple used as the circuit
// breaker key, resolving the spec's open question in favor of origin-only
// keying (not origin+path). The rate limiter is a single global bucket and
// is not keyed by origin.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return fmt.Sprintf("%s://%s", u.Scheme, net.JoinHostPort(host, port)), nil
}
