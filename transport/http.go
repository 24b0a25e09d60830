package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kocayinsec/network-automation-sender/model"
)

// HTTPTransport is the default Transport, a thin adapter over *http.Client
// that lets net/http own connection pooling, redirects, and TLS the way
// the teacher's Client always has.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport builds an HTTPTransport. A nil client gets a sane
// default with keep-alives and a shared connection pool.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPTransport{client: client}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, descriptor *model.RequestDescriptor, deadline time.Time) Outcome {
	start := time.Now()

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var body io.Reader
	if len(descriptor.Body) > 0 {
		body = bytes.NewReader(descriptor.Body)
	}

	req, err := http.NewRequestWithContext(ctx, string(descriptor.Method), descriptor.URL, body)
	if err != nil {
		return Outcome{ErrorKind: Other, Elapsed: time.Since(start)}
	}
	if descriptor.Header != nil {
		req.Header = descriptor.Header.Clone()
	}

	resp, err := t.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Outcome{ErrorKind: classify(err), Elapsed: elapsed}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{ErrorKind: Other, Elapsed: time.Since(start)}
	}

	return Outcome{
		StatusCode: resp.StatusCode,
		Header:     map[string][]string(resp.Header),
		Body:       respBody,
		Elapsed:    time.Since(start),
	}
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	if errors.Is(err, context.Canceled) {
		return Canceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return DNS
	}

	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return TLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return Connect
		}
		if opErr.Timeout() {
			return Timeout
		}
	}

	return Other
}

var _ Transport = (*HTTPTransport)(nil)
