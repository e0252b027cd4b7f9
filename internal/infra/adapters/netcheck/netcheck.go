// File: internal/infra/adapters/netcheck/netcheck.go
package netcheck

import (
	"context"
	"net"
	"net/url"
	"time"

	"handyai-billing/internal/domain/ports/adapter"
)

var _ adapter.Connectivity = (*DialProbe)(nil)

// DialProbe answers the network-precondition check by dialing the
// verification endpoint's host. Cheap enough to run per job; no caching so a
// restored link is seen immediately.
type DialProbe struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewDialProbe probes the host of endpointURL. Port defaults by scheme.
func NewDialProbe(endpointURL string, timeout time.Duration) (*DialProbe, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := &net.Dialer{}
	return &DialProbe{
		addr:    net.JoinHostPort(host, port),
		timeout: timeout,
		dial:    d.DialContext,
	}, nil
}

func (p *DialProbe) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dial(ctx, "tcp", p.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
