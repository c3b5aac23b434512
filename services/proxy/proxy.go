// Package proxy keeps a pool of configured outbound proxies ordered by
// measured latency.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"sjsage522/metaworker/logger"
	"sjsage522/metaworker/pkg/errors"
)

// failedLatency ranks a proxy that did not answer behind every working one
const failedLatency = time.Hour

// Info is the observed state of one proxy
type Info struct {
	URL      string        `json:"url"`
	Scheme   string        `json:"scheme"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
	Working  bool          `json:"working"`
	Failures int           `json:"failures"`
}

type entry struct {
	u        *url.URL
	latency  time.Duration
	lastTest time.Time
	working  bool
	failures int
}

// Pool hands out proxies, fastest working first, rotating among the working
// ones so a single proxy does not carry every request.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	next    int

	// MaxFailures marks a proxy down after that many consecutive failures
	MaxFailures int
	DialTimeout time.Duration
}

// NewPool parses the proxy URLs. http, https and socks5 schemes are accepted.
func NewPool(rawURLs []string) (*Pool, error) {
	p := &Pool{MaxFailures: 3, DialTimeout: 5 * time.Second}
	seen := make(map[string]bool)
	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, errors.NewConfiguration(fmt.Sprintf("invalid proxy url %q", raw), err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, errors.NewConfiguration(fmt.Sprintf("unsupported proxy scheme %q", u.Scheme), nil)
		}
		p.entries = append(p.entries, &entry{u: u, working: true})
	}
	return p, nil
}

// Len returns the number of configured proxies
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Pick returns the next working proxy, or nil when none is usable
func (p *Pool) Pick() *url.URL {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	working := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		if e.working {
			working = append(working, e)
		}
	}
	if len(working) == 0 {
		return nil
	}
	e := working[p.next%len(working)]
	p.next++
	return e.u
}

// MarkFailed records a failed request through u
func (p *Pool) MarkFailed(u *url.URL) {
	p.update(u, func(e *entry) {
		e.failures++
		if e.failures >= p.MaxFailures && e.working {
			e.working = false
			logger.ForProxy().Warn().Str("proxy", redact(e.u)).Int("failures", e.failures).Msg("Proxy marked down")
		}
	})
}

// MarkOK records a successful request through u
func (p *Pool) MarkOK(u *url.URL) {
	p.update(u, func(e *entry) {
		e.failures = 0
		e.working = true
	})
}

func (p *Pool) update(u *url.URL, fn func(*entry)) {
	if p == nil || u == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.u.String() == u.String() {
			fn(e)
			return
		}
	}
}

// Probe measures every proxy concurrently and reorders the pool by latency
func (p *Pool) Probe(ctx context.Context) {
	if p == nil {
		return
	}
	p.mu.Lock()
	targets := make([]*url.URL, len(p.entries))
	for i, e := range p.entries {
		targets[i] = e.u
	}
	p.mu.Unlock()

	type result struct {
		latency time.Duration
		ok      bool
	}
	results := make([]result, len(targets))
	var wg sync.WaitGroup
	for i, u := range targets {
		wg.Add(1)
		go func(i int, u *url.URL) {
			defer wg.Done()
			d, ok := p.testLatency(ctx, u)
			results[i] = result{latency: d, ok: ok}
		}(i, u)
	}
	wg.Wait()

	byURL := make(map[string]result, len(targets))
	for i, u := range targets {
		byURL[u.String()] = results[i]
	}

	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		r, ok := byURL[e.u.String()]
		if !ok {
			continue
		}
		e.latency = r.latency
		e.working = r.ok
		e.lastTest = now
		if e.working {
			e.failures = 0
		}
	}
	sort.SliceStable(p.entries, func(i, j int) bool {
		return p.entries[i].latency < p.entries[j].latency
	})
	p.next = 0

	working := 0
	for _, e := range p.entries {
		if e.working {
			working++
		}
	}
	logger.ForProxy().Info().Int("total", len(p.entries)).Int("working", working).Msg("Proxy pool probed")
}

// testLatency dials the proxy and, for socks5, checks the greeting
func (p *Pool) testLatency(ctx context.Context, u *url.URL) (time.Duration, bool) {
	start := time.Now()
	d := net.Dialer{Timeout: p.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", hostPort(u))
	if err != nil {
		logger.ForProxy().Debug().Str("proxy", redact(u)).Err(err).Msg("TCP connection failed")
		return failedLatency, false
	}
	defer conn.Close()

	if u.Scheme == "socks5" && !socks5Handshake(conn) {
		logger.ForProxy().Debug().Str("proxy", redact(u)).Msg("SOCKS5 handshake failed")
		return failedLatency, false
	}
	return time.Since(start), true
}

// socks5Handshake sends a no-auth greeting and expects it accepted
func socks5Handshake(conn net.Conn) bool {
	conn.SetDeadline(time.Now().Add(3 * time.Second))
	defer conn.SetDeadline(time.Time{})

	// VER=5, NMETHODS=1, METHODS=0 (no authentication)
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return false
	}
	resp := make([]byte, 2)
	if _, err := conn.Read(resp); err != nil {
		return false
	}
	return resp[0] == 0x05 && resp[1] == 0x00
}

// Stats returns the pool in its current order
func (p *Pool) Stats() []Info {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Info, len(p.entries))
	for i, e := range p.entries {
		out[i] = Info{
			URL:      redact(e.u),
			Scheme:   e.u.Scheme,
			Latency:  e.latency,
			LastTest: e.lastTest,
			Working:  e.working,
			Failures: e.failures,
		}
	}
	return out
}

type proxyKey struct{}

// WithProxy pins the proxy a request should use
func WithProxy(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, proxyKey{}, u)
}

// FromRequest is an http.Transport Proxy func that honours WithProxy
func FromRequest(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(proxyKey{}).(*url.URL); ok {
		return u, nil
	}
	return nil, nil
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	switch u.Scheme {
	case "https":
		return net.JoinHostPort(u.Hostname(), "443")
	case "socks5":
		return net.JoinHostPort(u.Hostname(), "1080")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// redact hides proxy credentials in logs
func redact(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	c := *u
	c.User = url.User("***")
	return c.String()
}
