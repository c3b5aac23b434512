package helpers

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"

	"sjsage522/metaworker/pkg/errors"
	"sjsage522/metaworker/services/proxy"
)

// HTTP header pools
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}

	acceptLanguages = []string{
		"ja-JP,ja;q=0.9,en-US;q=0.8,en;q=0.7",
		"zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7",
		"en-US,en;q=0.9",
	}
)

const maxBodyBytes = 8 << 20

// Fetcher is the network seam used by the extraction engine
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// FetcherOptions tunes an HTTPFetcher
type FetcherOptions struct {
	Timeout      time.Duration
	ProxyURL     string
	ProxyURLs    []string
	MinBodyBytes int
}

// HTTPFetcher sends GET requests with randomised browser headers and returns
// the body decoded to UTF-8.
type HTTPFetcher struct {
	client       *http.Client
	proxies      *proxy.Pool
	timeout      time.Duration
	minBodyBytes int

	mu  sync.Mutex
	rnd *mathrand.Rand
}

// NewHTTPFetcher builds a fetcher. Configured proxies are rotated per request
// with keep-alives disabled.
func NewHTTPFetcher(opts FetcherOptions) (*HTTPFetcher, error) {
	transport := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	pool, err := proxy.NewPool(append([]string{opts.ProxyURL}, opts.ProxyURLs...))
	if err != nil {
		return nil, err
	}
	if pool.Len() > 0 {
		transport.Proxy = proxy.FromRequest
		transport.DisableKeepAlives = true
	} else {
		pool = nil
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		client:       &http.Client{Transport: transport},
		proxies:      pool,
		timeout:      opts.Timeout,
		minBodyBytes: opts.MinBodyBytes,
		rnd:          mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Proxies returns the rotating proxy pool, nil when fetching directly
func (f *HTTPFetcher) Proxies() *proxy.Pool {
	return f.proxies
}

func (f *HTTPFetcher) pick(pool []string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pool[f.rnd.Intn(len(pool))]
}

// Fetch downloads pageURL under the fetcher timeout (or ctx's deadline,
// whichever is sooner).
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if _, ok := ParseHTTPURL(pageURL); !ok {
		return "", errors.NewValidation("fetch", "not an http(s) url: "+pageURL)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", errors.NewValidation("fetch", fmt.Sprintf("failed to create request: %v", err))
	}

	// Set browser-like headers
	req.Header.Set("User-Agent", f.pick(userAgents))
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.pick(acceptLanguages))
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", f.pick(referers))
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	// javdb and javbus gate content behind an age check cookie
	req.Header.Set("Cookie", "existmag=all; over18=1; age_check_done=1")

	via := f.proxies.Pick()
	if via != nil {
		req = req.WithContext(proxy.WithProxy(ctx, via))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			f.proxies.MarkFailed(via)
		}
		return "", f.transportError(ctx, pageURL, err)
	}
	defer resp.Body.Close()
	f.proxies.MarkOK(via)

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return "", errors.NewRateLimit(pageURL, resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewNetwork(pageURL, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", f.transportError(ctx, pageURL, err)
	}
	if len(bytes.TrimSpace(bodyBytes)) < f.minBodyBytes {
		return "", errors.NewNetwork(pageURL, fmt.Sprintf("response body too short: %d bytes", len(bodyBytes)), nil)
	}

	body, err := toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", errors.NewNetwork(pageURL, "failed to decode body", err)
	}
	return body, nil
}

func (f *HTTPFetcher) transportError(ctx context.Context, pageURL string, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeout(pageURL, f.timeout, err)
	}
	return errors.NewNetwork(pageURL, "failed to fetch url", err)
}

// toUTF8 converts body using the charset named by the Content-Type header or
// sniffed from the markup.
func toUTF8(body []byte, contentType string) (string, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return string(body), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return "", fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.String(), nil
}
