// internal/scraper/client.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/si0411/tourextract/internal/errors"
)

// Fetcher is the session the extractors talk to. Implementations keep
// cookies between calls; the currency preference lives there.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error)
	PostForm(ctx context.Context, rawURL string, form url.Values) error
}

// HTTPClient is a cookie-keeping HTTP session with rate limiting. It never
// retries: a failed request degrades only the category that issued it.
type HTTPClient struct {
	httpClient  *http.Client
	userAgents  []string
	currentUA   int
	uaMutex     sync.Mutex
	rateLimiter *rate.Limiter
	headers     map[string]string
	maxBody     int64
}

// ClientConfig defines configuration options for the HTTP client
type ClientConfig struct {
	Timeout      time.Duration
	UserAgents   []string
	Headers      map[string]string
	RateLimit    float64 // requests per second
	RateBurst    int
	MaxBodyBytes int64
	Transport    http.RoundTripper
}

// NewHTTPClient creates a new HTTP client with the specified configuration
func NewHTTPClient(config ClientConfig) (*HTTPClient, error) {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2.0
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 16 << 20
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = getDefaultUserAgents()
	}
	if config.Transport == nil {
		config.Transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Jar:       jar,
			Transport: config.Transport,
		},
		userAgents:  config.UserAgents,
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		headers:     config.Headers,
		maxBody:     config.MaxBodyBytes,
	}, nil
}

// Get fetches rawURL and returns the body. Extra headers override defaults.
func (c *HTTPClient) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return c.do(req)
}

// PostForm submits form as application/x-www-form-urlencoded and discards
// the response body. Cookies set by the response stay in the session.
func (c *HTTPClient) PostForm(ctx context.Context, rawURL string, form url.Values) error {
	req, err := c.newRequest(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err = c.do(req)
	return err
}

func (c *HTTPClient) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, errors.New(errors.KindNetwork, "build request", fmt.Errorf("invalid URL: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.New(errors.KindNetwork, "build request", err)
	}
	c.setRequestHeaders(req)
	return req, nil
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	if err := c.rateLimiter.Wait(req.Context()); err != nil {
		return nil, errors.New(errors.KindNetwork, "rate limit", err).WithURL(req.URL.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.KindNetwork, req.Method, err).WithURL(req.URL.String())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, errors.New(errors.KindNetwork, req.Method, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        req.URL.String(),
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, errors.New(errors.KindNetwork, "read body", err).WithURL(req.URL.String())
	}
	return body, nil
}

// setRequestHeaders configures request headers including user agent rotation
func (c *HTTPClient) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.getNextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
}

// getNextUserAgent returns the next user agent in rotation
func (c *HTTPClient) getNextUserAgent() string {
	c.uaMutex.Lock()
	defer c.uaMutex.Unlock()

	if len(c.userAgents) == 0 {
		return "tourextract/1.0"
	}

	userAgent := c.userAgents[c.currentUA]
	c.currentUA = (c.currentUA + 1) % len(c.userAgents)
	return userAgent
}

// Cookies exposes the session cookies for u, mainly for diagnostics.
func (c *HTTPClient) Cookies(u *url.URL) []*http.Cookie {
	return c.httpClient.Jar.Cookies(u)
}

// getDefaultUserAgents returns a set of realistic user agent strings
func getDefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}
}

// HTTPError represents a non-success HTTP status.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Status, e.URL)
}
