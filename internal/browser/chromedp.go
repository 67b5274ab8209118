// internal/browser/chromedp.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/utils"
)

// ChromeClient fetches pages through a headless Chrome tab. Page loads
// navigate the tab; sub-resource requests and form posts run as fetch()
// calls inside the loaded page so they share the browser's cookies.
type ChromeClient struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	config      *BrowserConfig
	stats       *BrowserStats

	// one tab; every call is serialized
	mu      sync.Mutex
	current string
}

var _ scraper.Fetcher = (*ChromeClient)(nil)

// NewChromeClient creates a new Chrome browser client
func NewChromeClient(config *BrowserConfig) (*ChromeClient, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	client := &ChromeClient{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		config:      config,
		stats:       &BrowserStats{},
	}
	if err := client.initialize(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	return client, nil
}

// initialize starts the browser and sets the viewport.
func (c *ChromeClient) initialize() error {
	tasks := []chromedp.Action{
		chromedp.EmulateViewport(int64(c.config.ViewportWidth), int64(c.config.ViewportHeight)),
	}
	if c.config.ViewportWidth > 0 && c.config.ViewportWidth < 768 {
		tasks = append(tasks, chromedp.Emulate(device.IPhone8))
	}
	return chromedp.Run(c.ctx, tasks...)
}

// run executes actions on the tab, bounded by the configured timeout and
// by the caller's context.
func (c *ChromeClient) run(ctx context.Context, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if c.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(c.ctx, c.config.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(c.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Get loads pageURL. Requests marked as XHR are issued from inside the
// current page instead of navigating away from it.
func (c *ChromeClient) Get(ctx context.Context, pageURL string, header http.Header) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if header.Get("X-Requested-With") != "" {
		return c.fetch(ctx, http.MethodGet, pageURL, header, "")
	}
	html, err := c.navigate(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

// PostForm posts form from inside the page so the response cookies land in
// the browser's jar.
func (c *ChromeClient) PostForm(ctx context.Context, postURL string, form url.Values) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err := c.fetch(ctx, http.MethodPost, postURL, header, form.Encode())
	return err
}

func (c *ChromeClient) navigate(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()
	tasks := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	}
	if c.config.WaitForElement != "" {
		tasks = append(tasks, chromedp.WaitVisible(c.config.WaitForElement))
	}
	if c.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(c.config.WaitDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))
	if err := c.run(ctx, tasks...); err != nil {
		c.stats.Errors++
		return "", errors.New(errors.KindNetwork, "navigate", err).WithURL(pageURL)
	}

	c.current = pageURL
	loadTime := time.Since(start)
	c.stats.PagesLoaded++
	if c.stats.PagesLoaded == 1 {
		c.stats.AverageLoadTime = loadTime
	} else {
		c.stats.AverageLoadTime = (c.stats.AverageLoadTime + loadTime) / 2
	}
	return html, nil
}

type fetchResult struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Body       string `json:"body"`
}

// fetchScript builds the in-page request. Arguments are JSON-encoded so
// they arrive as JavaScript literals.
func fetchScript(method, target string, header http.Header, body string) (string, error) {
	headers := map[string]string{}
	for k := range header {
		headers[k] = header.Get(k)
	}
	init := map[string]interface{}{
		"method":      method,
		"headers":     headers,
		"credentials": "include",
	}
	if body != "" {
		init["body"] = body
	}
	targetJSON, err := json.Marshal(target)
	if err != nil {
		return "", err
	}
	initJSON, err := json.Marshal(init)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(async () => {
  const resp = await fetch(%s, %s);
  return {status: resp.status, statusText: resp.statusText, body: await resp.text()};
})()`, targetJSON, initJSON), nil
}

func (c *ChromeClient) fetch(ctx context.Context, method, target string, header http.Header, body string) ([]byte, error) {
	// fetch() needs a document on the target's origin
	targetOrigin, err := utils.Origin(target)
	if err != nil {
		return nil, errors.New(errors.KindNetwork, "browser fetch", err).WithURL(target)
	}
	if currentOrigin, _ := utils.Origin(c.current); c.current == "" || currentOrigin != targetOrigin {
		if _, err := c.navigate(ctx, targetOrigin+"/"); err != nil {
			return nil, err
		}
	}

	script, err := fetchScript(method, target, header, body)
	if err != nil {
		return nil, errors.New(errors.KindNetwork, "browser fetch", err).WithURL(target)
	}

	var res fetchResult
	err = c.run(ctx, chromedp.Evaluate(script, &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	c.stats.Requests++
	if err != nil {
		c.stats.JavaScriptErrors++
		return nil, errors.New(errors.KindNetwork, "browser fetch", err).WithURL(target)
	}
	if res.Status >= 400 {
		c.stats.Errors++
		httpErr := &scraper.HTTPError{StatusCode: res.Status, Status: fmt.Sprintf("%d %s", res.Status, res.StatusText), URL: target}
		return nil, errors.New(errors.KindNetwork, "browser fetch", httpErr).WithURL(target)
	}
	return []byte(res.Body), nil
}

// GetStats returns browser statistics
func (c *ChromeClient) GetStats() BrowserStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.stats
}

// Close closes the browser
func (c *ChromeClient) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
