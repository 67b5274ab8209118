// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/si0411/tourextract/internal/browser"
	"github.com/si0411/tourextract/internal/extract"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	// ${VAR} and $VAR are substituted before parsing
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer f.Close()

	return SaveToWriter(config, f)
}

// SaveToWriter saves configuration to an io.Writer
func SaveToWriter(config *Config, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	return encoder.Close()
}

// GenerateTemplate generates a template configuration. "full" adds the
// optional extractors, the browser and every mirror sink.
func GenerateTemplate(templateType string) Config {
	var config Config
	switch strings.ToLower(templateType) {
	case "full":
		config = generateFullTemplate()
	default:
		config = generateBasicTemplate()
	}
	applyDefaults(&config)
	return config
}

// ValidateConfig validates a configuration and returns detailed error information
func ValidateConfig(config *Config) []ValidationError {
	if config == nil {
		return []ValidationError{{Field: "config", Message: "configuration cannot be nil"}}
	}
	return config.ValidateWithDetails().Errors
}

const (
	defaultBaseURL      = "https://www.backpackingtours.com"
	defaultURLsFile     = "group_tour_urls.json"
	defaultOutputFile   = "group_tours_frontend.json"
	defaultEnhancedFile = "group_tours_frontend_enhanced.json"
)

// applyDefaults applies default values to the configuration
func applyDefaults(config *Config) {
	if config.Name == "" {
		config.Name = "tourextract"
	}
	if config.Site.URLsFile == "" {
		config.Site.URLsFile = defaultURLsFile
	}

	if config.Request.Timeout == 0 {
		config.Request.Timeout = 30 * time.Second
	}
	if config.Request.RateLimit == 0 {
		config.Request.RateLimit = 2.0
	}
	if config.Request.Burst == 0 {
		config.Request.Burst = 1
	}

	prices := extract.DefaultPriceOptions()
	if config.Extract.Prices.Pause == 0 {
		config.Extract.Prices.Pause = prices.Pause
	}
	if config.Extract.Prices.Timeout == 0 {
		config.Extract.Prices.Timeout = prices.Timeout
	}
	if config.Extract.Prices.Floor == 0 {
		config.Extract.Prices.Floor = prices.Floor
	}

	if config.Browser != nil {
		defaults := browser.DefaultBrowserConfig()
		if config.Browser.Timeout == 0 {
			config.Browser.Timeout = defaults.Timeout
		}
		if config.Browser.ViewportWidth == 0 {
			config.Browser.ViewportWidth = defaults.ViewportWidth
		}
		if config.Browser.ViewportHeight == 0 {
			config.Browser.ViewportHeight = defaults.ViewportHeight
		}
	}

	if config.Output.File == "" {
		config.Output.File = defaultOutputFile
	}

	if config.Ledger.DatesDir == "" {
		config.Ledger.DatesDir = "tour_dates"
	}
	if config.Ledger.PricesDir == "" {
		config.Ledger.PricesDir = "global_prices"
	}
	if config.Ledger.Input == "" {
		config.Ledger.Input = config.Output.File
	}
	if config.Ledger.Output == "" {
		config.Ledger.Output = defaultEnhancedFile
	}

	if len(config.Discovery.Patterns) == 0 && config.Site.BaseURL != "" {
		base := strings.TrimRight(config.Site.BaseURL, "/")
		config.Discovery.Patterns = []string{
			base + "/group",
			base + "/book-a-backpacking-tour",
			base + "/film-photography-thailand",
		}
		if len(config.Discovery.GenericPages) == 0 {
			config.Discovery.GenericPages = []string{base + "/book-a-backpacking-tour"}
		}
	}
	if config.Discovery.Delay == 0 {
		config.Discovery.Delay = time.Second
	}

	if config.Report.Threshold == 0 {
		config.Report.Threshold = 5
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.Dataset == "" {
		config.Server.Dataset = config.Ledger.Output
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = "tourextract"
	}
}

// ClientConfig returns the HTTP session settings.
func (c *Config) ClientConfig() scraper.ClientConfig {
	return scraper.ClientConfig{
		Timeout:      c.Request.Timeout,
		UserAgents:   c.Request.UserAgents,
		Headers:      c.Request.Headers,
		RateLimit:    c.Request.RateLimit,
		RateBurst:    c.Request.Burst,
		MaxBodyBytes: c.Request.MaxBodyBytes,
	}
}

// ExtractOptions returns the extractor selection. Unknown currency codes
// are rejected by Validate, so they never reach here.
func (c *Config) ExtractOptions() extract.Options {
	prices := extract.DefaultPriceOptions()
	prices.Pause = c.Extract.Prices.Pause
	prices.Timeout = c.Extract.Prices.Timeout
	prices.Floor = c.Extract.Prices.Floor
	for _, code := range c.Extract.Prices.Currencies {
		if cur, ok := tour.ParseCurrency(code); ok {
			prices.Currencies = append(prices.Currencies, cur)
		}
	}
	return extract.Options{
		Prices:  prices,
		Images:  c.Extract.Images,
		Gallery: c.Extract.Gallery,
	}
}

// LoggerOptions returns the logger settings for output w.
func (c *Config) LoggerOptions(w io.Writer) utils.LoggerOptions {
	level, _ := utils.ParseLogLevel(c.Log.Level)
	return utils.LoggerOptions{Level: level, Format: c.Log.Format, Output: w}
}

// BrowserEnabled reports whether pages are fetched through Chrome.
func (c *Config) BrowserEnabled() bool {
	return c.Browser != nil && c.Browser.Enabled
}

// Template generation functions

func generateBasicTemplate() Config {
	return Config{
		Name: "backpacking_tours",
		Site: SiteConfig{BaseURL: defaultBaseURL},
		Discovery: DiscoveryConfig{
			Sitemaps: []string{
				defaultBaseURL + "/sitemap.xml",
				defaultBaseURL + "/sitemap_index.xml",
				defaultBaseURL + "/sitemap-tours.xml",
			},
			ListingPages: []string{
				defaultBaseURL + "/",
				defaultBaseURL + "/tours",
				defaultBaseURL + "/group-tours",
				defaultBaseURL + "/backpacking-tours",
				defaultBaseURL + "/destinations",
			},
		},
	}
}

func generateFullTemplate() Config {
	config := generateBasicTemplate()
	config.Extract.Images = true
	config.Extract.Gallery = true
	config.Browser = browser.DefaultBrowserConfig()
	config.Output.Sinks = []SinkConfig{
		{Type: "yaml", Path: "group_tours.yaml"},
		{Type: "csv", Path: "group_tour_dates.csv"},
		{Type: "excel", Path: "group_tours.xlsx"},
		{Type: "sqlite", Path: "group_tours.db"},
		{Type: "postgres", DSN: "${TOURS_POSTGRES_DSN}"},
		{Type: "mysql", DSN: "${TOURS_MYSQL_DSN}"},
		{Type: "mongodb", DSN: "${TOURS_MONGO_URI}", Database: "tours", Collection: "tours"},
		{Type: "s3", Bucket: "${TOURS_BUCKET}", Key: "group_tours_frontend.json", Region: "eu-west-2"},
	}
	config.Metrics.Enabled = true
	return config
}
