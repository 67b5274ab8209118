// internal/config/validation.go - validation with detailed error messages
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) fail(field, value, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// SinkTypes lists the supported mirror sinks.
var SinkTypes = []string{"yaml", "csv", "excel", "sqlite", "postgres", "mysql", "mongodb", "s3"}

// Validate returns an error listing every problem found, or nil.
func (c *Config) Validate() error {
	result := c.ValidateWithDetails()
	if !result.Valid {
		return formatValidationError(result)
	}
	return nil
}

// ValidateWithDetails returns all errors and warnings.
func (c *Config) ValidateWithDetails() *ValidationResult {
	result := &ValidationResult{
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateSite(result)
	c.validateRequest(result)
	c.validateExtract(result)
	c.validateBrowser(result)
	c.validateLedger(result)
	c.validateDiscovery(result)
	c.validateOutput(result)
	c.validateReport(result)
	c.validateLog(result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (c *Config) validateSite(result *ValidationResult) {
	if c.Site.BaseURL == "" {
		result.fail("site.base_url", "", "Base URL is required")
		return
	}
	validateURL(result, "site.base_url", c.Site.BaseURL)

	for i, u := range c.Site.URLs {
		validateURL(result, fmt.Sprintf("site.urls[%d]", i), u)
	}
}

// validateURL checks that raw is an absolute http(s) URL.
func validateURL(result *ValidationResult, field, raw string) {
	parsed, err := url.Parse(raw)
	if err != nil {
		result.fail(field, raw, "Invalid URL format: %s", err.Error())
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		result.fail(field, raw, "URL must include protocol (http:// or https://)")
	}
	if parsed.Host == "" {
		result.fail(field, raw, "URL must include hostname")
	}
	if parsed.Scheme == "http" {
		result.warn("%s uses HTTP instead of HTTPS", field)
	}
}

func (c *Config) validateRequest(result *ValidationResult) {
	if c.Request.Timeout < 0 {
		result.fail("request.timeout", c.Request.Timeout.String(), "Timeout cannot be negative")
	}
	if c.Request.RateLimit < 0 {
		result.fail("request.rate_limit", fmt.Sprint(c.Request.RateLimit), "Rate limit cannot be negative")
	}
	if c.Request.RateLimit > 10 {
		result.warn("request.rate_limit of %.1f/s may get the session blocked", c.Request.RateLimit)
	}
	if c.Request.Burst < 0 {
		result.fail("request.burst", fmt.Sprint(c.Request.Burst), "Burst cannot be negative")
	}
}

func (c *Config) validateExtract(result *ValidationResult) {
	p := c.Extract.Prices
	seen := map[tour.Currency]bool{}
	for i, code := range p.Currencies {
		field := fmt.Sprintf("extract.prices.currencies[%d]", i)
		cur, ok := tour.ParseCurrency(code)
		if !ok {
			result.fail(field, code, "Unknown currency (expected one of %s)", currencyList())
			continue
		}
		if seen[cur] {
			result.fail(field, code, "Duplicate currency")
		}
		seen[cur] = true
	}
	if p.Pause < 0 {
		result.fail("extract.prices.pause", p.Pause.String(), "Pause cannot be negative")
	}
	if p.Timeout < 0 {
		result.fail("extract.prices.timeout", p.Timeout.String(), "Timeout cannot be negative")
	}
	if p.Floor < 0 {
		result.fail("extract.prices.floor", fmt.Sprint(p.Floor), "Floor cannot be negative")
	}
}

func currencyList() string {
	codes := make([]string, len(tour.Currencies))
	for i, c := range tour.Currencies {
		codes[i] = string(c)
	}
	return strings.Join(codes, ", ")
}

func (c *Config) validateBrowser(result *ValidationResult) {
	if c.Browser == nil || !c.Browser.Enabled {
		return
	}
	if c.Browser.Timeout < 0 {
		result.fail("browser.timeout", c.Browser.Timeout.String(), "Timeout cannot be negative")
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		result.fail("browser.viewport", fmt.Sprintf("%dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight),
			"Viewport dimensions cannot be negative")
	}
}

func (c *Config) validateLedger(result *ValidationResult) {
	if c.Ledger.Input != "" && c.Ledger.Input == c.Ledger.Output {
		result.warn("ledger.output overwrites ledger.input")
	}
}

func (c *Config) validateDiscovery(result *ValidationResult) {
	d := c.Discovery
	if len(d.Sitemaps) == 0 && len(d.ListingPages) == 0 {
		result.warn("discovery has no sitemaps or listing pages; discover will find nothing")
	}
	for i, u := range d.Sitemaps {
		validateURL(result, fmt.Sprintf("discovery.sitemaps[%d]", i), u)
	}
	for i, u := range d.ListingPages {
		validateURL(result, fmt.Sprintf("discovery.listing_pages[%d]", i), u)
	}
	for i, p := range d.Patterns {
		if strings.TrimSpace(p) == "" {
			result.fail(fmt.Sprintf("discovery.patterns[%d]", i), p, "Pattern cannot be empty")
		}
	}
	if d.Delay < 0 {
		result.fail("discovery.delay", d.Delay.String(), "Delay cannot be negative")
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	if c.Output.File == "" {
		result.fail("output.file", "", "Output file is required")
	}

	for i, sink := range c.Output.Sinks {
		prefix := fmt.Sprintf("output.sinks[%d]", i)
		if !isSinkType(sink.Type) {
			result.fail(prefix+".type", sink.Type, "Unsupported sink type (expected one of %s)", strings.Join(SinkTypes, ", "))
			continue
		}
		switch sink.Type {
		case "yaml", "csv", "excel", "sqlite":
			if sink.Path == "" {
				result.fail(prefix+".path", "", "Path is required for %s sink", sink.Type)
			}
		case "postgres", "mysql", "mongodb":
			if sink.DSN == "" {
				result.fail(prefix+".dsn", "", "DSN is required for %s sink", sink.Type)
			}
		case "s3":
			if sink.Bucket == "" {
				result.fail(prefix+".bucket", "", "Bucket is required for s3 sink")
			}
		}
	}
}

func isSinkType(t string) bool {
	for _, s := range SinkTypes {
		if s == t {
			return true
		}
	}
	return false
}

func (c *Config) validateReport(result *ValidationResult) {
	if c.Report.Threshold < 0 {
		result.fail("report.threshold", fmt.Sprint(c.Report.Threshold), "Threshold cannot be negative")
	}
}

func (c *Config) validateLog(result *ValidationResult) {
	if _, err := utils.ParseLogLevel(c.Log.Level); err != nil {
		result.fail("log.level", c.Log.Level, "%s", err.Error())
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		result.fail("log.format", c.Log.Format, "Log format must be text or json")
	}
}

// formatValidationError creates a formatted error message
func formatValidationError(result *ValidationResult) error {
	var msg strings.Builder
	msg.WriteString("Configuration validation failed:\n")

	for i, err := range result.Errors {
		msg.WriteString(fmt.Sprintf("  %d. %s: %s", i+1, err.Field, err.Message))
		if err.Value != "" {
			msg.WriteString(fmt.Sprintf(" (value: %q)", err.Value))
		}
		msg.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		msg.WriteString("\nWarnings:\n")
		for i, warning := range result.Warnings {
			msg.WriteString(fmt.Sprintf("  %d. %s\n", i+1, warning))
		}
	}

	return fmt.Errorf("%s", strings.TrimRight(msg.String(), "\n"))
}
