// internal/config/types.go

// Package config provides configuration types and loading for tourextract.
// A single YAML file drives every command: where tours live, how they are
// fetched and extracted, where the ledger CSVs are, and where results go.
package config

import (
	"time"

	"github.com/si0411/tourextract/internal/browser"
)

// Config represents the main configuration structure.
type Config struct {
	// Name identifies this configuration
	Name string `yaml:"name" json:"name"`

	Site      SiteConfig             `yaml:"site" json:"site"`
	Request   RequestConfig          `yaml:"request" json:"request"`
	Extract   ExtractConfig          `yaml:"extract" json:"extract"`
	Browser   *browser.BrowserConfig `yaml:"browser,omitempty" json:"browser,omitempty"`
	Ledger    LedgerConfig           `yaml:"ledger" json:"ledger"`
	Discovery DiscoveryConfig        `yaml:"discovery" json:"discovery"`
	Output    OutputConfig           `yaml:"output" json:"output"`
	Report    ReportConfig           `yaml:"report" json:"report"`
	Server    ServerConfig           `yaml:"server" json:"server"`
	Log       LogConfig              `yaml:"log" json:"log"`
	Metrics   MetricsConfig          `yaml:"metrics" json:"metrics"`
}

// SiteConfig defines the website being scraped.
type SiteConfig struct {
	// BaseURL is the site origin, e.g. https://www.backpackingtours.com
	BaseURL string `yaml:"base_url" json:"base_url"`

	// URLsFile is the discovery output read by scrape when no URLs are given.
	URLsFile string `yaml:"urls_file" json:"urls_file"`

	// URLs are scraped in addition to URLsFile.
	URLs []string `yaml:"urls,omitempty" json:"urls,omitempty"`
}

// RequestConfig defines HTTP request settings.
type RequestConfig struct {
	Timeout      time.Duration     `yaml:"timeout" json:"timeout"`
	RateLimit    float64           `yaml:"rate_limit" json:"rate_limit"`
	Burst        int               `yaml:"burst" json:"burst"`
	UserAgents   []string          `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	MaxBodyBytes int64             `yaml:"max_body_bytes,omitempty" json:"max_body_bytes,omitempty"`
}

// ExtractConfig selects optional extractors and tunes the price pass.
type ExtractConfig struct {
	Images  bool        `yaml:"images" json:"images"`
	Gallery bool        `yaml:"gallery" json:"gallery"`
	Prices  PriceConfig `yaml:"prices" json:"prices"`
}

// PriceConfig tunes the multi-currency price pass.
type PriceConfig struct {
	// Currencies limits the pass; empty means all six.
	Currencies []string      `yaml:"currencies,omitempty" json:"currencies,omitempty"`
	Pause      time.Duration `yaml:"pause" json:"pause"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	Floor      int           `yaml:"floor" json:"floor"`
}

// LedgerConfig points at the two CSV ledger directories.
type LedgerConfig struct {
	DatesDir  string `yaml:"dates_dir" json:"dates_dir"`
	PricesDir string `yaml:"prices_dir" json:"prices_dir"`
	// Input is the dataset merged; Output receives the enhanced copy.
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`
}

// DiscoveryConfig defines where tour URLs are found.
type DiscoveryConfig struct {
	Sitemaps     []string `yaml:"sitemaps,omitempty" json:"sitemaps,omitempty"`
	ListingPages []string `yaml:"listing_pages,omitempty" json:"listing_pages,omitempty"`
	// Patterns are URL fragments a tour URL must contain.
	Patterns []string `yaml:"patterns" json:"patterns"`
	Exclude  []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	// GenericPages are index pages that match a pattern but hold no tour.
	GenericPages []string      `yaml:"generic_pages,omitempty" json:"generic_pages,omitempty"`
	Delay        time.Duration `yaml:"delay" json:"delay"`
}

// OutputConfig defines output settings.
type OutputConfig struct {
	// File is the canonical JSON dataset.
	File  string       `yaml:"file" json:"file"`
	Sinks []SinkConfig `yaml:"sinks,omitempty" json:"sinks,omitempty"`
}

// SinkConfig configures one mirror of the dataset.
type SinkConfig struct {
	// Type is one of yaml, csv, excel, sqlite, postgres, mysql, mongodb, s3.
	Type string `yaml:"type" json:"type"`

	// Path is used by file sinks and sqlite.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// DSN or URI for database sinks.
	DSN        string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	// Bucket, Key and Region for s3. Endpoint targets S3-compatible stores.
	Bucket   string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Key      string `yaml:"key,omitempty" json:"key,omitempty"`
	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// ReportConfig tunes the low-availability report.
type ReportConfig struct {
	Threshold int    `yaml:"threshold" json:"threshold"`
	Output    string `yaml:"output,omitempty" json:"output,omitempty"`
}

// ServerConfig configures the read-only API.
type ServerConfig struct {
	Addr    string `yaml:"addr" json:"addr"`
	Dataset string `yaml:"dataset" json:"dataset"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}
