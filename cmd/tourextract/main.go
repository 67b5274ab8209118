// cmd/tourextract/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/si0411/tourextract/internal/browser"
	"github.com/si0411/tourextract/internal/config"
	"github.com/si0411/tourextract/internal/discovery"
	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/extract"
	"github.com/si0411/tourextract/internal/ledger"
	"github.com/si0411/tourextract/internal/monitoring"
	"github.com/si0411/tourextract/internal/output"
	"github.com/si0411/tourextract/internal/pipeline"
	"github.com/si0411/tourextract/internal/report"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
	"github.com/si0411/tourextract/pkg/api"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Global error service instance
var errorService = errors.NewService()

// runCommand loads the configuration and runs one command, exiting with
// the error's exit code on failure.
func runCommand(command, configFile string, args []string) {
	verbose := hasFlag("-v") || hasFlag("--verbose")
	errorService = errorService.WithVerbose(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, command, configFile, args, verbose)
	stop()

	if err != nil {
		fmt.Fprint(os.Stderr, errorService.FormatErrorForCLI(err))
		os.Exit(errorService.GetExitCode(err))
	}
}

// env is what every command needs once the configuration is loaded.
type env struct {
	cfg     *config.Config
	logger  utils.Logger
	metrics *monitoring.MetricsManager
	verbose bool
}

func execute(ctx context.Context, command, configFile string, args []string, verbose bool) error {
	if command == "validate" {
		return executeValidation(configFile, verbose)
	}

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return errors.New(errors.KindConfig, "load configuration", err)
	}

	opts := cfg.LoggerOptions(os.Stderr)
	if verbose {
		opts.Level = utils.DebugLevel
	}
	e := &env{
		cfg:     cfg,
		logger:  utils.NewLoggerWithOptions(opts).WithField("command", command),
		metrics: monitoring.NewMetricsManager(monitoring.MetricsConfig{Namespace: cfg.Metrics.Namespace}),
		verbose: verbose,
	}

	switch command {
	case "discover":
		err = e.discover(ctx)
	case "scrape":
		err = e.scrape(ctx, positional(args))
	case "merge":
		err = e.merge(ctx)
	case "report":
		err = e.report(hasFlag("--json"))
	case "serve":
		return e.serve(ctx)
	default:
		return errors.Newf(errors.KindConfig, "run", "unknown command %q", command)
	}

	if cfg.Metrics.Enabled {
		e.logMetrics()
	}
	return err
}

// positional drops flags from args.
func positional(args []string) []string {
	var out []string
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			out = append(out, a)
		}
	}
	return out
}

// newFetcher returns the page fetcher and its cleanup. Chrome is used only
// when the browser section enables it.
func (e *env) newFetcher() (scraper.Fetcher, func() error, error) {
	if e.cfg.BrowserEnabled() {
		client, err := browser.NewChromeClient(e.cfg.Browser)
		if err != nil {
			return nil, nil, errors.New(errors.KindConfig, "start browser", err)
		}
		e.logger.Info("fetching pages through headless Chrome")
		return client, client.Close, nil
	}
	client, err := scraper.NewHTTPClient(e.cfg.ClientConfig())
	if err != nil {
		return nil, nil, errors.New(errors.KindConfig, "create HTTP client", err)
	}
	return client, func() error { return nil }, nil
}

func (e *env) discover(ctx context.Context) error {
	client, err := scraper.NewHTTPClient(e.cfg.ClientConfig())
	if err != nil {
		return errors.New(errors.KindConfig, "create HTTP client", err)
	}

	d := e.cfg.Discovery
	urls, err := discovery.New(client, discovery.Options{
		Sitemaps:     d.Sitemaps,
		ListingPages: d.ListingPages,
		Patterns:     d.Patterns,
		Exclude:      d.Exclude,
		GenericPages: d.GenericPages,
		Delay:        d.Delay,
	}, e.logger).Discover(ctx)
	if err != nil {
		return errors.New(errors.KindNetwork, "discover", err)
	}

	if err := discovery.WriteURLs(e.cfg.Site.URLsFile, urls); err != nil {
		return errors.New(errors.KindOutput, "write URL list", err)
	}
	fmt.Printf("Found %d tour URLs. Saved to %s\n", len(urls), e.cfg.Site.URLsFile)
	return nil
}

// scrapeURLs returns explicit URLs when given, otherwise the configured
// list followed by the URL file.
func (e *env) scrapeURLs(explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return utils.DedupeStrings(explicit), nil
	}
	urls := append([]string{}, e.cfg.Site.URLs...)
	fromFile, err := discovery.ReadURLs(e.cfg.Site.URLsFile)
	switch {
	case err == nil:
		urls = append(urls, fromFile...)
	case os.IsNotExist(err) && len(urls) > 0:
	case os.IsNotExist(err):
		return nil, errors.Newf(errors.KindConfig, "read URL list",
			"%s not found; run discover first or pass URLs", e.cfg.Site.URLsFile)
	default:
		return nil, errors.New(errors.KindConfig, "read URL list", err)
	}
	urls = utils.DedupeStrings(urls)
	if len(urls) == 0 {
		return nil, errors.Newf(errors.KindConfig, "read URL list", "no tour URLs to scrape")
	}
	return urls, nil
}

func (e *env) scrape(ctx context.Context, explicit []string) error {
	urls, err := e.scrapeURLs(explicit)
	if err != nil {
		return err
	}

	fetcher, closeFetcher, err := e.newFetcher()
	if err != nil {
		return err
	}
	defer closeFetcher()

	opts := e.cfg.ExtractOptions()
	opts.Prices.Observe = pipeline.PriceObserver(e.logger, e.metrics)

	builder := pipeline.NewBuilder(extract.Default(fetcher, opts),
		pipeline.WithLogger(e.logger), pipeline.WithMetrics(e.metrics))
	runner := pipeline.NewRunner(fetcher, builder,
		pipeline.WithLogger(e.logger),
		pipeline.WithMetrics(e.metrics),
		pipeline.WithProgress(func(done, total int, entry pipeline.Entry) {
			if e.verbose {
				fmt.Printf("[%d/%d] %s\n", done, total, entry.URL)
			}
		}))

	ds, summary := runner.Run(ctx, urls)
	if err := e.write(ctx, e.cfg.Output, ds); err != nil {
		return err
	}

	fmt.Printf("Scraped %d of %d tours (%d with missing categories, %d failed). Saved to %s\n",
		summary.Succeeded, summary.Total, summary.Degraded, summary.Failed, e.cfg.Output.File)
	if summary.Succeeded == 0 {
		return errors.Newf(errors.KindFatal, "scrape", "no tour could be scraped")
	}
	return nil
}

func (e *env) merge(ctx context.Context) error {
	ds, err := tour.LoadDataset(e.cfg.Ledger.Input)
	if err != nil {
		return errors.New(errors.KindConfig, "load dataset", err)
	}

	l, err := ledger.Load(e.cfg.Ledger.DatesDir, e.cfg.Ledger.PricesDir,
		ledger.WithLogger(e.logger), ledger.WithMetrics(e.metrics))
	if err != nil {
		return err
	}
	stats := l.Merge(ds)

	out := config.OutputConfig{File: e.cfg.Ledger.Output, Sinks: e.cfg.Output.Sinks}
	if err := e.write(ctx, out, ds); err != nil {
		return err
	}

	fmt.Printf("Merged %d tours: %d with ledger dates, %d with global prices; %d dates matched, %d unmatched. Saved to %s\n",
		stats.Tours, stats.ToursEnhanced, stats.PricesApplied, stats.DatesMatched, stats.DatesUnmatched, e.cfg.Ledger.Output)
	return nil
}

// write stores ds through the output manager and prints failed sinks.
func (e *env) write(ctx context.Context, cfg config.OutputConfig, ds *tour.Dataset) error {
	manager, err := output.NewManager(ctx, cfg, output.WithLogger(e.logger), output.WithMetrics(e.metrics))
	if err != nil {
		return errors.New(errors.KindOutput, "create output manager", err)
	}
	defer manager.Close()

	results, err := manager.Write(ctx, ds)
	if err != nil {
		return errors.New(errors.KindOutput, "write dataset", err)
	}
	for _, r := range results[1:] {
		if !r.Success {
			fmt.Fprintf(os.Stderr, "Warning: %s sink failed: %s\n", r.Sink, r.Error)
		} else if e.verbose {
			fmt.Printf("  %s: %d tours in %s\n", r.Sink, r.Records, r.Duration.Round(time.Millisecond))
		}
	}
	return nil
}

func (e *env) report(asJSON bool) error {
	ds, err := tour.LoadDataset(e.cfg.Ledger.Output)
	if err != nil {
		return errors.New(errors.KindConfig, "load enhanced dataset", err)
	}
	r := report.Build(ds, e.cfg.Report.Threshold, time.Now())

	target := e.cfg.Report.Output
	if target == "" {
		if asJSON {
			return r.WriteJSON(os.Stdout)
		}
		return r.WriteText(os.Stdout)
	}

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.New(errors.KindOutput, "write report", err)
		}
	}
	f, err := os.Create(target)
	if err != nil {
		return errors.New(errors.KindOutput, "write report", err)
	}
	defer f.Close()

	if asJSON || strings.EqualFold(filepath.Ext(target), ".json") {
		err = r.WriteJSON(f)
	} else {
		err = r.WriteText(f)
	}
	if err != nil {
		return errors.New(errors.KindOutput, "write report", err)
	}
	fmt.Printf("%d limited departures across %d tours. Saved to %s\n", r.Departures(), len(r.Tours), target)
	return nil
}

func (e *env) serve(ctx context.Context) error {
	store := api.NewStore(e.cfg.Server.Dataset)
	if err := store.Load(); err != nil {
		e.logger.Warnf("serving without data until %s is readable: %v", e.cfg.Server.Dataset, err)
	}

	srv := api.NewServer(store,
		api.WithLogger(e.logger),
		api.WithMetrics(e.metrics),
		api.WithVersion(version))
	if err := srv.Watch(); err != nil {
		return errors.New(errors.KindConfig, "watch dataset", err)
	}
	defer srv.Close()

	if err := srv.ListenAndServe(ctx, e.cfg.Server.Addr); err != nil {
		return errors.New(errors.KindNetwork, "serve", err)
	}
	return nil
}

// logMetrics logs the non-zero counters of a batch run.
func (e *env) logMetrics() {
	snap, err := e.metrics.Snapshot()
	if err != nil {
		e.logger.Warnf("failed to gather metrics: %v", err)
		return
	}
	keys := make([]string, 0, len(snap))
	for k, v := range snap {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.logger.WithField("value", snap[k]).Info(k)
	}
}

// executeValidation performs configuration validation
func executeValidation(configFile string, verbose bool) error {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return errors.New(errors.KindConfig, "validate", err)
	}

	result := cfg.ValidateWithDetails()
	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	if verbose {
		fmt.Printf("Configuration details:\n")
		fmt.Printf("  Name: %s\n", cfg.Name)
		fmt.Printf("  Base URL: %s\n", cfg.Site.BaseURL)
		fmt.Printf("  URL list: %s\n", cfg.Site.URLsFile)
		fmt.Printf("  Browser: %t\n", cfg.BrowserEnabled())
		fmt.Printf("  Output: %s (+%d sinks)\n", cfg.Output.File, len(cfg.Output.Sinks))
		fmt.Printf("  Ledger: %s, %s\n", cfg.Ledger.DatesDir, cfg.Ledger.PricesDir)
	}

	fmt.Printf("✓ Configuration file '%s' is valid\n", configFile)
	return nil
}

// generateTemplate renders a configuration template as YAML.
func generateTemplate(args []string) (string, error) {
	templateType := "basic"
	if len(args) > 1 && args[0] == "--type" {
		templateType = args[1]
	}

	template := config.GenerateTemplate(templateType)
	yamlData, err := yaml.Marshal(&template)
	if err != nil {
		return "", fmt.Errorf("failed to marshal template to YAML: %w", err)
	}
	return string(yamlData), nil
}

// hasFlag checks if a flag is present in command line arguments
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "discover", "scrape", "merge", "report", "serve", "validate":
		if len(os.Args) < 3 || strings.HasPrefix(os.Args[2], "-") {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: tourextract %s <config.yaml>\n", command)
			os.Exit(1)
		}
		runCommand(command, os.Args[2], os.Args[3:])

	case "template":
		template, err := generateTemplate(os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(template)

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// printUsage displays help information
func printUsage() {
	fmt.Println("tourextract - tour extraction and booking ledger reconciliation")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tourextract discover <config.yaml>          Find tour URLs and write the URL list")
	fmt.Println("  tourextract scrape <config.yaml> [url...]   Extract tours and write the dataset")
	fmt.Println("  tourextract merge <config.yaml>             Reconcile the dataset with the CSV ledger")
	fmt.Println("  tourextract report <config.yaml> [--json]   List upcoming dates with few places left")
	fmt.Println("  tourextract serve <config.yaml>             Serve the enhanced dataset over HTTP")
	fmt.Println("  tourextract validate <config.yaml>          Validate configuration file")
	fmt.Println("  tourextract template [--type <type>]        Generate configuration template")
	fmt.Println("  tourextract version                         Show version information")
	fmt.Println("  tourextract help                            Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose                               Enable verbose output")
	fmt.Println()
	fmt.Println("Template types:")
	fmt.Println("  basic   Site, discovery and output defaults (default)")
	fmt.Println("  full    Adds images, gallery, headless Chrome and every sink")
}

// printVersion displays version information
func printVersion() {
	fmt.Printf("tourextract %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
