// internal/ledger/ledger.go
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/monitoring"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// Column headers of the ledger exports.
const (
	ColumnStart     = "Starting Date (DD-MM-YYYY)"
	ColumnEnd       = "Ending Date (DD-MM-YYYY)"
	ColumnPlaces    = "Available Places"
	ColumnTourName  = "Tour Name"
	depositPrefix   = "Deposit Price "
	mainPricePrefix = "Main Price "
)

// ledgerDateLayout accepts one- or two-digit days and months.
const ledgerDateLayout = "2-1-2006"

// Departure is one ledger row for a tour.
type Departure struct {
	Start           time.Time
	End             time.Time
	AvailableSpaces int
	Prices          tour.PriceMatrix
}

// Ledger holds both ledger tables, each keyed by tour name and by its
// normalized form.
type Ledger struct {
	dates   map[string][]Departure
	prices  map[string]tour.CurrencyAmounts
	logger  utils.Logger
	metrics *monitoring.MetricsManager
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics counts matched and unmatched dates on mm.
func WithMetrics(mm *monitoring.MetricsManager) Option {
	return func(l *Ledger) { l.metrics = mm }
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		dates:  map[string][]Departure{},
		prices: map[string]tour.CurrencyAmounts{},
		logger: utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NormalizeTourName strips colons, turns '&' and '-' into spaces and
// collapses whitespace.
func NormalizeTourName(name string) string {
	name = strings.ReplaceAll(name, ":", "")
	name = strings.ReplaceAll(name, "&", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// AddDepartures registers a tour's dates.
func (l *Ledger) AddDepartures(name string, deps []Departure) {
	l.dates[name] = deps
	if n := NormalizeTourName(name); n != name {
		l.dates[n] = deps
	}
}

// AddPrices registers a tour's global main prices.
func (l *Ledger) AddPrices(name string, prices tour.CurrencyAmounts) {
	l.prices[name] = prices
	if n := NormalizeTourName(name); n != name {
		l.prices[n] = prices
	}
}

// Departures looks a tour up by exact, then normalized, name.
func (l *Ledger) Departures(name string) ([]Departure, bool) {
	if deps, ok := l.dates[name]; ok && len(deps) > 0 {
		return deps, true
	}
	deps, ok := l.dates[NormalizeTourName(name)]
	return deps, ok && len(deps) > 0
}

// GlobalPrices looks a tour up by exact, then normalized, name.
func (l *Ledger) GlobalPrices(name string) (tour.CurrencyAmounts, bool) {
	if p, ok := l.prices[name]; ok {
		return p, true
	}
	p, ok := l.prices[NormalizeTourName(name)]
	return p, ok
}

// header indexes a CSV header row. A UTF-8 byte order mark on the first
// column is ignored.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		h[strings.TrimSpace(name)] = i
	}
	return h
}

func (h header) get(row []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (h header) amount(row []string, column string) *int {
	n, ok := tour.ParseLedgerInt(h.get(row, column))
	if !ok {
		return nil
	}
	return &n
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

// ReadDepartures parses one tour-dates export. Rows without two parseable
// dates are skipped; a bad place count reads as 0 and bad prices as null.
func ReadDepartures(r io.Reader) ([]Departure, error) {
	rows, err := newCSVReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Departure{}, nil
	}

	h := newHeader(rows[0])
	deps := make([]Departure, 0, len(rows)-1)
	for _, row := range rows[1:] {
		start, err := time.Parse(ledgerDateLayout, h.get(row, ColumnStart))
		if err != nil {
			continue
		}
		end, err := time.Parse(ledgerDateLayout, h.get(row, ColumnEnd))
		if err != nil {
			continue
		}
		places, _ := tour.ParseLedgerInt(h.get(row, ColumnPlaces))

		prices := tour.NewPriceMatrix()
		for _, c := range tour.Currencies {
			prices.Deposit[c] = h.amount(row, depositPrefix+string(c))
			prices.Main[c] = h.amount(row, mainPricePrefix+string(c))
		}
		deps = append(deps, Departure{Start: start, End: end, AvailableSpaces: places, Prices: prices})
	}
	return deps, nil
}

// ReadGlobalPrices parses one global-prices export into per-tour main
// prices. Rows without a tour name are skipped.
func ReadGlobalPrices(r io.Reader) (map[string]tour.CurrencyAmounts, error) {
	rows, err := newCSVReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	out := map[string]tour.CurrencyAmounts{}
	if len(rows) == 0 {
		return out, nil
	}

	h := newHeader(rows[0])
	for _, row := range rows[1:] {
		name := h.get(row, ColumnTourName)
		if name == "" {
			continue
		}
		prices := tour.CurrencyAmounts{}
		for _, c := range tour.Currencies {
			prices[c] = h.amount(row, mainPricePrefix+string(c))
		}
		out[name] = prices
	}
	return out, nil
}

// TourNameFromFile derives a tour name from an export's file name:
// "Backpacking_Thailand_Expedition.csv" is "Backpacking Thailand Expedition".
func TourNameFromFile(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.ReplaceAll(stem, "_", " ")
}

func csvFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return parse(f)
}

// LoadDatesDir registers every tour-dates export in dir. Unreadable files
// are logged and skipped; a missing directory leaves the table empty.
func (l *Ledger) LoadDatesDir(dir string) (int, error) {
	logger := l.logger.WithField("dir", dir)
	files, err := csvFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("tour dates directory not found")
			return 0, nil
		}
		return 0, errors.New(errors.KindConfig, "load tour dates", err)
	}

	loaded := 0
	for _, path := range files {
		deps, err := readFile(path, ReadDepartures)
		if err != nil {
			logger.WithError(err).Warnf("skipping %s", filepath.Base(path))
			continue
		}
		name := TourNameFromFile(path)
		l.AddDepartures(name, deps)
		loaded++
		logger.WithField("tour", name).Debugf("loaded %d dates", len(deps))
	}
	logger.Infof("loaded %d tour dates files", loaded)
	return loaded, nil
}

// LoadPricesDir registers every global-prices export in dir.
func (l *Ledger) LoadPricesDir(dir string) (int, error) {
	logger := l.logger.WithField("dir", dir)
	files, err := csvFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("global prices directory not found")
			return 0, nil
		}
		return 0, errors.New(errors.KindConfig, "load global prices", err)
	}

	loaded := 0
	for _, path := range files {
		prices, err := readFile(path, ReadGlobalPrices)
		if err != nil {
			logger.WithError(err).Warnf("skipping %s", filepath.Base(path))
			continue
		}
		for name, p := range prices {
			l.AddPrices(name, p)
		}
		loaded++
	}
	logger.Infof("loaded %d global price files", loaded)
	return loaded, nil
}

// Load builds a ledger from the two export directories.
func Load(datesDir, pricesDir string, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	if _, err := l.LoadPricesDir(pricesDir); err != nil {
		return nil, err
	}
	if _, err := l.LoadDatesDir(datesDir); err != nil {
		return nil, err
	}
	return l, nil
}

// String summarises the table sizes.
func (l *Ledger) String() string {
	return fmt.Sprintf("ledger(%d date keys, %d price keys)", len(l.dates), len(l.prices))
}
