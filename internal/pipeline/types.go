// internal/pipeline/types.go
package pipeline

import (
	"time"

	"github.com/si0411/tourextract/internal/monitoring"
	"github.com/si0411/tourextract/internal/utils"
)

// Option configures a Builder or Runner.
type Option func(*settings)

type settings struct {
	logger  utils.Logger
	metrics *monitoring.MetricsManager
	now     func() time.Time
	onEntry func(done, total int, entry Entry)
}

func newSettings(opts []Option) settings {
	s := settings{
		logger: utils.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records outcomes on mm.
func WithMetrics(mm *monitoring.MetricsManager) Option {
	return func(s *settings) { s.metrics = mm }
}

// WithClock overrides the clock used for last_updated.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithProgress is called after every URL a Runner finishes.
func WithProgress(fn func(done, total int, entry Entry)) Option {
	return func(s *settings) { s.onEntry = fn }
}

// ExtractorFailure records one extractor that could not fill its category.
type ExtractorFailure struct {
	Extractor string `json:"extractor"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// Entry is the outcome of one URL.
type Entry struct {
	URL      string             `json:"url"`
	Failures []ExtractorFailure `json:"failures,omitempty"`
	Fatal    string             `json:"fatal,omitempty"`
	Duration time.Duration      `json:"duration"`
}

// Summary describes a finished run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Degraded  int           `json:"degraded"`
	Duration  time.Duration `json:"duration"`
}
