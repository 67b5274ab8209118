// internal/output/manager.go
package output

import (
	"context"
	"fmt"
	"time"

	"github.com/si0411/tourextract/internal/config"
	"github.com/si0411/tourextract/internal/monitoring"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// Manager writes the canonical JSON file and mirrors it to every
// configured sink. The JSON file is authoritative: if it cannot be
// written nothing else is attempted, while a failing sink is only logged.
type Manager struct {
	json    *JSONWriter
	sinks   []Writer
	broken  []Result
	logger  utils.Logger
	metrics *monitoring.MetricsManager
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger utils.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics records one sink_writes sample per write.
func WithMetrics(metrics *monitoring.MetricsManager) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager opens every sink in cfg. A sink that cannot be opened is
// reported as failed on each Write instead of failing the run.
func NewManager(ctx context.Context, cfg config.OutputConfig, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{logger: utils.NewNopLogger()}
	for _, opt := range opts {
		opt(m)
	}

	jw, err := NewJSONWriter(cfg.File)
	if err != nil {
		return nil, err
	}
	m.json = jw

	for i, sc := range cfg.Sinks {
		w, err := openSink(ctx, sc, cfg.File, m.logger)
		if err != nil {
			m.logger.WithField("sink", sc.Type).Warnf("sink %d unavailable: %v", i, err)
			m.broken = append(m.broken, Result{Sink: sc.Type, Error: err.Error()})
			continue
		}
		m.sinks = append(m.sinks, w)
	}
	return m, nil
}

func openSink(ctx context.Context, sc config.SinkConfig, file string, logger utils.Logger) (Writer, error) {
	switch sc.Type {
	case "yaml":
		return NewYAMLWriter(sc.Path)
	case "csv":
		return NewCSVWriter(sc.Path)
	case "excel":
		return NewExcelWriter(sc.Path)
	case "sqlite":
		return NewSQLiteWriter(ctx, sc.Path, logger)
	case "postgres":
		return NewPostgreSQLWriter(ctx, sc.DSN, logger)
	case "mysql":
		return NewMySQLWriter(ctx, sc.DSN, logger)
	case "mongodb":
		return NewMongoDBWriter(ctx, sc.DSN, sc.Database, sc.Collection, logger)
	case "s3":
		key := sc.Key
		if key == "" {
			key = defaultS3Key(file)
		}
		return NewS3Writer(ctx, S3Options{Bucket: sc.Bucket, Key: key, Region: sc.Region, Endpoint: sc.Endpoint})
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", sc.Type)
	}
}

// Sinks returns the names of the open sinks.
func (m *Manager) Sinks() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

// Write stores ds. The returned results cover the JSON file followed by
// each sink; the error is non-nil only when the JSON file failed.
func (m *Manager) Write(ctx context.Context, ds *tour.Dataset) ([]Result, error) {
	records := len(ds.Records())

	primary := m.write(ctx, m.json, ds, records)
	if !primary.Success {
		return []Result{primary}, fmt.Errorf("failed to write %s: %s", m.json.filename, primary.Error)
	}
	m.logger.Infof("wrote %d tours to %s", records, m.json.filename)

	results := []Result{primary}
	for _, b := range m.broken {
		m.record(b.Sink, fmt.Errorf("%s", b.Error))
		results = append(results, b)
	}
	for _, sink := range m.sinks {
		res := m.write(ctx, sink, ds, records)
		if !res.Success {
			m.logger.WithField("sink", sink.Name()).Warnf("sink write failed: %s", res.Error)
		}
		results = append(results, res)
	}
	return results, nil
}

func (m *Manager) write(ctx context.Context, w Writer, ds *tour.Dataset, records int) Result {
	start := time.Now()
	err := w.Write(ctx, ds)
	m.record(w.Name(), err)

	res := Result{Sink: w.Name(), Success: err == nil, Records: records, Duration: time.Since(start)}
	if err != nil {
		res.Records = 0
		res.Error = err.Error()
	}
	return res
}

func (m *Manager) record(sink string, err error) {
	if m.metrics != nil {
		m.metrics.RecordSink(sink, err)
	}
}

// Close closes every sink, returning the first error.
func (m *Manager) Close() error {
	var first error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
