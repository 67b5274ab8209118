// pkg/api/server.go

// Package api serves an enhanced tour dataset over a read-only HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/si0411/tourextract/internal/config"
	"github.com/si0411/tourextract/internal/monitoring"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// Server routes requests to the store.
type Server struct {
	store   *Store
	router  *mux.Router
	health  *monitoring.HealthManager
	metrics *monitoring.MetricsManager
	logger  utils.Logger
	watcher *config.FileWatcher
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger utils.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics sets the metrics manager exposed on /metrics.
func WithMetrics(metrics *monitoring.MetricsManager) Option {
	return func(s *Server) { s.metrics = metrics }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// NewServer builds the router.
func NewServer(store *Store, opts ...Option) *Server {
	s := &Server{store: store, logger: utils.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = monitoring.NewMetricsManager(monitoring.MetricsConfig{})
	}
	s.logger = s.logger.WithField("component", "api")

	s.health = monitoring.NewHealthManager(s.version, 2*time.Second)
	s.health.RegisterCheck(monitoring.HealthCheck{
		Name:     "dataset",
		Critical: true,
		Check: func(context.Context) error {
			if s.store.Dataset() == nil {
				_, err := s.store.Status()
				if err == nil {
					err = errors.New("dataset not loaded")
				}
				return err
			}
			return nil
		},
	})
	s.health.RegisterCheck(monitoring.HealthCheck{
		Name: "reload",
		Check: func(context.Context) error {
			_, err := s.store.Status()
			return err
		},
	})

	r := mux.NewRouter()
	r.Use(s.instrument)
	r.Handle("/healthz", s.health.HealthHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/tours", s.listTours).Methods(http.MethodGet)
	r.HandleFunc("/tours/{id}", s.getTour).Methods(http.MethodGet)
	r.HandleFunc("/tours/{id}/dates", s.getDates).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.RecordAPIRequest("unmatched", http.StatusNotFound)
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Watch reloads the store whenever its file changes.
func (s *Server) Watch() error {
	fw, err := config.NewFileWatcher(s.store.Path(), s.logger)
	if err != nil {
		return err
	}
	fw.OnChange(func() {
		if err := s.store.Load(); err != nil {
			s.logger.Warnf("reload failed, serving previous dataset: %v", err)
			return
		}
		s.logger.Infof("dataset reloaded: %d tours", len(s.store.Dataset().Records()))
	})
	s.watcher = fw
	return nil
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close stops watching the dataset file.
func (s *Server) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts each request under its route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RecordAPIRequest(route, rec.status)
		s.logger.WithFields(map[string]interface{}{
			"route":    route,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debugf("%s %s", r.Method, r.URL.Path)
	})
}

// TourSummary is one entry of the tour list.
type TourSummary struct {
	TourID        string        `json:"tour_id"`
	TourName      string        `json:"tour_name"`
	URL           string        `json:"url"`
	Country       string        `json:"country"`
	TourColour    string        `json:"tour_colour"`
	DurationDays  int           `json:"duration_days"`
	Price         tour.PriceSet `json:"price"`
	StartingDates int           `json:"starting_dates"`
	LastUpdated   string        `json:"last_updated"`
}

func summarize(r *tour.Record) TourSummary {
	return TourSummary{
		TourID:        r.TourID,
		TourName:      r.TourName,
		URL:           r.URL,
		Country:       r.Country,
		TourColour:    r.TourColour,
		DurationDays:  r.TourInformation.Duration.Days,
		Price:         r.Price,
		StartingDates: len(r.StartingDates),
		LastUpdated:   r.LastUpdated,
	}
}

// listTours serves GET /tours. ?country= filters case-insensitively.
func (s *Server) listTours(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w)
	if !ok {
		return
	}
	country := strings.TrimSpace(r.URL.Query().Get("country"))

	tours := []TourSummary{}
	for _, rec := range ds.Records() {
		if country != "" && !strings.EqualFold(rec.Country, country) {
			continue
		}
		tours = append(tours, summarize(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tours": tours,
		"total": len(tours),
	})
}

func (s *Server) getTour(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.find(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getDates(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.find(w, r)
	if !ok {
		return
	}
	dates := rec.StartingDates
	if dates == nil {
		dates = []tour.DateEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tour_id":        rec.TourID,
		"starting_dates": dates,
	})
}

func (s *Server) dataset(w http.ResponseWriter) (*tour.Dataset, bool) {
	ds := s.store.Dataset()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "dataset not loaded")
		return nil, false
	}
	return ds, true
}

func (s *Server) find(w http.ResponseWriter, r *http.Request) (*tour.Record, bool) {
	ds, ok := s.dataset(w)
	if !ok {
		return nil, false
	}
	id := mux.Vars(r)["id"]
	rec, ok := ds.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "tour not found: "+id)
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
