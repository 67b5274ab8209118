// pkg/api/server_test.go
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/si0411/tourextract/internal/tour"
)

func writeDataset(t *testing.T, path string, names ...string) {
	t.Helper()
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	var results []tour.Result
	for _, name := range names {
		id := strings.ToLower(name)
		rec := tour.New("https://bt.test/group-tour-"+id, id, now)
		rec.TourName = name
		rec.Country = name
		left := 3
		rec.StartingDates = []tour.DateEntry{
			{Date: "10 Oct - 23 Oct 2025 - Book Now", Status: "Book Now", AvailableSpaces: &left, Enriched: true},
		}
		results = append(results, tour.Result{Record: &rec, URL: rec.URL})
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	if err := tour.NewDataset(results).Encode(f); err != nil {
		t.Fatalf("encode dataset: %v", err)
	}
	f.Close()
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename dataset: %v", err)
	}
}

func setupTestServer(t *testing.T, names ...string) (*Server, *httptest.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tours.json")
	writeDataset(t, path, names...)

	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	srv := NewServer(store, WithVersion("test"))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts, path
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

type tourList struct {
	Tours []TourSummary `json:"tours"`
	Total int           `json:"total"`
}

func TestHealthEndpoint(t *testing.T) {
	_, ts, _ := setupTestServer(t, "Bali")

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if code := getJSON(t, ts.URL+"/healthz", &health); code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}
	if health.Status != "healthy" || health.Version != "test" {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestHealthUnloaded(t *testing.T) {
	srv := NewServer(NewStore(filepath.Join(t.TempDir(), "missing.json")))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	if code := getJSON(t, ts.URL+"/healthz", nil); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before load, got %d", code)
	}
	if code := getJSON(t, ts.URL+"/tours", nil); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for tours before load, got %d", code)
	}
}

func TestListTours(t *testing.T) {
	_, ts, _ := setupTestServer(t, "Bali", "Peru")

	var list tourList
	if code := getJSON(t, ts.URL+"/tours", &list); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if list.Total != 2 || len(list.Tours) != 2 {
		t.Fatalf("expected 2 tours, got %+v", list)
	}
	if list.Tours[0].TourID != "bali" || list.Tours[0].StartingDates != 1 {
		t.Errorf("unexpected summary %+v", list.Tours[0])
	}

	list = tourList{}
	getJSON(t, ts.URL+"/tours?country=peru", &list)
	if list.Total != 1 || list.Tours[0].TourID != "peru" {
		t.Errorf("country filter: got %+v", list)
	}
}

func TestGetTour(t *testing.T) {
	_, ts, _ := setupTestServer(t, "Bali")

	var rec map[string]interface{}
	if code := getJSON(t, ts.URL+"/tours/bali", &rec); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if rec["tour_name"] != "Bali" {
		t.Errorf("unexpected record %v", rec)
	}

	var apiErr map[string]string
	if code := getJSON(t, ts.URL+"/tours/nowhere", &apiErr); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if !strings.Contains(apiErr["error"], "nowhere") {
		t.Errorf("unexpected error body %v", apiErr)
	}
}

func TestGetTourDates(t *testing.T) {
	_, ts, _ := setupTestServer(t, "Bali")

	var body struct {
		TourID string `json:"tour_id"`
		Dates  []struct {
			Date            string `json:"date"`
			AvailableSpaces *int   `json:"available_spaces"`
		} `json:"starting_dates"`
	}
	if code := getJSON(t, ts.URL+"/tours/bali/dates", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if len(body.Dates) != 1 || body.Dates[0].AvailableSpaces == nil || *body.Dates[0].AvailableSpaces != 3 {
		t.Errorf("unexpected dates %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts, _ := setupTestServer(t, "Bali")

	getJSON(t, ts.URL+"/tours", nil)
	getJSON(t, ts.URL+"/tours/bali", nil)
	getJSON(t, ts.URL+"/nope", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	text := string(data)

	for _, want := range []string{
		`tourextract_api_requests_total{code="200",route="/tours"} 1`,
		`tourextract_api_requests_total{code="200",route="/tours/{id}"} 1`,
		`tourextract_api_requests_total{code="404",route="unmatched"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestWatchReloadsDataset(t *testing.T) {
	srv, ts, path := setupTestServer(t, "Bali")
	if err := srv.Watch(); err != nil {
		t.Fatalf("watch: %v", err)
	}

	writeDataset(t, path, "Bali", "Peru", "Laos")

	deadline := time.Now().Add(5 * time.Second)
	for {
		var list tourList
		getJSON(t, ts.URL+"/tours", &list)
		if list.Total == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dataset not reloaded, still %d tours", list.Total)
		}
		time.Sleep(50 * time.Millisecond)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	var list tourList
	getJSON(t, ts.URL+"/tours", &list)
	if list.Total != 3 {
		t.Errorf("a broken file must not replace the dataset, got %d tours", list.Total)
	}
}
