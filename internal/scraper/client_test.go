// internal/scraper/client_test.go
package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/tour"
)

func newTestClient(t *testing.T) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(ClientConfig{
		Timeout:    5 * time.Second,
		UserAgents: []string{"TestAgent/1.0"},
		RateLimit:  1000,
		RateBurst:  10,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestHTTPClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestAgent/1.0" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte("<html><body>Test Content</body></html>"))
	}))
	defer server.Close()

	body, err := newTestClient(t).Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Expected successful request, got error: %v", err)
	}
	if !strings.Contains(string(body), "Test Content") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestHTTPClient_Get_HeaderOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("expected overridden Accept, got %q", got)
		}
		if got := r.Header.Get("X-Requested-With"); got != "XMLHttpRequest" {
			t.Errorf("expected XHR header, got %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("X-Requested-With", "XMLHttpRequest")
	if _, err := newTestClient(t).Get(context.Background(), server.URL, header); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPClient_Get_ErrorStatusNoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t).Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if errors.KindOf(err) != errors.KindNetwork {
		t.Errorf("expected network kind, got %s", errors.KindOf(err))
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected HTTPError 503, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one request, got %d", calls)
	}
}

func TestHTTPClient_InvalidURL(t *testing.T) {
	if _, err := newTestClient(t).Get(context.Background(), "::not a url", nil); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestHTTPClient_SessionCookiesCarryCurrency(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/change-currency", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		r.ParseForm()
		http.SetCookie(w, &http.Cookie{Name: "currency", Value: r.Form.Get("currency"), Path: "/"})
	})
	mux.HandleFunc("/tour/x", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("currency")
		if err != nil {
			w.Write([]byte(`<div class="price">none</div>`))
			return
		}
		w.Write([]byte(`<div class="price">currency ` + c.Value + `</div>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t)
	contexts := CurrencyContexts(server.URL, []tour.Currency{tour.GBP})
	if len(contexts) != 1 || contexts[0].FormValue != "3" {
		t.Fatalf("unexpected contexts %+v", contexts)
	}

	page, err := FetchInCurrency(context.Background(), client, server.URL+"/tour/x", contexts[0])
	if err != nil {
		t.Fatalf("FetchInCurrency failed: %v", err)
	}
	if got := page.Text(".price"); got != "currency 3" {
		t.Errorf("expected currency cookie to be sent, got %q", got)
	}

	u, _ := url.Parse(server.URL)
	if len(client.Cookies(u)) != 1 {
		t.Errorf("expected one session cookie, got %d", len(client.Cookies(u)))
	}
}

func TestCurrencyContextsOrder(t *testing.T) {
	contexts := CurrencyContexts("https://x.test", nil)
	var got []string
	for _, c := range contexts {
		got = append(got, string(c.Currency)+"="+c.FormValue)
	}
	want := "USD=1,NZD=2,GBP=3,EUR=4,CAD=5,AUD=6"
	if strings.Join(got, ",") != want {
		t.Errorf("got %s, want %s", strings.Join(got, ","), want)
	}
	if contexts[0].SwitchURL != "https://x.test/change-currency" {
		t.Errorf("unexpected switch URL %s", contexts[0].SwitchURL)
	}
}
