package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tilehub/atlas/pkg/config"
	"tilehub/atlas/pkg/telemetry/logging"
)

func newTestClient(retries int) *Client {
	return NewClient(config.UpstreamConfig{MaxRetries: retries}, logging.NewRedactor())
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "atlas-proxy" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write([]byte("tile-bytes"))
	}))
	defer srv.Close()

	res, err := newTestClient(0).Fetch(context.Background(), srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Body) != "tile-bytes" {
		t.Errorf("body = %q", res.Body)
	}
	if res.ContentType != "application/x-protobuf" {
		t.Errorf("content type = %q", res.ContentType)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "secret internal path /var/data", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(2).Fetch(context.Background(), srv.URL, 5*time.Second)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	// The upstream error body must never surface.
	if got := err.Error(); got == "" || strings.Contains(got, "secret internal path") {
		t.Errorf("error message leaks upstream body: %q", got)
	}
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(3).Fetch(context.Background(), srv.URL, 5*time.Second)
	statusErr, ok := err.(*StatusError)
	if !ok || statusErr.StatusCode != http.StatusForbidden {
		t.Fatalf("err = %v, want StatusError 403", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("4xx was retried: %d calls", got)
	}
}

func TestFetchRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	res, err := newTestClient(3).Fetch(context.Background(), srv.URL, 30*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Body) != "recovered" {
		t.Errorf("body = %q", res.Body)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(1).Fetch(context.Background(), srv.URL, 30*time.Second)
	statusErr, ok := err.(*StatusError)
	if !ok || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want StatusError 503", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	_, err := newTestClient(0).Fetch(context.Background(), srv.URL, 100*time.Millisecond)
	if !IsTimeout(err) {
		t.Fatalf("err = %v, want TimeoutError", err)
	}
}

func TestFetchContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(0).Fetch(ctx, srv.URL, 5*time.Second)
	if err == nil || IsTimeout(err) {
		t.Fatalf("err = %v, want plain cancellation", err)
	}
}
