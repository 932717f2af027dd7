package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
)

func newTestFetcher() *Fetcher {
	f := NewFetcher(5*time.Second, 1000, zap.NewNop())
	f.retryDelay = 5 * time.Millisecond
	return f
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("ETag", `"abc123"`)
		w.Write([]byte("document-bytes"))
	}))
	defer srv.Close()

	res, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Fetch returned unexpected error: %v", err)
	}
	if string(res.Bytes) != "document-bytes" {
		t.Errorf("body = %q, want %q", res.Bytes, "document-bytes")
	}
	if res.ContentType != "application/pdf" {
		t.Errorf("content type = %q, want application/pdf", res.ContentType)
	}
	if res.ETag != `"abc123"` {
		t.Errorf("etag = %q, want %q", res.ETag, `"abc123"`)
	}
	if res.ResolvedURL != srv.URL {
		t.Errorf("resolved URL = %q, want %q", res.ResolvedURL, srv.URL)
	}
}

func TestFetchUserAgentSwap(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	f := newTestFetcher()

	if _, err := f.Fetch(context.Background(), srv.URL, Options{}); err != nil {
		t.Fatalf("Fetch returned unexpected error: %v", err)
	}
	if !strings.Contains(gotUA, "tasacol-aggregator") {
		t.Errorf("default UA = %q, want self-identifying agent", gotUA)
	}

	if _, err := f.Fetch(context.Background(), srv.URL, Options{UseBrowserIdentity: true}); err != nil {
		t.Fatalf("Fetch returned unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Errorf("browser UA = %q, want desktop browser signature", gotUA)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	res, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{Retries: 3})
	if err != nil {
		t.Fatalf("Fetch returned unexpected error: %v", err)
	}
	if string(res.Bytes) != "finally" {
		t.Errorf("body = %q, want %q", res.Bytes, "finally")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestFetchExhaustedRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{Retries: 2})
	if err == nil {
		t.Fatal("Fetch expected error, got nil")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", got)
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error %v should unwrap to *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", statusErr.StatusCode, http.StatusBadGateway)
	}
}

func TestMonthToken(t *testing.T) {
	tests := []struct {
		date civil.Date
		want string
	}{
		{civil.Date{Year: 2026, Month: time.January, Day: 1}, "enero-2026"},
		{civil.Date{Year: 2026, Month: time.September, Day: 30}, "septiembre-2026"},
		{civil.Date{Year: 2025, Month: time.December, Day: 15}, "diciembre-2025"},
	}
	for _, tt := range tests {
		if got := MonthToken(tt.date); got != tt.want {
			t.Errorf("MonthToken(%v) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

func TestFetchMonthlyFallsBackOneMonthOn404(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if strings.Contains(r.URL.Path, "marzo-2026") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("february-document"))
	}))
	defer srv.Close()

	asOf := civil.Date{Year: 2026, Month: time.March, Day: 15}
	template := srv.URL + "/tasas/vivienda-" + MonthPlaceholder + ".pdf"

	res, err := newTestFetcher().FetchMonthly(context.Background(), template, asOf, Options{})
	if err != nil {
		t.Fatalf("FetchMonthly returned unexpected error: %v", err)
	}
	if string(res.Bytes) != "february-document" {
		t.Errorf("body = %q, want previous month's content", res.Bytes)
	}
	if want := srv.URL + "/tasas/vivienda-febrero-2026.pdf"; res.ResolvedURL != want {
		t.Errorf("resolved URL = %q, want %q", res.ResolvedURL, want)
	}
	if len(requested) != 2 {
		t.Errorf("requests = %v, want current then previous month", requested)
	}
}

func TestFetchMonthlyNon404Propagates(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	asOf := civil.Date{Year: 2026, Month: time.March, Day: 15}
	template := srv.URL + "/tasas/vivienda-" + MonthPlaceholder + ".pdf"

	_, err := newTestFetcher().FetchMonthly(context.Background(), template, asOf, Options{})
	if err == nil {
		t.Fatal("FetchMonthly expected error, got nil")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("error = %v, want 403 StatusError propagated unchanged", err)
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1 (no month fallback on non-404)", got)
	}
}
