package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestEmbeddedFallback(t *testing.T) {
	f := NewFetcher(Config{})
	cur := f.Current()
	if cur.Source != "embedded" {
		t.Errorf("source = %q, want embedded", cur.Source)
	}
	if cur.Version == "" {
		t.Error("expected embedded template version")
	}
	if len(cur.Body) == 0 {
		t.Error("expected embedded template body")
	}
}

func TestRefreshRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"2.3.4","sections":[]}`))
	}))
	defer srv.Close()

	f := NewFetcher(Config{TemplateURL: srv.URL})
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	cur := f.Current()
	if cur.Source != "remote" {
		t.Errorf("source = %q, want remote", cur.Source)
	}
	if cur.Version != "2.3.4" {
		t.Errorf("version = %q, want 2.3.4", cur.Version)
	}
}

func TestRefreshRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"version":"9.9.9"}`))
	}))
	defer srv.Close()

	f := NewFetcher(Config{TemplateURL: srv.URL})
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := f.Current().Version; got != "9.9.9" {
		t.Errorf("version = %q, want 9.9.9", got)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRefreshKeepsCurrentOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(Config{TemplateURL: srv.URL})
	if err := f.Refresh(context.Background()); err == nil {
		t.Fatal("expected error from 404 source")
	}
	if f.Current().Source != "embedded" {
		t.Errorf("source = %q, want embedded after failed refresh", f.Current().Source)
	}
}
