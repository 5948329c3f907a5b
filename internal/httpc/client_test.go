package httpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("overlay"))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.Client(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "overlay" {
		t.Errorf("Fetch body: got %q, want %q", body, "overlay")
	}

	_, err = Fetch(context.Background(), srv.Client(), srv.URL+"/missing")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode: got %d, want 404", se.StatusCode)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Fetch(ctx, nil, srv.URL); err == nil {
		t.Error("expected error for cancelled context")
	}
}
