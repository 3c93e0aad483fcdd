package httpcache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientCachesGet(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	client := NewClient(New(time.Minute, nil), srv.Client(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/duty/a/d", http.NoBody)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := client.Do(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != `{"ok":true}` {
			t.Fatalf("body = %q", body)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("origin hit %d times, want 1", got)
	}
}

func TestClientKeysPostOnBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	client := NewClient(New(time.Minute, nil), srv.Client(), nil)
	ctx := context.Background()

	fetch := func(payload string) string {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/airports/batch", strings.NewReader(payload))
		if err != nil {
			t.Fatal(err)
		}
		resp, err := client.Do(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	if got := fetch(`{"codes":["LHR"]}`); got != `{"codes":["LHR"]}` {
		t.Fatalf("first response = %q", got)
	}
	fetch(`{"codes":["LHR"]}`) // cached
	if got := fetch(`{"codes":["JFK"]}`); got != `{"codes":["JFK"]}` {
		t.Fatalf("distinct body served stale response: %q", got)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("origin hit %d times, want 2", got)
	}
}

func TestClientSkipsNonOK(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(New(time.Minute, nil), srv.Client(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		resp, err := client.Do(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("error responses should not be cached: origin hit %d times, want 2", got)
	}
}
