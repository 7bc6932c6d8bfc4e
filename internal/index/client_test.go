package index

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastConfig(baseURL string) ClientConfig {
	cfg := DefaultClientConfig(baseURL)
	cfg.RetryBackoff = time.Millisecond
	cfg.MaxRetryBackoff = 2 * time.Millisecond
	return cfg
}

func TestIndexSendsWireContract(t *testing.T) {
	var got indexPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/index" {
			t.Errorf("request = %s %s, want POST /index", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(fastConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	docs := []Document{
		{Key: "anomaly_1", Text: "first", Metadata: map[string]any{"source": "anomaly", "id": "1"}},
		{Key: "anomaly_2", Text: "second", Metadata: map[string]any{"source": "anomaly", "id": "2"}},
	}
	if err := client.Index(context.Background(), docs); err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(got.Texts) != 2 || got.Texts[0] != "first" {
		t.Fatalf("texts = %v", got.Texts)
	}
	if len(got.IDs) != 2 || got.IDs[1] != "anomaly_2" {
		t.Fatalf("ids = %v", got.IDs)
	}
	if got.Metadatas[0]["source"] != "anomaly" {
		t.Fatalf("metadatas = %v", got.Metadatas)
	}
}

func TestDeleteSendsIDsOnly(t *testing.T) {
	var got deletePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/delete" {
			t.Errorf("path = %s, want /delete", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := NewClient(fastConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Delete(context.Background(), []string{"anomaly_1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(got.IDs) != 1 || got.IDs[0] != "anomaly_1" {
		t.Fatalf("ids = %v", got.IDs)
	}
}

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(fastConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Index(context.Background(), []Document{{Key: "k", Text: "t"}}); err != nil {
		t.Fatalf("index should succeed after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(fastConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	err = client.Index(context.Background(), []Document{{Key: "k", Text: "t"}})
	var se StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, 4xx must not retry", calls.Load())
	}
}

func TestRetryBudgetIsBounded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.RetryAttempts = 2
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Index(context.Background(), []Document{{Key: "k", Text: "t"}}); err == nil {
		t.Fatal("expected failure after retry budget")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want initial + 2 retries", calls.Load())
	}
}

func TestEmptyBatchesAreNoOps(t *testing.T) {
	client, err := NewClient(fastConfig("http://unreachable.invalid"))
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Index(context.Background(), nil); err != nil {
		t.Fatalf("empty index: %v", err)
	}
	if err := client.Delete(context.Background(), nil); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
}

func TestClientConfigValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("missing base url must be rejected")
	}
	cfg := DefaultClientConfig("http://localhost:9")
	cfg.RetryJitter = 2
	if _, err := NewClient(cfg); err == nil {
		t.Fatal("out-of-range jitter must be rejected")
	}
}
