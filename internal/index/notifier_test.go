package index

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"anomalycore/pkg/domain"
)

type recordedCall struct {
	path string
	ids  []string
}

// indexServer captures /index and /delete calls and can fail selected keys.
type indexServer struct {
	mu     sync.Mutex
	calls  []recordedCall
	failID string
}

func (s *indexServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ids []string
		switch r.URL.Path {
		case "/index":
			var p indexPayload
			_ = json.Unmarshal(body, &p)
			ids = p.IDs
		case "/delete":
			var p deletePayload
			_ = json.Unmarshal(body, &p)
			ids = p.IDs
		}
		s.mu.Lock()
		s.calls = append(s.calls, recordedCall{path: r.URL.Path, ids: ids})
		fail := s.failID
		s.mu.Unlock()
		for _, id := range ids {
			if fail != "" && id == fail {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *indexServer) recorded() []recordedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func newTestNotifier(t *testing.T, srvURL string, opts ...NotifierOption) *Notifier {
	t.Helper()
	cfg := DefaultClientConfig(srvURL)
	cfg.RetryAttempts = 0
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	opts = append(opts, WithNotifierLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewNotifier(client, opts...)
}

func anomalyChange(id string, action domain.Action) domain.Change {
	var a domain.Anomaly
	a.ID = id
	ch := domain.Change{Entity: domain.EntityAnomaly, Action: action}
	if action == domain.ActionDelete {
		ch.Before = a
	} else {
		ch.After = a
	}
	return ch
}

func TestNotifierUpsertsAndDeletes(t *testing.T) {
	srv := &indexServer{}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()
	n := newTestNotifier(t, ts.URL)

	n.NotifyChanges(context.Background(), []domain.Change{
		anomalyChange("a1", domain.ActionCreate),
		anomalyChange("a1", domain.ActionUpdate),
		anomalyChange("a1", domain.ActionDelete),
	})

	calls := srv.recorded()
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(calls))
	}
	if calls[0].path != "/index" || calls[1].path != "/index" {
		t.Fatalf("first two calls = %s,%s, want /index", calls[0].path, calls[1].path)
	}
	if calls[2].path != "/delete" {
		t.Fatalf("third call = %s, want /delete", calls[2].path)
	}
	if len(calls[2].ids) != 1 || calls[2].ids[0] != "anomaly_a1" {
		t.Fatalf("delete ids = %v, want exactly [anomaly_a1]", calls[2].ids)
	}
}

func TestNotifierIsolatesFailures(t *testing.T) {
	srv := &indexServer{failID: "anomaly_bad"}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()
	n := newTestNotifier(t, ts.URL)

	n.NotifyChanges(context.Background(), []domain.Change{
		anomalyChange("ok1", domain.ActionUpdate),
		anomalyChange("bad", domain.ActionUpdate),
		anomalyChange("ok2", domain.ActionUpdate),
	})

	calls := srv.recorded()
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want all three attempted despite the failure", len(calls))
	}
	if calls[2].ids[0] != "anomaly_ok2" {
		t.Fatalf("last call ids = %v, want anomaly_ok2 after the failed one", calls[2].ids)
	}
}

func TestNotifierAsyncPreservesOrder(t *testing.T) {
	srv := &indexServer{}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()
	n := newTestNotifier(t, ts.URL, WithAsyncQueue(16))

	for i := 0; i < 5; i++ {
		n.NotifyChanges(context.Background(), []domain.Change{anomalyChange("seq", domain.ActionUpdate)})
	}
	n.NotifyChanges(context.Background(), []domain.Change{anomalyChange("seq", domain.ActionDelete)})
	n.Close()

	calls := srv.recorded()
	if len(calls) != 6 {
		t.Fatalf("calls = %d, want all six processed before Close returns", len(calls))
	}
	if calls[5].path != "/delete" {
		t.Fatalf("final call = %s, want the delete last", calls[5].path)
	}
}

func TestNotifierAsyncDropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	served := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		mu.Lock()
		served++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	n := newTestNotifier(t, ts.URL, WithAsyncQueue(1))
	// first batch occupies the worker, second fills the queue, third drops
	for i := 0; i < 3; i++ {
		n.NotifyChanges(context.Background(), []domain.Change{anomalyChange("q", domain.ActionUpdate)})
	}
	close(release)
	n.Close()

	mu.Lock()
	defer mu.Unlock()
	if served > 2 {
		t.Fatalf("served = %d, want at most worker + queued", served)
	}
}

func TestNotifierCloseIsIdempotent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	n := newTestNotifier(t, ts.URL, WithAsyncQueue(4))
	n.Close()
	n.Close()
	// notifying after close must not panic
	n.NotifyChanges(context.Background(), []domain.Change{anomalyChange("late", domain.ActionUpdate)})
}
