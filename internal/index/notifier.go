package index

import (
	"context"
	"log/slog"
	"sync"

	"anomalycore/pkg/domain"
)

// Notifier receives committed change lists and mirrors them into the
// document index. Changes within a batch are processed in commit order and
// each is isolated: a push failure is logged and the remaining changes
// still run. The notifier never returns an error to the mutating path.
type Notifier struct {
	client *Client
	logger *slog.Logger

	mu     sync.Mutex
	queue  chan []domain.Change
	done   chan struct{}
	closed bool
}

// NotifierOption configures optional notifier behavior.
type NotifierOption func(*Notifier)

// WithNotifierLogger sets the structured logger.
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithAsyncQueue switches the notifier to asynchronous mode: batches are
// handed to a single worker goroutine through a bounded queue, so one
// consumer preserves per-record ordering. When the queue is full the batch
// is dropped with an error log instead of blocking the caller; a later
// reindex repairs the gap.
func WithAsyncQueue(size int) NotifierOption {
	return func(n *Notifier) {
		if size <= 0 {
			size = 256
		}
		n.queue = make(chan []domain.Change, size)
	}
}

// NewNotifier builds a notifier pushing through client. Synchronous by
// default; pass WithAsyncQueue for the background worker.
func NewNotifier(client *Client, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		client: client,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.queue != nil {
		go n.run()
	}
	return n
}

// NotifyChanges mirrors a committed change batch into the index.
func (n *Notifier) NotifyChanges(ctx context.Context, changes []domain.Change) {
	if len(changes) == 0 {
		return
	}
	if n.queue == nil {
		n.process(ctx, changes)
		return
	}
	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return
	}
	select {
	case n.queue <- changes:
	default:
		n.logger.Error("index queue full, dropping change batch", "changes", len(changes))
	}
}

// Close stops the async worker after draining queued batches. A no-op in
// synchronous mode.
func (n *Notifier) Close() {
	if n.queue == nil {
		return
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)
	for batch := range n.queue {
		n.process(context.Background(), batch)
	}
}

func (n *Notifier) process(ctx context.Context, changes []domain.Change) {
	for _, change := range changes {
		n.apply(ctx, change)
	}
}

// apply pushes one change. Deletes remove exactly the one stale document;
// creates and updates re-render and upsert it under its stable key.
func (n *Notifier) apply(ctx context.Context, change domain.Change) {
	if change.Action == domain.ActionDelete {
		id, ok := RecordID(change.Before)
		if !ok {
			n.logger.Warn("unindexable delete change", "entity", string(change.Entity))
			return
		}
		key := Key(change.Entity, id)
		if err := n.client.Delete(ctx, []string{key}); err != nil {
			n.logger.Error("index delete failed", "key", key, "error", err)
		}
		return
	}
	doc, ok := ForRecord(change.After)
	if !ok {
		n.logger.Warn("unindexable change", "entity", string(change.Entity), "action", string(change.Action))
		return
	}
	if err := n.client.Index(ctx, []Document{doc}); err != nil {
		n.logger.Error("index upsert failed", "key", doc.Key, "action", string(change.Action), "error", err)
	}
}
