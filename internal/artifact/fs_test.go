package artifact

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSPutGetRoundTrip(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	info, err := store.Put(ctx, "rex/anomaly_1/report.pdf", strings.NewReader("findings"), PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"actor": "inspector"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("findings")) {
		t.Fatalf("size = %d", info.Size)
	}
	if info.ETag == "" {
		t.Fatal("expected content etag")
	}
	if info.URL == "" {
		t.Fatal("expected stable url")
	}

	got, rc, err := store.Get(ctx, "rex/anomaly_1/report.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "findings" {
		t.Fatalf("body = %q", body)
	}
	if got.ContentType != "application/pdf" || got.Metadata["actor"] != "inspector" {
		t.Fatalf("info = %+v", got)
	}
}

func TestFSPutReplacesExisting(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "rex/a/r.pdf", strings.NewReader("v1"), PutOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Put(ctx, "rex/a/r.pdf", strings.NewReader("v2 corrected"), PutOptions{}); err != nil {
		t.Fatalf("re-put must replace: %v", err)
	}
	_, rc, err := store.Get(ctx, "rex/a/r.pdf")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "v2 corrected" {
		t.Fatalf("body = %q, want the replacement", body)
	}
}

func TestFSRejectsTraversalKeys(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "/abs/key", "../escape", "a/../../escape"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Errorf("key %q must be rejected", key)
		}
	}
}

func TestFSHeadDeleteList(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"rex/anomaly_1/a.pdf", "rex/anomaly_1/b.pdf", "rex/anomaly_2/c.pdf"} {
		if _, err := store.Put(ctx, key, strings.NewReader(key), PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := store.Head(ctx, "rex/anomaly_1/a.pdf"); err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, err := store.Head(ctx, "rex/anomaly_9/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("head missing = %v, want ErrNotFound", err)
	}

	infos, err := store.List(ctx, "rex/anomaly_1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("listed %d, want 2 under prefix", len(infos))
	}
	if infos[0].Key > infos[1].Key {
		t.Fatal("list must sort by key")
	}

	ok, err := store.Delete(ctx, "rex/anomaly_1/a.pdf")
	if err != nil || !ok {
		t.Fatalf("delete = %t, %v", ok, err)
	}
	ok, err = store.Delete(ctx, "rex/anomaly_1/a.pdf")
	if err != nil || ok {
		t.Fatalf("second delete = %t, %v, want false", ok, err)
	}
}

func TestFSPresignOnlySupportsGet(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	url, err := store.PresignURL(ctx, "rex/a/r.pdf", SignedURLOptions{})
	if err != nil || url == "" {
		t.Fatalf("presign get = %q, %v", url, err)
	}
	if _, err := store.PresignURL(ctx, "rex/a/r.pdf", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("presign put = %v, want ErrUnsupported", err)
	}
}
