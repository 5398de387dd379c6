// Package testutil provides shared test helpers for content dirs and the KV store.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/clawfable/clawfable/internal/kv"
	"github.com/clawfable/clawfable/internal/storage"
)

// TestKV starts an in-process Redis and returns a connected client.
// Both are cleaned up automatically.
func TestKV(t *testing.T) (kv.Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client, err := kv.New(context.Background(), "redis://"+srv.Addr(), "")
	if err != nil {
		t.Fatalf("kv.New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, srv
}

// TestContent creates a temporary content root populated with the given
// files (relative paths with forward slashes) and returns a disk source.
func TestContent(t *testing.T, files map[string]string) (string, storage.Source) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	src, err := storage.NewFS(root)
	if err != nil {
		t.Fatalf("storage.NewFS: %v", err)
	}
	return root, src
}
