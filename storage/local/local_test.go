package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/datapipe/storage"
)

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := storage.WriteAll(ctx, s, "landing/orders.jsonl", []byte(`{"id":1}`)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	ok, err := s.Exists(ctx, "landing/orders.jsonl")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	data, err := storage.ReadAll(ctx, s, "landing/orders.jsonl")
	if err != nil || string(data) != `{"id":1}` {
		t.Fatalf("Download = %q, %v", data, err)
	}

	if err := s.Delete(ctx, "landing/orders.jsonl"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Exists(ctx, "landing/orders.jsonl"); ok {
		t.Error("expected object to be deleted")
	}
	if err := s.Delete(ctx, "landing/orders.jsonl"); err != nil {
		t.Errorf("deleting a missing file should succeed: %v", err)
	}
	if _, err := s.Download(ctx, "landing/orders.jsonl"); err == nil {
		t.Error("expected not found error")
	}
}

func TestStorage_ListPrefix(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"in/b.csv", "in/a.csv", "out/c.csv"} {
		if err := storage.WriteAll(ctx, s, p, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	// Stray temp files from interrupted uploads are never listed.
	if err := os.WriteFile(filepath.Join(dir, "in", ".upload-123"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := s.List(ctx, "in/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	if got := strings.Join(paths, ","); got != "in/a.csv,in/b.csv" {
		t.Errorf("List = %q", got)
	}
}

func TestStorage_PathEscape(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// Cleaning against the root keeps ../ inside the base directory.
	if err := storage.WriteAll(context.Background(), s, "../../etc/x", []byte("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ok, _ := s.Exists(context.Background(), "etc/x"); !ok {
		t.Error("expected path to be confined to the base directory")
	}
}
