package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/datapipe/logger"
)

type mapStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapStorage() *mapStorage { return &mapStorage{data: make(map[string][]byte)} }

func (m *mapStorage) Upload(_ context.Context, path string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = b
	return nil
}

func (m *mapStorage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[path]
	if !ok {
		return nil, fmt.Errorf("not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *mapStorage) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, path)
	return nil
}

func (m *mapStorage) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[path]
	return ok, nil
}

func (m *mapStorage) List(context.Context, string) ([]FileInfo, error) { return nil, nil }

func TestNew_UnregisteredProvider(t *testing.T) {
	_, err := New(Config{Provider: ProviderMemory}, logger.Nop())
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("expected not registered error, got %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Provider: "ftp"}, logger.Nop()); err == nil {
		t.Fatal("expected unsupported provider error")
	}
	if _, err := New(Config{Provider: ProviderS3}, logger.Nop()); err == nil {
		t.Fatal("expected missing bucket error")
	}
}

func TestOpenStores(t *testing.T) {
	RegisterFactory(ProviderMemory, func(Config, *logger.Logger) (Storage, error) { return newMapStorage(), nil })
	t.Cleanup(func() {
		factoriesMu.Lock()
		delete(factories, ProviderMemory)
		factoriesMu.Unlock()
	})

	stores, err := Open(map[string]Config{
		"landing": {Provider: ProviderMemory},
		"archive": {Provider: ProviderMemory},
	}, logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := strings.Join(stores.Names(), ","); got != "archive,landing" {
		t.Errorf("Names = %q", got)
	}
	if _, ok := stores.Get("landing"); !ok {
		t.Error("expected landing store")
	}
	if _, ok := stores.Get("missing"); ok {
		t.Error("unexpected store")
	}
}

func TestCopyAndReadAll(t *testing.T) {
	ctx := context.Background()
	src, dst := newMapStorage(), newMapStorage()
	if err := WriteAll(ctx, src, "in/a.csv", []byte("id\n1\n")); err != nil {
		t.Fatal(err)
	}
	if err := Copy(ctx, src, "in/a.csv", dst, "out/a.csv"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	got, err := ReadAll(ctx, dst, "out/a.csv")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "id\n1\n" {
		t.Errorf("copied content = %q", got)
	}
	if err := Copy(ctx, src, "missing", dst, "x"); err == nil {
		t.Error("expected error copying a missing object")
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}
	c.ApplyDefaults()
	if c.Provider != ProviderLocal || c.BasePath != DefaultBasePath {
		t.Errorf("unexpected defaults %+v", c)
	}
	s3 := Config{Provider: ProviderS3, Bucket: "b"}
	s3.ApplyDefaults()
	if s3.Region != DefaultRegion {
		t.Errorf("expected default region, got %q", s3.Region)
	}
	if err := s3.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
