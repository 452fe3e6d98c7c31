package storage

import (
	"context"
	"testing"
)

func TestNewStoreMemory(t *testing.T) {
	for _, kind := range []string{"", "memory"} {
		store, err := NewStore(kind, "")
		if err != nil {
			t.Fatalf("new memory store %q: %v", kind, err)
		}
		if err := store.Init(context.Background()); err != nil {
			t.Fatalf("init: %v", err)
		}
		if err := CloseIfSupported(store); err != nil {
			t.Fatalf("memory store close should be a no-op: %v", err)
		}
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("postgres", "")
	if err == nil {
		t.Fatal("expected unsupported store error")
	}
	if _, err := NewStore("sqlite", ""); err == nil {
		t.Fatal("expected missing sqlite path error")
	}
}
