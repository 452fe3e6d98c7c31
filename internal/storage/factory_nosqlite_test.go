//go:build !sqlite

package storage

import (
	"errors"
	"testing"
)

func TestNewStoreSQLiteUnavailable(t *testing.T) {
	if _, err := NewStore("sqlite", "genoloc.db"); !errors.Is(err, errSQLiteUnavailable) {
		t.Fatalf("expected sqlite to be unavailable without the sqlite build tag, got %v", err)
	}
}
