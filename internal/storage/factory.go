package storage

import (
	"errors"
	"fmt"
)

// NewStore opens the study and pair store of the named backend: "memory" (or
// empty) or "sqlite" at sqlitePath.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if sqlitePath == "" {
			return nil, errors.New("sqlite study store needs a database path")
		}
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown study store %q (want memory or sqlite)", kind)
	}
}

// CloseIfSupported releases stores holding a database handle. The memory
// store has nothing to close.
func CloseIfSupported(store Store) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
