package storage

import (
	"context"
	"fmt"
)

// NewStores builds the repository set for a backend kind.
func NewStores(ctx context.Context, kind, sqlitePath string) (Stores, error) {
	switch kind {
	case "", "memory":
		m := NewMemoryStore()
		return Stores{Species: m, Environment: m, History: m}, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return Stores{}, err
		}
		return Stores{Species: s, Environment: s, History: s}, nil
	default:
		return Stores{}, fmt.Errorf("unsupported store backend: %s", kind)
	}
}
