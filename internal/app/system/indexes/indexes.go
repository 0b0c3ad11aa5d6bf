// internal/app/system/indexes/indexes.go

// Package indexes runs every store's EnsureIndexes at startup.
package indexes

import (
	"context"

	"go.uber.org/zap"
)

// Ensurer is implemented by every store that owns indexes.
type Ensurer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureAll creates all indexes. Index creation is idempotent; failures are
// fatal because the roster invariants depend on them (unique keys, the
// group_id member index).
func EnsureAll(ctx context.Context, logger *zap.Logger, stores ...Ensurer) error {
	for _, s := range stores {
		if err := s.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	logger.Info("database indexes ensured", zap.Int("stores", len(stores)))
	return nil
}
