package state

import (
	"context"
	"time"

	"github.com/mallardhq/mallard/internal/migrate"
)

// MigrationRecorder feeds migration runner events into the state store,
// stamping each record with the target name.
type MigrationRecorder struct {
	store  Store
	target string
}

// NewMigrationRecorder creates a recorder for one target.
func NewMigrationRecorder(store Store, target string) *MigrationRecorder {
	return &MigrationRecorder{store: store, target: target}
}

// RecordMigration implements migrate.RunRecorder.
func (r *MigrationRecorder) RecordMigration(ctx context.Context, version int64, name, direction string, duration time.Duration, runErr error) error {
	return r.store.RecordMigration(ctx, r.target, version, name, direction, duration, runErr)
}

var _ migrate.RunRecorder = (*MigrationRecorder)(nil)
