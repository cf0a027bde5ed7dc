// ABOUTME: Copies export session descriptors between storage backends.
// ABOUTME: Used when switching backends so paused exports survive the move.
package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/harperreed/healthexport/internal/export"
)

// DescriptorBackend is a descriptor store that can enumerate and close.
type DescriptorBackend interface {
	export.DescriptorStore
	export.DescriptorLister
	Close() error
}

var (
	_ DescriptorBackend = (*BadgerStore)(nil)
	_ DescriptorBackend = (*RedisStore)(nil)
	_ DescriptorBackend = (*MemoryStore)(nil)
)

// MigrateSummary holds counts of migrated sessions.
type MigrateSummary struct {
	Sessions int
	Skipped  int
}

// MigrateDescriptors copies every session descriptor from src to dst.
// Sessions already present in dst are skipped unless overwrite is set.
func MigrateDescriptors(ctx context.Context, src export.DescriptorStore, dst export.DescriptorStore, overwrite bool) (*MigrateSummary, error) {
	ids, err := export.ListSessionIDs(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("list source sessions: %w", err)
	}

	summary := &MigrateSummary{}
	for _, id := range ids {
		key := export.StorageKey(id)
		d, err := src.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
		if d == nil {
			continue
		}

		if !overwrite {
			existing, err := dst.Load(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("check destination session %s: %w", id, err)
			}
			if existing != nil {
				summary.Skipped++
				continue
			}
		}

		if err := dst.Store(ctx, key, *d); err != nil {
			return nil, fmt.Errorf("store session %s: %w", id, err)
		}
		summary.Sessions++
	}

	return summary, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
