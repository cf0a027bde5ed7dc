// ABOUTME: Interfaces the export subsystem consumes: data provider, batch processor, descriptor store.
// ABOUTME: Concrete implementations live in storage, charm and processor packages.
package export

import (
	"context"
	"strings"
	"time"

	"github.com/harperreed/healthexport/internal/models"
)

// Provider fetches samples from the health data store.
type Provider interface {
	// Fetch returns samples of one type starting in the half-open range.
	Fetch(ctx context.Context, st models.SampleType, r models.TimeRange) ([]models.Sample, error)

	// OldestSampleDate returns the start of the earliest sample of a type.
	// ok is false when there are none.
	OldestSampleDate(ctx context.Context, st models.SampleType) (t time.Time, ok bool, err error)
}

// Processor turns one batch of samples into an output value.
type Processor[Out any] interface {
	Process(ctx context.Context, samples []models.Sample, st models.SampleType) (Out, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc[Out any] func(ctx context.Context, samples []models.Sample, st models.SampleType) (Out, error)

// Process calls f.
func (f ProcessorFunc[Out]) Process(ctx context.Context, samples []models.Sample, st models.SampleType) (Out, error) {
	return f(ctx, samples, st)
}

// DescriptorStore persists descriptors under string keys.
type DescriptorStore interface {
	// Load returns nil, nil when no descriptor is stored under key.
	Load(ctx context.Context, key string) (*Descriptor, error)
	Store(ctx context.Context, key string, d Descriptor) error
	Delete(ctx context.Context, key string) error
}

// DescriptorLister is implemented by stores that can enumerate their keys.
type DescriptorLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// KeyPrefix prefixes every descriptor key.
const KeyPrefix = "bulk-export-session:"

// StorageKey returns the store key for a session ID.
func StorageKey(sessionID string) string {
	return KeyPrefix + sessionID
}

// SessionIDFromKey reverses StorageKey. ok is false for foreign keys.
func SessionIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, KeyPrefix), true
}

// ListSessionIDs enumerates persisted session IDs when the store supports it.
func ListSessionIDs(ctx context.Context, store DescriptorStore) ([]string, error) {
	lister, ok := store.(DescriptorLister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, k := range keys {
		if id, ok := SessionIDFromKey(k); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
