// ABOUTME: Unit tests for the Charm-backed descriptor store.
// ABOUTME: Uses an in-memory KV double so no Charm account is needed.
package charm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/models"
)

type fakeKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	readOnly bool
	syncs    int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(key []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[string(key)]
	if !ok {
		return nil, badger.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[string(key)] = value
	return nil
}

func (f *fakeKV) Delete(key []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, string(key))
	return nil
}

func (f *fakeKV) Keys() ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys [][]byte
	for k := range f.data {
		keys = append(keys, []byte(k))
	}
	return keys, nil
}

func (f *fakeKV) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	return nil
}

func (f *fakeKV) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = make(map[string][]byte)
	return nil
}

func (f *fakeKV) IsReadOnly() bool { return f.readOnly }
func (f *fakeKV) Close() error     { return nil }

func descriptor(t *testing.T, id string) export.Descriptor {
	t.Helper()
	d := export.NewDescriptor(id)
	_, err := d.Add(context.Background(), nil, models.SampleSleepAnalysis,
		export.Custom(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), export.BatchSizeByMonth)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return d.Clone()
}

func TestDescriptorKeyFormat(t *testing.T) {
	key := export.StorageKey("nightly")
	if !strings.HasPrefix(key, "bulk-export-session:") {
		t.Errorf("Expected key to start with 'bulk-export-session:', got: %s", key)
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeKV()
	c := newClient(fake)
	key := export.StorageKey("nightly")

	got, err := c.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing descriptor, got %+v", got)
	}

	if err := c.Store(ctx, key, descriptor(t, "nightly")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if fake.syncs != 1 {
		t.Errorf("expected auto sync after write, got %d syncs", fake.syncs)
	}

	got, err = c.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || len(got.Pending) != 2 {
		t.Fatalf("expected 2 pending batches, got %+v", got)
	}

	if err := fake.Set([]byte("unrelated"), []byte("x")); err != nil {
		t.Fatal(err)
	}
	keys, err := c.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("expected only the descriptor key, got %v", keys)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := c.Load(ctx, key); got != nil {
		t.Error("expected descriptor to be gone")
	}
}

func TestStoreRefusesReadOnly(t *testing.T) {
	fake := newFakeKV()
	fake.readOnly = true
	c := newClient(fake)

	err := c.Store(context.Background(), export.StorageKey("x"), descriptor(t, "x"))
	if err == nil || !strings.Contains(err.Error(), "locked by another process") {
		t.Errorf("expected read-only error, got %v", err)
	}
	if err := c.Sync(); err != nil {
		t.Errorf("Sync in read-only mode should be a no-op, got %v", err)
	}
}

func TestAutoSyncCanBeDisabled(t *testing.T) {
	fake := newFakeKV()
	c := newClient(fake)
	c.SetAutoSync(false)

	if err := c.Store(context.Background(), export.StorageKey("x"), descriptor(t, "x")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if fake.syncs != 0 {
		t.Errorf("expected no sync, got %d", fake.syncs)
	}
}

func TestLoadRejectsCorruptValue(t *testing.T) {
	fake := newFakeKV()
	c := newClient(fake)
	key := export.StorageKey("bad")
	_ = fake.Set([]byte(key), []byte("nope"))

	if _, err := c.Load(context.Background(), key); err == nil {
		t.Error("expected decode error")
	}
}

func TestCancelledStoreIsSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newClient(newFakeKV())
	err := c.Store(ctx, export.StorageKey("x"), descriptor(t, "x"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestResetClearsData(t *testing.T) {
	fake := newFakeKV()
	c := newClient(fake)
	if err := c.Store(context.Background(), export.StorageKey("x"), descriptor(t, "x")); err != nil {
		t.Fatal(err)
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	keys, _ := c.Keys(context.Background())
	if len(keys) != 0 {
		t.Errorf("expected no keys after reset, got %v", keys)
	}
}
