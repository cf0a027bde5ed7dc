// ABOUTME: Contract tests shared by every descriptor store backend.
// ABOUTME: Redis runs only when HEALTHEXPORT_TEST_REDIS points at a server.
package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor(t *testing.T, id string) export.Descriptor {
	t.Helper()
	d := export.NewDescriptor(id)
	n, err := d.Add(context.Background(), nil, models.SampleHeartRate,
		export.Custom(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), export.BatchSizeByMonth)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return d.Clone()
}

func runStoreContract(t *testing.T, store DescriptorBackend) {
	ctx := context.Background()
	key := export.StorageKey("contract")

	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "missing keys load as nil")

	want := testDescriptor(t, "contract")
	require.NoError(t, store.Store(ctx, key, want))

	got, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.SessionID, got.SessionID)
	require.Len(t, got.Pending, 3)
	for i := range want.Pending {
		assert.True(t, want.Pending[i].Equal(got.Pending[i]))
	}

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, key)

	require.NoError(t, store.Delete(ctx, key))
	got, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, store.Delete(ctx, key), "deleting twice is fine")
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestBadgerStoreContract(t *testing.T) {
	store, err := OpenInMemoryBadgerStore()
	require.NoError(t, err)
	defer store.Close()
	runStoreContract(t, store)
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := export.StorageKey("disk")

	store, err := OpenBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, key, testDescriptor(t, "disk")))
	require.NoError(t, store.Close())

	store, err = OpenBadgerStore(dir)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Pending, 3)
}

func TestRedisStoreContract(t *testing.T) {
	addr := os.Getenv("HEALTHEXPORT_TEST_REDIS")
	if addr == "" {
		t.Skip("HEALTHEXPORT_TEST_REDIS not set")
	}
	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer store.Close()
	runStoreContract(t, store)
}

func TestMemoryStoreRejectsCancelledWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewMemoryStore().Store(ctx, export.StorageKey("x"), testDescriptor(t, "x"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStoresWorkWithExporter(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	for i := 0; i < 3; i++ {
		at := time.Date(2025, time.Month(i+1), 5, 0, 0, 0, 0, time.UTC)
		_, err := db.CreateSample(ctx, models.NewSample(models.SampleStepCount, at, at.Add(time.Hour), 100))
		require.NoError(t, err)
	}

	store, err := OpenInMemoryBadgerStore()
	require.NoError(t, err)
	defer store.Close()

	e := export.NewExporter(db, store)
	counter := export.ProcessorFunc[int](func(_ context.Context, samples []models.Sample, _ models.SampleType) (int, error) {
		return len(samples), nil
	})
	s, err := export.OpenSession(ctx, e, "steps", export.SessionConfig{
		SampleTypes: []models.SampleType{models.SampleStepCount},
		Start:       export.OldestSample(),
		End:         time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		BatchSize:   export.BatchSizeByMonth,
	}, counter)
	require.NoError(t, err)

	out, err := s.Start(ctx, export.StartOptions{})
	require.NoError(t, err)
	total := 0
	for n := range out {
		total += n
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, export.StateCompleted, s.State())

	stored, err := store.Load(ctx, export.StorageKey("steps"))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Completed, 3)
}
