// ABOUTME: Test doubles for the export package: in-memory store and scripted provider.
// ABOUTME: The provider can block or fail per call to drive session scenarios.
package export

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/harperreed/healthexport/internal/models"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	writes  int
	deletes int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Load(_ context.Context, key string) (*Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return DecodeDescriptor(raw)
}

func (m *memStore) Store(ctx context.Context, key string, d Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := EncodeDescriptor(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	m.writes++
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deletes++
	return nil
}

func (m *memStore) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// fakeProvider serves samples from memory. hook, when set, runs before each
// fetch with the 1-based call number; a non-nil error fails the fetch.
type fakeProvider struct {
	mu      sync.Mutex
	samples map[models.SampleType][]models.Sample
	calls   int
	hook    func(ctx context.Context, call int, b Batch) error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{samples: make(map[models.SampleType][]models.Sample)}
}

func (p *fakeProvider) add(s models.Sample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples[s.SampleType] = append(p.samples[s.SampleType], s)
}

func (p *fakeProvider) Fetch(ctx context.Context, st models.SampleType, r models.TimeRange) ([]models.Sample, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	hook := p.hook
	p.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call, Batch{SampleType: st, Range: r}); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Sample
	for _, s := range p.samples[st] {
		if r.Contains(s.Start) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *fakeProvider) OldestSampleDate(_ context.Context, st models.SampleType) (time.Time, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var oldest time.Time
	for _, s := range p.samples[st] {
		if oldest.IsZero() || s.Start.Before(oldest) {
			oldest = s.Start
		}
	}
	return oldest, !oldest.IsZero(), nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func countSamples() ProcessorFunc[int] {
	return func(_ context.Context, samples []models.Sample, _ models.SampleType) (int, error) {
		return len(samples), nil
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func drain[T any](ch <-chan T) []T {
	var out []T
	for v := range ch {
		out = append(out, v)
	}
	return out
}
