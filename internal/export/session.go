// ABOUTME: Session drives one bulk export: it drains pending batches through the provider and processor.
// ABOUTME: Supports start, pause, resume and termination with coalesced descriptor persistence.
package export

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/healthexport/internal/models"
)

// StartOptions configures one run of a session.
type StartOptions struct {
	// RetryFailedBatches clears failure markers before the run starts.
	RetryFailedBatches bool
	Concurrency        Concurrency
}

// SessionConfig describes what a session exports.
type SessionConfig struct {
	SampleTypes []models.SampleType
	Start       StartDate
	// End is exclusive. The zero value means now.
	End       time.Time
	BatchSize BatchSize
}

// Session is a live export job. Create one with OpenSession.
type Session[Out any] struct {
	id        string
	provider  Provider
	processor Processor[Out]
	procType  reflect.Type
	logger    *log.Logger
	persist   *persister

	mu       sync.Mutex
	desc     *Descriptor
	life     lifecycle
	inFlight map[BatchKey]Batch
	cancel   context.CancelFunc
	done     chan struct{}
}

func newSession[Out any](desc *Descriptor, provider Provider, processor Processor[Out], store DescriptorStore, logger *log.Logger) *Session[Out] {
	logger = logger.With("session", desc.SessionID)
	return &Session[Out]{
		id:        desc.SessionID,
		provider:  provider,
		processor: processor,
		procType:  reflect.TypeOf(processor),
		logger:    logger,
		persist:   newPersister(store, StorageKey(desc.SessionID), logger),
		desc:      desc,
		inFlight:  make(map[BatchKey]Batch),
	}
}

// ID returns the session identifier.
func (s *Session[Out]) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session[Out]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.life.state
}

// Progress counts batches. In-flight batches are not counted as pending.
func (s *Session[Out]) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.desc.Counts()
	p.InFlight = len(s.inFlight)
	p.Pending -= p.InFlight
	return p
}

// InFlight returns the batches currently being processed.
func (s *Session[Out]) InFlight() []Batch {
	s.mu.Lock()
	out := make([]Batch, 0, len(s.inFlight))
	for _, b := range s.inFlight {
		out = append(out, b.clone())
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Range.Start.Equal(out[j].Range.Start) {
			return out[i].Range.Start.Before(out[j].Range.Start)
		}
		return out[i].SampleType < out[j].SampleType
	})
	return out
}

// Descriptor returns a snapshot of the session's descriptor.
func (s *Session[Out]) Descriptor() Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc.Clone()
}

// Flush waits until the latest descriptor snapshot has been written.
func (s *Session[Out]) Flush(ctx context.Context) error {
	return s.persist.flush(ctx)
}

// Start runs the session in the background. The returned channel yields one
// value per successfully processed batch and is closed when the run ends by
// completion, pause or termination. Cancelling ctx has the same effect as Pause.
func (s *Session[Out]) Start(ctx context.Context, opts StartOptions) (<-chan Out, error) {
	s.mu.Lock()
	if err := s.life.begin(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if opts.RetryFailedBatches {
		if n := s.desc.UnmarkAllFailedBatches(); n > 0 {
			s.logger.Info("retrying failed batches", "count", n)
			s.schedulePersistLocked()
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	out := newStream[Out]()
	s.mu.Unlock()

	s.logger.Info("export started", "concurrency", opts.Concurrency)
	go s.run(runCtx, opts.Concurrency, out, done)
	return out.out, nil
}

// Pause stops a running session and waits until the worker has settled.
// It is a no-op unless the session is running.
func (s *Session[Out]) Pause(ctx context.Context) error {
	s.mu.Lock()
	if s.life.state == StateTerminated || !s.life.request(StatePaused) {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// terminate stops the session for good and stops persistence. The caller
// deletes the stored descriptor.
func (s *Session[Out]) terminate(ctx context.Context) error {
	s.mu.Lock()
	if s.life.state == StateTerminated {
		s.mu.Unlock()
		return nil
	}
	var done chan struct{}
	if s.life.request(StateTerminated) {
		s.cancel()
		done = s.done
	}
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	s.life.terminate()
	s.mu.Unlock()
	s.persist.stop()
	s.logger.Info("export terminated")
	return nil
}

func (s *Session[Out]) processorType() reflect.Type { return s.procType }

// schedule adds batches for cfg's sample types and widens the end date.
// It returns the number of batches added.
func (s *Session[Out]) schedule(ctx context.Context, cfg SessionConfig, now time.Time) (int, error) {
	end := cfg.End
	if end.IsZero() {
		end = now
	}

	added := 0
	for _, st := range cfg.SampleTypes {
		s.mu.Lock()
		if s.life.state == StateTerminated {
			s.mu.Unlock()
			return added, ErrTerminated
		}
		known := s.desc.HasSampleType(st)
		s.mu.Unlock()
		if known {
			continue
		}

		from, ok, err := cfg.Start.Resolve(ctx, s.provider, st, end)
		if err != nil {
			return added, fmt.Errorf("resolve start date for %s: %w", st, err)
		}
		if !ok {
			s.logger.Debug("no samples to export", "sample_type", st)
			continue
		}

		s.mu.Lock()
		n := s.desc.addRange(st, from, end, cfg.BatchSize)
		s.mu.Unlock()
		s.logger.Debug("scheduled batches", "sample_type", st, "count", n, "from", from, "to", end)
		added += n
	}

	s.mu.Lock()
	added += s.desc.ExtendEndDate(end, cfg.BatchSize)
	s.schedulePersistLocked()
	s.mu.Unlock()
	return added, nil
}

func (s *Session[Out]) schedulePersistLocked() {
	if s.life.terminating() {
		return
	}
	s.persist.schedule(s.desc.Clone())
}

func (s *Session[Out]) run(ctx context.Context, c Concurrency, out *stream[Out], done chan struct{}) {
	defer close(done)
	defer out.close()

	sem := c.semaphore()
	var g errgroup.Group
	for {
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
		}
		batch, ok := s.claim(ctx)
		if !ok {
			if sem != nil {
				sem.Release(1)
			}
			break
		}
		g.Go(func() error {
			if sem != nil {
				defer sem.Release(1)
			}
			v, err := s.execute(ctx, batch)
			s.finish(ctx, batch, v, err, out)
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	_, remaining := s.desc.nextUnscheduled(nil)
	state := s.life.settle(!remaining)
	s.cancel()
	s.cancel = nil
	progress := s.desc.Counts()
	s.mu.Unlock()

	if err := s.persist.flush(context.Background()); err != nil {
		s.logger.Error("failed to flush descriptor", "err", err)
	}
	s.logger.Info("export stopped", "state", state, "completed", progress.Completed, "pending", progress.Pending, "failed", progress.Failed)
}

// claim is the cancellation checkpoint: it hands out the next unscheduled
// batch unless the run has been asked to stop.
func (s *Session[Out]) claim(ctx context.Context) (Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || s.life.hasRequested {
		return Batch{}, false
	}
	b, ok := s.desc.nextUnscheduled(s.inFlight)
	if !ok {
		return Batch{}, false
	}
	s.inFlight[b.Key()] = b
	return b, true
}

func (s *Session[Out]) execute(ctx context.Context, b Batch) (Out, error) {
	var zero Out
	samples, err := s.provider.Fetch(ctx, b.SampleType, b.Range)
	if err != nil {
		return zero, &QueryError{Err: err}
	}
	v, err := s.processor.Process(ctx, samples, b.SampleType)
	if err != nil {
		return zero, &ProcessError{Err: err}
	}
	return v, nil
}

func (s *Session[Out]) finish(ctx context.Context, b Batch, v Out, err error, out *stream[Out]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := b.Key()
	delete(s.inFlight, key)

	logger := s.logger.With("sample_type", b.SampleType, "start", b.Range.Start, "end", b.Range.End)
	switch {
	case err == nil:
		s.desc.markCompleted(key)
		s.schedulePersistLocked()
		out.push(v)
		logger.Debug("batch completed")
	case isCancellation(ctx, err):
		// The batch never left pending, so it runs again on the next start.
		logger.Debug("batch requeued")
	default:
		s.desc.markFailed(key, err)
		s.schedulePersistLocked()
		logger.Warn("batch failed", "err", err)
	}
}
