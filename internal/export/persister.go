// ABOUTME: Coalescing descriptor writer: one goroutine, latest snapshot wins.
// ABOUTME: A newer snapshot cancels any in-flight write for the same session.
package export

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

type persister struct {
	store  DescriptorStore
	key    string
	logger *log.Logger

	mu      sync.Mutex
	latest  *Descriptor
	cancel  context.CancelFunc
	idle    chan struct{}
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newPersister(store DescriptorStore, key string, logger *log.Logger) *persister {
	idle := make(chan struct{})
	close(idle)
	p := &persister{
		store:  store,
		key:    key,
		logger: logger,
		idle:   idle,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.loop()
	return p
}

// schedule queues d for writing, superseding any queued or in-flight write.
func (p *persister) schedule(d Descriptor) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.latest = &d
	if p.cancel != nil {
		p.cancel()
	}
	select {
	case <-p.idle:
		p.idle = make(chan struct{})
	default:
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// flush waits until every scheduled snapshot has been handled.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop drops pending snapshots, cancels the in-flight write and waits for
// the writer to exit. Later schedule calls are ignored.
func (p *persister) stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.stopped = true
	p.latest = nil
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	close(p.quit)
	<-p.done
}

func (p *persister) loop() {
	defer close(p.done)
	defer p.markIdle()
	for {
		select {
		case <-p.quit:
			return
		case <-p.wake:
		}
		for p.writeNext() {
		}
	}
}

// writeNext writes the latest snapshot. It returns false once nothing is queued.
func (p *persister) writeNext() bool {
	p.mu.Lock()
	d := p.latest
	p.latest = nil
	if d == nil || p.stopped {
		p.mu.Unlock()
		p.markIdle()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	err := p.store.Store(ctx, p.key, *d)
	cancel()

	p.mu.Lock()
	p.cancel = nil
	p.mu.Unlock()

	switch {
	case err == nil:
		p.logger.Debug("descriptor persisted", "key", p.key, "pending", len(d.Pending), "completed", len(d.Completed))
	case errors.Is(err, context.Canceled):
		p.logger.Debug("descriptor write superseded", "key", p.key)
	default:
		p.logger.Warn("failed to persist descriptor", "key", p.key, "err", err)
	}
	return true
}

func (p *persister) markIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest != nil && !p.stopped {
		return
	}
	select {
	case <-p.idle:
	default:
		close(p.idle)
	}
}
