// ABOUTME: Unbounded buffered output stream for session results.
// ABOUTME: Producers never block; a pump goroutine feeds the consumer channel.
package export

import "sync"

type stream[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
	notify chan struct{}
	out    chan T
}

func newStream[T any]() *stream[T] {
	s := &stream[T]{
		notify: make(chan struct{}, 1),
		out:    make(chan T),
	}
	go s.pump()
	return s
}

func (s *stream[T]) push(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.signal()
}

// close finishes the stream once buffered values are delivered.
func (s *stream[T]) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *stream[T]) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *stream[T]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			<-s.notify
			continue
		}
		var zero T
		v := s.queue[0]
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.out <- v
	}
}
