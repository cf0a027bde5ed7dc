// ABOUTME: Errors returned by export sessions, the registry and the descriptor codec.
// ABOUTME: Batch-level errors wrap the underlying query or processing failure.
package export

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("export session is already running")

	// ErrTerminated is returned by any operation on a terminated session.
	ErrTerminated = errors.New("export session is terminated")

	// ErrConflictingSession is returned when a live session with the same ID
	// was opened with a different processor type.
	ErrConflictingSession = errors.New("conflicting export session")

	// ErrDescriptorVersion is returned when a stored descriptor has an unknown version.
	ErrDescriptorVersion = errors.New("unsupported descriptor version")

	// ErrDescriptorChecksum is returned when a stored descriptor fails validation.
	ErrDescriptorChecksum = errors.New("descriptor checksum mismatch")

	// ErrListingUnsupported is returned when a store cannot enumerate keys.
	ErrListingUnsupported = errors.New("descriptor store cannot list sessions")
)

// QueryError wraps a failure from the data provider.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query: %v", e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }

// ProcessError wraps a failure from the batch processor.
type ProcessError struct {
	Err error
}

func (e *ProcessError) Error() string { return fmt.Sprintf("process: %v", e.Err) }

func (e *ProcessError) Unwrap() error { return e.Err }

// isCancellation reports whether err arrived after the run itself was
// cancelled by pause, terminate or the caller's context. A cancellation
// reported by the provider or processor on its own is a batch failure.
func isCancellation(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}
