// ABOUTME: Concurrency levels for batch execution: disabled, limit(n) or unlimited.
// ABOUTME: Bounded levels are enforced with a weighted semaphore.
package export

import (
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Concurrency bounds how many batches a session processes at once.
// The zero value is Disabled.
type Concurrency struct {
	limit int // 0 disabled, <0 unlimited
}

// Disabled processes one batch at a time.
func Disabled() Concurrency { return Concurrency{} }

// Unlimited processes every pending batch at once.
func Unlimited() Concurrency { return Concurrency{limit: -1} }

// Limit processes at most n batches at once. n < 1 is treated as 1.
func Limit(n int) Concurrency {
	if n <= 1 {
		return Disabled()
	}
	return Concurrency{limit: n}
}

// ConcurrencyFromInt maps a configured integer: negative is unlimited,
// 0 and 1 are disabled, anything larger is a limit.
func ConcurrencyFromInt(n int) Concurrency {
	if n < 0 {
		return Unlimited()
	}
	return Limit(n)
}

// Max returns the number of concurrent batches, or -1 for unlimited.
func (c Concurrency) Max() int {
	switch {
	case c.limit < 0:
		return -1
	case c.limit == 0:
		return 1
	default:
		return c.limit
	}
}

func (c Concurrency) String() string {
	switch {
	case c.limit < 0:
		return "unlimited"
	case c.limit == 0:
		return "disabled"
	default:
		return fmt.Sprintf("limit(%d)", c.limit)
	}
}

// semaphore returns nil for unlimited concurrency.
func (c Concurrency) semaphore() *semaphore.Weighted {
	if c.limit < 0 {
		return nil
	}
	return semaphore.NewWeighted(int64(c.Max()))
}
