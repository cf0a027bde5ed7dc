// ABOUTME: Sorted, duplicate-free generic collection with binary search and positional edits.
// ABOUTME: Substrate for sleep session building; misuse (bad index, broken order) panics.
package ordered

import "fmt"

// Search is the outcome of a binary search: either the index of the first
// matching element, or the index where a matching element would be inserted.
type Search struct {
	Index int
	Found bool
}

// Collection keeps elements sorted by a strict weak ordering.
// Two elements a, b with !less(a, b) && !less(b, a) are equal and only one is retained.
type Collection[T any] struct {
	elems []T
	less  func(a, b T) bool
}

// New returns an empty collection ordered by less.
func New[T any](less func(a, b T) bool) *Collection[T] {
	return &Collection[T]{less: less}
}

// Len returns the number of elements.
func (c *Collection[T]) Len() int {
	return len(c.elems)
}

// At returns the element at index i. Out-of-bounds access panics.
func (c *Collection[T]) At(i int) T {
	c.checkIndex(i, len(c.elems))
	return c.elems[i]
}

// First returns the smallest element. Panics if empty.
func (c *Collection[T]) First() T {
	return c.At(0)
}

// Last returns the largest element. Panics if empty.
func (c *Collection[T]) Last() T {
	return c.At(len(c.elems) - 1)
}

// Items returns a copy of the elements in order.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.elems))
	copy(out, c.elems)
	return out
}

// SearchFirst binary searches for the first element the predicate matches.
//
// The predicate reports where an element lies relative to the target:
// negative when the element sorts before the target, zero on a match,
// positive when it sorts after. Matches must form one contiguous run.
func (c *Collection[T]) SearchFirst(cmp func(elem T) int) Search {
	lo, hi := 0, len(c.elems)
	found := -1
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch r := cmp(c.elems[mid]); {
		case r < 0:
			lo = mid + 1
		case r > 0:
			hi = mid
		default:
			found = mid
			hi = mid
		}
	}
	if found >= 0 {
		return Search{Index: found, Found: true}
	}
	return Search{Index: lo}
}

// Index looks up v using the collection's ordering.
func (c *Collection[T]) Index(v T) Search {
	return c.SearchFirst(func(elem T) int {
		switch {
		case c.less(elem, v):
			return -1
		case c.less(v, elem):
			return 1
		default:
			return 0
		}
	})
}

// Insert adds v at its sorted position. It returns the index and false when
// an equal element is already present, in which case nothing changes.
func (c *Collection[T]) Insert(v T) (int, bool) {
	s := c.Index(v)
	if s.Found {
		return s.Index, false
	}
	c.elems = insertAt(c.elems, s.Index, v)
	return s.Index, true
}

// InsertAt places v at index i. The neighbours must still be strictly ordered
// around v; violating that is a programming error and panics.
func (c *Collection[T]) InsertAt(i int, v T) {
	c.checkIndex(i, len(c.elems)+1)
	if i > 0 && !c.less(c.elems[i-1], v) {
		panic(fmt.Sprintf("ordered: insert at %d breaks ordering with predecessor", i))
	}
	if i < len(c.elems) && !c.less(v, c.elems[i]) {
		panic(fmt.Sprintf("ordered: insert at %d breaks ordering with successor", i))
	}
	c.elems = insertAt(c.elems, i, v)
}

// RemoveAt deletes and returns the element at index i.
func (c *Collection[T]) RemoveAt(i int) T {
	c.checkIndex(i, len(c.elems))
	v := c.elems[i]
	c.elems = append(c.elems[:i], c.elems[i+1:]...)
	return v
}

// Unchecked exposes positional edits without ordering checks.
// It is only valid inside the Batch callback that produced it.
type Unchecked[T any] struct {
	c *Collection[T]
}

// Len returns the current number of elements.
func (u *Unchecked[T]) Len() int { return len(u.c.elems) }

// At returns the element at index i.
func (u *Unchecked[T]) At(i int) T { return u.c.At(i) }

// Set replaces the element at index i.
func (u *Unchecked[T]) Set(i int, v T) {
	u.c.checkIndex(i, len(u.c.elems))
	u.c.elems[i] = v
}

// InsertAt places v at index i without checking neighbours.
func (u *Unchecked[T]) InsertAt(i int, v T) {
	u.c.checkIndex(i, len(u.c.elems)+1)
	u.c.elems = insertAt(u.c.elems, i, v)
}

// RemoveAt deletes and returns the element at index i.
func (u *Unchecked[T]) RemoveAt(i int) T {
	return u.c.RemoveAt(i)
}

// Batch runs fn with ordering checks suspended so several structural edits
// can be made in a row. The ordering is re-validated when fn returns and a
// violation panics.
func (c *Collection[T]) Batch(fn func(u *Unchecked[T])) {
	fn(&Unchecked[T]{c: c})
	if i := c.firstViolation(); i >= 0 {
		panic(fmt.Sprintf("ordered: elements %d and %d out of order after batch edit", i, i+1))
	}
}

// IsSorted reports whether the invariant currently holds.
func (c *Collection[T]) IsSorted() bool {
	return c.firstViolation() < 0
}

func (c *Collection[T]) firstViolation() int {
	for i := 0; i+1 < len(c.elems); i++ {
		if !c.less(c.elems[i], c.elems[i+1]) {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) checkIndex(i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("ordered: index %d out of range [0,%d)", i, n))
	}
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
