// Package iterator is a small round-robin cursor over a fixed slice, used
// wherever a component must cycle through a list of candidates (resolved
// addresses, joined interfaces) one at a time across repeated calls.
package iterator

// Iterator is a round-robin cursor over Items. The zero value is ready to
// use and starts positioned on the first element, so the first Next
// returns the second element.
type Iterator[T any] struct {
	Items []T
	idx   int
}

// Next advances the cursor and returns the element it lands on, wrapping
// back to the start after the last element. It returns the zero value of T
// if Items is empty.
func (it *Iterator[T]) Next() T {
	var zero T
	if len(it.Items) == 0 {
		return zero
	}
	it.idx = (it.idx + 1) % len(it.Items)
	return it.Items[it.idx]
}

// Peek returns the element the cursor currently sits on without advancing
// it. It returns the zero value of T if Items is empty.
func (it *Iterator[T]) Peek() T {
	var zero T
	if len(it.Items) == 0 {
		return zero
	}
	return it.Items[it.idx]
}
