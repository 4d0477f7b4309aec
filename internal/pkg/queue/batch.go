package queue

import "iter"

// Batches yields consecutive groups of at most size items together with the
// offset of each group in items. Order is preserved and the sequence can be
// ranged over more than once.
func Batches[T any](items []T, size int) iter.Seq2[int, []T] {
	if size < 1 {
		panic("queue: batch size must be at least 1")
	}
	return func(yield func(int, []T) bool) {
		for off := 0; off < len(items); off += size {
			end := min(off+size, len(items))
			if !yield(off, items[off:end:end]) {
				return
			}
		}
	}
}
