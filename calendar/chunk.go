package calendar

// chunk partitions items into order-preserving sub-slices of at most size
// elements each. Concatenating the chunks yields the original sequence; the
// final chunk may be shorter. An empty input produces no chunks. size is
// validated by NewOrchestrator, a non-positive size here yields no chunks
// rather than an infinite loop.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 || size < 1 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
