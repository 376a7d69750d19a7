package db

// WriteBatchSize bounds rows per multi-row statement. Postgres caps a statement
// at 65535 bind parameters and SQLite at 32766, so wide rows must be chunked.
const WriteBatchSize = 500

// Chunk splits items into consecutive slices of at most size elements. The
// chunks share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = WriteBatchSize
	}
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
