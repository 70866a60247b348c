package extsort

import (
	"container/heap"
	"io"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// MergeIterator provides a k-way merge of sorted run files.
// It reads from multiple run files and yields horizon rows in globally
// sorted (component key, top depth) order. Rows with equal keys are not
// merged; ties break by run index so the merge is stable across runs.
type MergeIterator struct {
	readers []*RunFileReader
	heap    *mergeHeap
	err     error
}

// mergeItem represents an item in the merge heap.
type mergeItem struct {
	row       survey.Horizon
	readerIdx int // index into readers slice
}

// mergeHeap implements heap.Interface for k-way merge.
type mergeHeap struct {
	items []mergeItem
}

func (h *mergeHeap) Len() int { return len(h.items) }

func (h *mergeHeap) Less(i, j int) bool {
	a, b := &h.items[i], &h.items[j]
	if a.row.CoKey != b.row.CoKey {
		return a.row.CoKey < b.row.CoKey
	}
	if a.row.Depth.Top != b.row.Depth.Top {
		return a.row.Depth.Top < b.row.Depth.Top
	}
	return a.readerIdx < b.readerIdx
}

func (h *mergeHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *mergeHeap) Push(x interface{}) {
	h.items = append(h.items, x.(mergeItem))
}

func (h *mergeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[0 : n-1]
	return item
}

// NewMergeIterator creates a merge iterator from multiple run file paths.
// The caller is responsible for calling Close() to release resources.
func NewMergeIterator(paths []string, bufferSize int) (*MergeIterator, error) {
	if len(paths) == 0 {
		return &MergeIterator{}, nil
	}

	readers := make([]*RunFileReader, 0, len(paths))
	for _, path := range paths {
		r, err := OpenRunFile(path, bufferSize)
		if err != nil {
			// Close any already opened readers
			for _, opened := range readers {
				opened.Close()
			}
			return nil, err
		}
		readers = append(readers, r)
	}

	return NewMergeIteratorFromReaders(readers)
}

// NewMergeIteratorFromReaders creates a merge iterator from existing readers.
// Takes ownership of the readers; they will be closed when the iterator is
// closed.
func NewMergeIteratorFromReaders(readers []*RunFileReader) (*MergeIterator, error) {
	m := &MergeIterator{
		readers: readers,
		heap:    &mergeHeap{items: make([]mergeItem, 0, len(readers))},
	}

	// Initialize heap with first row from each reader
	for i, r := range readers {
		row, err := r.Read()
		if err == io.EOF {
			continue // empty reader
		}
		if err != nil {
			m.Close()
			return nil, err
		}
		heap.Push(m.heap, mergeItem{row: row, readerIdx: i})
	}

	heap.Init(m.heap)
	return m, nil
}

// Next returns the next horizon row in sorted order.
// Returns io.EOF when all rows have been consumed.
func (m *MergeIterator) Next() (survey.Horizon, error) {
	if m.err != nil {
		return survey.Horizon{}, m.err
	}

	if m.heap.Len() == 0 {
		return survey.Horizon{}, io.EOF
	}

	item := heap.Pop(m.heap).(mergeItem)

	// Refill from the same reader
	row, err := m.readers[item.readerIdx].Read()
	if err == nil {
		heap.Push(m.heap, mergeItem{row: row, readerIdx: item.readerIdx})
	} else if err != io.EOF {
		m.err = err
		return survey.Horizon{}, err
	}

	return item.row, nil
}

// Remaining returns the exact count of rows not yet consumed from the runs.
func (m *MergeIterator) Remaining() uint64 {
	var total uint64
	for _, r := range m.readers {
		total += r.Count() - r.ReadCount()
	}
	return total + uint64(m.heap.Len())
}

// Close closes all underlying run file readers.
func (m *MergeIterator) Close() error {
	var firstErr error
	for _, r := range m.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RemoveAll closes all readers and removes their files.
func (m *MergeIterator) RemoveAll() error {
	var firstErr error
	for _, r := range m.readers {
		if err := r.Remove(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
