package tree

import (
	"container/heap"
	"slices"

	"github.com/benz9527/xtree/lib/infra"
)

var _ heap.Interface = (*arrayHeap[int])(nil)

// arrayHeap is the explicit implicit-array form of the max-heap.
// container/heap sifts exactly like the linked heap (strictly greater
// child wins, left first on ties), so both keep the same layout for
// the same operation sequence.
type arrayHeap[K infra.OrderedKey] struct {
	arr []K
}

func (h *arrayHeap[K]) Len() int { return len(h.arr) }
func (h *arrayHeap[K]) Less(i, j int) bool {
	return infra.CompareOrderedKey[K](h.arr[i], h.arr[j]) > 0
}
func (h *arrayHeap[K]) Swap(i, j int) { h.arr[i], h.arr[j] = h.arr[j], h.arr[i] }

func (h *arrayHeap[K]) Push(x any) {
	v, ok := x.(K)
	if !ok {
		return
	}
	h.arr = append(h.arr, v)
}

func (h *arrayHeap[K]) Pop() any {
	prev := h.arr
	n := len(prev)
	if n <= 0 {
		return nil
	}
	v := prev[n-1]
	h.arr = prev[:n-1]
	return v
}

// ArrayMaxHeap has O(1) access to the last element and O(log n)
// extraction. It is the reference the linked MaxHeap is checked against.
type ArrayMaxHeap[K infra.OrderedKey] struct {
	heap *arrayHeap[K]
}

func (h *ArrayMaxHeap[K]) Len() int64 {
	return int64(len(h.heap.arr))
}

func (h *ArrayMaxHeap[K]) Insert(value K) {
	heap.Push(h.heap, value)
}

// ExtractMax returns the zero value on an empty heap.
func (h *ArrayMaxHeap[K]) ExtractMax() (value K) {
	if len(h.heap.arr) == 0 {
		return
	}
	return heap.Pop(h.heap).(K)
}

func (h *ArrayMaxHeap[K]) Peek() (value K, ok bool) {
	if len(h.heap.arr) == 0 {
		return
	}
	return h.heap.arr[0], true
}

func (h *ArrayMaxHeap[K]) ToSortedSequence() []K {
	seq := make([]K, 0, len(h.heap.arr))
	for len(h.heap.arr) > 0 {
		seq = append(seq, h.ExtractMax())
	}
	return seq
}

func (h *ArrayMaxHeap[K]) Foreach(action func(idx int64, value K) bool) {
	for i, v := range h.heap.arr {
		if !action(int64(i), v) {
			return
		}
	}
}

type ArrayMaxHeapOpt[K infra.OrderedKey] func(*ArrayMaxHeap[K])

func WithArrayMaxHeapCapacity[K infra.OrderedKey](capacity int) ArrayMaxHeapOpt[K] {
	return func(h *ArrayMaxHeap[K]) {
		if capacity <= 0 {
			capacity = 64
		}
		if n := capacity - len(h.heap.arr); n > 0 {
			h.heap.arr = slices.Grow(h.heap.arr, n)
		}
	}
}

// WithArrayMaxHeapValues loads the values by repeated insertion.
func WithArrayMaxHeapValues[K infra.OrderedKey](values ...K) ArrayMaxHeapOpt[K] {
	return func(h *ArrayMaxHeap[K]) {
		for _, v := range values {
			h.Insert(v)
		}
	}
}

func NewArrayMaxHeap[K infra.OrderedKey](opts ...ArrayMaxHeapOpt[K]) *ArrayMaxHeap[K] {
	h := &ArrayMaxHeap[K]{
		heap: new(arrayHeap[K]),
	}
	for _, o := range opts {
		if o != nil {
			o(h)
		}
	}
	if h.heap.arr == nil {
		h.heap.arr = make([]K, 0, 64)
	}
	return h
}
