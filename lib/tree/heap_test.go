package tree

import (
	randv2 "math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xtree/xlog"
)

func maxHeapValidate[K int | int64 | string](t *testing.T, h MaxHeap[K]) {
	t.Helper()
	require.NoError(t, HeapShapeViolationValidate[K](h.Root()))
	require.NoError(t, HeapOrderViolationValidate[K](h.Root()))
	require.NoError(t, ParentLinkViolationValidate[K](h.Root()))
	require.Equal(t, h.Len(), NodeCount[K](h.Root()))
}

func maxHeapLayout[K int | int64 | string](h interface {
	Foreach(action func(idx int64, value K) bool)
}) []K {
	layout := make([]K, 0, 16)
	h.Foreach(func(idx int64, value K) bool {
		layout = append(layout, value)
		return true
	})
	return layout
}

func TestMaxHeapInsert(t *testing.T) {
	h := NewMaxHeap[int]()
	for _, v := range []int{1, 8, 2} {
		node, err := h.Insert(v)
		require.NoError(t, err)
		require.Equal(t, v, node.Value())
	}
	require.Equal(t, []int{8, 1, 2}, maxHeapLayout[int](h))

	// Sifts up to the root.
	node, err := h.Insert(9)
	require.NoError(t, err)
	require.Equal(t, 9, node.Value())
	require.Equal(t, h.Root(), node)
	require.Equal(t, []int{9, 8, 2, 1}, maxHeapLayout[int](h))

	node, err = h.Insert(5)
	require.NoError(t, err)
	require.Equal(t, 5, node.Value())
	require.Equal(t, h.Root().Left(), node.Parent())
	require.Equal(t, node, h.Root().Left().Right())
	require.Equal(t, []int{9, 8, 2, 1, 5}, maxHeapLayout[int](h))
	require.Equal(t, int64(5), h.Len())
	maxHeapValidate[int](t, h)
}

func TestMaxHeapExtractMax(t *testing.T) {
	h, err := ArrayToMaxHeap[int]([]int{1, 8, 2, 9, 5})
	require.NoError(t, err)

	top, err := h.ExtractMax()
	require.NoError(t, err)
	require.Equal(t, 9, top)
	require.Equal(t, int64(4), h.Len())
	require.Equal(t, int64(4), NodeCount[int](h.Root()))
	require.Equal(t, 8, h.Root().Value())
	require.Equal(t, []int{8, 5, 2, 1}, maxHeapLayout[int](h))
	maxHeapValidate[int](t, h)

	for _, expected := range []int{8, 5, 2, 1} {
		top, err = h.ExtractMax()
		require.NoError(t, err)
		require.Equal(t, expected, top)
		maxHeapValidate[int](t, h)
	}
	require.Nil(t, h.Root())
	require.Equal(t, int64(0), h.Len())
}

func TestMaxHeapExtractMax_Empty(t *testing.T) {
	h := NewMaxHeap[int]()
	for i := 0; i < 3; i++ {
		top, err := h.ExtractMax()
		require.NoError(t, err)
		require.Equal(t, 0, top)
		require.Equal(t, int64(0), h.Len())
		require.Nil(t, h.Root())
	}

	var nilHeap *maxHeap[int]
	top, err := nilHeap.ExtractMax()
	require.NoError(t, err)
	require.Equal(t, 0, top)
	seq, err := nilHeap.ToSortedSequence()
	require.NoError(t, err)
	require.Empty(t, seq)
	require.NotNil(t, seq)
	_, err = nilHeap.Insert(1)
	require.ErrorIs(t, err, ErrNilTree)
	require.Equal(t, int64(0), nilHeap.Len())
	require.Nil(t, nilHeap.Root())
	nilHeap.Release()
}

func TestMaxHeapExtractMax_SingleNode(t *testing.T) {
	factory := newCountingNodeFactory[int](-1)
	h := NewMaxHeap[int](WithMaxHeapNodeFactory[int](factory))
	_, err := h.Insert(42)
	require.NoError(t, err)

	top, err := h.ExtractMax()
	require.NoError(t, err)
	require.Equal(t, 42, top)
	require.Nil(t, h.Root())
	require.Equal(t, int64(0), h.Len())
	require.Equal(t, int64(1), factory.released)

	// Reusable after being drained.
	_, err = h.Insert(7)
	require.NoError(t, err)
	require.Equal(t, 7, h.Root().Value())
}

func TestMaxHeapToSortedSequence(t *testing.T) {
	h, err := ArrayToMaxHeap[int]([]int{5, 1, 8, 2, 9})
	require.NoError(t, err)
	seq, err := h.ToSortedSequence()
	require.NoError(t, err)
	require.Equal(t, []int{9, 8, 5, 2, 1}, seq)
	require.Nil(t, h.Root())
	require.Equal(t, int64(0), h.Len())

	seq, err = h.ToSortedSequence()
	require.NoError(t, err)
	require.Equal(t, []int{}, seq)

	h, err = ArrayToMaxHeap[int]([]int{3, 3, 1, 3, 2, 1})
	require.NoError(t, err)
	require.Equal(t, int64(6), h.Len())
	seq, err = h.ToSortedSequence()
	require.NoError(t, err)
	require.Equal(t, []int{3, 3, 3, 2, 1, 1}, seq)

	words, err := ArrayToMaxHeap[string]([]string{"pear", "apple", "fig", "kiwi", "banana"})
	require.NoError(t, err)
	maxHeapValidate[string](t, words)
	sorted, err := words.ToSortedSequence()
	require.NoError(t, err)
	require.Equal(t, []string{"pear", "kiwi", "fig", "banana", "apple"}, sorted)
}

func TestMaxHeap_AllocationFailure(t *testing.T) {
	factory := newCountingNodeFactory[int](3)
	h := NewMaxHeap[int](WithMaxHeapNodeFactory[int](factory))
	for _, v := range []int{4, 7, 1} {
		_, err := h.Insert(v)
		require.NoError(t, err)
	}
	before := maxHeapLayout[int](h)

	node, err := h.Insert(9)
	require.Nil(t, node)
	require.ErrorIs(t, err, ErrNodeAllocation)
	require.Equal(t, int64(3), h.Len())
	require.Equal(t, before, maxHeapLayout[int](h))
	maxHeapValidate[int](t, h)

	_, err = ArrayToMaxHeap[int]([]int{1, 2, 3}, WithMaxHeapNodeFactory[int](newCountingNodeFactory[int](1)))
	require.ErrorIs(t, err, ErrNodeAllocation)

	foreign := NewMaxHeap[int](WithMaxHeapNodeFactory[int](foreignNodeFactory[int]{}))
	_, err = foreign.Insert(1)
	require.ErrorIs(t, err, ErrForeignNode)
	require.Nil(t, foreign.Root())
}

func TestMaxHeap_ShapeViolation(t *testing.T) {
	w := &testMemOutWriter{}
	logger := xlog.NewXLogger(
		xlog.WithXLoggerWriter(zapcore.AddSync(w)),
		xlog.WithXLoggerLevel(xlog.LogLevelDebug),
	)
	h := newMaxHeap[int](WithMaxHeapLogger[int](logger))

	// The root holds only a right child, the implicit index 1 is missing.
	root := &binNode[int]{value: 9}
	root.right = &binNode[int]{value: 5, parent: root}
	h.root, h.count = root, 2
	require.Error(t, HeapShapeViolationValidate[int](h.Root()))

	top, err := h.ExtractMax()
	require.ErrorIs(t, err, ErrHeapShapeViolation)
	require.Equal(t, 0, top)
	require.Equal(t, int64(2), h.Len())
	require.True(t, h.root == root)
	require.Equal(t, 9, root.value)
	require.Equal(t, 5, root.right.value)
	require.Contains(t, string(w.data), "[heap] invariant violation")
	require.Contains(t, string(w.data), `"component":"xtree.heap"`)

	seq, err := h.ToSortedSequence()
	require.ErrorIs(t, err, ErrHeapShapeViolation)
	require.Empty(t, seq)
}

func TestMaxHeapForeach_Break(t *testing.T) {
	h, err := ArrayToMaxHeap[int]([]int{1, 2, 3, 4, 5})
	require.NoError(t, err)
	visited := make([]int64, 0, 3)
	h.Foreach(func(idx int64, value int) bool {
		visited = append(visited, idx)
		return idx < 2
	})
	require.Equal(t, []int64{0, 1, 2}, visited)
}

func TestMaxHeapRelease(t *testing.T) {
	factory := NewPooledNodeFactory[int]()
	h, err := ArrayToMaxHeap[int]([]int{9, 3, 7, 1}, WithMaxHeapNodeFactory[int](factory))
	require.NoError(t, err)
	_, err = h.ExtractMax()
	require.NoError(t, err)
	total, free := factory.(*pooledNodeFactory[int]).Stats()
	require.Equal(t, int64(4), total)
	require.Equal(t, int64(1), free)

	h.Release()
	require.Nil(t, h.Root())
	require.Equal(t, int64(0), h.Len())
	total, free = factory.(*pooledNodeFactory[int]).Stats()
	require.Equal(t, int64(4), total)
	require.Equal(t, int64(4), free)
}

func maxHeapRandomRunCore(t *testing.T, total int, violationCheck bool) {
	factory := newCountingNodeFactory[int](-1)
	h := NewMaxHeap[int](WithMaxHeapNodeFactory[int](factory))
	ref := NewArrayMaxHeap[int](WithArrayMaxHeapCapacity[int](total))

	for i := 0; i < total; i++ {
		// Narrow range to force equal values.
		v := randv2.IntN(total / 2)
		_, err := h.Insert(v)
		require.NoError(t, err)
		ref.Insert(v)
	}
	require.Equal(t, int64(total), h.Len())
	require.Equal(t, maxHeapLayout[int](ref), maxHeapLayout[int](h))
	maxHeapValidate[int](t, h)

	// Interleave a few inserts with the extractions.
	extracted := int64(0)
	for i := 0; i < total/4; i++ {
		expected := ref.ExtractMax()
		top, err := h.ExtractMax()
		require.NoError(t, err)
		extracted++
		require.Equal(t, expected, top)
		require.Equal(t, int64(total)-extracted+int64(i), h.Len())
		if violationCheck {
			maxHeapValidate[int](t, h)
			require.Equal(t, maxHeapLayout[int](ref), maxHeapLayout[int](h))
		}

		v := randv2.IntN(total / 2)
		_, err = h.Insert(v)
		require.NoError(t, err)
		ref.Insert(v)
	}
	require.Equal(t, maxHeapLayout[int](ref), maxHeapLayout[int](h))
	require.Equal(t, extracted, factory.released)

	remain := h.Len()
	seq, err := h.ToSortedSequence()
	require.NoError(t, err)
	require.Len(t, seq, int(remain))
	require.Equal(t, ref.ToSortedSequence(), seq)
	require.True(t, slices.IsSortedFunc(seq, func(a, b int) int {
		return b - a
	}))
	require.Equal(t, extracted+remain, factory.released)
	require.Equal(t, factory.made, factory.released)
}

func TestMaxHeapRandom(t *testing.T) {
	testcases := []struct {
		name           string
		total          int
		violationCheck bool
	}{
		{
			name:  "random 10000",
			total: 10000,
		},
		{
			name:           "violation check random 500",
			total:          500,
			violationCheck: true,
		},
		{
			name:           "violation check random 1025",
			total:          1025,
			violationCheck: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			maxHeapRandomRunCore(tt, tc.total, tc.violationCheck)
		})
	}
}

func BenchmarkMaxHeap_InsertExtract(b *testing.B) {
	b.StopTimer()
	h := NewMaxHeap[int]()
	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.Insert(rngArr[i]); err != nil {
			panic(err)
		}
	}
	for i := 0; i < b.N; i++ {
		if _, err := h.ExtractMax(); err != nil {
			panic(err)
		}
	}
}
