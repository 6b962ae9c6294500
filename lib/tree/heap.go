package tree

import (
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/xlog"
)

// The max-heap is a linked complete binary tree. A node's implicit array
// index is never stored:
//
//	        [0]
//	       /   \
//	     [1]   [2]
//	     / \   /
//	   [3][4][5]
//
// children of [i] are [2i+1] and [2i+2], the last node is [size-1].
// Both the size and the index are recomputed by traversal per operation.

type maxHeap[K infra.OrderedKey] struct {
	root    *binNode[K]
	count   int64
	factory NodeFactory[K]
	stats   *maxHeapStats
	logger  xlog.XLogger
}

func (tree *maxHeap[K]) Len() int64 {
	if tree == nil {
		return 0
	}
	return atomic.LoadInt64(&tree.count)
}

func (tree *maxHeap[K]) Root() BinaryNode[K] {
	if tree == nil || tree.root == nil {
		return nil
	}
	return tree.root
}

func countNodes[K infra.OrderedKey](node *binNode[K]) int64 {
	if node == nil {
		return 0
	}
	return 1 + countNodes[K](node.left) + countNodes[K](node.right)
}

// nodeAtIndex descends carrying the implicit index of node. The indexes
// only grow downwards, so a subtree whose root is already past the target
// cannot hold it. A failed left search falls through to the right.
func nodeAtIndex[K infra.OrderedKey](node *binNode[K], idx, target int64) *binNode[K] {
	if node == nil || idx > target {
		return nil
	}
	if idx == target {
		return node
	}
	if found := nodeAtIndex[K](node.left, 2*idx+1, target); found != nil {
		return found
	}
	return nodeAtIndex[K](node.right, 2*idx+2, target)
}

// siftDown swaps the value with the strictly larger child until the
// current node is the largest of the three.
func siftDown[K infra.OrderedKey](node *binNode[K]) (swaps int64) {
	var current *binNode[K]
	for largest := node; largest != current; {
		current = largest
		if current.left != nil && infra.CompareOrderedKey[K](current.left.value, largest.value) > 0 {
			largest = current.left
		}
		if current.right != nil && infra.CompareOrderedKey[K](current.right.value, largest.value) > 0 {
			largest = current.right
		}
		if largest != current {
			current.value, largest.value = largest.value, current.value
			swaps++
		}
	}
	return swaps
}

// siftUp returns the node finally holding the value.
func siftUp[K infra.OrderedKey](node *binNode[K]) (*binNode[K], int64) {
	swaps := int64(0)
	for node.parent != nil && infra.CompareOrderedKey[K](node.value, node.parent.value) > 0 {
		node.value, node.parent.value = node.parent.value, node.value
		node = node.parent
		swaps++
	}
	return node, swaps
}

func (tree *maxHeap[K]) shapeViolation(op string, size int64) error {
	err := infra.WrapErrorStack(fmt.Errorf("%w, size %d", ErrHeapShapeViolation, size), "[heap]", op)
	tree.logger.ErrorStack(err, "[heap] invariant violation", zap.String("op", op), zap.Int64("size", size))
	return err
}

// Insert attaches the value at the implicit index size, the first free
// slot of the last level, then sifts it up.
func (tree *maxHeap[K]) Insert(value K) (BinaryNode[K], error) {
	if tree == nil {
		return nil, infra.WrapErrorStack(ErrNilTree)
	}

	var (
		size   = countNodes[K](tree.root)
		parent BinaryNode[K]
		p      *binNode[K]
	)
	if size > 0 {
		if p = nodeAtIndex[K](tree.root, 0, (size-1)/2); p == nil {
			return nil, tree.shapeViolation("insert", size)
		}
		parent = p
	}

	node, err := tree.factory.MakeNode(parent, value)
	if err != nil || node == nil {
		err = infra.WrapErrorStack(fmt.Errorf("%w: %v", ErrNodeAllocation, err), "[heap]")
		tree.logger.ErrorStack(err, "[heap] insert failed", zap.Any("value", value))
		return nil, err
	}
	z, err := asBinNode[K](node)
	if err != nil {
		tree.logger.ErrorStack(err, "[heap] insert failed", zap.Any("value", value))
		return nil, err
	}
	z.parent, z.left, z.right = p, nil, nil

	switch {
	case p == nil:
		tree.root = z
	case /* 2i+1 */ size&0x1 == 1:
		p.left = z
	default /* 2i+2 */ :
		p.right = z
	}

	holder, swaps := siftUp[K](z)
	atomic.AddInt64(&tree.count, 1)
	tree.stats.IncreaseInsertCount(swaps)
	return holder, nil
}

/*
e1: Empty heap, return the zero value, not an error.

e2: Move the last node's value into the root and detach the last node.
The root node itself is never freed, unless it is the last node.

	    [9]               [5]              [5]
	   /   \             /   \            /   \
	 [8]   [2]  ====>  [8]   [2]  ====>  [8]   [2]
	 / \               /
	[1][5]            [1]

e3: Sift the new root value down.

	    [5]               [8]
	   /   \             /   \
	 [8]   [2]  ====>  [5]   [2]
	 /                 /
	[1]               [1]
*/
func (tree *maxHeap[K]) ExtractMax() (K, error) {
	var zero K
	if /* e1 */ tree == nil || tree.root == nil {
		return zero, nil
	}

	value := tree.root.value
	size := countNodes[K](tree.root)
	last := nodeAtIndex[K](tree.root, 0, size-1)
	if last == nil {
		return zero, tree.shapeViolation("extract", size)
	}

	/* e2 */
	tree.root.value = last.value
	switch dir := last.Direction(); dir {
	case Root:
		tree.root = nil
	case Left:
		last.parent.left = nil
	case Right:
		last.parent.right = nil
	default:
		// impossible run to here
		panic( /* debug assertion */ "[heap] unknown last node direction")
	}
	tree.factory.ReleaseNode(last)

	swaps := int64(0)
	if /* e3 */ tree.root != nil {
		swaps = siftDown[K](tree.root)
	}
	atomic.AddInt64(&tree.count, -1)
	tree.stats.IncreaseExtractCount(swaps)
	return value, nil
}

func (tree *maxHeap[K]) ToSortedSequence() ([]K, error) {
	if tree == nil {
		return []K{}, nil
	}
	seq := make([]K, 0, tree.Len())
	for tree.root != nil {
		v, err := tree.ExtractMax()
		if err != nil {
			return seq, err
		}
		seq = append(seq, v)
	}
	return seq, nil
}

// Level order traversal, idx is the implicit array index.
func (tree *maxHeap[K]) Foreach(action func(idx int64, value K) bool) {
	if tree == nil || tree.root == nil {
		return
	}

	queue := make([]*binNode[K], 0, tree.Len())
	defer func() {
		clear(queue)
	}()
	queue = append(queue, tree.root)
	for idx := int64(0); int(idx) < len(queue); idx++ {
		aux := queue[idx]
		if !action(idx, aux.value) {
			return
		}
		if aux.left != nil {
			queue = append(queue, aux.left)
		}
		if aux.right != nil {
			queue = append(queue, aux.right)
		}
	}
}

func (tree *maxHeap[K]) Release() {
	if tree == nil {
		return
	}
	released := releaseNodes[K](tree.root, tree.factory)
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
	tree.stats.RecordNodeCount(-released)
}

type MaxHeapOpt[K infra.OrderedKey] func(*maxHeap[K])

func WithMaxHeapNodeFactory[K infra.OrderedKey](factory NodeFactory[K]) MaxHeapOpt[K] {
	return func(tree *maxHeap[K]) {
		if factory != nil {
			tree.factory = factory
		}
	}
}

func WithMaxHeapStats[K infra.OrderedKey](name string, mp ...metric.MeterProvider) MaxHeapOpt[K] {
	return func(tree *maxHeap[K]) {
		tree.stats = newMaxHeapStats(name, mp...)
	}
}

func WithMaxHeapLogger[K infra.OrderedKey](logger xlog.XLogger) MaxHeapOpt[K] {
	return func(tree *maxHeap[K]) {
		if logger != nil {
			tree.logger = logger.Named("xtree.heap")
		}
	}
}

func NewMaxHeap[K infra.OrderedKey](opts ...MaxHeapOpt[K]) MaxHeap[K] {
	return newMaxHeap[K](opts...)
}

func newMaxHeap[K infra.OrderedKey](opts ...MaxHeapOpt[K]) *maxHeap[K] {
	tree := &maxHeap[K]{
		count: 0,
	}
	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	if tree.factory == nil {
		tree.factory = NewNodeFactory[K]()
	}
	if tree.logger == nil {
		tree.logger = xlog.NewNopXLogger()
	}
	return tree
}

// ArrayToMaxHeap builds the heap by repeated insertion.
func ArrayToMaxHeap[K infra.OrderedKey](values []K, opts ...MaxHeapOpt[K]) (MaxHeap[K], error) {
	tree := newMaxHeap[K](opts...)
	for _, v := range values {
		if _, err := tree.Insert(v); err != nil {
			tree.Release()
			return nil, err
		}
	}
	return tree, nil
}
