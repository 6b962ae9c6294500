package tree

import (
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/xlog"
)

// References:
// https://en.wikipedia.org/wiki/AVL_tree
// avl properties:
// p1. Left subtree values are strictly less, right subtree values are
//   strictly greater. No duplicates.
// p2. For every node |height(left) - height(right)| <= 1, the height
//   of an absent subtree is -1 and of a leaf is 0.
// An insertion changes the height of a subtree by at most 1, so only the
// ancestors on the insertion path may be unbalanced, and one single or
// double rotation at the lowest of them restores the heights above.

type avlTree[K infra.OrderedKey] struct {
	root    *binNode[K]
	count   int64
	factory NodeFactory[K]
	stats   *avlTreeStats
	logger  xlog.XLogger
}

func (tree *avlTree[K]) Len() int64 {
	if tree == nil {
		return 0
	}
	return atomic.LoadInt64(&tree.count)
}

func (tree *avlTree[K]) Root() BinaryNode[K] {
	if tree == nil || tree.root == nil {
		return nil
	}
	return tree.root
}

/*
		 |                         |
		 X                         Y
		/ \     leftRotate(X)     / \
	   L   Y    ============>    X   Yr
		  / \                   / \
		Yl   Yr                L   Yl
*/
func (tree *avlTree[K]) leftRotate(x *binNode[K]) *binNode[K] {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[avl] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	dir := x.Direction()
	x.right, y.left = y.left, x

	x.fixLink()
	y.fixLink()
	tree.relink(p, y, dir)

	x.updateHeight()
	y.updateHeight()
	tree.stats.IncreaseRotationCount(Left)
	tree.logger.Debug("[avl] left rotate", zap.Any("pivot", x.value), zap.Any("promoted", y.value))
	return y
}

/*
		   |                         |
		   X                         Y
		  / \     rightRotate(X)    / \
		 Y   R    ============>    Yl  X
		/ \                           / \
	   Yl  Yr                        Yr  R
*/
func (tree *avlTree[K]) rightRotate(x *binNode[K]) *binNode[K] {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[avl] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	dir := x.Direction()
	x.left, y.right = y.right, x

	x.fixLink()
	y.fixLink()
	tree.relink(p, y, dir)

	x.updateHeight()
	y.updateHeight()
	tree.stats.IncreaseRotationCount(Right)
	tree.logger.Debug("[avl] right rotate", zap.Any("pivot", x.value), zap.Any("promoted", y.value))
	return y
}

// relink hangs the re-rooted subtree y on the slot its old root owned.
func (tree *avlTree[K]) relink(p, y *binNode[K], dir Direction) {
	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[avl] unknown node direction to rotate")
	}
	y.parent = p
}

/*
The value decides the zig-zag direction, it has been linked
into the heavy side already.

LL: value < A.left, rightRotate(A).
LR: value > A.left, leftRotate(A.left), then rightRotate(A).

	    A              A             C
	   /              /             / \
	  B     ====>    C    ====>    B   A
	   \            /
	    C          B

RR and RL are the mirror images.
*/
func (tree *avlTree[K]) rebalance(a *binNode[K], value K) *binNode[K] {
	switch bf := a.balanceFactor(); {
	case bf > 1:
		if /* LR */ infra.CompareOrderedKey[K](value, a.left.value) > 0 {
			tree.leftRotate(a.left)
		}
		return tree.rightRotate(a)
	case bf < -1:
		if /* RL */ infra.CompareOrderedKey[K](value, a.right.value) < 0 {
			tree.rightRotate(a.right)
		}
		return tree.leftRotate(a)
	default:
	}
	return a
}

// insert returns the root of the subtree x after the candidate z has been
// linked and the subtree rebalanced. False means z is a duplicate and
// nothing has been touched.
func (tree *avlTree[K]) insert(x, z *binNode[K]) (*binNode[K], bool) {
	if x == nil {
		z.height = 0
		return z, true
	}

	var (
		sub *binNode[K]
		ok  bool
	)
	switch res := infra.CompareOrderedKey[K](z.value, x.value); {
	case /* equal */ res == 0:
		return x, false
	case /* less */ res < 0:
		if sub, ok = tree.insert(x.left, z); !ok {
			return x, false
		}
		x.left, sub.parent = sub, x
	default /* greater */ :
		if sub, ok = tree.insert(x.right, z); !ok {
			return x, false
		}
		x.right, sub.parent = sub, x
	}

	x.updateHeight()
	return tree.rebalance(x, z.value), true
}

// Insert allocates the candidate before walking down, so an allocation
// failure leaves the tree untouched.
func (tree *avlTree[K]) Insert(value K) (BinaryNode[K], error) {
	if tree == nil {
		return nil, infra.WrapErrorStack(ErrNilTree)
	}

	node, err := tree.factory.MakeNode(nil, value)
	if err != nil || node == nil {
		err = infra.WrapErrorStack(fmt.Errorf("%w: %v", ErrNodeAllocation, err), "[avl]")
		tree.logger.ErrorStack(err, "[avl] insert failed", zap.Any("value", value))
		return nil, err
	}
	z, err := asBinNode[K](node)
	if err != nil {
		tree.logger.ErrorStack(err, "[avl] insert failed", zap.Any("value", value))
		return nil, err
	}
	z.parent, z.left, z.right = nil, nil, nil

	root, inserted := tree.insert(tree.root, z)
	if !inserted {
		tree.factory.ReleaseNode(z)
		tree.stats.IncreaseDuplicateCount()
		tree.logger.Debug("[avl] duplicate value discarded", zap.Any("value", value))
		return nil, nil
	}
	tree.root = root
	tree.root.parent = nil
	atomic.AddInt64(&tree.count, 1)
	tree.stats.IncreaseInsertCount()
	return z, nil
}

func (tree *avlTree[K]) Contains(value K) bool {
	if tree == nil {
		return false
	}
	for aux := tree.root; aux != nil; {
		res := infra.CompareOrderedKey[K](value, aux.value)
		if res == 0 {
			return true
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return false
}

// Inorder traversal to implement the DFS.
func (tree *avlTree[K]) Foreach(action func(idx int64, value K) bool) {
	if tree == nil || tree.root == nil {
		return
	}

	aux := tree.root
	stack := make([]*binNode[K], 0, aux.height+1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.value) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

// Release hands every node back to the factory.
func (tree *avlTree[K]) Release() {
	if tree == nil {
		return
	}
	released := releaseNodes[K](tree.root, tree.factory)
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
	tree.stats.RecordNodeCount(-released)
}

func releaseNodes[K infra.OrderedKey](root *binNode[K], factory NodeFactory[K]) int64 {
	if root == nil {
		return 0
	}
	released := int64(0)
	queue := []*binNode[K]{root}
	for len(queue) > 0 {
		aux := queue[0]
		queue = queue[1:]
		if aux.left != nil {
			queue = append(queue, aux.left)
		}
		if aux.right != nil {
			queue = append(queue, aux.right)
		}
		factory.ReleaseNode(aux)
		released++
	}
	return released
}

type AVLTreeOpt[K infra.OrderedKey] func(*avlTree[K])

func WithAVLTreeNodeFactory[K infra.OrderedKey](factory NodeFactory[K]) AVLTreeOpt[K] {
	return func(tree *avlTree[K]) {
		if factory != nil {
			tree.factory = factory
		}
	}
}

// WithAVLTreeStats records the metrics by the global otel meter provider
// unless one is given.
func WithAVLTreeStats[K infra.OrderedKey](name string, mp ...metric.MeterProvider) AVLTreeOpt[K] {
	return func(tree *avlTree[K]) {
		tree.stats = newAVLTreeStats(name, mp...)
	}
}

func WithAVLTreeLogger[K infra.OrderedKey](logger xlog.XLogger) AVLTreeOpt[K] {
	return func(tree *avlTree[K]) {
		if logger != nil {
			tree.logger = logger.Named("xtree.avl")
		}
	}
}

func NewAVLTree[K infra.OrderedKey](opts ...AVLTreeOpt[K]) AVLTree[K] {
	return newAVLTree[K](opts...)
}

func newAVLTree[K infra.OrderedKey](opts ...AVLTreeOpt[K]) *avlTree[K] {
	tree := &avlTree[K]{
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

// ArrayToAVL inserts the values in order, duplicates are discarded.
// A nil or empty slice builds an empty tree.
func ArrayToAVL[K infra.OrderedKey](values []K, opts ...AVLTreeOpt[K]) (AVLTree[K], error) {
	tree := newAVLTree[K](opts...)
	for _, v := range values {
		if _, err := tree.Insert(v); err != nil {
			tree.Release()
			return nil, err
		}
	}
	return tree, nil
}
