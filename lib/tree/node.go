package tree

import (
	"sync"

	"github.com/benz9527/xtree/lib/infra"
)

type binNode[K infra.OrderedKey] struct {
	parent *binNode[K]
	left   *binNode[K]
	right  *binNode[K]
	value  K
	// Cached by the AVL tree only, the heap never reads it.
	height int32
}

func (node *binNode[K]) Value() K {
	return node.value
}

func (node *binNode[K]) Left() BinaryNode[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *binNode[K]) Right() BinaryNode[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *binNode[K]) Parent() BinaryNode[K] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

func (node *binNode[K]) isRoot() bool {
	return node != nil && node.parent == nil
}

func (node *binNode[K]) Direction() Direction {
	if node == nil {
		// impossible run to here
		panic( /* debug assertion */ "[xtree] nil node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *binNode[K]) fixLink() {
	if node.left != nil {
		node.left.parent = node
	}
	if node.right != nil {
		node.right.parent = node
	}
}

func (node *binNode[K]) cachedHeight() int32 {
	if node == nil {
		return -1
	}
	return node.height
}

func (node *binNode[K]) updateHeight() {
	node.height = max(node.left.cachedHeight(), node.right.cachedHeight()) + 1
}

func (node *binNode[K]) balanceFactor() int32 {
	return node.left.cachedHeight() - node.right.cachedHeight()
}

func (node *binNode[K]) unlink() {
	node.parent, node.left, node.right = nil, nil, nil
	node.height = 0
}

func asBinNode[K infra.OrderedKey](node BinaryNode[K]) (*binNode[K], error) {
	if node == nil {
		return nil, nil
	}
	n, ok := node.(*binNode[K])
	if !ok {
		return nil, infra.WrapErrorStack(ErrForeignNode)
	}
	return n, nil
}

// MakeNode allocates a detached node holding value. Only the back-reference
// to parent is set, linking the node into a child slot is up to the caller.
func MakeNode[K infra.OrderedKey](parent BinaryNode[K], value K) (BinaryNode[K], error) {
	p, err := asBinNode[K](parent)
	if err != nil {
		return nil, err
	}
	return &binNode[K]{
		parent: p,
		value:  value,
	}, nil
}

var _ NodeFactory[int] = (*nodeFactory[int])(nil)

type nodeFactory[K infra.OrderedKey] struct{}

func (f nodeFactory[K]) MakeNode(parent BinaryNode[K], value K) (BinaryNode[K], error) {
	return MakeNode[K](parent, value)
}

func (f nodeFactory[K]) ReleaseNode(node BinaryNode[K]) {
	if n, err := asBinNode[K](node); err == nil && n != nil {
		n.unlink()
	}
}

func NewNodeFactory[K infra.OrderedKey]() NodeFactory[K] {
	return nodeFactory[K]{}
}

var _ NodeFactory[int] = (*pooledNodeFactory[int])(nil)

// pooledNodeFactory keeps the released nodes in a free list
// chained by the parent link and reuses them before allocating.
type pooledNodeFactory[K infra.OrderedKey] struct {
	lock       sync.Mutex
	pool       *binNode[K]
	totalNodes int64
	freeNodes  int64
}

func (f *pooledNodeFactory[K]) MakeNode(parent BinaryNode[K], value K) (BinaryNode[K], error) {
	p, err := asBinNode[K](parent)
	if err != nil {
		return nil, err
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.pool == nil {
		if f.freeNodes != 0 {
			panic( /* debug assertion */ "[xtree] node pool corrupt")
		}
		f.totalNodes++
		return &binNode[K]{
			parent: p,
			value:  value,
		}, nil
	}
	n := f.pool
	f.pool = n.parent
	f.freeNodes--
	n.unlink()
	n.parent, n.value = p, value
	return n, nil
}

func (f *pooledNodeFactory[K]) ReleaseNode(node BinaryNode[K]) {
	n, err := asBinNode[K](node)
	if err != nil || n == nil {
		return
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	n.unlink()
	var zero K
	n.value = zero
	n.parent = f.pool // free list link
	f.pool = n
	f.freeNodes++
}

// Stats returns the number of nodes ever allocated and the number
// of nodes waiting in the free list.
func (f *pooledNodeFactory[K]) Stats() (total, free int64) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.totalNodes, f.freeNodes
}

func NewPooledNodeFactory[K infra.OrderedKey]() NodeFactory[K] {
	return &pooledNodeFactory[K]{}
}
