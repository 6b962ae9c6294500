package tree

import "github.com/benz9527/xtree/lib/infra"

type Direction int8

const (
	Left Direction = -1 + iota
	Root
	Right
)

func (dir Direction) String() string {
	switch dir {
	case Left:
		return "left"
	case Root:
		return "root"
	case Right:
		return "right"
	default:
	}
	return "unknown"
}

// BinaryNode is the read-only view of the node shape shared by
// the AVL tree and the max-heap.
type BinaryNode[K infra.OrderedKey] interface {
	Value() K
	Left() BinaryNode[K]
	Right() BinaryNode[K]
	Parent() BinaryNode[K]
}

// NodeFactory allocates and reclaims the tree nodes.
// MakeNode must return nodes created by the package level MakeNode,
// a custom factory is a decorator (quota, pool, counter) around it.
type NodeFactory[K infra.OrderedKey] interface {
	MakeNode(parent BinaryNode[K], value K) (BinaryNode[K], error)
	ReleaseNode(node BinaryNode[K])
}

type AVLTree[K infra.OrderedKey] interface {
	Len() int64
	Root() BinaryNode[K]
	// Insert returns the new node, or nil if the value is already present.
	Insert(value K) (BinaryNode[K], error)
	Contains(value K) bool
	Foreach(action func(idx int64, value K) bool)
	Release()
}

type MaxHeap[K infra.OrderedKey] interface {
	Len() int64
	Root() BinaryNode[K]
	// Insert returns the node holding the value after sift-up.
	Insert(value K) (BinaryNode[K], error)
	// ExtractMax returns the zero value without error on an empty heap.
	ExtractMax() (K, error)
	// ToSortedSequence drains the heap into a non-increasing slice.
	ToSortedSequence() ([]K, error)
	// Foreach visits the nodes by the implicit array index.
	Foreach(action func(idx int64, value K) bool)
	Release()
}
