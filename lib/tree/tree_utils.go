package tree

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/benz9527/xtree/lib/infra"
)

// Height of an absent subtree is -1 and of a leaf is 0.
// It walks the whole subtree instead of trusting any cached value.
func Height[K infra.OrderedKey](node BinaryNode[K]) int64 {
	if node == nil {
		return -1
	}
	return max(Height[K](node.Left()), Height[K](node.Right())) + 1
}

// BalanceFactor reports height(left) - height(right), 0 for an absent node.
func BalanceFactor[K infra.OrderedKey](node BinaryNode[K]) int64 {
	if node == nil {
		return 0
	}
	return Height[K](node.Left()) - Height[K](node.Right())
}

func NodeCount[K infra.OrderedKey](node BinaryNode[K]) int64 {
	if node == nil {
		return 0
	}
	return 1 + NodeCount[K](node.Left()) + NodeCount[K](node.Right())
}

// Tree rule validation utilities.
// All of them collect every violation instead of stopping at the first one.

func AVLBalanceViolationValidate[K infra.OrderedKey](root BinaryNode[K]) error {
	var err error
	var walk func(node BinaryNode[K]) int64
	// Post-order, every height is computed once.
	walk = func(node BinaryNode[K]) int64 {
		if node == nil {
			return -1
		}
		lh, rh := walk(node.Left()), walk(node.Right())
		if bf := lh - rh; bf > 1 || bf < -1 {
			err = multierr.Append(err, fmt.Errorf("[xtree] avl balance violation at %v, balance factor %d", node.Value(), bf))
		}
		return max(lh, rh) + 1
	}
	walk(root)
	return err
}

// Inorder traversal, values must be strictly increasing.
func BSTOrderViolationValidate[K infra.OrderedKey](root BinaryNode[K]) error {
	if root == nil {
		return nil
	}

	var (
		err   error
		prev  BinaryNode[K]
		aux   = root
		stack = make([]BinaryNode[K], 0, 32)
	)
	for ; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		if prev != nil && infra.CompareOrderedKey[K](prev.Value(), aux.Value()) >= 0 {
			err = multierr.Append(err, fmt.Errorf("[xtree] bst order violation, %v is not less than %v", prev.Value(), aux.Value()))
		}
		prev = aux
		for aux = aux.Right(); aux != nil; aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return err
}

// Every child must point back to the node holding it, the root to nothing.
func ParentLinkViolationValidate[K infra.OrderedKey](root BinaryNode[K]) error {
	if root == nil {
		return nil
	}

	var err error
	if root.Parent() != nil {
		err = multierr.Append(err, fmt.Errorf("[xtree] parent link violation, root %v has a parent", root.Value()))
	}
	queue := []BinaryNode[K]{root}
	for len(queue) > 0 {
		aux := queue[0]
		queue = queue[1:]
		for _, child := range [2]BinaryNode[K]{aux.Left(), aux.Right()} {
			if child == nil {
				continue
			}
			if child.Parent() != aux {
				err = multierr.Append(err, fmt.Errorf("[xtree] parent link violation, %v is not the parent of %v", aux.Value(), child.Value()))
			}
			queue = append(queue, child)
		}
	}
	return err
}

// A complete tree of n nodes occupies exactly the implicit indexes [0, n).
func HeapShapeViolationValidate[K infra.OrderedKey](root BinaryNode[K]) error {
	size := NodeCount[K](root)
	var err error
	var walk func(node BinaryNode[K], idx int64)
	walk = func(node BinaryNode[K], idx int64) {
		if node == nil {
			return
		}
		if idx >= size {
			err = multierr.Append(err, fmt.Errorf("[xtree] heap shape violation, %v at index %d out of size %d", node.Value(), idx, size))
		}
		walk(node.Left(), 2*idx+1)
		walk(node.Right(), 2*idx+2)
	}
	walk(root, 0)
	return err
}

func HeapOrderViolationValidate[K infra.OrderedKey](root BinaryNode[K]) error {
	var err error
	var walk func(node BinaryNode[K])
	walk = func(node BinaryNode[K]) {
		if node == nil {
			return
		}
		for _, child := range [2]BinaryNode[K]{node.Left(), node.Right()} {
			if child != nil && infra.CompareOrderedKey[K](child.Value(), node.Value()) > 0 {
				err = multierr.Append(err, fmt.Errorf("[xtree] heap order violation, child %v greater than %v", child.Value(), node.Value()))
			}
			walk(child)
		}
	}
	walk(root)
	return err
}
