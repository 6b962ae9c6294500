package tree

import "errors"

var (
	ErrNilTree            = errors.New("[xtree] nil tree")
	ErrNodeAllocation     = errors.New("[xtree] node allocation failed")
	ErrForeignNode        = errors.New("[xtree] node is not created by MakeNode")
	ErrHeapShapeViolation = errors.New("[xtree] heap last node not found")
)
