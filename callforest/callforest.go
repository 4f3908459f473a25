// Package callforest is the ordered forest of account updates carried by a
// zkApp command, together with the stack hash that commits to it.
//
// A forest is a linked list of trees. Each tree carries an element, the
// element's digest, and the forest of its children. Hashes are defined
// recursively:
//
//	tree_digest  = H("ZkAcctUpdNode", elem_digest, stack_hash(children))
//	stack_hash   = H("ZkAcctUpdCons", tree_digest, stack_hash(rest))
//	stack_hash() = 0
//
// Nodes live in an append-only arena shared by every forest derived from
// the same construction, so popping a tree or splitting off its children
// never copies.
package callforest

import (
	"errors"

	"github.com/colorfulnotion/zkapply/common"
)

const (
	nodePrefix = "ZkAcctUpdNode"
	consPrefix = "ZkAcctUpdCons"

	none = -1
)

// ErrUnauthenticated is returned when a hash is required from a forest whose
// hashes have not been accumulated.
var ErrUnauthenticated = errors.New("call forest hashes have not been accumulated")

// Digester is implemented by forest elements.
type Digester interface {
	Digest() common.Field
}

type node[T Digester] struct {
	elem      T
	digest    common.Field
	treeHash  common.Field
	stackHash common.Field
	children  int
	next      int
	hashed    bool
}

type arena[T Digester] struct {
	nodes []node[T]
}

// Forest is an immutable call forest. The zero value is the empty forest.
type Forest[T Digester] struct {
	a    *arena[T]
	head int
}

// Tree is a single element with its children, as returned by Pop.
type Tree[T Digester] struct {
	Elem     T
	Children Forest[T]
}

// Empty returns the empty forest.
func Empty[T Digester]() Forest[T] {
	return Forest[T]{head: none}
}

func (f Forest[T]) first() int {
	if f.a == nil {
		return none
	}
	return f.head
}

// IsEmpty reports whether the forest has no trees.
func (f Forest[T]) IsEmpty() bool {
	return f.first() == none
}

// Hash returns the stack hash of the forest. The empty forest hashes to
// zero. A forest built by Build without AccumulateHashes reports false.
func (f Forest[T]) Hash() (common.Field, bool) {
	i := f.first()
	if i == none {
		return common.Field{}, true
	}
	n := &f.a.nodes[i]
	return n.stackHash, n.hashed
}

// MustHash is Hash for callers that have already authenticated the forest.
func (f Forest[T]) MustHash() common.Field {
	h, ok := f.Hash()
	if !ok {
		panic(ErrUnauthenticated)
	}
	return h
}

// Authenticated reports whether every hash in the forest is accumulated.
func (f Forest[T]) Authenticated() bool {
	_, ok := f.Hash()
	return ok
}

// Cons pushes a tree onto the front of rest, computing its hashes from the
// element digest and the children's stack hash. Both children and rest must
// be authenticated.
func Cons[T Digester](elem T, children, rest Forest[T]) (Forest[T], error) {
	if !children.Authenticated() || !rest.Authenticated() {
		return Forest[T]{}, ErrUnauthenticated
	}
	a := rest.a
	if a == nil {
		a = children.a
	}
	if a == nil {
		a = &arena[T]{}
	}
	ch := adopt(a, children)
	nx := adopt(a, rest)
	childHash, _ := children.Hash()
	restHash, _ := rest.Hash()
	digest := elem.Digest()
	treeHash := common.HashWithPrefix(nodePrefix, digest, childHash)
	a.nodes = append(a.nodes, node[T]{
		elem:      elem,
		digest:    digest,
		treeHash:  treeHash,
		stackHash: common.HashWithPrefix(consPrefix, treeHash, restHash),
		children:  ch,
		next:      nx,
		hashed:    true,
	})
	return Forest[T]{a: a, head: len(a.nodes) - 1}, nil
}

// adopt returns the index of f's head inside a, copying f's nodes when they
// live in a different arena.
func adopt[T Digester](a *arena[T], f Forest[T]) int {
	i := f.first()
	if i == none || f.a == a {
		return i
	}
	return copyNodes(a, f.a, i)
}

func copyNodes[T Digester](dst, src *arena[T], i int) int {
	var level []node[T]
	for ; i != none; i = src.nodes[i].next {
		n := src.nodes[i]
		n.children = copyNodes(dst, src, n.children)
		level = append(level, n)
	}
	next := none
	for j := len(level) - 1; j >= 0; j-- {
		level[j].next = next
		dst.nodes = append(dst.nodes, level[j])
		next = len(dst.nodes) - 1
	}
	return next
}

// Pop splits the forest into its first tree and the remaining forest.
func (f Forest[T]) Pop() (Tree[T], Forest[T], bool) {
	i := f.first()
	if i == none {
		return Tree[T]{}, f, false
	}
	n := &f.a.nodes[i]
	return Tree[T]{
		Elem:     n.elem,
		Children: Forest[T]{a: f.a, head: n.children},
	}, Forest[T]{a: f.a, head: n.next}, true
}

// Len returns the number of trees at the top level.
func (f Forest[T]) Len() int {
	n := 0
	for i := f.first(); i != none; i = f.a.nodes[i].next {
		n++
	}
	return n
}

// Fold visits every element in pre-order.
func Fold[T Digester, A any](f Forest[T], init A, fn func(A, T) A) A {
	acc := init
	f.walk(func(n *node[T]) {
		acc = fn(acc, n.elem)
	})
	return acc
}

// ToList returns every element in pre-order.
func (f Forest[T]) ToList() []T {
	return Fold(f, []T(nil), func(acc []T, elem T) []T { return append(acc, elem) })
}

// Count returns the number of elements in the forest.
func (f Forest[T]) Count() int {
	return Fold(f, 0, func(n int, _ T) int { return n + 1 })
}

func (f Forest[T]) walk(fn func(n *node[T])) {
	stack := []int{}
	if i := f.first(); i != none {
		stack = append(stack, i)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &f.a.nodes[i]
		fn(n)
		if n.next != none {
			stack = append(stack, n.next)
		}
		if n.children != none {
			stack = append(stack, n.children)
		}
	}
}

// Map rebuilds the forest with fn applied to every element, preserving the
// shape. Hashes of the result are recomputed from the new elements.
func Map[T, U Digester](f Forest[T], fn func(T) U) Forest[U] {
	g, _ := TryMap(f, func(t T) (U, error) { return fn(t), nil })
	return g
}

// TryMap is Map with a fallible function; the first error stops the walk.
func TryMap[T, U Digester](f Forest[T], fn func(T) (U, error)) (Forest[U], error) {
	if f.IsEmpty() {
		return Empty[U](), nil
	}
	b := NewBuilder[U]()
	// siblings are walked in a loop, so only nesting depth uses the stack
	var build func(i int) (int, error)
	build = func(i int) (int, error) {
		var (
			elems    []U
			children []int
		)
		for ; i != none; i = f.a.nodes[i].next {
			n := &f.a.nodes[i]
			elem, err := fn(n.elem)
			if err != nil {
				return none, err
			}
			ch, err := build(n.children)
			if err != nil {
				return none, err
			}
			elems, children = append(elems, elem), append(children, ch)
		}
		next := none
		for j := len(elems) - 1; j >= 0; j-- {
			next = b.add(elems[j], children[j], next)
		}
		return next, nil
	}
	head, err := build(f.head)
	if err != nil {
		return Forest[U]{}, err
	}
	out := Forest[U]{a: b.a, head: head}
	AccumulateHashes(out)
	return out, nil
}
